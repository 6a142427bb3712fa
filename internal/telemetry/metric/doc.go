// Package metric provides Prometheus metrics for sirius-server.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: the registry, its metric families, and the /metrics handler
//   - collector.go: a custom collector for runtime stats sampled on scrape
//
// Metrics cover RPC request counts/latency, per-group Raft leadership,
// TSO throughput, config cache hit rate, and KV garbage-collection
// reclaim, all under the sirius_ namespace.
package metric
