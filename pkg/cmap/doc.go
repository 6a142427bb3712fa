// Package cmap provides a concurrent map implementation for the discovery
// service's in-memory indexes.
//
// This package implements a sharded concurrent map optimized for
// high-throughput instance/servlet lookups with the following features:
//
//   - Sharding: Configurable shard count for parallelism
//   - Fine-grained Locking: Per-shard RWMutex for minimal contention
//   - Iteration: Safe iteration while holding read locks
//
// Usage:
//
//	m := cmap.New[int64, *ServletInfo]()
//	m.Set(servletID, info)
//	val, ok := m.Get(servletID)
//
// Thread Safety:
//
// All operations are thread-safe. Read operations (Get, Has) use RLock,
// write operations (Set, Delete) use Lock.
package cmap
