// Package main provides the entry point for sirius-server.
//
// The server hosts the catalog, id-allocator, and timestamp state machines
// as three Raft groups over one shared peer set (spec.md §4.1) and exposes
// the operations from spec.md §6 as JSON/HTTP endpoints, ahead of the
// connect-RPC transport api/proto/v1 will bind once generated.
//
// Usage:
//
//	sirius-server [flags]
//	sirius-server --config /path/to/config.yaml
package main
