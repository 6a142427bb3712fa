// Package sysv1 provides Protocol Buffer definitions for the sirius
// service-discovery and configuration control plane's RPC surface:
// DiscoveryManager, DiscoveryQuery, RaftControl, ServletNaming, and Tso
// (spec.md §6), using Connect + Protobuf over length-prefixed binary
// messages.
//
// To regenerate:
//
//	go generate ./api/proto/v1
//
//go:generate buf generate
package sysv1
