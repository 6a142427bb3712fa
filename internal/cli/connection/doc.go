// Package connection provides connection management for sirius CLI.
//
// This package manages connections to sirius servers:
//
//   - manager.go: records which connection is current
//   - http.go: HTTP/HTTPS client implementation
//
// The manager does not dial, reconnect or health-check a server; saved
// connection profiles live in internal/cli/config.
//
// @design DS-0602
package connection
