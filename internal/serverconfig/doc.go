// Package serverconfig defines the replica process configuration for
// sirius-server: the struct loaded by internal/infra/confloader and the
// translation into internal/server.Config that actually starts the three
// Raft groups.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: default configuration values
//   - verify.go: validation (required fields, path existence)
//   - sanitize.go: log sanitization (hide sensitive values)
//   - cluster.go: ToHostConfig translation into internal/server.Config
package serverconfig
