// Package command provides CLI command definitions for siriusctl.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: root command, global flags, mode detection
//   - app.go, zone.go, servlet.go, instance.go: catalog entity commands
//   - config.go: versioned config subcommand group
//   - user.go: privilege subcommand group
//   - naming.go: servlet naming query
//   - tso.go: timestamp generation and reset
//   - raft.go: Raft membership control
//   - system.go: health check
//   - connect.go: connection management commands
//
// Commands follow a consistent pattern of parsing flags, posting a JSON
// request to the matching internal/server handler, and formatting the
// response.
package command
