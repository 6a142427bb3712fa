// Package config provides siriusctl's own local configuration file,
// distinct from internal/serverconfig (which configures sirius-server).
//
// This package defines:
//
//   - spec.go: CLIConfig struct (~/.sirius/cli.yaml)
//   - loader.go: load, save, and env/flag merging
//
// Configuration covers the default server address, output format, and a
// set of named, reusable connection profiles.
package config
