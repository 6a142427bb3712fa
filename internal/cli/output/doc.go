// Package output provides output formatting for sirius CLI.
//
// This package handles all CLI output formatting:
//
//   - formatter.go: Formatter interface and factory
//   - table.go: Table rendering with wide mode support
//   - json.go: JSON output formatting
//   - yaml.go: YAML formatter (writes no output; YAML encoding is not implemented)
//   - spinner.go: Progress animation for long operations
//
// Formatters support:
//
//   - Output formats table and json; yaml is accepted but prints nothing
//   - Wide mode for additional columns
//   - Machine-readable output for scripting
//
// @design DS-0601
package output
