// Package repl provides interactive mode for sirius CLI.
//
// This package implements the Read-Eval-Print Loop for interactive sessions:
//
//   - repl.go: Main REPL loop and command dispatch
//   - completer.go: prefix completion over a fixed command list
//   - history.go: in-memory command history with file save/load
//
// The loop reads one line at a time from its input. It has no line editing,
// history navigation, multi-line input or colored output, and does not call
// the completer itself.
//
// @design DS-0602
package repl
