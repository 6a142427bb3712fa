// Package main provides the entry point for siriusctl, the command-line
// client for sirius-server (spec.md §6).
//
// Usage:
//
//	siriusctl [global flags] COMMAND [args]
//	siriusctl             # enters interactive REPL mode
package main
