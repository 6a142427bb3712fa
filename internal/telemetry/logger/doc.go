// Package logger provides structured logging for the discovery service.
//
//   - logger.go: slog-based logger construction and level control
//   - context.go: context-aware logging with request/trace IDs
//   - redact.go: sensitive data redaction
package logger
