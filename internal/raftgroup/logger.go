package raftgroup

import (
	"io"
	"log"

	"github.com/hashicorp/go-hclog"

	"github.com/gottingen/sirius-go/internal/telemetry/logger"
)

// hcLogger adapts our slog-based logger.Logger to hashicorp/go-hclog, which
// hashicorp/raft requires.
type hcLogger struct {
	log  logger.Logger
	name string
}

func newHCLogger(log logger.Logger, name string) hclog.Logger {
	return &hcLogger{log: log, name: name}
}

func (l *hcLogger) Log(level hclog.Level, msg string, args ...any) {
	switch level {
	case hclog.Trace, hclog.Debug:
		l.log.Debug(msg, args...)
	case hclog.Info:
		l.log.Info(msg, args...)
	case hclog.Warn:
		l.log.Warn(msg, args...)
	case hclog.Error:
		l.log.Error(msg, args...)
	default:
		l.log.Info(msg, args...)
	}
}

func (l *hcLogger) Trace(msg string, args ...any) { l.log.Debug(msg, args...) }
func (l *hcLogger) Debug(msg string, args ...any) { l.log.Debug(msg, args...) }
func (l *hcLogger) Info(msg string, args ...any)  { l.log.Info(msg, args...) }
func (l *hcLogger) Warn(msg string, args ...any)  { l.log.Warn(msg, args...) }
func (l *hcLogger) Error(msg string, args ...any) { l.log.Error(msg, args...) }

func (l *hcLogger) IsTrace() bool { return false }
func (l *hcLogger) IsDebug() bool { return false }
func (l *hcLogger) IsInfo() bool  { return true }
func (l *hcLogger) IsWarn() bool  { return true }
func (l *hcLogger) IsError() bool { return true }

func (l *hcLogger) ImpliedArgs() []any { return nil }
func (l *hcLogger) With(args ...any) hclog.Logger {
	kvs := make([]any, 0, len(args))
	kvs = append(kvs, args...)
	return &hcLogger{log: l.log.With(kvs...), name: l.name}
}
func (l *hcLogger) Name() string { return l.name }
func (l *hcLogger) Named(name string) hclog.Logger {
	return &hcLogger{log: l.log, name: l.name + "." + name}
}
func (l *hcLogger) ResetNamed(name string) hclog.Logger { return &hcLogger{log: l.log, name: name} }
func (l *hcLogger) SetLevel(level hclog.Level)          {}
func (l *hcLogger) GetLevel() hclog.Level               { return hclog.Info }
func (l *hcLogger) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger { return nil }
func (l *hcLogger) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer   { return nil }
