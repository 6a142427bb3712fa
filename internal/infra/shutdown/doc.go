// Package shutdown provides graceful shutdown for sirius-server.
//
// This package handles process termination signals:
//
//   - Signal handling (SIGINT, SIGTERM)
//   - A timeout-bounded context handed to every hook
//   - Cleanup hook registration; hooks run in reverse order
//   - A Done channel closed once the hooks have run
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return srv.Shutdown(ctx) })
//	err := h.Wait() // blocks until SIGINT or SIGTERM, then runs the hooks
//
// @design DS-0501
package shutdown
