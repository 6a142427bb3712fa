package tso

import (
	"time"

	"github.com/gottingen/sirius-go/internal/statemachine"
)

// ClockConfig holds the tunables named in spec.md §4.6.
type ClockConfig struct {
	UpdateIntervalMs int64
	SaveIntervalMs   int64
	MaxLogical       int64
	UpdateGuardMs    int64
	GenRetries       int
}

// DefaultClockConfig matches the source's compiled-in constants.
func DefaultClockConfig() ClockConfig {
	return ClockConfig{
		UpdateIntervalMs: 50,
		SaveIntervalMs:   3000,
		MaxLogical:       1 << 18,
		UpdateGuardMs:    500,
		GenRetries:       50,
	}
}

// GenTSO draws count logical ticks from the leader's clock. It runs entirely
// outside Raft: under the state machine's mutex, it either succeeds
// immediately or, if the logical part would overflow max_logical this tick,
// sleeps update_interval_ms and retries, per spec.md §4.6.
func GenTSO(f *FSM, cfg ClockConfig, count int64) (Timestamp, error) {
	if count <= 0 {
		return Timestamp{}, statemachine.ErrInputParam.WithDetails("tso count should be positive")
	}

	interval := time.Duration(cfg.UpdateIntervalMs) * time.Millisecond
	for attempt := 0; attempt < cfg.GenRetries; attempt++ {
		if start, ok := f.tryGen(count, cfg.MaxLogical); ok {
			return start, nil
		}
		time.Sleep(interval)
	}
	return Timestamp{}, statemachine.ErrRetryLater.WithDetails("gen tso failed: logical space exhausted")
}
