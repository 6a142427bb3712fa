package tso

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gottingen/sirius-go/internal/statemachine"
	"github.com/gottingen/sirius-go/internal/telemetry/logger"
)

// leaderGroup is satisfied by *raftgroup.Node. Kept narrow here so tso does
// not import raftgroup, matching statemachine's own import-cycle avoidance.
type leaderGroup interface {
	statemachine.Submitter
	LeaderCh() <-chan bool
}

// Ticker drives the background clock-advance loop and on-leader-start
// bootstrap described in spec.md §4.6. ready gates GenTSO: a replica that
// just became leader must not serve timestamps until its first replicated
// Update commits.
type Ticker struct {
	node  leaderGroup
	fsm   *FSM
	cfg   ClockConfig
	log   logger.Logger
	ready atomic.Bool
}

// NewTicker wires a Ticker over node/fsm with the given clock tunables.
func NewTicker(node leaderGroup, fsm *FSM, cfg ClockConfig, log logger.Logger) *Ticker {
	if log == nil {
		log = logger.Default()
	}
	return &Ticker{node: node, fsm: fsm, cfg: cfg, log: log}
}

// Ready reports whether this replica has completed leader-start bootstrap
// and may serve GenTSO.
func (t *Ticker) Ready() bool { return t.ready.Load() }

// Run watches leadership transitions until ctx is canceled, bootstrapping
// and ticking while leader and going dormant (Ready=false) otherwise.
func (t *Ticker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case isLeader, ok := <-t.node.LeaderCh():
			if !ok {
				return
			}
			if isLeader {
				t.runAsLeader(ctx)
			} else {
				t.ready.Store(false)
			}
		}
	}
}

// runAsLeader bootstraps the clock then ticks until leadership is lost or
// ctx is canceled.
func (t *Ticker) runAsLeader(ctx context.Context) {
	if err := t.bootstrap(ctx); err != nil {
		t.log.Error("tso bootstrap failed", "error", err)
		return
	}
	t.ready.Store(true)

	interval := time.Duration(t.cfg.UpdateIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case isLeader, ok := <-t.node.LeaderCh():
			if !ok || !isLeader {
				t.ready.Store(false)
				return
			}
		case <-ticker.C:
			if err := t.tick(ctx); err != nil {
				t.log.Warn("tso tick failed", "error", err)
			}
		}
	}
}

// bootstrap implements on_leader_start: read last_save_physical from the
// loaded snapshot, set current.physical = max(now, last_save+guard), and
// replicate the initial update before Ready() can return true.
func (t *Ticker) bootstrap(ctx context.Context) error {
	now := time.Now().UnixMilli()
	lastSave := t.fsm.LastSavePhysical()

	guarded := lastSave + t.cfg.UpdateGuardMs
	physical := now
	if guarded > physical {
		physical = guarded
	}
	current := Timestamp{Physical: physical, Logical: 0}
	save := physical + t.cfg.SaveIntervalMs

	_, err := statemachine.Submit(ctx, t.node, uint16(OpUpdate), UpdateRequest{Current: current, SavePhysical: save}, 5*time.Second)
	if err != nil {
		return fmt.Errorf("tso: bootstrap sync: %w", err)
	}
	return nil
}

// tick implements update_timestamp: advance physical time forward, pushing
// save further out when the current persisted save is about to be caught
// up to, then replicate through Raft so followers apply the same advance.
func (t *Ticker) tick(ctx context.Context) error {
	current := t.fsm.Current()
	lastSave := t.fsm.LastSavePhysical()
	now := time.Now().UnixMilli()

	delta := now - current.Physical
	var next int64
	switch {
	case delta > t.cfg.UpdateGuardMs:
		next = now
	case current.Logical > t.cfg.MaxLogical/2:
		next = now + t.cfg.UpdateGuardMs
	default:
		return nil // no update needed yet
	}

	save := lastSave
	if save-next <= t.cfg.UpdateGuardMs {
		save = next + t.cfg.SaveIntervalMs
	}

	_, err := statemachine.Submit(ctx, t.node, uint16(OpUpdate), UpdateRequest{
		Current:      Timestamp{Physical: next, Logical: 0},
		SavePhysical: save,
	}, 5*time.Second)
	return err
}
