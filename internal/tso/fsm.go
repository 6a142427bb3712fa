// Package tso implements the timestamp-oracle state machine (Raft group 2):
// a physical/logical clock replicated so any replica that becomes leader can
// resume issuing strictly increasing timestamps.
package tso

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gottingen/sirius-go/internal/statemachine"
)

// OpType enumerates the two replicated mutations this group accepts. GenTSO
// itself is leader-local and never goes through Raft, per spec.md §4.6.
type OpType uint16

const (
	OpUpdate OpType = iota + 1
	OpResetTSO
)

// Timestamp is a (physical_ms, logical) pair, compared lexicographically.
type Timestamp struct {
	Physical int64 `json:"physical"`
	Logical  int64 `json:"logical"`
}

// Compare returns -1, 0, or 1 comparing t to other lexicographically on
// (physical, logical).
func (t Timestamp) Compare(other Timestamp) int {
	if t.Physical != other.Physical {
		if t.Physical < other.Physical {
			return -1
		}
		return 1
	}
	switch {
	case t.Logical < other.Logical:
		return -1
	case t.Logical > other.Logical:
		return 1
	default:
		return 0
	}
}

// UpdateRequest is the background ticker's replicated clock advance.
type UpdateRequest struct {
	Current      Timestamp `json:"current"`
	SavePhysical int64     `json:"save_physical"`
}

// ResetRequest is an operator-issued correction to the clock.
type ResetRequest struct {
	Current      Timestamp `json:"current"`
	SavePhysical int64     `json:"save_physical"`
	Force        bool      `json:"force"`
}

// snapshotPayload is the single field persisted across snapshots, per
// spec.md §4.6: "a single text file containing last_save_physical_ms". The
// in-memory current timestamp itself is rebuilt on leader start, not
// restored, since a follower never serves GenTSO.
type snapshotPayload struct {
	LastSavePhysical int64 `json:"last_save_physical_ms"`
}

// FSM holds the replicated clock. GenTSO reads/writes current directly
// under mu without going through Raft; Update/ResetTSO are the only
// Raft-replicated mutations.
type FSM struct {
	mu               sync.Mutex
	current          Timestamp
	lastSavePhysical int64
}

// NewFSM creates a zeroed timestamp state machine. current.Physical stays 0
// until the owning node becomes leader and calls Bootstrap.
func NewFSM() *FSM {
	return &FSM{}
}

// ApplyOp dispatches one replicated mutation.
func (f *FSM) ApplyOp(opType uint16, payload []byte) (any, error) {
	switch OpType(opType) {
	case OpUpdate:
		var req UpdateRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.applyUpdate(req)

	case OpResetTSO:
		var req ResetRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.applyReset(req)

	default:
		return nil, statemachine.ErrUnknownReqType.WithDetails(fmt.Sprintf("op_type=%d", opType))
	}
}

// applyUpdate rejects any replicated update that would move physical or
// last_save backward, per spec.md §4.6.
func (f *FSM) applyUpdate(req UpdateRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if req.SavePhysical < f.lastSavePhysical || req.Current.Physical < f.current.Physical {
		return nil, statemachine.ErrTSORollback.WithDetails(fmt.Sprintf(
			"save=%d<%d or physical=%d<%d", req.SavePhysical, f.lastSavePhysical, req.Current.Physical, f.current.Physical))
	}

	f.current = req.Current
	f.lastSavePhysical = req.SavePhysical
	return &UpdateRequest{Current: f.current, SavePhysical: f.lastSavePhysical}, nil
}

// applyReset is the same rollback check as applyUpdate unless Force is set.
func (f *FSM) applyReset(req ResetRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !req.Force && (req.SavePhysical < f.lastSavePhysical || req.Current.Physical < f.current.Physical) {
		return nil, statemachine.ErrTSORollback.WithDetails(fmt.Sprintf(
			"save=%d<%d or physical=%d<%d", req.SavePhysical, f.lastSavePhysical, req.Current.Physical, f.current.Physical))
	}

	f.current = req.Current
	f.lastSavePhysical = req.SavePhysical
	return &UpdateRequest{Current: f.current, SavePhysical: f.lastSavePhysical}, nil
}

// Snapshot fields and SnapshotState/RestoreState below satisfy
// statemachine.Applier.

// SnapshotState returns last_save_physical_ms, per spec.md §4.6.
func (f *FSM) SnapshotState() (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &snapshotPayload{LastSavePhysical: f.lastSavePhysical}, nil
}

// RestoreState loads last_save_physical_ms; current stays zero until the
// next leader's Bootstrap call, matching the source's "never restore
// current_timestamp itself" behavior.
func (f *FSM) RestoreState(data []byte) error {
	var payload snapshotPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("tso: decode snapshot: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSavePhysical = payload.LastSavePhysical
	f.current = Timestamp{}
	return nil
}

// LastSavePhysical returns the watermark loaded from (or last written to)
// snapshot, used by Bootstrap to compute the new leader's starting physical
// time.
func (f *FSM) LastSavePhysical() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSavePhysical
}

// Current returns the in-memory clock value directly, bypassing Raft, per
// spec.md §4.6's "GenTSO is invoked outside Raft on the leader".
func (f *FSM) Current() Timestamp {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// tryGen attempts to draw count logical ticks from the current timestamp,
// returning the start timestamp and whether the clock had room (physical
// must be non-zero and logical+count must stay under maxLogical).
func (f *FSM) tryGen(count int64, maxLogical int64) (Timestamp, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current.Physical == 0 {
		return Timestamp{}, false
	}
	newLogical := f.current.Logical + count
	if newLogical >= maxLogical {
		return Timestamp{}, false
	}
	start := f.current
	f.current.Logical = newLogical
	return start, true
}
