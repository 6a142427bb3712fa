// Package idalloc implements the per-servlet monotonic id-range allocator
// state machine (Raft group 1).
package idalloc

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gottingen/sirius-go/internal/statemachine"
	"github.com/gottingen/sirius-go/internal/telemetry/logger"
)

// OpType enumerates every replicated mutation this group accepts.
type OpType uint16

const (
	OpAdd OpType = iota + 1
	OpDrop
	OpGen
	OpUpdate
)

// AddRequest seeds the watermark for a servlet that has none yet.
type AddRequest struct {
	ServletID int64  `json:"servlet_id"`
	Start     uint64 `json:"start_id"`
}

// DropRequest removes a servlet's counter entirely.
type DropRequest struct {
	ServletID int64 `json:"servlet_id"`
}

// GenRequest draws count ids, optionally floored at start+1.
type GenRequest struct {
	ServletID int64   `json:"servlet_id"`
	Count     uint64  `json:"count"`
	Start     *uint64 `json:"start,omitempty"`
}

// UpdateRequest rewrites a servlet's watermark, either to an absolute
// NewStart or by Increment; Force allows moving it backward.
type UpdateRequest struct {
	ServletID int64   `json:"servlet_id"`
	NewStart  *uint64 `json:"new_start,omitempty"`
	Increment *uint64 `json:"increment,omitempty"`
	Force     bool    `json:"force"`
}

// Range is the half-open id range [Start, End) handed back by Gen.
type Range struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// FSM tracks one high watermark per servlet id.
type FSM struct {
	mu         sync.RWMutex
	watermarks map[int64]uint64
	log        logger.Logger
}

// NewFSM creates an empty id-allocator state machine.
func NewFSM(log logger.Logger) *FSM {
	if log == nil {
		log = logger.Default()
	}
	return &FSM{watermarks: make(map[int64]uint64), log: log}
}

// ApplyOp dispatches one replicated mutation.
func (f *FSM) ApplyOp(opType uint16, payload []byte) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch OpType(opType) {
	case OpAdd:
		var req AddRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.add(req)

	case OpDrop:
		var req DropRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.drop(req)

	case OpGen:
		var req GenRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.gen(req)

	case OpUpdate:
		var req UpdateRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.update(req)

	default:
		return nil, statemachine.ErrUnknownReqType.WithDetails(fmt.Sprintf("op_type=%d", opType))
	}
}

func (f *FSM) add(req AddRequest) (any, error) {
	if _, exists := f.watermarks[req.ServletID]; exists {
		return nil, statemachine.ErrInputParam.WithDetails("servlet id already has a counter")
	}
	f.watermarks[req.ServletID] = req.Start
	return &Range{Start: req.Start, End: req.Start}, nil
}

func (f *FSM) drop(req DropRequest) (any, error) {
	if _, exists := f.watermarks[req.ServletID]; !exists {
		return nil, statemachine.ErrServletIDNotFound.WithDetails(fmt.Sprintf("servlet_id=%d", req.ServletID))
	}
	delete(f.watermarks, req.ServletID)
	return nil, nil
}

// gen returns [start, end) per spec.md §4.5: start = max(current, request
// start+1 if given), end = start+count, and the watermark advances to end.
func (f *FSM) gen(req GenRequest) (any, error) {
	current, ok := f.watermarks[req.ServletID]
	if !ok {
		return nil, statemachine.ErrServletIDNotFound.WithDetails(fmt.Sprintf("servlet_id=%d", req.ServletID))
	}

	start := current
	if req.Start != nil && *req.Start+1 > start {
		start = *req.Start + 1
	}
	end := start + req.Count

	f.watermarks[req.ServletID] = end
	return &Range{Start: start, End: end}, nil
}

func (f *FSM) update(req UpdateRequest) (any, error) {
	current, ok := f.watermarks[req.ServletID]
	if !ok {
		return nil, statemachine.ErrServletIDNotFound.WithDetails(fmt.Sprintf("servlet_id=%d", req.ServletID))
	}

	next := current
	switch {
	case req.NewStart != nil:
		next = *req.NewStart
	case req.Increment != nil:
		next = current + *req.Increment
	default:
		return nil, statemachine.ErrInputParam.WithDetails("new_start or increment is required")
	}

	if next < current && !req.Force {
		return nil, statemachine.ErrIDRollback.WithDetails(fmt.Sprintf("servlet_id=%d requested=%d current=%d", req.ServletID, next, current))
	}

	f.watermarks[req.ServletID] = next
	return &Range{Start: next, End: next}, nil
}

// Watermark returns a servlet's current high watermark.
func (f *FSM) Watermark(servletID int64) (uint64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	w, ok := f.watermarks[servletID]
	return w, ok
}

// SnapshotState returns the watermark map, per spec.md §4.5: "a JSON object
// mapping servlet id to watermark".
func (f *FSM) SnapshotState() (any, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	snapshot := make(map[int64]uint64, len(f.watermarks))
	for k, v := range f.watermarks {
		snapshot[k] = v
	}
	return snapshot, nil
}

// RestoreState replaces the watermark map from decoded snapshot bytes.
func (f *FSM) RestoreState(data []byte) error {
	watermarks := make(map[int64]uint64)
	if err := json.Unmarshal(data, &watermarks); err != nil {
		return fmt.Errorf("idalloc: decode snapshot: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watermarks = watermarks
	return nil
}
