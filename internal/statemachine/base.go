package statemachine

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/raft"

	"github.com/gottingen/sirius-go/internal/telemetry/logger"
)

// LogEntry is the envelope every group-local Raft log entry carries. OpType
// is interpreted by the Applier; Payload is the op-specific request encoded
// as JSON.
type LogEntry struct {
	OpType  uint16          `json:"op_type"`
	Payload json.RawMessage `json:"payload"`
}

// Result is what Apply returns for a committed entry and what callers get
// back from the raft.ApplyFuture's Response(). A failed validation sets Err
// but the log entry itself is still committed, keeping replica logs
// deterministic and identical.
type Result struct {
	Response any
	Err      error
}

// Applier is implemented by each of the three state machines (catalog,
// id-allocator, timestamp). ApplyOp must be deterministic: given the same
// op type, payload and prior state, it must produce the same response and
// state mutation on every replica.
type Applier interface {
	// ApplyOp applies one committed operation, mutating in-memory state and
	// the KV engine atomically, and returns the response payload (or an
	// *Error describing why the operation was rejected).
	ApplyOp(opType uint16, payload []byte) (response any, err error)

	// SnapshotState returns a JSON-serializable snapshot of the full
	// in-memory state, taken under whatever locking the Applier requires.
	SnapshotState() (any, error)

	// RestoreState replaces the in-memory state from decoded snapshot bytes.
	RestoreState(data []byte) error
}

// Base wraps an Applier as a raft.FSM, handling the envelope framing,
// gzip+JSON snapshot persistence, and the panic-on-corruption /
// error-code-on-validation-failure distinction required of every group.
type Base struct {
	applier Applier
	log     logger.Logger
	name    string
}

// NewBase constructs the FSM wrapper for the given Applier.
func NewBase(name string, applier Applier, log logger.Logger) *Base {
	if log == nil {
		log = logger.Default()
	}
	return &Base{applier: applier, log: log.With("group", name), name: name}
}

// Apply implements raft.FSM. It never returns an error to the Raft library;
// domain-level rejections are returned as a *Result whose Err field is set,
// while true deserialization/corruption is fatal and panics, matching the
// requirement that logs stay deterministic across replicas.
func (b *Base) Apply(l *raft.Log) interface{} {
	var entry LogEntry
	if err := json.Unmarshal(l.Data, &entry); err != nil {
		b.log.Error("FATAL: failed to unmarshal log entry", "error", err, "index", l.Index, "term", l.Term)
		panic(fmt.Sprintf("%s: Apply: unmarshal failed at index=%d: %v", b.name, l.Index, err))
	}

	resp, err := b.applier.ApplyOp(entry.OpType, entry.Payload)
	if err != nil && Is(err, "") {
		// Domain validation rejection: committed as a no-op, error returned
		// to the caller via the future's Response(), no panic.
		return &Result{Response: resp, Err: err}
	}
	if err != nil {
		b.log.Error("FATAL: apply returned an unrecognized error", "error", err, "index", l.Index)
		panic(fmt.Sprintf("%s: Apply: op %d at index=%d returned non-domain error: %v", b.name, entry.OpType, l.Index, err))
	}
	return &Result{Response: resp}
}

// Snapshot implements raft.FSM.
func (b *Base) Snapshot() (raft.FSMSnapshot, error) {
	state, err := b.applier.SnapshotState()
	if err != nil {
		return nil, fmt.Errorf("%s: snapshot state: %w", b.name, err)
	}
	return &fsmSnapshot{state: state}, nil
}

// Restore implements raft.FSM.
func (b *Base) Restore(r io.ReadCloser) error {
	defer r.Close()

	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("%s: create gzip reader: %w", b.name, err)
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return fmt.Errorf("%s: read snapshot: %w", b.name, err)
	}

	if err := b.applier.RestoreState(data); err != nil {
		return fmt.Errorf("%s: restore state: %w", b.name, err)
	}

	b.log.Info("state restored from snapshot", "bytes", len(data))
	return nil
}

type fsmSnapshot struct {
	state any
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	err := func() error {
		gz := gzip.NewWriter(sink)
		defer gz.Close()

		enc := json.NewEncoder(gz)
		if err := enc.Encode(s.state); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		return gz.Close()
	}()

	if err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}

// Submitter is satisfied by raftgroup.Node; kept as a narrow interface here
// so that statemachine does not import raftgroup (which in turn embeds
// statemachine.Base), avoiding an import cycle.
type Submitter interface {
	IsLeader() bool
	LeaderHint() string
	Apply(ctx context.Context, data []byte, timeout time.Duration) (any, error)
}

// Submit encodes opType/payload as a LogEntry, submits it through the given
// group, and unwraps the committed Result. If the caller is not the leader,
// ErrNotLeader is returned immediately without going through Raft, carrying
// the current leader hint per the base state machine's write-path contract.
func Submit(ctx context.Context, s Submitter, opType uint16, payload any, timeout time.Duration) (any, error) {
	if !s.IsLeader() {
		return nil, ErrNotLeader.WithDetails(s.LeaderHint())
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, ErrParseFromPbFail.WithCause(err)
	}

	entry := LogEntry{OpType: opType, Payload: body}
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, ErrParseFromPbFail.WithCause(err)
	}

	raw, err := s.Apply(ctx, data, timeout)
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}

	res, ok := raw.(*Result)
	if !ok {
		return nil, ErrInternal.WithDetails("unexpected apply result type")
	}
	if res.Err != nil {
		return res.Response, res.Err
	}
	return res.Response, nil
}
