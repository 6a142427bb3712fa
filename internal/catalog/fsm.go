package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gottingen/sirius-go/internal/kv"
	"github.com/gottingen/sirius-go/internal/statemachine"
	"github.com/gottingen/sirius-go/internal/telemetry/logger"
)

// FSM adapts State to statemachine.Applier, owning the only apply-time
// mutation path into both the in-memory indexes and the KV engine.
type FSM struct {
	state *State
	kv    kv.Engine
	log   logger.Logger
}

// NewFSM creates a catalog state machine over engine. The caller is
// expected to feed it through statemachine.Base before handing it to
// raftgroup.NewNode.
func NewFSM(engine kv.Engine, log logger.Logger) *FSM {
	if log == nil {
		log = logger.Default()
	}
	return &FSM{state: NewState(), kv: engine, log: log}
}

// ApplyOp dispatches one replicated mutation. Domain validation failures
// are returned as *statemachine.Error so the base FSM commits a no-op
// instead of panicking.
func (f *FSM) ApplyOp(opType uint16, payload []byte) (any, error) {
	ctx := context.Background()

	switch OpType(opType) {
	case OpCreateApp:
		var req CreateAppRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.createApp(ctx, req)

	case OpModifyApp:
		var req ModifyAppRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.modifyApp(ctx, req)

	case OpDropApp:
		var req DropAppRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.dropApp(ctx, req)

	case OpCreateZone:
		var req CreateZoneRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.createZone(ctx, req)

	case OpModifyZone:
		var req ModifyZoneRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.modifyZone(ctx, req)

	case OpDropZone:
		var req DropZoneRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.dropZone(ctx, req)

	case OpCreateServlet:
		var req CreateServletRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.createServlet(ctx, req)

	case OpModifyServlet:
		var req ModifyServletRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.modifyServlet(ctx, req)

	case OpDropServlet:
		var req DropServletRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.dropServlet(ctx, req)

	case OpAddInstance:
		var req InstanceRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.addInstance(ctx, req)

	case OpUpdateInstance:
		var req InstanceRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.updateInstance(ctx, req)

	case OpDropInstance:
		var req InstanceRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.dropInstance(ctx, req)

	case OpCreateConfig:
		var req CreateConfigRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.createConfig(ctx, req)

	case OpRemoveConfig:
		var req RemoveConfigRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.removeConfig(ctx, req)

	case OpCreateUser:
		var req CreateUserRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.createUser(ctx, req)

	case OpDropUser:
		var req DropUserRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.dropUser(ctx, req)

	case OpAddPrivilege:
		var req PrivilegeRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.addPrivilege(ctx, req)

	case OpDropPrivilege:
		var req PrivilegeRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, statemachine.ErrParseFromPbFail.WithCause(err)
		}
		return f.dropPrivilege(ctx, req)

	default:
		return nil, statemachine.ErrUnknownReqType.WithDetails(fmt.Sprintf("op_type=%d", opType))
	}
}

// kvRow is one raw key/value pair from the meta_info column family, used
// to dump and reload the entire catalog at snapshot boundaries.
type kvRow struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// SnapshotState dumps the meta_info column family, per spec.md §4.4: "dump
// the meta_info column family into one sorted file via the KV adapter".
func (f *FSM) SnapshotState() (any, error) {
	ctx := context.Background()
	var rows []kvRow
	err := f.kv.PrefixIterator(ctx, kv.CFMetaInfo, nil, func(key, value []byte) bool {
		k := make([]byte, len(key))
		copy(k, key)
		v := make([]byte, len(value))
		copy(v, value)
		rows = append(rows, kvRow{Key: k, Value: v})
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: dump meta_info: %w", err)
	}
	return rows, nil
}

// RestoreState clears the catalog's column-family space then replays the
// dumped rows into both the KV engine and the in-memory indexes, per
// spec.md §4.4: "RemoveRange the catalog prefix space then ingest the file
// and replay the prefix scans to rebuild memory".
func (f *FSM) RestoreState(data []byte) error {
	var rows []kvRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("catalog: decode snapshot rows: %w", err)
	}

	ctx := context.Background()
	if err := f.kv.RemoveRange(ctx, kv.CFMetaInfo, nil, nil); err != nil {
		return fmt.Errorf("catalog: clear meta_info: %w", err)
	}

	ops := make([]kv.WriteOp, 0, len(rows))
	for _, row := range rows {
		ops = append(ops, kv.Put(kv.CFMetaInfo, row.Key, row.Value))
	}
	if len(ops) > 0 {
		if err := f.kv.WriteBatch(ctx, ops); err != nil {
			return fmt.Errorf("catalog: replay rows: %w", err)
		}
	}

	f.state = NewState()
	return f.rebuildIndexes(rows)
}

// State exposes the read-only query surface to RPC handlers.
func (f *FSM) State() *State { return f.state }
