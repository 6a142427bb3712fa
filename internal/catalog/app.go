package catalog

import (
	"context"
	"encoding/json"

	"github.com/gottingen/sirius-go/internal/kv"
	"github.com/gottingen/sirius-go/internal/statemachine"
)

// ManagerResponse is the common envelope carried back through Raft for
// every catalog mutation; op-specific payload fields are zero (and omitted
// from JSON) when unused.
type ManagerResponse struct {
	OpType  OpType      `json:"op_type"`
	AppID   int64       `json:"app_id,omitempty"`
	ZoneID  int64       `json:"zone_id,omitempty"`
	ServletID int64     `json:"servlet_id,omitempty"`
	Version int64       `json:"version,omitempty"`
}

func (f *FSM) createApp(ctx context.Context, req CreateAppRequest) (any, error) {
	if req.Name == "" {
		return nil, statemachine.ErrInputParam.WithDetails("name is required")
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	if _, exists := f.state.appsByName[req.Name]; exists {
		return nil, statemachine.ErrAppExists.WithDetails(req.Name)
	}

	appID := f.state.nextAppID()
	app := &AppInfo{AppID: appID, Name: req.Name, Quota: req.Quota, Version: 1}

	data, err := json.Marshal(app)
	if err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}
	ops := []kv.WriteOp{
		kv.Put(kv.CFMetaInfo, appKey(appID), data),
		kv.Put(kv.CFMetaInfo, maxIDKey(maxIDTagApp), packInt64(appID)),
	}
	if err := f.kv.WriteBatch(ctx, ops); err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}

	f.state.appsByID[appID] = app
	f.state.appsByName[req.Name] = app
	f.state.appZones[appID] = make(map[int64]struct{})

	return &ManagerResponse{OpType: OpCreateApp, AppID: appID, Version: 1}, nil
}

func (f *FSM) modifyApp(ctx context.Context, req ModifyAppRequest) (any, error) {
	if req.Name == "" {
		return nil, statemachine.ErrInputParam.WithDetails("name is required")
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	app, ok := f.state.appsByName[req.Name]
	if !ok {
		return nil, statemachine.ErrAppNotFound.WithDetails(req.Name)
	}

	updated := *app
	if req.Quota != nil {
		updated.Quota = *req.Quota
	}
	updated.Version++

	data, err := json.Marshal(&updated)
	if err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}
	if err := f.kv.WriteBatch(ctx, []kv.WriteOp{kv.Put(kv.CFMetaInfo, appKey(updated.AppID), data)}); err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}

	*app = updated
	return &ManagerResponse{OpType: OpModifyApp, AppID: app.AppID, Version: app.Version}, nil
}

func (f *FSM) dropApp(ctx context.Context, req DropAppRequest) (any, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	app, ok := f.state.appsByName[req.Name]
	if !ok {
		return nil, statemachine.ErrAppNotFound.WithDetails(req.Name)
	}
	if zones := f.state.appZones[app.AppID]; len(zones) > 0 {
		return nil, statemachine.ErrAppHasZones.WithDetails(req.Name)
	}

	if err := f.kv.WriteBatch(ctx, []kv.WriteOp{kv.Del(kv.CFMetaInfo, appKey(app.AppID))}); err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}

	delete(f.state.appsByID, app.AppID)
	delete(f.state.appsByName, req.Name)
	delete(f.state.appZones, app.AppID)

	return &ManagerResponse{OpType: OpDropApp, AppID: app.AppID}, nil
}

// GetApp returns the app named name.
func (s *State) GetApp(name string) (*AppInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.appsByName[name]
	if !ok {
		return nil, false
	}
	cp := *app
	return &cp, true
}
