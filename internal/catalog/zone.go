package catalog

import (
	"context"
	"encoding/json"

	"github.com/gottingen/sirius-go/internal/kv"
	"github.com/gottingen/sirius-go/internal/statemachine"
)

func (f *FSM) createZone(ctx context.Context, req CreateZoneRequest) (any, error) {
	if req.AppName == "" || req.Name == "" {
		return nil, statemachine.ErrInputParam.WithDetails("app_name and name are required")
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	app, ok := f.state.appsByName[req.AppName]
	if !ok {
		return nil, statemachine.ErrZoneNoApp.WithDetails(req.AppName)
	}

	composite := zoneCompositeName(req.AppName, req.Name)
	if _, exists := f.state.zonesByName[composite]; exists {
		return nil, statemachine.ErrZoneExists.WithDetails(composite)
	}

	zoneID := f.state.nextZoneID()
	zone := &ZoneInfo{ZoneID: zoneID, AppID: app.AppID, AppName: req.AppName, Name: req.Name, Quota: req.Quota, Version: 1}

	data, err := json.Marshal(zone)
	if err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}
	ops := []kv.WriteOp{
		kv.Put(kv.CFMetaInfo, zoneKey(zoneID), data),
		kv.Put(kv.CFMetaInfo, maxIDKey(maxIDTagZone), packInt64(zoneID)),
	}
	if err := f.kv.WriteBatch(ctx, ops); err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}

	f.state.zonesByID[zoneID] = zone
	f.state.zonesByName[composite] = zone
	f.state.zoneServlets[zoneID] = make(map[int64]struct{})
	f.state.appZones[app.AppID][zoneID] = struct{}{}

	return &ManagerResponse{OpType: OpCreateZone, ZoneID: zoneID, Version: 1}, nil
}

func (f *FSM) modifyZone(ctx context.Context, req ModifyZoneRequest) (any, error) {
	if req.AppName == "" || req.Name == "" {
		return nil, statemachine.ErrInputParam.WithDetails("app_name and name are required")
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	composite := zoneCompositeName(req.AppName, req.Name)
	zone, ok := f.state.zonesByName[composite]
	if !ok {
		return nil, statemachine.ErrZoneNotFound.WithDetails(composite)
	}

	updated := *zone
	if req.Quota != nil {
		updated.Quota = *req.Quota
	}
	updated.Version++

	data, err := json.Marshal(&updated)
	if err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}
	if err := f.kv.WriteBatch(ctx, []kv.WriteOp{kv.Put(kv.CFMetaInfo, zoneKey(updated.ZoneID), data)}); err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}

	*zone = updated
	return &ManagerResponse{OpType: OpModifyZone, ZoneID: zone.ZoneID, Version: zone.Version}, nil
}

func (f *FSM) dropZone(ctx context.Context, req DropZoneRequest) (any, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	composite := zoneCompositeName(req.AppName, req.Name)
	zone, ok := f.state.zonesByName[composite]
	if !ok {
		return nil, statemachine.ErrZoneNotFound.WithDetails(composite)
	}
	if servlets := f.state.zoneServlets[zone.ZoneID]; len(servlets) > 0 {
		return nil, statemachine.ErrZoneHasServlets.WithDetails(composite)
	}

	if err := f.kv.WriteBatch(ctx, []kv.WriteOp{kv.Del(kv.CFMetaInfo, zoneKey(zone.ZoneID))}); err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}

	delete(f.state.zonesByID, zone.ZoneID)
	delete(f.state.zonesByName, composite)
	delete(f.state.zoneServlets, zone.ZoneID)
	delete(f.state.appZones[zone.AppID], zone.ZoneID)

	return &ManagerResponse{OpType: OpDropZone, ZoneID: zone.ZoneID}, nil
}

// GetZone returns the zone (app, name).
func (s *State) GetZone(app, name string) (*ZoneInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	zone, ok := s.zonesByName[zoneCompositeName(app, name)]
	if !ok {
		return nil, false
	}
	cp := *zone
	return &cp, true
}
