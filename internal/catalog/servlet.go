package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gottingen/sirius-go/internal/kv"
	"github.com/gottingen/sirius-go/internal/statemachine"
)

func (f *FSM) createServlet(ctx context.Context, req CreateServletRequest) (any, error) {
	if req.AppName == "" || req.Zone == "" || req.Name == "" {
		return nil, statemachine.ErrInputParam.WithDetails("app_name, zone and name are required")
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	app, ok := f.state.appsByName[req.AppName]
	if !ok {
		return nil, statemachine.ErrServletNoApp.WithDetails(req.AppName)
	}
	zoneComposite := zoneCompositeName(req.AppName, req.Zone)
	zone, ok := f.state.zonesByName[zoneComposite]
	if !ok {
		return nil, statemachine.ErrServletNoZone.WithDetails(zoneComposite)
	}

	composite := servletCompositeName(req.AppName, req.Zone, req.Name)
	if _, exists := f.state.servletsByName[composite]; exists {
		return nil, statemachine.ErrServletExists.WithDetails(composite)
	}

	now := time.Now()
	if f.state.isCoolingOff(composite, now) {
		return nil, statemachine.ErrServletQuarantined.WithDetails(composite)
	}

	servletID := f.state.nextServletID()
	servlet := &ServletInfo{
		ServletID: servletID,
		AppID:     app.AppID,
		ZoneID:    zone.ZoneID,
		AppName:   req.AppName,
		ZoneName:  req.Zone,
		Name:      req.Name,
		Env:       req.Env,
		Color:     req.Color,
		Status:    ServletStatusNormal,
		CTime:     now,
		MTime:     now,
		Version:   1,
	}

	data, err := json.Marshal(servlet)
	if err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}
	ops := []kv.WriteOp{
		kv.Put(kv.CFMetaInfo, servletKey(servletID), data),
		kv.Put(kv.CFMetaInfo, maxIDKey(maxIDTagServlet), packInt64(servletID)),
	}
	if err := f.kv.WriteBatch(ctx, ops); err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}

	f.state.servletsByID[servletID] = servlet
	f.state.servletsByName[composite] = servlet
	f.state.zoneServlets[zone.ZoneID][servletID] = struct{}{}

	return &ManagerResponse{OpType: OpCreateServlet, ServletID: servletID, Version: 1}, nil
}

func (f *FSM) modifyServlet(ctx context.Context, req ModifyServletRequest) (any, error) {
	if req.AppName == "" || req.Zone == "" || req.Name == "" {
		return nil, statemachine.ErrInputParam.WithDetails("app_name, zone and name are required")
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	composite := servletCompositeName(req.AppName, req.Zone, req.Name)
	servlet, ok := f.state.servletsByName[composite]
	if !ok {
		return nil, statemachine.ErrServletNotFound.WithDetails(composite)
	}

	updated := *servlet
	if req.Env != nil {
		updated.Env = *req.Env
	}
	if req.Color != nil {
		updated.Color = *req.Color
	}
	if req.Status != nil {
		updated.Status = *req.Status
	}
	updated.MTime = time.Now()
	updated.Version++

	data, err := json.Marshal(&updated)
	if err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}
	if err := f.kv.WriteBatch(ctx, []kv.WriteOp{kv.Put(kv.CFMetaInfo, servletKey(updated.ServletID), data)}); err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}

	*servlet = updated
	return &ManagerResponse{OpType: OpModifyServlet, ServletID: servlet.ServletID, Version: servlet.Version}, nil
}

func (f *FSM) dropServlet(ctx context.Context, req DropServletRequest) (any, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	composite := servletCompositeName(req.AppName, req.Zone, req.Name)
	servlet, ok := f.state.servletsByName[composite]
	if !ok {
		return nil, statemachine.ErrServletNotFound.WithDetails(composite)
	}

	hasChildren := false
	f.state.instances.Range(func(_ string, inst *ServletInstance) bool {
		if inst.AppName == req.AppName && inst.ZoneName == req.Zone && inst.Servlet == req.Name {
			hasChildren = true
			return false
		}
		return true
	})
	if hasChildren {
		return nil, statemachine.ErrServletHasInstances.WithDetails(composite)
	}

	if err := f.kv.WriteBatch(ctx, []kv.WriteOp{kv.Del(kv.CFMetaInfo, servletKey(servlet.ServletID))}); err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}

	delete(f.state.servletsByID, servlet.ServletID)
	delete(f.state.servletsByName, composite)
	delete(f.state.zoneServlets[servlet.ZoneID], servlet.ServletID)
	f.state.coolingOff[composite] = time.Now()

	return &ManagerResponse{OpType: OpDropServlet, ServletID: servlet.ServletID}, nil
}

// GetServlet returns the servlet (app, zone, name).
func (s *State) GetServlet(app, zone, name string) (*ServletInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	servlet, ok := s.servletsByName[servletCompositeName(app, zone, name)]
	if !ok {
		return nil, false
	}
	cp := *servlet
	return &cp, true
}
