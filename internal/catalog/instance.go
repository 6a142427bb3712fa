package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gottingen/sirius-go/internal/kv"
	"github.com/gottingen/sirius-go/internal/statemachine"
)

func (f *FSM) persistInstance(ctx context.Context, inst *ServletInstance) error {
	data, err := json.Marshal(inst)
	if err != nil {
		return statemachine.ErrInternal.WithCause(err)
	}
	if err := f.kv.WriteBatch(ctx, []kv.WriteOp{kv.Put(kv.CFMetaInfo, instanceKey(inst.Address), data)}); err != nil {
		return statemachine.ErrInternal.WithCause(err)
	}
	return nil
}

func (f *FSM) addInstance(ctx context.Context, req InstanceRequest) (any, error) {
	if req.Address == "" || req.AppName == "" || req.Zone == "" || req.Servlet == "" {
		return nil, statemachine.ErrInputParam.WithDetails("address, app_name, zone and servlet are required")
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	composite := servletCompositeName(req.AppName, req.Zone, req.Servlet)
	if _, ok := f.state.servletsByName[composite]; !ok {
		return nil, statemachine.ErrServletNotFound.WithDetails(composite)
	}

	now := time.Now()
	if f.state.isQuarantined(req.Address, now) {
		return nil, statemachine.ErrInstanceQuarantined.WithDetails(req.Address)
	}

	status := InstanceStatusNormal
	if req.Status != nil {
		status = *req.Status
	}
	var weight int32 = 1
	if req.Weight != nil {
		weight = *req.Weight
	}

	inst := &ServletInstance{
		Address:  req.Address,
		AppName:  req.AppName,
		ZoneName: req.Zone,
		Servlet:  req.Servlet,
		Env:      req.Env,
		Color:    req.Color,
		Status:   status,
		Weight:   weight,
		Version:  1,
	}

	// instances share the instance CF keyed by address; no separate
	// max-id row is needed since the key is the address itself.
	if err := f.persistInstance(ctx, inst); err != nil {
		return nil, err
	}

	f.state.instances.Set(req.Address, inst)
	return &ManagerResponse{OpType: OpAddInstance, Version: 1}, nil
}

func (f *FSM) updateInstance(ctx context.Context, req InstanceRequest) (any, error) {
	if req.Address == "" {
		return nil, statemachine.ErrInputParam.WithDetails("address is required")
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	existing, ok := f.state.instances.Get(req.Address)
	if !ok {
		return nil, statemachine.ErrInstanceNotFound.WithDetails(req.Address)
	}

	updated := *existing
	if req.Status != nil {
		updated.Status = *req.Status
	}
	if req.Weight != nil {
		updated.Weight = *req.Weight
	}
	if req.Color != "" {
		updated.Color = req.Color
	}
	if req.Env != "" {
		updated.Env = req.Env
	}
	updated.Version++

	if err := f.persistInstance(ctx, &updated); err != nil {
		return nil, err
	}

	f.state.instances.Set(req.Address, &updated)
	return &ManagerResponse{OpType: OpUpdateInstance, Version: updated.Version}, nil
}

func (f *FSM) dropInstance(ctx context.Context, req InstanceRequest) (any, error) {
	if req.Address == "" {
		return nil, statemachine.ErrInputParam.WithDetails("address is required")
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	if _, ok := f.state.instances.Get(req.Address); !ok {
		return nil, statemachine.ErrInstanceNotFound.WithDetails(req.Address)
	}

	if err := f.kv.WriteBatch(ctx, []kv.WriteOp{kv.Del(kv.CFMetaInfo, instanceKey(req.Address))}); err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}

	f.state.instances.Delete(req.Address)
	f.state.quarantine[req.Address] = time.Now()

	return &ManagerResponse{OpType: OpDropInstance}, nil
}

// GetInstance returns the instance registered under address.
func (s *State) GetInstance(address string) (*ServletInstance, bool) {
	return s.instances.Get(address)
}
