package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gottingen/sirius-go/internal/kv"
	"github.com/gottingen/sirius-go/internal/statemachine"
)

func (f *FSM) createConfig(ctx context.Context, req CreateConfigRequest) (any, error) {
	if req.Name == "" || req.Version.IsZero() || len(req.Content) == 0 {
		return nil, statemachine.ErrInputParam.WithDetails("name, version and content are required")
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	versions, ok := f.state.configs[req.Name]
	if !ok {
		versions = newConfigVersions()
		f.state.configs[req.Name] = versions
	}

	if _, exists := versions.byVer[req.Version]; exists {
		return nil, statemachine.ErrConfigExists.WithDetails(req.Name + " " + req.Version.String())
	}
	if latest := versions.latest(); latest != nil && req.Version.Compare(latest.Version) <= 0 {
		return nil, statemachine.ErrConfigVersion.WithDetails(req.Name + " " + req.Version.String())
	}

	surrogateID := f.state.nextConfigID()
	info := &ConfigInfo{
		Name:        req.Name,
		Version:     req.Version,
		Content:     req.Content,
		ContentType: req.ContentType,
		CTime:       time.Now(),
		SurrogateID: surrogateID,
	}

	data, err := json.Marshal(info)
	if err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}
	ops := []kv.WriteOp{
		kv.Put(kv.CFMetaInfo, configKey(req.Name, req.Version), data),
		kv.Put(kv.CFMetaInfo, maxIDKey(maxIDTagConfig), packInt64(surrogateID)),
	}
	if err := f.kv.WriteBatch(ctx, ops); err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}

	versions.insert(info)
	return &ManagerResponse{OpType: OpCreateConfig}, nil
}

func (f *FSM) removeConfig(ctx context.Context, req RemoveConfigRequest) (any, error) {
	if req.Name == "" {
		return nil, statemachine.ErrInputParam.WithDetails("name is required")
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	versions, ok := f.state.configs[req.Name]
	if !ok {
		return nil, statemachine.ErrConfigNotFound.WithDetails(req.Name)
	}

	if req.AllVers || req.Version.IsZero() {
		if err := f.kv.RemoveRange(ctx, kv.CFMetaInfo, configPrefix(req.Name), nextPrefix(configPrefix(req.Name))); err != nil {
			return nil, statemachine.ErrInternal.WithCause(err)
		}
		delete(f.state.configs, req.Name)
		return &ManagerResponse{OpType: OpRemoveConfig}, nil
	}

	if _, exists := versions.byVer[req.Version]; !exists {
		return nil, statemachine.ErrConfigNotFound.WithDetails(req.Name + " " + req.Version.String())
	}
	if err := f.kv.WriteBatch(ctx, []kv.WriteOp{kv.Del(kv.CFMetaInfo, configKey(req.Name, req.Version))}); err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}
	versions.removeVersion(req.Version)
	if len(versions.ordered) == 0 {
		delete(f.state.configs, req.Name)
	}

	return &ManagerResponse{OpType: OpRemoveConfig}, nil
}

// nextPrefix returns the smallest byte string that is strictly greater
// than every string having p as a prefix, used as RemoveRange's exclusive
// upper bound when deleting every version of a config name.
func nextPrefix(p []byte) []byte {
	out := make([]byte, len(p))
	copy(out, p)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xff {
			out[i]++
			return out[:i+1]
		}
	}
	return nil // p is all 0xff: no upper bound needed
}

// GetConfig returns config (name, version).
func (s *State) GetConfig(name string, v Version) (*ConfigInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.configs[name]
	if !ok {
		return nil, false
	}
	info, ok := versions.byVer[v]
	if !ok {
		return nil, false
	}
	cp := *info
	return &cp, true
}

// GetConfigLatest returns the newest version stored for name.
func (s *State) GetConfigLatest(name string) (*ConfigInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.configs[name]
	if !ok {
		return nil, false
	}
	latest := versions.latest()
	if latest == nil {
		return nil, false
	}
	cp := *latest
	return &cp, true
}

// ListConfigNames returns every stored config name.
func (s *State) ListConfigNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.configs))
	for name := range s.configs {
		names = append(names, name)
	}
	return names
}

// ListConfigVersions returns every version stored for name, in ascending
// semver order.
func (s *State) ListConfigVersions(name string) []Version {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions, ok := s.configs[name]
	if !ok {
		return nil
	}
	return sortedVersions(versions)
}
