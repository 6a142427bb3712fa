package catalog

import (
	"context"
	"encoding/json"

	"github.com/gottingen/sirius-go/internal/kv"
	"github.com/gottingen/sirius-go/internal/statemachine"
)

func (f *FSM) createUser(ctx context.Context, req CreateUserRequest) (any, error) {
	if req.Username == "" || req.AppName == "" {
		return nil, statemachine.ErrInputParam.WithDetails("username and app_name are required")
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	if _, exists := f.state.privileges[req.Username]; exists {
		return nil, statemachine.ErrUserExists.WithDetails(req.Username)
	}

	priv := &UserPrivilege{
		Username:     req.Username,
		AppName:      req.AppName,
		PasswordHash: req.PasswordHash,
		AllowedIPs:   req.AllowedIPs,
		Version:      1,
	}

	if err := f.persistPrivilege(ctx, priv); err != nil {
		return nil, err
	}

	f.state.privileges[req.Username] = priv
	return &ManagerResponse{OpType: OpCreateUser, Version: 1}, nil
}

func (f *FSM) dropUser(ctx context.Context, req DropUserRequest) (any, error) {
	if req.Username == "" {
		return nil, statemachine.ErrInputParam.WithDetails("username is required")
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	if _, ok := f.state.privileges[req.Username]; !ok {
		return nil, statemachine.ErrUserNotFound.WithDetails(req.Username)
	}

	if err := f.kv.WriteBatch(ctx, []kv.WriteOp{kv.Del(kv.CFMetaInfo, privilegeKey(req.Username))}); err != nil {
		return nil, statemachine.ErrInternal.WithCause(err)
	}

	delete(f.state.privileges, req.Username)
	return &ManagerResponse{OpType: OpDropUser}, nil
}

// addPrivilege merges requested grants, taking the max of requested and
// existing R/W unless Force is set, in which case the request overwrites
// downward, per spec.md §4.4.
func (f *FSM) addPrivilege(ctx context.Context, req PrivilegeRequest) (any, error) {
	if req.Username == "" {
		return nil, statemachine.ErrInputParam.WithDetails("username is required")
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	priv, ok := f.state.privileges[req.Username]
	if !ok {
		return nil, statemachine.ErrUserNotFound.WithDetails(req.Username)
	}

	updated := *priv
	updated.Zones = mergeZoneGrants(priv.Zones, req.Zones, req.Force)
	updated.Servlets = mergeServletGrants(priv.Servlets, req.Servlets, req.Force)
	updated.Version++

	if err := f.persistPrivilege(ctx, &updated); err != nil {
		return nil, err
	}

	*priv = updated
	return &ManagerResponse{OpType: OpAddPrivilege, Version: priv.Version}, nil
}

// dropPrivilege removes listed grants entirely, or downgrades R/W if the
// remaining capability is strictly less than requested, per spec.md §4.4.
func (f *FSM) dropPrivilege(ctx context.Context, req PrivilegeRequest) (any, error) {
	if req.Username == "" {
		return nil, statemachine.ErrInputParam.WithDetails("username is required")
	}

	f.state.mu.Lock()
	defer f.state.mu.Unlock()

	priv, ok := f.state.privileges[req.Username]
	if !ok {
		return nil, statemachine.ErrUserNotFound.WithDetails(req.Username)
	}

	updated := *priv
	updated.Zones = subtractZoneGrants(priv.Zones, req.Zones)
	updated.Servlets = subtractServletGrants(priv.Servlets, req.Servlets)
	updated.Version++

	if err := f.persistPrivilege(ctx, &updated); err != nil {
		return nil, err
	}

	*priv = updated
	return &ManagerResponse{OpType: OpDropPrivilege, Version: priv.Version}, nil
}

func (f *FSM) persistPrivilege(ctx context.Context, priv *UserPrivilege) error {
	data, err := json.Marshal(priv)
	if err != nil {
		return statemachine.ErrInternal.WithCause(err)
	}
	if err := f.kv.WriteBatch(ctx, []kv.WriteOp{kv.Put(kv.CFMetaInfo, privilegeKey(priv.Username), data)}); err != nil {
		return statemachine.ErrInternal.WithCause(err)
	}
	return nil
}

func mergeZoneGrants(existing, requested []ZoneGrant, force bool) []ZoneGrant {
	byZone := make(map[string]ZoneGrant, len(existing))
	for _, g := range existing {
		byZone[g.Zone] = g
	}
	for _, g := range requested {
		if force {
			byZone[g.Zone] = g
			continue
		}
		cur := byZone[g.Zone]
		cur.Zone = g.Zone
		cur.Read = cur.Read || g.Read
		cur.Write = cur.Write || g.Write
		byZone[g.Zone] = cur
	}
	return flattenZoneGrants(byZone)
}

func subtractZoneGrants(existing, requested []ZoneGrant) []ZoneGrant {
	byZone := make(map[string]ZoneGrant, len(existing))
	for _, g := range existing {
		byZone[g.Zone] = g
	}
	for _, g := range requested {
		cur, ok := byZone[g.Zone]
		if !ok {
			continue
		}
		if g.Read {
			cur.Read = false
		}
		if g.Write {
			cur.Write = false
		}
		if !cur.Read && !cur.Write {
			delete(byZone, g.Zone)
			continue
		}
		byZone[g.Zone] = cur
	}
	return flattenZoneGrants(byZone)
}

func flattenZoneGrants(m map[string]ZoneGrant) []ZoneGrant {
	out := make([]ZoneGrant, 0, len(m))
	for _, g := range m {
		out = append(out, g)
	}
	return out
}

func servletGrantKey(g ServletGrant) string { return g.Zone + "\x01" + g.Servlet }

func mergeServletGrants(existing, requested []ServletGrant, force bool) []ServletGrant {
	byKey := make(map[string]ServletGrant, len(existing))
	for _, g := range existing {
		byKey[servletGrantKey(g)] = g
	}
	for _, g := range requested {
		k := servletGrantKey(g)
		if force {
			byKey[k] = g
			continue
		}
		cur := byKey[k]
		cur.Zone, cur.Servlet = g.Zone, g.Servlet
		cur.Read = cur.Read || g.Read
		cur.Write = cur.Write || g.Write
		byKey[k] = cur
	}
	return flattenServletGrants(byKey)
}

func subtractServletGrants(existing, requested []ServletGrant) []ServletGrant {
	byKey := make(map[string]ServletGrant, len(existing))
	for _, g := range existing {
		byKey[servletGrantKey(g)] = g
	}
	for _, g := range requested {
		k := servletGrantKey(g)
		cur, ok := byKey[k]
		if !ok {
			continue
		}
		if g.Read {
			cur.Read = false
		}
		if g.Write {
			cur.Write = false
		}
		if !cur.Read && !cur.Write {
			delete(byKey, k)
			continue
		}
		byKey[k] = cur
	}
	return flattenServletGrants(byKey)
}

func flattenServletGrants(m map[string]ServletGrant) []ServletGrant {
	out := make([]ServletGrant, 0, len(m))
	for _, g := range m {
		out = append(out, g)
	}
	return out
}

// GetPrivilege returns the privilege record for username.
func (s *State) GetPrivilege(username string) (*UserPrivilege, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	priv, ok := s.privileges[username]
	if !ok {
		return nil, false
	}
	cp := *priv
	return &cp, true
}

// FlattenPrivilege expands a user's zone-wide grants across every live
// servlet in that zone and overlays explicit per-servlet grants on top,
// producing one ServletGrant per (zone, servlet) pair the user can reach.
func (s *State) FlattenPrivilege(username string) ([]ServletGrant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	priv, ok := s.privileges[username]
	if !ok {
		return nil, false
	}

	byZone := make(map[string]ZoneGrant, len(priv.Zones))
	for _, g := range priv.Zones {
		byZone[g.Zone] = g
	}

	flat := make(map[string]ServletGrant)
	for _, servlet := range s.servletsByName {
		if servlet.AppName != priv.AppName || servlet.Deleted {
			continue
		}
		if zg, ok := byZone[servlet.ZoneName]; ok && (zg.Read || zg.Write) {
			flat[servletGrantKey(ServletGrant{Zone: zg.Zone, Servlet: servlet.Name})] = ServletGrant{
				Zone: zg.Zone, Servlet: servlet.Name, Read: zg.Read, Write: zg.Write,
			}
		}
	}
	for _, g := range priv.Servlets {
		flat[servletGrantKey(g)] = g
	}

	out := make([]ServletGrant, 0, len(flat))
	for _, g := range flat {
		out = append(out, g)
	}
	return out, true
}
