package catalog

// NamingRequest filters the live instance catalog by app, with optional
// zone/env/color constraints, per spec.md §4.11.
type NamingRequest struct {
	App    string
	Zones  []string
	Envs   []string
	Colors []string
	Status InstanceStatus
}

// Naming runs a single-pass filter over the live instance catalog, per
// spec.md §4.4/§4.11's pseudocode: it returns every registered instance
// whose fields match, not the servlet definitions themselves. A servlet
// with no registered instance contributes nothing. Empty filter vectors
// mean "no constraint on this axis"; the status filter defaults to NORMAL.
// addInstance denormalizes AppName/ZoneName/Env/Color/Status onto each
// instance at registration time, so filtering reads straight off the
// instance without joining back to servletsByName/servletsByID.
func (s *State) Naming(req NamingRequest) []ServletInstance {
	zones := toSet(req.Zones)
	envs := toSet(req.Envs)
	colors := toSet(req.Colors)

	var results []ServletInstance
	s.instances.Range(func(_ string, inst *ServletInstance) bool {
		if inst.AppName != req.App {
			return true
		}
		if len(zones) > 0 && !zones[inst.ZoneName] {
			return true
		}
		if len(envs) > 0 && !envs[inst.Env] {
			return true
		}
		if len(colors) > 0 && !colors[inst.Color] {
			return true
		}
		if inst.Status != req.Status {
			return true
		}
		results = append(results, *inst)
		return true
	})
	return results
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
