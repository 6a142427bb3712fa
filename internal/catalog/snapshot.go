package catalog

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// rebuildIndexes replays the rows dumped from the meta_info column family
// back into the in-memory indexes, per spec.md §4.4's snapshot-load
// contract: "replay the prefix scans to rebuild memory".
func (f *FSM) rebuildIndexes(rows []kvRow) error {
	s := f.state

	for _, row := range rows {
		if len(row.Key) == 0 {
			continue
		}
		switch row.Key[0] {
		case prefixApp:
			var app AppInfo
			if err := json.Unmarshal(row.Value, &app); err != nil {
				return fmt.Errorf("catalog: decode app row: %w", err)
			}
			a := app
			s.appsByID[a.AppID] = &a
			s.appsByName[a.Name] = &a
			if _, ok := s.appZones[a.AppID]; !ok {
				s.appZones[a.AppID] = make(map[int64]struct{})
			}

		case prefixZone:
			var zone ZoneInfo
			if err := json.Unmarshal(row.Value, &zone); err != nil {
				return fmt.Errorf("catalog: decode zone row: %w", err)
			}
			z := zone
			s.zonesByID[z.ZoneID] = &z
			s.zonesByName[zoneCompositeName(z.AppName, z.Name)] = &z
			if _, ok := s.zoneServlets[z.ZoneID]; !ok {
				s.zoneServlets[z.ZoneID] = make(map[int64]struct{})
			}
			if set, ok := s.appZones[z.AppID]; ok {
				set[z.ZoneID] = struct{}{}
			} else {
				s.appZones[z.AppID] = map[int64]struct{}{z.ZoneID: {}}
			}

		case prefixServlet:
			var servlet ServletInfo
			if err := json.Unmarshal(row.Value, &servlet); err != nil {
				return fmt.Errorf("catalog: decode servlet row: %w", err)
			}
			sv := servlet
			s.servletsByID[sv.ServletID] = &sv
			composite := servletCompositeName(sv.AppName, sv.ZoneName, sv.Name)
			s.servletsByName[composite] = &sv
			if set, ok := s.zoneServlets[sv.ZoneID]; ok {
				set[sv.ServletID] = struct{}{}
			} else {
				s.zoneServlets[sv.ZoneID] = map[int64]struct{}{sv.ServletID: {}}
			}

		case prefixInstance:
			var inst ServletInstance
			if err := json.Unmarshal(row.Value, &inst); err != nil {
				return fmt.Errorf("catalog: decode instance row: %w", err)
			}
			in := inst
			s.instances.Set(in.Address, &in)

		case prefixConfig:
			var info ConfigInfo
			if err := json.Unmarshal(row.Value, &info); err != nil {
				return fmt.Errorf("catalog: decode config row: %w", err)
			}
			versions, ok := s.configs[info.Name]
			if !ok {
				versions = newConfigVersions()
				s.configs[info.Name] = versions
			}
			cfg := info
			versions.insert(&cfg)
			if cfg.SurrogateID > s.maxConfigID {
				s.maxConfigID = cfg.SurrogateID
			}

		case prefixPrivilege:
			var priv UserPrivilege
			if err := json.Unmarshal(row.Value, &priv); err != nil {
				return fmt.Errorf("catalog: decode privilege row: %w", err)
			}
			p := priv
			s.privileges[p.Username] = &p

		case prefixMaxID:
			if len(row.Key) < 2 || len(row.Value) != 8 {
				continue
			}
			id := int64(binary.BigEndian.Uint64(row.Value))
			switch string(row.Key[1:]) {
			case maxIDTagApp:
				s.maxAppID = id
			case maxIDTagZone:
				s.maxZoneID = id
			case maxIDTagServlet:
				s.maxServletID = id
			case maxIDTagConfig:
				if id > s.maxConfigID {
					s.maxConfigID = id
				}
			}
		}
	}

	return nil
}
