// Package catalog implements the replicated catalog state machine (Raft
// group 0): apps, zones, servlets, instances, configs and privileges.
package catalog

import (
	"sort"
	"sync"
	"time"

	"github.com/gottingen/sirius-go/pkg/cmap"
)

// quarantineWindow is how long a dropped instance address is refused
// re-registration, per spec.md §3: "quarantined for one hour".
const quarantineWindow = time.Hour

// servletCooldown is how long a dropped servlet's composite key is refused
// re-creation, per spec.md §4.4.
const servletCooldown = time.Hour

// configVersions holds one name's versions in semver order.
type configVersions struct {
	ordered []Version // ascending
	byVer   map[Version]*ConfigInfo
}

func newConfigVersions() *configVersions {
	return &configVersions{byVer: make(map[Version]*ConfigInfo)}
}

func (c *configVersions) latest() *ConfigInfo {
	if len(c.ordered) == 0 {
		return nil
	}
	return c.byVer[c.ordered[len(c.ordered)-1]]
}

func (c *configVersions) insert(info *ConfigInfo) {
	c.ordered = append(c.ordered, info.Version)
	c.byVer[info.Version] = info
}

func (c *configVersions) removeVersion(v Version) bool {
	if _, ok := c.byVer[v]; !ok {
		return false
	}
	delete(c.byVer, v)
	for i, existing := range c.ordered {
		if existing == v {
			c.ordered = append(c.ordered[:i], c.ordered[i+1:]...)
			break
		}
	}
	return true
}

// State holds every in-memory index owned by the catalog state machine.
// It is mutated only from the Raft apply path and read under mu from RPC
// query handlers, per spec.md §5's "per-index mutex for a short critical
// section" policy.
type State struct {
	mu sync.RWMutex

	appsByID   map[int64]*AppInfo
	appsByName map[string]*AppInfo
	appZones   map[int64]map[int64]struct{} // app_id -> set(zone_id)

	zonesByID   map[int64]*ZoneInfo
	zonesByName map[string]*ZoneInfo // composite app\x01zone
	zoneServlets map[int64]map[int64]struct{} // zone_id -> set(servlet_id)

	servletsByID   map[int64]*ServletInfo
	servletsByName map[string]*ServletInfo // composite app\x01zone\x01servlet

	instances *cmap.Map[string, *ServletInstance]

	configs map[string]*configVersions

	privileges map[string]*UserPrivilege

	quarantine map[string]time.Time // address -> removed_at
	coolingOff map[string]time.Time // servlet composite name -> removed_at

	maxAppID     int64
	maxZoneID    int64
	maxServletID int64
	maxConfigID  int64
}

// NewState creates an empty catalog index set.
func NewState() *State {
	return &State{
		appsByID:     make(map[int64]*AppInfo),
		appsByName:   make(map[string]*AppInfo),
		appZones:     make(map[int64]map[int64]struct{}),
		zonesByID:    make(map[int64]*ZoneInfo),
		zonesByName:  make(map[string]*ZoneInfo),
		zoneServlets: make(map[int64]map[int64]struct{}),
		servletsByID:   make(map[int64]*ServletInfo),
		servletsByName: make(map[string]*ServletInfo),
		instances:      cmap.New[string, *ServletInstance](),
		configs:        make(map[string]*configVersions),
		privileges:     make(map[string]*UserPrivilege),
		quarantine:     make(map[string]time.Time),
		coolingOff:     make(map[string]time.Time),
	}
}

func (s *State) nextAppID() int64 {
	s.maxAppID++
	return s.maxAppID
}

func (s *State) nextZoneID() int64 {
	s.maxZoneID++
	return s.maxZoneID
}

func (s *State) nextServletID() int64 {
	s.maxServletID++
	return s.maxServletID
}

func (s *State) nextConfigID() int64 {
	s.maxConfigID++
	return s.maxConfigID
}

func (s *State) isQuarantined(address string, now time.Time) bool {
	removedAt, ok := s.quarantine[address]
	if !ok {
		return false
	}
	if now.Sub(removedAt) >= quarantineWindow {
		delete(s.quarantine, address)
		return false
	}
	return true
}

func (s *State) isCoolingOff(composite string, now time.Time) bool {
	removedAt, ok := s.coolingOff[composite]
	if !ok {
		return false
	}
	if now.Sub(removedAt) >= servletCooldown {
		delete(s.coolingOff, composite)
		return false
	}
	return true
}

func sortedVersions(c *configVersions) []Version {
	out := make([]Version, len(c.ordered))
	copy(out, c.ordered)
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}
