// Package configcache implements the client-side config cache from
// spec.md §4.9: a process-local directory mirroring every (name, version)
// config blob fetched from the catalog, so a restarted client can resolve
// GetLatest without a network round trip.
package configcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gottingen/sirius-go/internal/catalog"
	"github.com/gottingen/sirius-go/internal/statemachine"
)

// fileRecord is the on-disk representation of one cached config version,
// named cache_dir/<name>-<major>.<minor>.<patch>.<type>.
type fileRecord struct {
	Name        string              `json:"name"`
	Version     catalog.Version     `json:"version"`
	Content     []byte              `json:"content"`
	ContentType catalog.ContentType `json:"content_type"`
	CTime       time.Time           `json:"ctime"`
	SurrogateID int64               `json:"surrogate_id"`
}

// Cache mirrors ConfigInfo blobs fetched from the catalog onto local disk,
// keyed by (name, version). All operations synchronize on one mutex, per
// spec.md §4.9: "concurrent readers and writers synchronize on a single
// mutex".
type Cache struct {
	mu      sync.Mutex
	dir     string
	entries map[string]map[catalog.Version]*catalog.ConfigInfo
}

// Open creates dir if it does not exist and loads every cached file in it
// into memory. An empty dir gives a cache that lives in memory only.
func Open(dir string) (*Cache, error) {
	c := &Cache{dir: dir, entries: make(map[string]map[catalog.Version]*catalog.ConfigInfo)}

	if dir == "" {
		return c, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("configcache: create cache dir: %w", err)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("configcache: list cache dir: %w", err)
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			return nil, fmt.Errorf("configcache: read %s: %w", f.Name(), err)
		}
		var rec fileRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("configcache: decode %s: %w", f.Name(), err)
		}
		c.insertLocked(&catalog.ConfigInfo{
			Name: rec.Name, Version: rec.Version, Content: rec.Content,
			ContentType: rec.ContentType, CTime: rec.CTime, SurrogateID: rec.SurrogateID,
		})
	}
	return c, nil
}

func (c *Cache) insertLocked(info *catalog.ConfigInfo) {
	versions, ok := c.entries[info.Name]
	if !ok {
		versions = make(map[catalog.Version]*catalog.ConfigInfo)
		c.entries[info.Name] = versions
	}
	versions[info.Version] = info
}

func (c *Cache) filePath(name string, v catalog.Version, contentType catalog.ContentType) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s-%s.%s", name, v.String(), string(contentType)))
}

// Add inserts config if (name, version) is not already present, persisting
// it to disk. Returns statemachine.ErrConfigExists if it is.
func (c *Cache) Add(info *catalog.ConfigInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if versions, ok := c.entries[info.Name]; ok {
		if _, exists := versions[info.Version]; exists {
			return statemachine.ErrConfigExists.WithDetails(info.Name + " " + info.Version.String())
		}
	}

	if c.dir != "" {
		rec := fileRecord{Name: info.Name, Version: info.Version, Content: info.Content, ContentType: info.ContentType, CTime: info.CTime, SurrogateID: info.SurrogateID}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("configcache: encode %s: %w", info.Name, err)
		}
		if err := os.WriteFile(c.filePath(info.Name, info.Version, info.ContentType), data, 0o644); err != nil {
			return fmt.Errorf("configcache: write %s: %w", info.Name, err)
		}
	}

	cp := *info
	c.insertLocked(&cp)
	return nil
}

// Get returns the cached (name, version) config.
func (c *Cache) Get(name string, v catalog.Version) (*catalog.ConfigInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	versions, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	info, ok := versions[v]
	if !ok {
		return nil, false
	}
	cp := *info
	return &cp, true
}

// GetLatest returns the newest cached version of name.
func (c *Cache) GetLatest(name string) (*catalog.ConfigInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	versions, ok := c.entries[name]
	if !ok || len(versions) == 0 {
		return nil, false
	}
	var latest *catalog.ConfigInfo
	for _, info := range versions {
		if latest == nil || info.Version.Compare(latest.Version) > 0 {
			latest = info
		}
	}
	cp := *latest
	return &cp, true
}

// ListNames returns every cached config name.
func (c *Cache) ListNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListVersions returns every cached version of name in ascending order.
func (c *Cache) ListVersions(name string) []catalog.Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	versions, ok := c.entries[name]
	if !ok {
		return nil
	}
	out := make([]catalog.Version, 0, len(versions))
	for v := range versions {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// Remove deletes one version of name.
func (c *Cache) Remove(name string, v catalog.Version) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeOneLocked(name, v)
}

// RemoveVersions deletes each listed version of name.
func (c *Cache) RemoveVersions(name string, versions []catalog.Version) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range versions {
		if err := c.removeOneLocked(name, v); err != nil {
			return err
		}
	}
	return nil
}

// RemoveLessThan deletes every cached version of name strictly below v.
func (c *Cache) RemoveLessThan(name string, v catalog.Version) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	versions, ok := c.entries[name]
	if !ok {
		return nil
	}
	for existing := range versions {
		if existing.Compare(v) < 0 {
			if err := c.removeOneLocked(name, existing); err != nil {
				return err
			}
		}
	}
	return nil
}

// RemoveName deletes every cached version of name.
func (c *Cache) RemoveName(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	versions, ok := c.entries[name]
	if !ok {
		return nil
	}
	for v := range versions {
		if err := c.removeOneLocked(name, v); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) removeOneLocked(name string, v catalog.Version) error {
	versions, ok := c.entries[name]
	if !ok {
		return nil
	}
	info, ok := versions[v]
	if !ok {
		return nil
	}
	if c.dir != "" {
		if err := os.Remove(c.filePath(name, v, info.ContentType)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("configcache: remove %s: %w", name, err)
		}
	}
	delete(versions, v)
	if len(versions) == 0 {
		delete(c.entries, name)
	}
	return nil
}
