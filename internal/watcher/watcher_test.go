package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gottingen/sirius-go/internal/catalog"
	"github.com/gottingen/sirius-go/internal/configcache"
)

type fakeFetcher struct {
	mu   sync.Mutex
	vers map[string]catalog.Version
	err  map[string]error
}

func (f *fakeFetcher) set(name string, v catalog.Version) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vers[name] = v
}

func (f *fakeFetcher) GetConfigLatest(_ context.Context, name string) (*catalog.ConfigInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.err[name]; ok {
		return nil, err
	}
	v, ok := f.vers[name]
	if !ok {
		return nil, nil
	}
	return &catalog.ConfigInfo{Name: name, Version: v, Content: []byte("x"), ContentType: catalog.ContentTypeJSON}, nil
}

func newTestCache(t *testing.T) *configcache.Cache {
	t.Helper()
	c, err := configcache.Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return c
}

func fastCfg() Config {
	return Config{StepInterval: time.Millisecond, RoundInterval: time.Millisecond}
}

// Property 9 / scenario S6 (watch half): the first successful fetch for a
// name fires OnNewConfig exactly once, and a subsequent higher version
// fires OnNewVersion instead of OnNewConfig again.
func TestWatchFiresNewConfigThenNewVersion(t *testing.T) {
	fetcher := &fakeFetcher{vers: map[string]catalog.Version{}, err: map[string]error{}}
	fetcher.set("db", catalog.Version{Major: 1})

	cache := newTestCache(t)
	w := New(fetcher, cache, fastCfg(), nil)

	var mu sync.Mutex
	newConfigCount := 0
	newVersionCount := 0
	var lastVersion catalog.Version

	w.WatchConfig("db", Listener{
		OnNewConfig: func(info *catalog.ConfigInfo) {
			mu.Lock()
			defer mu.Unlock()
			newConfigCount++
			lastVersion = info.Version
		},
		OnNewVersion: func(_, next *catalog.ConfigInfo) {
			mu.Lock()
			defer mu.Unlock()
			newVersionCount++
			lastVersion = next.Version
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return newConfigCount >= 1
	})

	fetcher.set("db", catalog.Version{Major: 2})

	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return newVersionCount >= 1
	})
	cancel()

	mu.Lock()
	defer mu.Unlock()
	if newConfigCount != 1 {
		t.Fatalf("newConfigCount = %d, want 1", newConfigCount)
	}
	if lastVersion.Major != 2 {
		t.Fatalf("lastVersion = %v, want major 2", lastVersion)
	}
}

func TestApplyAndUnapply(t *testing.T) {
	fetcher := &fakeFetcher{vers: map[string]catalog.Version{}, err: map[string]error{}}
	cache := newTestCache(t)
	w := New(fetcher, cache, fastCfg(), nil)
	w.WatchConfig("db", Listener{})

	w.Apply("db", catalog.Version{Major: 3})
	v, ok := w.Applied("db")
	if !ok || v.Major != 3 {
		t.Fatalf("Applied = %v, %v, want (3, true)", v, ok)
	}

	w.Unapply("db")
	if _, ok := w.Applied("db"); ok {
		t.Fatal("expected Applied to report false after Unapply")
	}
}

func TestUnwatchStopsNotifications(t *testing.T) {
	fetcher := &fakeFetcher{vers: map[string]catalog.Version{}, err: map[string]error{}}
	fetcher.set("db", catalog.Version{Major: 1})
	cache := newTestCache(t)
	w := New(fetcher, cache, fastCfg(), nil)

	var mu sync.Mutex
	count := 0
	versions := 0
	w.WatchConfig("db", Listener{
		OnNewConfig: func(_ *catalog.ConfigInfo) {
			mu.Lock()
			count++
			mu.Unlock()
		},
		OnNewVersion: func(_, _ *catalog.ConfigInfo) {
			mu.Lock()
			versions++
			mu.Unlock()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 1
	})
	w.UnwatchConfig("db")
	// Let a poll that read the entry before the unwatch finish, then publish
	// a newer version that a live subscription would be notified of.
	time.Sleep(20 * time.Millisecond)
	fetcher.set("db", catalog.Version{Major: 2})
	time.Sleep(20 * time.Millisecond)
	cancel()

	mu.Lock()
	defer mu.Unlock()
	if versions != 0 {
		t.Fatalf("OnNewVersion fired %d times after UnwatchConfig, want 0", versions)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
