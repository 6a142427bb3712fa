// Package watcher implements the config watcher from spec.md §4.10: a
// single background worker that polls a Fetcher for the latest version of
// every subscribed config name, mirrors results into a cache,
// and notifies listeners when a new config or a new version appears.
package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/gottingen/sirius-go/internal/catalog"
	"github.com/gottingen/sirius-go/internal/configcache"
	"github.com/gottingen/sirius-go/internal/statemachine"
	"github.com/gottingen/sirius-go/internal/telemetry/logger"
)

// Listener receives notifications for one watched config name.
type Listener struct {
	// OnNewConfig fires the first time a name resolves to any version.
	OnNewConfig func(info *catalog.ConfigInfo)
	// OnNewVersion fires when a fetched version exceeds the last notified one.
	OnNewVersion func(current, next *catalog.ConfigInfo)
}

// Fetcher resolves the latest version of a config name. This module ships
// no implementation of it outside tests.
type Fetcher interface {
	GetConfigLatest(ctx context.Context, name string) (*catalog.ConfigInfo, error)
}

type watchEntry struct {
	lastNotified  catalog.Version
	listener      Listener
	firstRound    bool
	appliedVer    catalog.Version
	appliedIsZero bool
}

// Config tunes the worker's pacing.
type Config struct {
	StepInterval  time.Duration
	RoundInterval time.Duration
}

// DefaultConfig paces one fetch roughly every 50ms within a round, and
// waits a second between rounds.
func DefaultConfig() Config {
	return Config{StepInterval: 50 * time.Millisecond, RoundInterval: time.Second}
}

// Watcher polls Fetcher for every subscribed name and mirrors results into
// a Cache, firing Listener callbacks on change.
type Watcher struct {
	mu      sync.Mutex
	entries map[string]*watchEntry

	fetcher Fetcher
	cache   *configcache.Cache
	cfg     Config
	log     logger.Logger
}

// New creates a Watcher over fetcher, persisting fetched configs into cache.
func New(fetcher Fetcher, cache *configcache.Cache, cfg Config, log logger.Logger) *Watcher {
	if log == nil {
		log = logger.Default()
	}
	return &Watcher{
		entries: make(map[string]*watchEntry),
		fetcher: fetcher,
		cache:   cache,
		cfg:     cfg,
		log:     log,
	}
}

// WatchConfig subscribes name with listener, replacing any existing
// subscription for that name.
func (w *Watcher) WatchConfig(name string, listener Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[name] = &watchEntry{listener: listener, firstRound: true}
}

// UnwatchConfig removes a subscription.
func (w *Watcher) UnwatchConfig(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entries, name)
}

// Apply records the caller's acknowledgement of the given applied version.
// There is no server-side tracking of applied versions; this is purely a
// local bookkeeping aid for callers that want to query it back.
func (w *Watcher) Apply(name string, version catalog.Version) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entries[name]; ok {
		e.appliedVer = version
		e.appliedIsZero = false
	}
}

// Unapply clears a previously recorded applied version.
func (w *Watcher) Unapply(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entries[name]; ok {
		e.appliedVer = catalog.Version{}
		e.appliedIsZero = true
	}
}

// Applied returns the last version recorded via Apply, if any.
func (w *Watcher) Applied(name string) (catalog.Version, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entries[name]
	if !ok || e.appliedIsZero {
		return catalog.Version{}, false
	}
	return e.appliedVer, true
}

// Run drives the polling loop until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	for {
		w.runRound(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.RoundInterval):
		}
	}
}

func (w *Watcher) snapshotNames() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.entries))
	for name := range w.entries {
		names = append(names, name)
	}
	return names
}

func (w *Watcher) runRound(ctx context.Context) {
	names := w.snapshotNames()
	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		w.pollOne(ctx, name)
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.StepInterval):
		}
	}
}

func (w *Watcher) pollOne(ctx context.Context, name string) {
	w.mu.Lock()
	e, ok := w.entries[name]
	firstRound := ok && e.firstRound
	lastNotified := catalog.Version{}
	if ok {
		lastNotified = e.lastNotified
	}
	w.mu.Unlock()
	if !ok {
		return
	}

	info, err := w.fetcher.GetConfigLatest(ctx, name)
	if err != nil {
		if firstRound {
			w.log.Debug("watcher: first-round fetch failed, skipping silently", "name", name, "error", err)
		} else {
			w.log.Warn("watcher: fetch failed", "name", name, "error", err)
		}
		return
	}

	if err := w.cache.Add(info); err != nil && !statemachine.Is(err, "ConfigExists") {
		w.log.Warn("watcher: cache insert failed", "name", name, "error", err)
	}

	switch {
	case lastNotified.IsZero():
		if e.listener.OnNewConfig != nil {
			e.listener.OnNewConfig(info)
		}
	case info.Version.Compare(lastNotified) > 0:
		if e.listener.OnNewVersion != nil {
			prev := *info
			prev.Version = lastNotified
			e.listener.OnNewVersion(&prev, info)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.entries[name]; ok {
		if info.Version.Compare(e.lastNotified) > 0 || e.lastNotified.IsZero() {
			e.lastNotified = info.Version
		}
		e.firstRound = false
	}
}
