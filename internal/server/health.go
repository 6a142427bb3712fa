package server

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/memberlist"
)

// HealthConfig configures the peer heartbeat feed that backs RaftControl's
// quorum-safety check (spec.md's "connection health feed"). Left zero-value,
// no tracker is started and every peer reads as healthy.
type HealthConfig struct {
	BindAddr  string
	BindPort  int
	SeedNodes []string
	// UnhealthyFactor is how many consecutive heartbeat failures a peer may
	// accumulate before RaftControl treats it as unhealthy, mirroring the
	// "election heartbeat factor" spec.md ties this policy to.
	UnhealthyFactor int
	Logger          *slog.Logger
}

// HealthTracker counts consecutive gossip heartbeat failures per peer,
// repurposing the teacher's memberlist-backed discovery layer as a
// lightweight liveness feed rather than a membership source of truth (Raft
// configuration remains the source of truth for group membership).
type HealthTracker struct {
	memberList *memberlist.Memberlist
	factor     int

	mu       sync.RWMutex
	failures map[string]int
}

// NewHealthTracker starts the gossip layer and begins tracking peer
// liveness. Call Shutdown when the owning Server stops.
func NewHealthTracker(cfg HealthConfig) (*HealthTracker, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.UnhealthyFactor <= 0 {
		cfg.UnhealthyFactor = 3
	}

	h := &HealthTracker{
		factor:   cfg.UnhealthyFactor,
		failures: make(map[string]int),
	}

	mlConfig := memberlist.DefaultLANConfig()
	mlConfig.BindAddr = cfg.BindAddr
	mlConfig.BindPort = cfg.BindPort
	mlConfig.LogOutput = &healthLogWriter{logger: cfg.Logger}
	mlConfig.Events = &healthEventDelegate{tracker: h}

	ml, err := memberlist.Create(mlConfig)
	if err != nil {
		return nil, fmt.Errorf("health: create memberlist: %w", err)
	}
	h.memberList = ml

	if len(cfg.SeedNodes) > 0 {
		if _, err := ml.Join(cfg.SeedNodes); err != nil {
			ml.Shutdown()
			return nil, fmt.Errorf("health: join seed nodes: %w", err)
		}
	}
	return h, nil
}

// IsHealthy reports whether nodeID's consecutive failure count is still
// below the unhealthy factor. An unknown nodeID (never gossiped about, or
// never failed) reads as healthy.
func (h *HealthTracker) IsHealthy(nodeID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.failures[nodeID] < h.factor
}

func (h *HealthTracker) recordFailure(nodeID string) {
	h.mu.Lock()
	h.failures[nodeID]++
	h.mu.Unlock()
}

func (h *HealthTracker) recordAlive(nodeID string) {
	h.mu.Lock()
	delete(h.failures, nodeID)
	h.mu.Unlock()
}

// Shutdown leaves the gossip cluster and releases its socket.
func (h *HealthTracker) Shutdown() error {
	if h.memberList == nil {
		return nil
	}
	return h.memberList.Shutdown()
}

// healthEventDelegate turns memberlist's join/leave/update notifications
// into failure-count adjustments. A leave (memberlist's suspect-then-dead
// path) counts as a failure; a join or update means the peer is reachable
// again and clears its count.
type healthEventDelegate struct {
	tracker *HealthTracker
}

func (e *healthEventDelegate) NotifyJoin(n *memberlist.Node)   { e.tracker.recordAlive(n.Name) }
func (e *healthEventDelegate) NotifyLeave(n *memberlist.Node)  { e.tracker.recordFailure(n.Name) }
func (e *healthEventDelegate) NotifyUpdate(n *memberlist.Node) { e.tracker.recordAlive(n.Name) }

type healthLogWriter struct {
	logger *slog.Logger
}

func (w *healthLogWriter) Write(p []byte) (int, error) {
	w.logger.Debug(string(p))
	return len(p), nil
}
