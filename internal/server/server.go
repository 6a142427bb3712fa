package server

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/raft"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gottingen/sirius-go/internal/catalog"
	"github.com/gottingen/sirius-go/internal/idalloc"
	"github.com/gottingen/sirius-go/internal/kv"
	"github.com/gottingen/sirius-go/internal/raftgroup"
	"github.com/gottingen/sirius-go/internal/statemachine"
	"github.com/gottingen/sirius-go/internal/telemetry/logger"
	"github.com/gottingen/sirius-go/internal/tso"
)

// Config configures a single replica process hosting all three Raft
// groups over one shared peer set.
type Config struct {
	NodeID string
	// BindAddr and DataDir are suffixed per group (catalog/idalloc/tso)
	// when constructing each raftgroup.Node.
	BindAddr  string
	DataDir   string
	Bootstrap bool
	KVDir     string
	// KVEncryptionKey, if set, seals every KV snapshot at rest; see
	// kv.BadgerConfig.EncryptionKey.
	KVEncryptionKey string

	ClockConfig tso.ClockConfig
	Logger      logger.Logger

	// Health configures the peer heartbeat feed used by RaftControl's
	// quorum-safety check. Zero value disables it (every peer reads healthy).
	Health HealthConfig
}

// Server hosts the catalog, id-allocator, and timestamp state machines as
// three independent Raft groups, plus the background tasks (TSO ticker)
// that keep them live.
type Server struct {
	cfg Config
	log logger.Logger

	kv kv.Engine

	catalogFSM *catalog.FSM
	idallocFSM *idalloc.FSM
	tsoFSM     *tso.FSM

	catalogNode *raftgroup.Node
	idallocNode *raftgroup.Node
	tsoNode     *raftgroup.Node

	ticker *tso.Ticker
	health *HealthTracker
}

// New wires the KV engine, the three state machines, the three Raft groups
// and, when configured, the health tracker. It does not start the TSO
// ticker — call Run for that.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	if cfg.ClockConfig == (tso.ClockConfig{}) {
		cfg.ClockConfig = tso.DefaultClockConfig()
	}

	kvCfg := kv.DefaultBadgerConfig(cfg.KVDir)
	kvCfg.EncryptionKey = cfg.KVEncryptionKey
	engine, err := kv.NewBadgerEngine(kvCfg, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("server: open kv engine: %w", err)
	}

	catalogFSM := catalog.NewFSM(engine, cfg.Logger)
	idallocFSM := idalloc.NewFSM(cfg.Logger)
	tsoFSM := tso.NewFSM()

	catalogNode, err := newGroupNode(cfg, raftgroup.GroupCatalog, statemachine.NewBase("catalog", catalogFSM, cfg.Logger))
	if err != nil {
		return nil, fmt.Errorf("server: start catalog group: %w", err)
	}
	idallocNode, err := newGroupNode(cfg, raftgroup.GroupIDAlloc, statemachine.NewBase("idalloc", idallocFSM, cfg.Logger))
	if err != nil {
		return nil, fmt.Errorf("server: start idalloc group: %w", err)
	}
	tsoNode, err := newGroupNode(cfg, raftgroup.GroupTSO, statemachine.NewBase("tso", tsoFSM, cfg.Logger))
	if err != nil {
		return nil, fmt.Errorf("server: start tso group: %w", err)
	}

	s := &Server{
		cfg:         cfg,
		log:         cfg.Logger,
		kv:          engine,
		catalogFSM:  catalogFSM,
		idallocFSM:  idallocFSM,
		tsoFSM:      tsoFSM,
		catalogNode: catalogNode,
		idallocNode: idallocNode,
		tsoNode:     tsoNode,
	}
	s.ticker = tso.NewTicker(tsoNode, tsoFSM, cfg.ClockConfig, cfg.Logger)

	if cfg.Health.BindAddr != "" {
		health, err := NewHealthTracker(cfg.Health)
		if err != nil {
			return nil, fmt.Errorf("server: start health tracker: %w", err)
		}
		s.health = health
	}
	return s, nil
}

// Run starts the background tasks that keep the hosted groups live — just
// the TSO ticker today — until ctx is canceled.
func (s *Server) Run(ctx context.Context) {
	s.ticker.Run(ctx)
}

// Config returns the process configuration this Server was built from.
func (s *Server) Config() Config { return s.cfg }

// RegisterKVMetrics registers the hosted KV engine's LSM, value-log and
// total-size gauges into reg, if the engine supports it.
func (s *Server) RegisterKVMetrics(reg *prometheus.Registry) {
	if be, ok := s.kv.(*kv.BadgerEngine); ok {
		be.RegisterMetrics(reg)
	}
}

// IsGroupLeader reports whether this replica currently holds leadership of
// the named Raft group.
func (s *Server) IsGroupLeader(group raftgroup.GroupID) bool {
	node := s.groupNode(group)
	return node != nil && node.IsLeader()
}

// GroupConfiguration returns the named Raft group's current voter set.
func (s *Server) GroupConfiguration(group raftgroup.GroupID) (raft.Configuration, error) {
	node := s.groupNode(group)
	if node == nil {
		return raft.Configuration{}, fmt.Errorf("server: unknown group %d", group)
	}
	return node.Configuration()
}

// newGroupNode builds one group's raftgroup.Node, giving it its own data
// directory and bind address derived from the shared process config, the
// way the teacher suffixes per-subsystem ports off one base config.
func newGroupNode(cfg Config, group raftgroup.GroupID, fsm raft.FSM) (*raftgroup.Node, error) {
	nodeCfg := raftgroup.NodeConfig{
		GroupID:   group,
		NodeID:    cfg.NodeID,
		BindAddr:  groupBindAddr(cfg.BindAddr, group),
		DataDir:   filepath.Join(cfg.DataDir, group.String()),
		Bootstrap: cfg.Bootstrap,
		Logger:    cfg.Logger,
	}
	return raftgroup.NewNode(nodeCfg, fsm)
}

// groupBindAddr offsets the base Raft port by group id so all three groups
// can run in one process without a port collision.
func groupBindAddr(base string, group raftgroup.GroupID) string {
	host, portStr, err := net.SplitHostPort(base)
	if err != nil {
		return base
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return base
	}
	return net.JoinHostPort(host, strconv.Itoa(port+int(group)))
}

// Close shuts every Raft group and the shared KV engine down.
func (s *Server) Close() error {
	var firstErr error
	for _, n := range []*raftgroup.Node{s.catalogNode, s.idallocNode, s.tsoNode} {
		if n == nil {
			continue
		}
		if err := n.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.kv != nil {
		if err := s.kv.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.health != nil {
		if err := s.health.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
