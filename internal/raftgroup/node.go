// Package raftgroup hosts the three independent Raft groups (catalog,
// id-allocator, timestamp) that make up one replica process, and routes
// RaftControl operations to the group they address.
package raftgroup

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"

	"github.com/gottingen/sirius-go/internal/telemetry/logger"
)

// GroupID identifies one of the three replicated state machines sharing a
// peer set.
type GroupID uint8

const (
	GroupCatalog GroupID = 0
	GroupIDAlloc GroupID = 1
	GroupTSO     GroupID = 2
)

func (g GroupID) String() string {
	switch g {
	case GroupCatalog:
		return "catalog"
	case GroupIDAlloc:
		return "idalloc"
	case GroupTSO:
		return "tso"
	default:
		return fmt.Sprintf("group-%d", uint8(g))
	}
}

// NodeConfig configures a single Raft group's node.
type NodeConfig struct {
	GroupID   GroupID
	NodeID    string
	BindAddr  string
	DataDir   string
	Bootstrap bool
	Peers     map[string]string // nodeID -> bind addr, used only when Bootstrap is true

	HeartbeatTimeout   time.Duration
	ElectionTimeout    time.Duration
	CommitTimeout      time.Duration
	LeaderLeaseTimeout time.Duration

	Logger logger.Logger
}

func (c *NodeConfig) setDefaults() {
	if c.HeartbeatTimeout == 0 {
		c.HeartbeatTimeout = 1000 * time.Millisecond
	}
	if c.ElectionTimeout == 0 {
		c.ElectionTimeout = 1000 * time.Millisecond
	}
	if c.CommitTimeout == 0 {
		c.CommitTimeout = 50 * time.Millisecond
	}
	if c.LeaderLeaseTimeout == 0 {
		c.LeaderLeaseTimeout = 500 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = logger.Default()
	}
}

// Node wraps one hashicorp/raft instance for one group.
type Node struct {
	id     GroupID
	raft   *raft.Raft
	fsm    raft.FSM
	tr     *raft.NetworkTransport
	log    logger.Logger
	nodeID string

	logStore      raft.LogStore
	stableStore   raft.StableStore
	snapshotStore raft.SnapshotStore

	leaderCh chan bool
}

// NewNode creates and, if configured, bootstraps a Raft node for one group.
func NewNode(cfg NodeConfig, fsm raft.FSM) (*Node, error) {
	cfg.setDefaults()

	if cfg.DataDir == "" {
		return nil, fmt.Errorf("raftgroup: data dir is required for group %s", cfg.GroupID)
	}
	groupDir := filepath.Join(cfg.DataDir, cfg.GroupID.String())
	if err := os.MkdirAll(groupDir, 0o755); err != nil {
		return nil, fmt.Errorf("raftgroup: create data dir: %w", err)
	}

	log := cfg.Logger.With("group", cfg.GroupID.String())

	raftConfig := raft.DefaultConfig()
	raftConfig.LocalID = raft.ServerID(cfg.NodeID)
	raftConfig.Logger = newHCLogger(log, "raft."+cfg.GroupID.String())
	raftConfig.HeartbeatTimeout = cfg.HeartbeatTimeout
	raftConfig.ElectionTimeout = cfg.ElectionTimeout
	raftConfig.CommitTimeout = cfg.CommitTimeout
	raftConfig.LeaderLeaseTimeout = cfg.LeaderLeaseTimeout

	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("raftgroup: resolve bind addr: %w", err)
	}
	transport, err := raft.NewTCPTransport(cfg.BindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("raftgroup: create transport: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(groupDir, "raft-log.db"))
	if err != nil {
		transport.Close()
		return nil, fmt.Errorf("raftgroup: create log store: %w", err)
	}

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(groupDir, "raft-stable.db"))
	if err != nil {
		logStore.Close()
		transport.Close()
		return nil, fmt.Errorf("raftgroup: create stable store: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(groupDir, 3, os.Stderr)
	if err != nil {
		stableStore.Close()
		logStore.Close()
		transport.Close()
		return nil, fmt.Errorf("raftgroup: create snapshot store: %w", err)
	}

	leaderCh := make(chan bool, 10)
	raftConfig.NotifyCh = leaderCh

	r, err := raft.NewRaft(raftConfig, fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		stableStore.Close()
		logStore.Close()
		transport.Close()
		return nil, fmt.Errorf("raftgroup: create raft: %w", err)
	}

	n := &Node{
		id:            cfg.GroupID,
		raft:          r,
		fsm:           fsm,
		tr:            transport,
		log:           log,
		nodeID:        cfg.NodeID,
		logStore:      logStore,
		stableStore:   stableStore,
		snapshotStore: snapshotStore,
		leaderCh:      leaderCh,
	}

	if cfg.Bootstrap {
		servers := []raft.Server{{ID: raft.ServerID(cfg.NodeID), Address: transport.LocalAddr()}}
		for id, addr := range cfg.Peers {
			if id == cfg.NodeID {
				continue
			}
			servers = append(servers, raft.Server{ID: raft.ServerID(id), Address: raft.ServerAddress(addr)})
		}
		f := r.BootstrapCluster(raft.Configuration{Servers: servers})
		if err := f.Error(); err != nil {
			n.Close()
			return nil, fmt.Errorf("raftgroup: bootstrap: %w", err)
		}
	}

	log.Info("raft node created", "node_id", cfg.NodeID, "bind_addr", cfg.BindAddr, "bootstrap", cfg.Bootstrap)
	return n, nil
}

// ID returns the group this node belongs to.
func (n *Node) ID() GroupID { return n.id }

// Apply submits data to the Raft log and blocks until it is committed,
// satisfying statemachine.Submitter.
func (n *Node) Apply(ctx context.Context, data []byte, timeout time.Duration) (any, error) {
	f := n.raft.Apply(data, timeout)
	if err := f.Error(); err != nil {
		return nil, fmt.Errorf("raft apply: %w", err)
	}
	return f.Response(), nil
}

// IsLeader reports whether this node currently holds group leadership.
func (n *Node) IsLeader() bool { return n.raft.State() == raft.Leader }

// LeaderHint returns the current leader's address, or empty if unknown.
func (n *Node) LeaderHint() string {
	addr, _ := n.raft.LeaderWithID()
	return string(addr)
}

// LeaderID returns the current leader's node id.
func (n *Node) LeaderID() string {
	_, id := n.raft.LeaderWithID()
	return string(id)
}

// LeaderCh notifies on leadership transitions for this group (true = became
// leader). Used to gate the timestamp SM from serving GenTSO before it has
// loaded last_save_physical from a restored snapshot.
func (n *Node) LeaderCh() <-chan bool { return n.leaderCh }

// AddVoter adds a voting member to this group's configuration.
func (n *Node) AddVoter(nodeID, addr string, timeout time.Duration) error {
	return n.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(addr), 0, timeout).Error()
}

// RemoveServer removes a member from this group's configuration.
func (n *Node) RemoveServer(nodeID string, timeout time.Duration) error {
	return n.raft.RemoveServer(raft.ServerID(nodeID), 0, timeout).Error()
}

// TransferLeadershipTo hands off leadership to the given voter.
func (n *Node) TransferLeadershipTo(nodeID, addr string) error {
	return n.raft.LeadershipTransferToServer(raft.ServerID(nodeID), raft.ServerAddress(addr)).Error()
}

// Configuration returns the current committed server set for this group.
func (n *Node) Configuration() (raft.Configuration, error) {
	f := n.raft.GetConfiguration()
	if err := f.Error(); err != nil {
		return raft.Configuration{}, err
	}
	return f.Configuration(), nil
}

// Snapshot forces an out-of-band snapshot of this group.
func (n *Node) Snapshot() error {
	return n.raft.Snapshot().Error()
}

// ReloadElectionTimeout live-updates the election/heartbeat timeout.
func (n *Node) ReloadElectionTimeout(d time.Duration) {
	rc := n.raft.ReloadableConfig()
	rc.HeartbeatTimeout = d
	rc.ElectionTimeout = d
	_ = n.raft.ReloadConfig(rc)
}

// Stats exposes raw Raft stats, used by metrics registration.
func (n *Node) Stats() map[string]string { return n.raft.Stats() }

// Close shuts the node down, flushing pending writes.
func (n *Node) Close() error {
	if err := n.raft.Shutdown().Error(); err != nil {
		n.log.Error("raft shutdown failed", "error", err)
	}
	if s, ok := n.stableStore.(*raftboltdb.BoltStore); ok {
		s.Close()
	}
	if s, ok := n.logStore.(*raftboltdb.BoltStore); ok {
		s.Close()
	}
	n.tr.Close()
	close(n.leaderCh)
	return nil
}
