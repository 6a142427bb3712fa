package raftgroup

import (
	"fmt"
	"net"
	"strconv"

	"github.com/hashicorp/raft"

	"github.com/gottingen/sirius-go/internal/telemetry/logger"
)

// HostConfig configures the three Raft groups sharing one peer set. Each
// group binds its own port derived from BasePort (base+0 catalog, base+1
// id-allocator, base+2 timestamp), since hashicorp/raft requires one
// transport per group.
type HostConfig struct {
	NodeID    string
	BindHost  string
	BasePort  int
	DataDir   string
	Bootstrap bool
	Peers     map[string]string // nodeID -> bind host (port derived per group)

	Logger logger.Logger
}

// Host owns the three Raft group nodes in one process.
type Host struct {
	nodes map[GroupID]*Node
	log   logger.Logger
}

// GroupBindAddr computes the bind address for a group given the host's base
// bind host/port.
func GroupBindAddr(bindHost string, basePort int, g GroupID) string {
	return net.JoinHostPort(bindHost, strconv.Itoa(basePort+int(g)))
}

// NewHost creates Raft nodes for all three groups, each wrapping the FSM
// supplied in fsms (keyed by group id). All three use the same node id,
// peer set and bootstrap flag; only the bind port and FSM differ.
func NewHost(cfg HostConfig, fsms map[GroupID]raft.FSM) (*Host, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	h := &Host{nodes: make(map[GroupID]*Node, 3), log: cfg.Logger}

	for _, g := range []GroupID{GroupCatalog, GroupIDAlloc, GroupTSO} {
		fsm, ok := fsms[g]
		if !ok {
			h.closeAll()
			return nil, fmt.Errorf("raftgroup: missing fsm for group %s", g)
		}

		peers := make(map[string]string, len(cfg.Peers))
		for id, host := range cfg.Peers {
			peers[id] = GroupBindAddr(host, cfg.BasePort, g)
		}

		node, err := NewNode(NodeConfig{
			GroupID:   g,
			NodeID:    cfg.NodeID,
			BindAddr:  GroupBindAddr(cfg.BindHost, cfg.BasePort, g),
			DataDir:   cfg.DataDir,
			Bootstrap: cfg.Bootstrap,
			Peers:     peers,
			Logger:    cfg.Logger,
		}, fsm)
		if err != nil {
			h.closeAll()
			return nil, fmt.Errorf("raftgroup: start group %s: %w", g, err)
		}
		h.nodes[g] = node
	}

	return h, nil
}

// Group returns the node hosting the given group, or nil if unknown.
func (h *Host) Group(g GroupID) *Node { return h.nodes[g] }

func (h *Host) closeAll() {
	for _, n := range h.nodes {
		n.Close()
	}
}

// Close shuts every group node down.
func (h *Host) Close() error {
	h.closeAll()
	return nil
}
