package raftgroup

import (
	"time"

	"github.com/hashicorp/raft"

	"github.com/gottingen/sirius-go/internal/statemachine"
)

// ControlOp enumerates the RaftControl operations addressable by region_id.
type ControlOp int

const (
	OpSetPeer ControlOp = iota
	OpSnapshot
	OpTransferLeader
	OpResetVoteTime
	OpListPeer
	OpGetLeader
	OpShutdown
)

// HealthTracker reports whether a peer has been responding to heartbeats,
// backing the "reject SetPeer removal if another follower is unhealthy"
// policy. Implemented by the server's gossip-based health feed.
type HealthTracker interface {
	Healthy(nodeID string) bool
}

// ControlRequest mirrors the wire RaftControlRequest.
type ControlRequest struct {
	Op           ControlOp
	OldPeers     map[string]string
	NewPeers     map[string]string
	Force        bool
	NewLeader    string
	NewLeaderAddr string
	ElectionTimeMs int
	Timeout      time.Duration
}

// ControlResponse mirrors the wire RaftControlResponse.
type ControlResponse struct {
	Peers      map[string]string
	Leader     string
	LeaderHint string
}

// Control dispatches one RaftControl operation to the node for the
// addressed group, applying the per-op policy from the base state machine
// contract.
func Control(n *Node, health HealthTracker, req ControlRequest) (*ControlResponse, error) {
	if req.Timeout == 0 {
		req.Timeout = 10 * time.Second
	}

	switch req.Op {
	case OpSetPeer:
		if err := setPeer(n, health, req); err != nil {
			return nil, err
		}
		cfg, err := n.Configuration()
		if err != nil {
			return nil, statemachine.ErrInternal.WithCause(err)
		}
		return &ControlResponse{Peers: serversToMap(cfg)}, nil

	case OpSnapshot:
		if err := n.Snapshot(); err != nil {
			return nil, statemachine.ErrInternal.WithCause(err)
		}
		return &ControlResponse{}, nil

	case OpTransferLeader:
		if req.NewLeader == "" {
			return nil, statemachine.ErrInputParam.WithDetails("new_leader is required")
		}
		if err := n.TransferLeadershipTo(req.NewLeader, req.NewLeaderAddr); err != nil {
			return nil, statemachine.ErrInternal.WithCause(err)
		}
		cfg, err := n.Configuration()
		if err != nil {
			return nil, statemachine.ErrInternal.WithCause(err)
		}
		return &ControlResponse{Peers: serversToMap(cfg)}, nil

	case OpResetVoteTime:
		n.ReloadElectionTimeout(time.Duration(req.ElectionTimeMs) * time.Millisecond)
		return &ControlResponse{}, nil

	case OpListPeer:
		cfg, err := n.Configuration()
		if err != nil {
			return nil, statemachine.ErrInternal.WithCause(err)
		}
		return &ControlResponse{Peers: serversToMap(cfg)}, nil

	case OpGetLeader:
		return &ControlResponse{Leader: n.LeaderID(), LeaderHint: n.LeaderHint()}, nil

	case OpShutdown:
		if err := n.Close(); err != nil {
			return nil, statemachine.ErrInternal.WithCause(err)
		}
		return &ControlResponse{}, nil

	default:
		return nil, statemachine.ErrUnknownReqType
	}
}

func setPeer(n *Node, health HealthTracker, req ControlRequest) error {
	if !n.IsLeader() {
		return statemachine.ErrNotLeader.WithDetails(n.LeaderHint())
	}

	if req.Force {
		return applyPeerDiff(n, req)
	}

	cfg, err := n.Configuration()
	if err != nil {
		return statemachine.ErrInternal.WithCause(err)
	}
	current := serversToMap(cfg)
	if !mapsEqual(current, req.OldPeers) {
		return statemachine.ErrInputParam.WithDetails("old_peers does not match the committed configuration")
	}

	added, removed := diffPeers(req.OldPeers, req.NewPeers)
	if len(added)+len(removed) != 1 {
		return statemachine.ErrInputParam.WithDetails("SetPeer diff must be exactly one add or one remove unless force is set")
	}

	if len(removed) == 1 && health != nil {
		for id := range current {
			if id == removed[0] {
				continue
			}
			if !health.Healthy(id) {
				return statemachine.ErrInputParam.WithDetails("refusing to remove a peer while another follower is unhealthy")
			}
		}
	}

	return applyPeerDiff(n, req)
}

func applyPeerDiff(n *Node, req ControlRequest) error {
	added, removed := diffPeers(req.OldPeers, req.NewPeers)
	for _, id := range removed {
		if err := n.RemoveServer(id, req.Timeout); err != nil {
			return statemachine.ErrInternal.WithCause(err)
		}
	}
	for _, id := range added {
		addr := req.NewPeers[id]
		if err := n.AddVoter(id, addr, req.Timeout); err != nil {
			return statemachine.ErrInternal.WithCause(err)
		}
	}
	return nil
}

func diffPeers(oldPeers, newPeers map[string]string) (added, removed []string) {
	for id := range newPeers {
		if _, ok := oldPeers[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range oldPeers {
		if _, ok := newPeers[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}

func mapsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func serversToMap(cfg raft.Configuration) map[string]string {
	m := make(map[string]string, len(cfg.Servers))
	for _, s := range cfg.Servers {
		m[string(s.ID)] = string(s.Address)
	}
	return m
}
