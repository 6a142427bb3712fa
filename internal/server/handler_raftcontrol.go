package server

import (
	"fmt"
	"time"

	"github.com/gottingen/sirius-go/internal/raftgroup"
	"github.com/gottingen/sirius-go/internal/statemachine"
)

// raftControlTimeout bounds how long a membership change waits for the
// target group's Raft library to apply it.
const raftControlTimeout = 10 * time.Second

// RaftControl dispatches one operation to the Raft group named by RegionID
// (0=catalog, 1=id-allocator, 2=tso), per spec.md §6. SetPeer/Snapshot/
// TransferLeader/ResetVoteTime/ListPeer/GetLeader/Shutdown delegate to
// raftgroup.Control, which enforces the §4.2 old_peers/diff/force policy;
// AddPeer/RemovePeer stay as direct single-node convenience wrappers for the
// CLI that skip the old_peers/diff policy; RemovePeer still runs
// checkQuorumHealth first.
func (s *Server) RaftControl(req RaftControlRequest) *RaftControlResponse {
	node := s.groupNode(raftgroup.GroupID(req.RegionID))
	if node == nil {
		return &RaftControlResponse{envelope: errEnvelope(statemachine.ErrInputParam.Code, "unknown region_id", "")}
	}

	switch req.OpType {
	case RaftControlAddPeer:
		if err := node.AddVoter(req.NodeID, req.Addr, raftControlTimeout); err != nil {
			return &RaftControlResponse{envelope: errEnvelope(statemachine.ErrInternal.Code, err.Error(), "")}
		}
		return &RaftControlResponse{envelope: okEnvelope()}

	case RaftControlRemovePeer:
		if err := s.checkQuorumHealth(node, req.NodeID); err != nil {
			return &RaftControlResponse{envelope: errEnvelope(statemachine.ErrInputParam.Code, err.Error(), "")}
		}
		if err := node.RemoveServer(req.NodeID, raftControlTimeout); err != nil {
			return &RaftControlResponse{envelope: errEnvelope(statemachine.ErrInternal.Code, err.Error(), "")}
		}
		return &RaftControlResponse{envelope: okEnvelope()}

	case RaftControlSetPeer:
		return s.dispatchControl(node, raftgroup.ControlRequest{
			Op: raftgroup.OpSetPeer, OldPeers: req.OldPeers, NewPeers: req.NewPeers, Force: req.Force,
		})

	case RaftControlSnapshot:
		return s.dispatchControl(node, raftgroup.ControlRequest{Op: raftgroup.OpSnapshot})

	case RaftControlTransferLeader:
		return s.dispatchControl(node, raftgroup.ControlRequest{
			Op: raftgroup.OpTransferLeader, NewLeader: req.NewLeader, NewLeaderAddr: req.Addr,
		})

	case RaftControlResetVoteTime:
		return s.dispatchControl(node, raftgroup.ControlRequest{Op: raftgroup.OpResetVoteTime, ElectionTimeMs: req.ElectionTimeMs})

	case RaftControlListPeer:
		return s.dispatchControl(node, raftgroup.ControlRequest{Op: raftgroup.OpListPeer})

	case RaftControlGetLeader:
		return s.dispatchControl(node, raftgroup.ControlRequest{Op: raftgroup.OpGetLeader})

	case RaftControlShutdown:
		return s.dispatchControl(node, raftgroup.ControlRequest{Op: raftgroup.OpShutdown})

	default:
		return &RaftControlResponse{envelope: errEnvelope(statemachine.ErrUnknownReqType.Code, "unknown op_type", "")}
	}
}

// dispatchControl runs req through raftgroup.Control and translates the
// result into the wire envelope.
func (s *Server) dispatchControl(node *raftgroup.Node, req raftgroup.ControlRequest) *RaftControlResponse {
	req.Timeout = raftControlTimeout
	resp, err := raftgroup.Control(node, s.healthTracker(), req)
	if err != nil {
		code, msg, leader := describeErr(err)
		return &RaftControlResponse{envelope: errEnvelope(code, msg, leader)}
	}
	return &RaftControlResponse{
		envelope:   okEnvelope(),
		Peers:      resp.Peers,
		Leader:     resp.Leader,
		LeaderHint: resp.LeaderHint,
	}
}

// healthTracker adapts the server's health feed to raftgroup.HealthTracker,
// whose Healthy method name differs from HealthTracker.IsHealthy. Returns
// nil (disabled) when no health feed is configured.
func (s *Server) healthTracker() raftgroup.HealthTracker {
	if s.health == nil {
		return nil
	}
	return healthAdapter{s.health}
}

type healthAdapter struct{ h *HealthTracker }

func (a healthAdapter) Healthy(nodeID string) bool { return a.h.IsHealthy(nodeID) }

// checkQuorumHealth rejects a membership change that removes targetID while
// any OTHER current voter is presently unhealthy, since losing targetID on
// top of an already-unhealthy peer risks the group's quorum. A nil health
// tracker (disabled) or an unreachable configuration always passes.
func (s *Server) checkQuorumHealth(node *raftgroup.Node, targetID string) error {
	if s.health == nil {
		return nil
	}
	cfg, err := node.Configuration()
	if err != nil {
		return nil
	}
	for _, srv := range cfg.Servers {
		if string(srv.ID) == targetID {
			continue
		}
		if !s.health.IsHealthy(string(srv.ID)) {
			return fmt.Errorf("peer %s is unhealthy, refusing to change membership", srv.ID)
		}
	}
	return nil
}

func (s *Server) groupNode(group raftgroup.GroupID) *raftgroup.Node {
	switch group {
	case raftgroup.GroupCatalog:
		return s.catalogNode
	case raftgroup.GroupIDAlloc:
		return s.idallocNode
	case raftgroup.GroupTSO:
		return s.tsoNode
	default:
		return nil
	}
}
