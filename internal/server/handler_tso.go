package server

import (
	"context"
	"time"

	"github.com/gottingen/sirius-go/internal/statemachine"
	"github.com/gottingen/sirius-go/internal/tso"
)

// Tso answers a timestamp generation or (administrative) reset call, per
// spec.md §4.6 and §6.
func (s *Server) Tso(ctx context.Context, req TsoRequest) *TsoResponse {
	switch req.OpType {
	case TsoGen:
		return s.tsoGen(req)
	case TsoReset:
		return s.tsoReset(ctx, req)
	default:
		return &TsoResponse{envelope: errEnvelope(statemachine.ErrUnknownReqType.Code, "unknown op_type", "")}
	}
}

// tsoGen runs entirely outside Raft on the leader, per spec.md §4.6: a
// replica that has not finished its on-leader-start bootstrap must not
// serve timestamps yet.
func (s *Server) tsoGen(req TsoRequest) *TsoResponse {
	if !s.tsoNode.IsLeader() {
		return &TsoResponse{envelope: errEnvelope(statemachine.ErrNotLeader.Code, statemachine.ErrNotLeader.Message, s.tsoNode.LeaderHint())}
	}
	if !s.ticker.Ready() {
		return &TsoResponse{envelope: errEnvelope(statemachine.ErrHaveNotInit.Code, statemachine.ErrHaveNotInit.Message, "")}
	}

	ts, err := tso.GenTSO(s.tsoFSM, s.cfg.ClockConfig, req.Count)
	if err != nil {
		code, msg, leader := describeErr(err)
		return &TsoResponse{envelope: errEnvelope(code, msg, leader)}
	}

	return &TsoResponse{
		envelope:      okEnvelope(),
		StartPhysical: ts.Physical,
		StartLogical:  ts.Logical,
		Count:         req.Count,
		SavePhysical:  s.tsoFSM.LastSavePhysical(),
		SystemTimeMs:  time.Now().UnixMilli(),
	}
}

// tsoReset replicates an operator-issued clock correction through Raft.
func (s *Server) tsoReset(ctx context.Context, req TsoRequest) *TsoResponse {
	resetReq := tso.ResetRequest{
		Current:      tso.Timestamp{Physical: req.CurrentPhysical, Logical: req.CurrentLogical},
		SavePhysical: req.SavePhysical,
		Force:        req.Force,
	}
	_, err := statemachine.Submit(ctx, s.tsoNode, uint16(tso.OpResetTSO), resetReq, submitTimeout)
	if err != nil {
		code, msg, leader := describeErr(err)
		return &TsoResponse{envelope: errEnvelope(code, msg, leader)}
	}
	return &TsoResponse{envelope: okEnvelope()}
}
