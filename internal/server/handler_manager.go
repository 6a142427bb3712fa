package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gottingen/sirius-go/internal/catalog"
	"github.com/gottingen/sirius-go/internal/idalloc"
	"github.com/gottingen/sirius-go/internal/statemachine"
)

// submitTimeout bounds how long one DiscoveryManager/Tso mutation waits for
// its Raft group to commit, matching the ticker's own apply timeout.
const submitTimeout = 5 * time.Second

// opRoute names which group a wire ManagerOpType belongs to and the
// internal OpType it translates to there.
type opRoute struct {
	catalogOp catalog.OpType
	idallocOp idalloc.OpType
}

var managerRoutes = map[ManagerOpType]opRoute{
	OpCreateApp:                {catalogOp: catalog.OpCreateApp},
	OpDropApp:                  {catalogOp: catalog.OpDropApp},
	OpCreateZone:               {catalogOp: catalog.OpCreateZone},
	OpDropZone:                 {catalogOp: catalog.OpDropZone},
	OpCreateServlet:            {catalogOp: catalog.OpCreateServlet},
	OpDropServlet:              {catalogOp: catalog.OpDropServlet},
	OpAddInstance:              {catalogOp: catalog.OpAddInstance},
	OpDropInstance:             {catalogOp: catalog.OpDropInstance},
	OpCreateConfig:             {catalogOp: catalog.OpCreateConfig},
	OpCreateUser:               {catalogOp: catalog.OpCreateUser},
	OpDropUser:                 {catalogOp: catalog.OpDropUser},
	OpAddPrivilege:             {catalogOp: catalog.OpAddPrivilege},
	OpDropPrivilege:            {catalogOp: catalog.OpDropPrivilege},
	OpAddIDForAutoIncrement:    {idallocOp: idalloc.OpAdd},
	OpDropIDForAutoIncrement:   {idallocOp: idalloc.OpDrop},
	OpGenIDForAutoIncrement:    {idallocOp: idalloc.OpGen},
	OpUpdateIDForAutoIncrement: {idallocOp: idalloc.OpUpdate},
}

// DiscoveryManager dispatches one catalog or id-allocator mutation to its
// Raft group and translates the committed result (or rejection) into a
// ManagerResponse, per spec.md §6.
func (s *Server) DiscoveryManager(ctx context.Context, req ManagerRequest) *ManagerResponse {
	route, ok := managerRoutes[req.OpType]
	if !ok {
		return &ManagerResponse{envelope: errEnvelope(statemachine.ErrUnknownReqType.Code, fmt.Sprintf("op_type=%d", req.OpType), "")}
	}

	if route.idallocOp != 0 {
		resp, err := statemachine.Submit(ctx, s.idallocNode, uint16(route.idallocOp), json.RawMessage(req.Payload), submitTimeout)
		return toManagerResponse(resp, err)
	}
	resp, err := statemachine.Submit(ctx, s.catalogNode, uint16(route.catalogOp), json.RawMessage(req.Payload), submitTimeout)
	return toManagerResponse(resp, err)
}

func toManagerResponse(resp any, err error) *ManagerResponse {
	if err != nil {
		code, msg, leader := describeErr(err)
		return &ManagerResponse{envelope: errEnvelope(code, msg, leader)}
	}

	out := &ManagerResponse{envelope: okEnvelope()}
	switch v := resp.(type) {
	case *catalog.ManagerResponse:
		out.AppID = v.AppID
		out.ZoneID = v.ZoneID
		out.ServletID = v.ServletID
		out.Version = v.Version
	case *idalloc.Range:
		out.StartID = v.Start
		out.EndID = v.End
	}
	return out
}

// describeErr unpacks a *statemachine.Error into the (code, message, leader)
// triple every response envelope carries; any other error is reported as an
// opaque internal error.
func describeErr(err error) (code, msg, leader string) {
	var se *statemachine.Error
	if !errors.As(err, &se) {
		return statemachine.ErrInternal.Code, err.Error(), ""
	}
	if se.Code == statemachine.ErrNotLeader.Code {
		return se.Code, se.Error(), se.Details
	}
	return se.Code, se.Error(), ""
}
