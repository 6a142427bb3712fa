package server

import (
	"github.com/gottingen/sirius-go/internal/catalog"
	"github.com/gottingen/sirius-go/internal/statemachine"
)

// DiscoveryQuery answers one read-only lookup directly against the catalog
// state machine's in-memory indices, per spec.md §6 — no Raft submit is
// needed since reads don't need to go through consensus, only the log the
// reader is caught up to.
func (s *Server) DiscoveryQuery(req QueryRequest) *QueryResponse {
	state := s.catalogFSM.State()

	switch req.OpType {
	case QueryApp:
		app, ok := state.GetApp(req.AppName)
		if !ok {
			return queryErr(req.OpType, statemachine.ErrAppNotFound)
		}
		return &QueryResponse{envelope: okEnvelope(), OpType: req.OpType, App: app}

	case QueryZone:
		zone, ok := state.GetZone(req.AppName, req.Zone)
		if !ok {
			return queryErr(req.OpType, statemachine.ErrZoneNotFound)
		}
		return &QueryResponse{envelope: okEnvelope(), OpType: req.OpType, Zone: zone}

	case QueryServlet:
		servlet, ok := state.GetServlet(req.AppName, req.Zone, req.Servlet)
		if !ok {
			return queryErr(req.OpType, statemachine.ErrServletNotFound)
		}
		return &QueryResponse{envelope: okEnvelope(), OpType: req.OpType, Servlet: servlet}

	case QueryUserPrivilege:
		priv, ok := state.GetPrivilege(req.User)
		if !ok {
			return queryErr(req.OpType, statemachine.ErrUserNotFound)
		}
		return &QueryResponse{envelope: okEnvelope(), OpType: req.OpType, Privilege: priv}

	case QueryPrivilegeFlatten:
		grants, ok := state.FlattenPrivilege(req.User)
		if !ok {
			return queryErr(req.OpType, statemachine.ErrUserNotFound)
		}
		priv := &catalog.UserPrivilege{Username: req.User, Servlets: grants}
		return &QueryResponse{envelope: okEnvelope(), OpType: req.OpType, Privilege: priv}

	case QueryGetConfig:
		var (
			info *catalog.ConfigInfo
			ok   bool
		)
		if req.Version.IsZero() {
			info, ok = state.GetConfigLatest(req.Config)
		} else {
			info, ok = state.GetConfig(req.Config, req.Version)
		}
		if !ok {
			return queryErr(req.OpType, statemachine.ErrConfigNotFound)
		}
		return &QueryResponse{envelope: okEnvelope(), OpType: req.OpType, Config: info}

	case QueryListConfig:
		return &QueryResponse{envelope: okEnvelope(), OpType: req.OpType, Names: state.ListConfigNames()}

	case QueryListConfigVersion:
		return &QueryResponse{envelope: okEnvelope(), OpType: req.OpType, Versions: state.ListConfigVersions(req.Config)}

	default:
		return queryErr(req.OpType, statemachine.ErrUnknownReqType)
	}
}

func queryErr(opType QueryOpType, err *statemachine.Error) *QueryResponse {
	return &QueryResponse{envelope: errEnvelope(err.Code, err.Error(), ""), OpType: opType}
}
