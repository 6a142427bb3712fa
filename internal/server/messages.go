// Package server hosts the three Raft groups sharing one peer set and
// exposes the RPC surface from spec.md §6: DiscoveryManager, DiscoveryQuery,
// RaftControl, ServletNaming, and Tso. Message names and op numbering follow
// api/proto/v1/sys.proto, but the shapes are not a field-for-field mirror:
// QueryRequest/QueryResponse carry typed fields where the proto carries a
// JSON payload, and the RaftControl types carry more ops and fields than the
// proto declares.
package server

import (
	"github.com/gottingen/sirius-go/internal/catalog"
)

// envelope is the common errcode/errmsg/leader triple every response here
// carries, letting each response type satisfy router.Envelope directly.
type envelope struct {
	Errcode string `json:"errcode"`
	Errmsg  string `json:"errmsg"`
	Leader  string `json:"leader,omitempty"`
}

func (e envelope) ErrCode() string    { return e.Errcode }
func (e envelope) ErrMsg() string     { return e.Errmsg }
func (e envelope) LeaderHint() string { return e.Leader }

func okEnvelope() envelope { return envelope{Errcode: "Success"} }

func errEnvelope(code, msg, leader string) envelope {
	return envelope{Errcode: code, Errmsg: msg, Leader: leader}
}

// ManagerOpType enumerates DiscoveryManager's wire-level operations, spanning
// both the catalog and id-allocator groups (spec.md §6). It is a distinct
// numbering space from catalog.OpType/idalloc.OpType, which also carry the
// CLI-only Modify variants that never cross the RPC surface; handler_manager
// maps one to the other.
type ManagerOpType uint16

const (
	OpCreateApp ManagerOpType = iota + 1
	OpDropApp
	OpCreateZone
	OpDropZone
	OpCreateServlet
	OpDropServlet
	OpAddInstance
	OpDropInstance
	OpCreateConfig
	OpCreateUser
	OpDropUser
	OpAddPrivilege
	OpDropPrivilege
	OpAddIDForAutoIncrement
	OpDropIDForAutoIncrement
	OpGenIDForAutoIncrement
	OpUpdateIDForAutoIncrement
)

// ManagerRequest carries one catalog or id-allocator mutation. Payload is
// the op-specific request, JSON-encoded exactly as the target state
// machine's Request type expects.
type ManagerRequest struct {
	OpType  ManagerOpType `json:"op_type"`
	Payload []byte        `json:"payload"`
}

// ManagerResponse is the common envelope for DiscoveryManager, carrying
// whichever op-specific fields the dispatched mutation produced.
type ManagerResponse struct {
	envelope
	AppID     int64  `json:"app_id,omitempty"`
	ZoneID    int64  `json:"zone_id,omitempty"`
	ServletID int64  `json:"servlet_id,omitempty"`
	Version   int64  `json:"version,omitempty"`
	StartID   uint64 `json:"start_id,omitempty"`
	EndID     uint64 `json:"end_id,omitempty"`
}

// QueryOpType enumerates DiscoveryQuery's read-only operations.
type QueryOpType uint16

const (
	QueryApp QueryOpType = iota + 1
	QueryZone
	QueryServlet
	QueryUserPrivilege
	QueryPrivilegeFlatten
	QueryGetConfig
	QueryListConfig
	QueryListConfigVersion
)

// QueryRequest carries one read-only lookup against the catalog.
type QueryRequest struct {
	OpType  QueryOpType `json:"op_type"`
	AppName string      `json:"app_name,omitempty"`
	Zone    string      `json:"zone,omitempty"`
	Servlet string      `json:"servlet,omitempty"`
	User    string      `json:"user,omitempty"`
	Config  string      `json:"config,omitempty"`
	Version catalog.Version `json:"version,omitempty"`
}

// QueryResponse carries the result of a DiscoveryQuery call; exactly one
// of the typed fields is populated depending on OpType.
type QueryResponse struct {
	envelope
	OpType    QueryOpType            `json:"op_type"`
	App       *catalog.AppInfo       `json:"app,omitempty"`
	Zone      *catalog.ZoneInfo      `json:"zone,omitempty"`
	Servlet   *catalog.ServletInfo   `json:"servlet,omitempty"`
	Privilege *catalog.UserPrivilege `json:"privilege,omitempty"`
	Config    *catalog.ConfigInfo    `json:"config,omitempty"`
	Names     []string               `json:"names,omitempty"`
	Versions  []catalog.Version      `json:"versions,omitempty"`
}

// RaftControlOpType enumerates RaftControl's operations, per spec.md §4.2:
// {SetPeer, Snapshot, TransferLeader, ResetVoteTime, ListPeer, GetLeader,
// Shutdown}. AddPeer/RemovePeer are convenience wrappers kept for the CLI's
// single-node add/remove commands; they bypass the old_peers/diff policy.
// AddPeer is unconditional; RemovePeer is refused while any other current
// voter is unhealthy.
type RaftControlOpType uint16

const (
	RaftControlAddPeer RaftControlOpType = iota + 1
	RaftControlRemovePeer
	RaftControlTransferLeader
	// RaftControlSetPeer installs a new peer configuration per spec.md
	// §4.2: OldPeers must exactly match the committed configuration and
	// the diff from OldPeers to NewPeers must be exactly one add or one
	// remove, unless Force is set. Removing a peer is rejected if any
	// other current voter is presently unhealthy.
	RaftControlSetPeer
	RaftControlSnapshot
	RaftControlResetVoteTime
	RaftControlListPeer
	RaftControlGetLeader
	RaftControlShutdown
)

// RaftControlRequest addresses one of the three Raft groups by RegionID
// (0=catalog, 1=id-allocator, 2=tso), per spec.md §6.
type RaftControlRequest struct {
	RegionID       int32             `json:"region_id"`
	OpType         RaftControlOpType `json:"op_type"`
	NodeID         string            `json:"node_id,omitempty"`
	Addr           string            `json:"addr,omitempty"`
	OldPeers       map[string]string `json:"old_peers,omitempty"`
	NewPeers       map[string]string `json:"new_peers,omitempty"`
	Force          bool              `json:"force,omitempty"`
	NewLeader      string            `json:"new_leader,omitempty"`
	ElectionTimeMs int               `json:"election_time,omitempty"`
}

// RaftControlResponse reports the outcome of a RaftControl call. Peers is
// populated by ListPeer/SetPeer/TransferLeader; Leader/LeaderHint by
// GetLeader.
type RaftControlResponse struct {
	envelope
	Peers      map[string]string `json:"peers,omitempty"`
	Leader     string            `json:"leader,omitempty"`
	LeaderHint string            `json:"leader_hint,omitempty"`
}

// NamingRequest filters the live instance catalog by app, with optional
// zone/env/color constraints, per spec.md §4.11 and §6.
type NamingRequest struct {
	App    string                 `json:"app"`
	Zones  []string               `json:"zones,omitempty"`
	Envs   []string               `json:"envs,omitempty"`
	Colors []string               `json:"colors,omitempty"`
	Status catalog.InstanceStatus `json:"status"`
}

// NamingResponse wraps catalog.Naming's result in the common envelope.
type NamingResponse struct {
	envelope
	Servlets []catalog.ServletInstance `json:"servlets"`
}

// TsoOpType enumerates Tso's two operations.
type TsoOpType uint16

const (
	TsoGen TsoOpType = iota + 1
	TsoReset
)

// TsoRequest carries a timestamp generation or (administrative) reset call.
type TsoRequest struct {
	OpType          TsoOpType `json:"op_type"`
	Count           int64     `json:"count,omitempty"`
	CurrentPhysical int64     `json:"current_physical_ms,omitempty"`
	CurrentLogical  int64     `json:"current_logical,omitempty"`
	SavePhysical    int64     `json:"save_physical_ms,omitempty"`
	Force           bool      `json:"force,omitempty"`
}

// TsoResponse returns an issued timestamp range, per spec.md §6.
type TsoResponse struct {
	envelope
	StartPhysical int64 `json:"start_physical_ms"`
	StartLogical  int64 `json:"start_logical"`
	Count         int64 `json:"count"`
	SavePhysical  int64 `json:"save_physical_ms"`
	SystemTimeMs  int64 `json:"system_time_ms"`
}
