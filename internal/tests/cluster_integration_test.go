// Package tests exercises a multi-node sirius cluster end to end: bringing
// up three in-process replicas sharing one peer set, growing each Raft group
// from one voter to three, and driving catalog mutations/queries and
// timestamp generation through the resulting cluster.
package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gottingen/sirius-go/internal/catalog"
	"github.com/gottingen/sirius-go/internal/raftgroup"
	"github.com/gottingen/sirius-go/internal/server"
)

var integrationPortBase int64 = 29000

func nextIntegrationPort() int {
	return int(atomic.AddInt64(&integrationPortBase, 10))
}

// newIntegrationNode starts a single-process replica. Bootstrap must be
// true for exactly one node of a cluster being formed from scratch.
func newIntegrationNode(t *testing.T, nodeID string, bootstrap bool) *server.Server {
	t.Helper()

	dir := t.TempDir()
	cfg := server.Config{
		NodeID:    nodeID,
		BindAddr:  fmt.Sprintf("127.0.0.1:%d", nextIntegrationPort()),
		DataDir:   filepath.Join(dir, "raft"),
		KVDir:     filepath.Join(dir, "kv"),
		Bootstrap: bootstrap,
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		t.Fatalf("create raft dir: %v", err)
	}
	if err := os.MkdirAll(cfg.KVDir, 0755); err != nil {
		t.Fatalf("create kv dir: %v", err)
	}

	s, err := server.New(cfg)
	if err != nil {
		t.Fatalf("server.New(%s): %v", nodeID, err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Logf("close %s: %v", nodeID, err)
		}
	})
	return s
}

// joinAllGroups adds follower's node ID/bind address as a voter to every
// Raft group hosted by leader, one RaftControl call per region per
// spec.md §6's RegionID convention (0=catalog, 1=id-allocator, 2=tso).
func joinAllGroups(t *testing.T, leader *server.Server, followerID, followerAddr string) {
	t.Helper()
	for region := int32(0); region <= 2; region++ {
		resp := leader.RaftControl(server.RaftControlRequest{
			RegionID: region,
			OpType:   server.RaftControlAddPeer,
			NodeID:   followerID,
			Addr:     followerAddr,
		})
		if resp.ErrCode() != "Success" {
			t.Fatalf("add peer region=%d node=%s: %s", region, followerID, resp.ErrMsg())
		}
	}
}

// waitForClusterLeader polls until exactly one of the given servers holds
// leadership of every one of its three groups.
func waitForClusterLeader(t *testing.T, servers []*server.Server) *server.Server {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		for _, s := range servers {
			if s.IsGroupLeader(raftgroup.GroupCatalog) &&
				s.IsGroupLeader(raftgroup.GroupIDAlloc) &&
				s.IsGroupLeader(raftgroup.GroupTSO) {
				return s
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("no server reached leadership of all three groups")
	return nil
}

// TestCluster_ThreeNode_FormAndServe bootstraps a single-node cluster, grows
// it to three voters across all three Raft groups, and exercises a catalog
// mutation, a catalog query, and a timestamp generation against it.
func TestCluster_ThreeNode_FormAndServe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	node1 := newIntegrationNode(t, "node-1", true)
	waitForClusterLeader(t, []*server.Server{node1})

	node2 := newIntegrationNode(t, "node-2", false)
	node3 := newIntegrationNode(t, "node-3", false)

	joinAllGroups(t, node1, "node-2", node2.Config().BindAddr)
	joinAllGroups(t, node1, "node-3", node3.Config().BindAddr)

	servers := []*server.Server{node1, node2, node3}

	t.Run("ThreeVotersPerGroup", func(t *testing.T) {
		for _, group := range []raftgroup.GroupID{raftgroup.GroupCatalog, raftgroup.GroupIDAlloc, raftgroup.GroupTSO} {
			cfg, err := node1.GroupConfiguration(group)
			if err != nil {
				t.Fatalf("configuration for group %d: %v", group, err)
			}
			if len(cfg.Servers) != 3 {
				t.Errorf("group %d: expected 3 voters, got %d", group, len(cfg.Servers))
			}
		}
	})

	t.Run("CreateAppAndQuery", func(t *testing.T) {
		leader := waitForClusterLeader(t, servers)

		payload, err := json.Marshal(catalog.CreateAppRequest{Name: "checkout", Quota: 1000})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		mgrResp := leader.DiscoveryManager(context.Background(), server.ManagerRequest{
			OpType:  server.OpCreateApp,
			Payload: payload,
		})
		if mgrResp.ErrCode() != "Success" {
			t.Fatalf("create app: %s", mgrResp.ErrMsg())
		}
		if mgrResp.AppID == 0 {
			t.Error("expected a nonzero app id")
		}

		qResp := leader.DiscoveryQuery(server.QueryRequest{
			OpType:  server.QueryApp,
			AppName: "checkout",
		})
		if qResp.ErrCode() != "Success" {
			t.Fatalf("query app: %s", qResp.ErrMsg())
		}
		if qResp.App == nil || qResp.App.Name != "checkout" {
			t.Errorf("expected app 'checkout' in query result, got %+v", qResp.App)
		}
	})

	t.Run("GenerateTimestamp", func(t *testing.T) {
		leader := waitForClusterLeader(t, servers)

		resp := leader.Tso(context.Background(), server.TsoRequest{
			OpType: server.TsoGen,
			Count:  10,
		})
		if resp.ErrCode() != "Success" {
			t.Fatalf("tso gen: %s", resp.ErrMsg())
		}
		if resp.Count != 10 {
			t.Errorf("expected count=10, got %d", resp.Count)
		}
		if resp.StartPhysical == 0 {
			t.Error("expected a nonzero start_physical_ms")
		}
	})
}

// TestCluster_LeaderFailover grows a three-node cluster, then closes the
// node holding leadership and confirms a remaining node takes over all
// three groups.
func TestCluster_LeaderFailover(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	node1 := newIntegrationNode(t, "node-1", true)
	waitForClusterLeader(t, []*server.Server{node1})

	node2 := newIntegrationNode(t, "node-2", false)
	node3 := newIntegrationNode(t, "node-3", false)
	joinAllGroups(t, node1, "node-2", node2.Config().BindAddr)
	joinAllGroups(t, node1, "node-3", node3.Config().BindAddr)

	servers := []*server.Server{node1, node2, node3}
	leader := waitForClusterLeader(t, servers)

	t.Logf("closing current leader")
	if err := leader.Close(); err != nil {
		t.Logf("close leader: %v", err)
	}

	var remaining []*server.Server
	for _, s := range servers {
		if s != leader {
			remaining = append(remaining, s)
		}
	}

	newLeader := waitForClusterLeader(t, remaining)
	if newLeader == leader {
		t.Fatal("expected a different node to take over leadership")
	}
}
