// Package command provides CLI command definitions for siriusctl.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/gottingen/sirius-go/internal/server"
)

// raftRegionFlag selects which of the three shared-peer-set Raft groups a
// raft subcommand targets (0=catalog, 1=id-allocator, 2=tso, per spec.md §6).
var raftRegionFlag = &cli.IntFlag{
	Name:     "region",
	Aliases:  []string{"r"},
	Usage:    "Raft group: 0=catalog, 1=id-allocator, 2=tso",
	Required: true,
}

// RaftCommand returns the raft subcommand group.
func RaftCommand() *cli.Command {
	return &cli.Command{
		Name:  "raft",
		Usage: "Raft membership control",
		Subcommands: []*cli.Command{
			{
				Name:      "add-peer",
				Usage:     "Add a voter to a Raft group",
				ArgsUsage: "NODE_ID ADDR",
				Flags:     []cli.Flag{raftRegionFlag},
				Action:    raftAddPeer,
			},
			{
				Name:      "remove-peer",
				Usage:     "Remove a voter from a Raft group",
				ArgsUsage: "NODE_ID",
				Flags:     []cli.Flag{raftRegionFlag},
				Action:    raftRemovePeer,
			},
			{
				Name:      "set-peer",
				Usage:     "Re-address an existing voter",
				ArgsUsage: "NODE_ID ADDR",
				Flags:     []cli.Flag{raftRegionFlag},
				Action:    raftSetPeer,
			},
			{
				Name:      "transfer-leader",
				Usage:     "Transfer leadership to another voter",
				ArgsUsage: "NODE_ID ADDR",
				Flags:     []cli.Flag{raftRegionFlag},
				Action:    raftTransferLeader,
			},
			{
				Name:   "list-peer",
				Usage:  "List the committed voter configuration",
				Flags:  []cli.Flag{raftRegionFlag},
				Action: raftListPeer,
			},
			{
				Name:   "get-leader",
				Usage:  "Print the current leader and hint",
				Flags:  []cli.Flag{raftRegionFlag},
				Action: raftGetLeader,
			},
			{
				Name:   "snapshot",
				Usage:  "Force an immediate snapshot",
				Flags:  []cli.Flag{raftRegionFlag},
				Action: raftSnapshot,
			},
			{
				Name:      "reset-vote-time",
				Usage:     "Reload the election timeout",
				ArgsUsage: "ELECTION_TIME_MS",
				Flags:     []cli.Flag{raftRegionFlag},
				Action:    raftResetVoteTime,
			},
			{
				Name:   "shutdown",
				Usage:  "Shut down this replica's Raft group host",
				Flags:  []cli.Flag{raftRegionFlag},
				Action: raftShutdown,
			},
		},
	}
}

func raftAddPeer(c *cli.Context) error {
	nodeID, addr := c.Args().Get(0), c.Args().Get(1)
	if nodeID == "" || addr == "" {
		return fmt.Errorf("node id and addr required")
	}
	return sendRaftControl(c, server.RaftControlRequest{
		RegionID: int32(c.Int("region")),
		OpType:   server.RaftControlAddPeer,
		NodeID:   nodeID,
		Addr:     addr,
	}, fmt.Sprintf("peer added: %s at %s", nodeID, addr))
}

func raftRemovePeer(c *cli.Context) error {
	nodeID := c.Args().First()
	if nodeID == "" {
		return fmt.Errorf("node id required")
	}
	return sendRaftControl(c, server.RaftControlRequest{
		RegionID: int32(c.Int("region")),
		OpType:   server.RaftControlRemovePeer,
		NodeID:   nodeID,
	}, fmt.Sprintf("peer removed: %s", nodeID))
}

// raftSetPeer re-addresses an existing voter. spec.md §4.2's SetPeer diffs
// two peer maps by node ID, which cannot express "same ID, new address" in
// one call, so this issues it as two old_peers/new_peers-validated steps:
// remove the voter under its old address, then add it back under the new
// one.
func raftSetPeer(c *cli.Context) error {
	nodeID, addr := c.Args().Get(0), c.Args().Get(1)
	if nodeID == "" || addr == "" {
		return fmt.Errorf("node id and addr required")
	}

	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	region := int32(c.Int("region"))
	listed, err := raftControl(ctx, client, server.RaftControlRequest{RegionID: region, OpType: server.RaftControlListPeer})
	if err != nil {
		return err
	}
	if _, ok := listed.Peers[nodeID]; !ok {
		return fmt.Errorf("%s is not a current voter", nodeID)
	}

	without := make(map[string]string, len(listed.Peers))
	for id, a := range listed.Peers {
		if id != nodeID {
			without[id] = a
		}
	}
	if _, err := raftControl(ctx, client, server.RaftControlRequest{
		RegionID: region, OpType: server.RaftControlSetPeer, OldPeers: listed.Peers, NewPeers: without,
	}); err != nil {
		return fmt.Errorf("remove old address: %w", err)
	}

	withNewAddr := make(map[string]string, len(without)+1)
	for id, a := range without {
		withNewAddr[id] = a
	}
	withNewAddr[nodeID] = addr
	if _, err := raftControl(ctx, client, server.RaftControlRequest{
		RegionID: region, OpType: server.RaftControlSetPeer, OldPeers: without, NewPeers: withNewAddr,
	}); err != nil {
		return fmt.Errorf("add new address: %w", err)
	}

	fmt.Printf("peer re-addressed: %s at %s\n", nodeID, addr)
	return nil
}

func raftListPeer(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resp, err := raftControl(ctx, client, server.RaftControlRequest{RegionID: int32(c.Int("region")), OpType: server.RaftControlListPeer})
	if err != nil {
		return err
	}
	for id, addr := range resp.Peers {
		fmt.Printf("%s\t%s\n", id, addr)
	}
	return nil
}

func raftGetLeader(c *cli.Context) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resp, err := raftControl(ctx, client, server.RaftControlRequest{RegionID: int32(c.Int("region")), OpType: server.RaftControlGetLeader})
	if err != nil {
		return err
	}
	if resp.Leader == "" {
		fmt.Printf("no leader (hint: %s)\n", resp.LeaderHint)
		return nil
	}
	fmt.Println(resp.Leader)
	return nil
}

func raftSnapshot(c *cli.Context) error {
	return sendRaftControl(c, server.RaftControlRequest{
		RegionID: int32(c.Int("region")),
		OpType:   server.RaftControlSnapshot,
	}, "snapshot taken")
}

func raftResetVoteTime(c *cli.Context) error {
	ms := c.Args().First()
	if ms == "" {
		return fmt.Errorf("election_time_ms required")
	}
	var electionMs int
	if _, err := fmt.Sscanf(ms, "%d", &electionMs); err != nil {
		return fmt.Errorf("invalid election_time_ms %q: %w", ms, err)
	}
	return sendRaftControl(c, server.RaftControlRequest{
		RegionID:       int32(c.Int("region")),
		OpType:         server.RaftControlResetVoteTime,
		ElectionTimeMs: electionMs,
	}, fmt.Sprintf("election timeout reloaded: %dms", electionMs))
}

func raftShutdown(c *cli.Context) error {
	return sendRaftControl(c, server.RaftControlRequest{
		RegionID: int32(c.Int("region")),
		OpType:   server.RaftControlShutdown,
	}, "raft group host shut down")
}

func raftTransferLeader(c *cli.Context) error {
	nodeID, addr := c.Args().Get(0), c.Args().Get(1)
	if nodeID == "" || addr == "" {
		return fmt.Errorf("node id and addr required")
	}
	return sendRaftControl(c, server.RaftControlRequest{
		RegionID:  int32(c.Int("region")),
		OpType:    server.RaftControlTransferLeader,
		NewLeader: nodeID,
		Addr:      addr,
	}, fmt.Sprintf("leadership transferred to: %s\n", nodeID))
}

func sendRaftControl(c *cli.Context, req server.RaftControlRequest, successMsg string) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := raftControl(ctx, client, req); err != nil {
		return err
	}

	fmt.Println(successMsg)
	return nil
}
