package serverconfig

import (
	"path/filepath"
	"testing"
)

func validConfig(t *testing.T) *ServerConfig {
	t.Helper()
	cfg := Default()
	dir := t.TempDir()
	cfg.Storage.DataDir = filepath.Join(dir, "raft")
	cfg.Storage.KVDir = filepath.Join(dir, "kv")
	cfg.Cluster.Bootstrap = true
	return cfg
}

func TestVerifyAccepts(t *testing.T) {
	if err := Verify(validConfig(t)); err != nil {
		t.Fatalf("expected a well-formed config to verify, got %v", err)
	}
}

func TestVerifyRejectsMissingDataDir(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.DataDir = ""
	if err := Verify(cfg); err == nil {
		t.Fatal("expected an error for a missing data_dir")
	}
}

func TestVerifyRejectsMissingRaftAddr(t *testing.T) {
	cfg := validConfig(t)
	cfg.Cluster.RaftAddr = ""
	if err := Verify(cfg); err == nil {
		t.Fatal("expected an error for a missing raft_addr")
	}
}

func TestVerifyRejectsNoSeedsWithoutBootstrap(t *testing.T) {
	cfg := validConfig(t)
	cfg.Cluster.Bootstrap = false
	cfg.Cluster.Seeds = nil
	if err := Verify(cfg); err == nil {
		t.Fatal("expected an error when neither bootstrap nor seeds are set")
	}
}

func TestVerifyRejectsZeroSnapshotKeep(t *testing.T) {
	cfg := validConfig(t)
	cfg.Storage.SnapshotKeep = 0
	if err := Verify(cfg); err == nil {
		t.Fatal("expected an error for snapshot_keep < 1")
	}
}
