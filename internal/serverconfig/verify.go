package serverconfig

import (
	"errors"
	"os"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyCluster(&cfg.Cluster); err != nil {
		return err
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}
	if cfg.KVDir == "" {
		return errors.New("storage.kv_dir is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return errors.New("cannot create raft data directory: " + err.Error())
	}
	if err := os.MkdirAll(cfg.KVDir, 0750); err != nil {
		return errors.New("cannot create kv directory: " + err.Error())
	}
	if cfg.SnapshotKeep < 1 {
		return errors.New("storage.snapshot_keep must be at least 1")
	}
	return nil
}

func verifyCluster(cfg *ClusterSection) error {
	if cfg.RaftAddr == "" {
		return errors.New("cluster.raft_addr is required")
	}
	if !cfg.Bootstrap && len(cfg.Seeds) == 0 {
		return errors.New("cluster.seeds is required when cluster.bootstrap is false")
	}
	return nil
}
