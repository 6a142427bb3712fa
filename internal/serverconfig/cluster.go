package serverconfig

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/gottingen/sirius-go/internal/server"
	"github.com/gottingen/sirius-go/internal/telemetry/logger"
	"github.com/gottingen/sirius-go/internal/tso"
)

// ToHostConfig converts ServerConfig to server.Config: it generates a NodeID
// when none is set and maps the fields server.Config has, filling in no
// other defaults. server.New derives the three groups' bind addresses
// (groupBindAddr's port offset) and data directories from the single
// RaftAddr/DataDir here, so
// unlike the teacher's per-subsystem address fields, there is only one Raft
// address to configure.
func ToHostConfig(cfg *ServerConfig, log logger.Logger) (server.Config, error) {
	if cfg == nil {
		return server.Config{}, fmt.Errorf("server config is nil")
	}

	nodeID := cfg.Cluster.NodeID
	if nodeID == "" {
		generated, err := generateNodeID()
		if err != nil {
			return server.Config{}, fmt.Errorf("generate node ID: %w", err)
		}
		nodeID = generated
		log.Info("generated cluster node ID", "node_id", nodeID)
	}

	hostCfg := server.Config{
		NodeID:          nodeID,
		BindAddr:        cfg.Cluster.RaftAddr,
		DataDir:         cfg.Storage.DataDir,
		KVDir:           cfg.Storage.KVDir,
		KVEncryptionKey: cfg.Security.EncryptionKey,
		Bootstrap:       cfg.Cluster.Bootstrap,
		ClockConfig: tso.ClockConfig{
			UpdateIntervalMs: cfg.Clock.UpdateIntervalMs,
			SaveIntervalMs:   cfg.Clock.SaveIntervalMs,
			MaxLogical:       cfg.Clock.MaxLogical,
			UpdateGuardMs:    cfg.Clock.UpdateGuardMs,
			GenRetries:       cfg.Clock.GenRetries,
		},
		Logger: log,
	}

	if cfg.Health.Enabled {
		hostCfg.Health = server.HealthConfig{
			BindAddr:        cfg.Health.GossipAddr,
			BindPort:        cfg.Health.GossipPort,
			SeedNodes:       cfg.Health.Seeds,
			UnhealthyFactor: cfg.Health.UnhealthyFactor,
		}
	}

	return hostCfg, nil
}

// generateNodeID generates a unique node identifier.
//
// Format: sirius-<16 hex chars> (e.g., "sirius-a1b2c3d4e5f67890")
func generateNodeID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return "sirius-" + hex.EncodeToString(buf), nil
}
