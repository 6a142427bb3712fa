package serverconfig

import (
	"testing"

	"github.com/gottingen/sirius-go/internal/telemetry/logger"
)

func TestToHostConfigGeneratesNodeID(t *testing.T) {
	cfg := validConfig(t)
	cfg.Cluster.NodeID = ""

	host, err := ToHostConfig(cfg, logger.Default())
	if err != nil {
		t.Fatalf("ToHostConfig: %v", err)
	}
	if host.NodeID == "" {
		t.Fatal("expected a generated NodeID")
	}
	if host.BindAddr != cfg.Cluster.RaftAddr {
		t.Errorf("BindAddr = %q, want %q", host.BindAddr, cfg.Cluster.RaftAddr)
	}
	if host.DataDir != cfg.Storage.DataDir || host.KVDir != cfg.Storage.KVDir {
		t.Errorf("expected data dirs to pass through unchanged, got %+v", host)
	}
	if host.ClockConfig.MaxLogical != cfg.Clock.MaxLogical {
		t.Errorf("expected clock config to translate, got %+v", host.ClockConfig)
	}
}

func TestToHostConfigKeepsExplicitNodeID(t *testing.T) {
	cfg := validConfig(t)
	cfg.Cluster.NodeID = "node-1"

	host, err := ToHostConfig(cfg, logger.Default())
	if err != nil {
		t.Fatalf("ToHostConfig: %v", err)
	}
	if host.NodeID != "node-1" {
		t.Errorf("NodeID = %q, want %q", host.NodeID, "node-1")
	}
}

func TestToHostConfigWiresEncryptionKey(t *testing.T) {
	cfg := validConfig(t)
	cfg.Security.EncryptionKey = "passphrase-1234"

	host, err := ToHostConfig(cfg, logger.Default())
	if err != nil {
		t.Fatalf("ToHostConfig: %v", err)
	}
	if host.KVEncryptionKey != "passphrase-1234" {
		t.Errorf("KVEncryptionKey = %q, want %q", host.KVEncryptionKey, "passphrase-1234")
	}
}

func TestToHostConfigHealthDisabledByDefault(t *testing.T) {
	cfg := validConfig(t)
	host, err := ToHostConfig(cfg, logger.Default())
	if err != nil {
		t.Fatalf("ToHostConfig: %v", err)
	}
	if host.Health.BindAddr != "" {
		t.Errorf("expected no health BindAddr when Health.Enabled is false, got %+v", host.Health)
	}
}

func TestToHostConfigWiresHealthWhenEnabled(t *testing.T) {
	cfg := validConfig(t)
	cfg.Health.Enabled = true
	cfg.Health.GossipAddr = "127.0.0.1"
	cfg.Health.GossipPort = 7946
	cfg.Health.UnhealthyFactor = 5

	host, err := ToHostConfig(cfg, logger.Default())
	if err != nil {
		t.Fatalf("ToHostConfig: %v", err)
	}
	if host.Health.BindAddr != "127.0.0.1" || host.Health.BindPort != 7946 || host.Health.UnhealthyFactor != 5 {
		t.Errorf("expected health config to translate, got %+v", host.Health)
	}
}

func TestToHostConfigNilRejected(t *testing.T) {
	if _, err := ToHostConfig(nil, logger.Default()); err == nil {
		t.Fatal("expected an error for a nil config")
	}
}
