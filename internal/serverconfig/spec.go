package serverconfig

// ServerConfig is the root configuration for sirius-server.
type ServerConfig struct {
	Server    ServerSection    `koanf:"server"`
	Storage   StorageSection   `koanf:"storage"`
	Security  SecuritySection  `koanf:"security"`
	Cluster   ClusterSection   `koanf:"cluster"`
	Clock     ClockSection     `koanf:"clock"`
	Health    HealthSection    `koanf:"health"`
	Log       LogSection       `koanf:"log"`
	Telemetry TelemetrySection `koanf:"telemetry"`
}

// ServerSection configures the client-facing RPC endpoint.
type ServerSection struct {
	GRPC GRPCConfig `koanf:"grpc"`
}

// GRPCConfig configures the client-facing endpoint. sirius-server serves
// its plain JSON/HTTP bridge on Addr; TLSCertFile and TLSKeyFile are not
// read by any code.
type GRPCConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// StorageSection configures the shared KV adapter and Raft log storage.
type StorageSection struct {
	DataDir      string `koanf:"data_dir"`
	KVDir        string `koanf:"kv_dir"`
	SnapshotKeep int    `koanf:"snapshot_keep"`
}

// SecuritySection configures security settings.
type SecuritySection struct {
	EncryptionKey string `koanf:"encryption_key"`
	TLSCAFile     string `koanf:"tls_ca_file"`
}

// ClusterSection configures the shared Raft peer set for all three groups.
type ClusterSection struct {
	NodeID    string   `koanf:"node_id"`
	RaftAddr  string   `koanf:"raft_addr"`
	Bootstrap bool     `koanf:"bootstrap"`
	Seeds     []string `koanf:"seeds"`
}

// ClockSection configures the TSO clock, mirroring tso.ClockConfig.
type ClockSection struct {
	UpdateIntervalMs int64 `koanf:"update_interval_ms"`
	SaveIntervalMs   int64 `koanf:"save_interval_ms"`
	MaxLogical       int64 `koanf:"max_logical"`
	UpdateGuardMs    int64 `koanf:"update_guard_ms"`
	GenRetries       int   `koanf:"gen_retries"`
}

// HealthSection configures the gossip-backed peer health feed that guards
// RaftControl's SetPeer/RemovePeer quorum-safety check.
type HealthSection struct {
	Enabled         bool     `koanf:"enabled"`
	GossipAddr      string   `koanf:"gossip_addr"`
	GossipPort      int      `koanf:"gossip_port"`
	Seeds           []string `koanf:"seeds"`
	UnhealthyFactor int      `koanf:"unhealthy_factor"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetrySection configures tracing. TraceEndpoint is handed to
// tracer.New, whose Provider is log-backed and exports nothing whatever the
// endpoint.
type TelemetrySection struct {
	TraceEndpoint string `koanf:"trace_endpoint"`
}
