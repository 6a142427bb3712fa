package serverconfig

// Default configuration values.
const (
	DefaultGRPCAddr = "127.0.0.1:5180"

	DefaultRaftAddr = "127.0.0.1:5343"

	DefaultDataDir = "/var/lib/sirius-server/raft"
	DefaultKVDir   = "/var/lib/sirius-server/kv"

	DefaultSnapshotKeep = 3

	DefaultGossipAddr      = "127.0.0.1"
	DefaultGossipPort      = 5353
	DefaultUnhealthyFactor = 3

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			GRPC: GRPCConfig{Addr: DefaultGRPCAddr},
		},
		Storage: StorageSection{
			DataDir:      DefaultDataDir,
			KVDir:        DefaultKVDir,
			SnapshotKeep: DefaultSnapshotKeep,
		},
		Cluster: ClusterSection{
			RaftAddr: DefaultRaftAddr,
		},
		Clock: defaultClockSection(),
		Health: HealthSection{
			Enabled:         false,
			GossipAddr:      DefaultGossipAddr,
			GossipPort:      DefaultGossipPort,
			UnhealthyFactor: DefaultUnhealthyFactor,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// defaultClockSection mirrors tso.DefaultClockConfig's constants so
// serverconfig doesn't import internal/tso just to read its defaults.
func defaultClockSection() ClockSection {
	return ClockSection{
		UpdateIntervalMs: 50,
		SaveIntervalMs:   3000,
		MaxLogical:       1 << 18,
		UpdateGuardMs:    500,
		GenRetries:       50,
	}
}
