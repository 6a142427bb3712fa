package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gottingen/sirius-go/internal/infra/buildinfo"
	"github.com/gottingen/sirius-go/internal/infra/confloader"
	"github.com/gottingen/sirius-go/internal/infra/shutdown"
	"github.com/gottingen/sirius-go/internal/raftgroup"
	"github.com/gottingen/sirius-go/internal/server"
	"github.com/gottingen/sirius-go/internal/serverconfig"
	"github.com/gottingen/sirius-go/internal/telemetry/logger"
	"github.com/gottingen/sirius-go/internal/telemetry/metric"
	"github.com/gottingen/sirius-go/internal/telemetry/tracer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stdout})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	log.Info("starting sirius-server", "version", buildinfo.Get().Version, "config", *configFile)

	hostCfg, err := serverconfig.ToHostConfig(cfg, log)
	if err != nil {
		return fmt.Errorf("build host config: %w", err)
	}

	srv, err := server.New(hostCfg)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	ctx, cancelRun := context.WithCancel(context.Background())
	go srv.Run(ctx)

	metrics := metric.Global()
	srv.RegisterKVMetrics(metrics.Prometheus())
	go pollRaftLeadership(ctx, srv, metrics)

	traceProvider, err := tracer.New("sirius-server", cfg.Telemetry.TraceEndpoint)
	if err != nil {
		return fmt.Errorf("start tracer: %w", err)
	}

	apiSrv := &http.Server{Addr: cfg.Server.GRPC.Addr, Handler: apiMux(srv, metrics, traceProvider)}

	shutdownHandler := shutdown.NewHandler(30 * time.Second)
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("stopping background tasks")
		cancelRun()
		return traceProvider.Shutdown(ctx)
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down API endpoint")
		return apiSrv.Shutdown(ctx)
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("closing raft groups and kv engine")
		return srv.Close()
	})

	go func() {
		log.Info("API endpoint listening", "addr", cfg.Server.GRPC.Addr)
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("API endpoint error", "error", err)
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadConfig(configFile string) (*serverconfig.ServerConfig, error) {
	cfg := serverconfig.Default()

	var opts []confloader.Option
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := serverconfig.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// apiMux exposes a JSON/HTTP bridge to the five RPC handlers from spec.md
// §6. It stands in for the connect-RPC transport that api/proto/v1 will
// bind once `go generate ./api/proto/v1` produces its generated stubs;
// today siriusctl and this process talk plain JSON over net/http using the
// same hand-written request/response structs the handlers already use.
func apiMux(srv *server.Server, metrics *metric.Registry, traces *tracer.Provider) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "healthy", "time": time.Now().UTC().Format(time.RFC3339)})
	})
	mux.HandleFunc("POST /v1/discovery/manager", instrument(metrics, traces, "DiscoveryManager", func(w http.ResponseWriter, r *http.Request) envelopeErrCoder {
		var req server.ManagerRequest
		if err := decodeJSON(r, &req); err != nil {
			resp := badRequestEnvelope(err)
			writeJSON(w, resp)
			return resp
		}
		resp := srv.DiscoveryManager(r.Context(), req)
		writeJSON(w, resp)
		return resp
	}))
	mux.HandleFunc("POST /v1/discovery/query", instrument(metrics, traces, "DiscoveryQuery", func(w http.ResponseWriter, r *http.Request) envelopeErrCoder {
		var req server.QueryRequest
		if err := decodeJSON(r, &req); err != nil {
			resp := badRequestEnvelope(err)
			writeJSON(w, resp)
			return resp
		}
		resp := srv.DiscoveryQuery(req)
		writeJSON(w, resp)
		return resp
	}))
	mux.HandleFunc("POST /v1/raft/control", instrument(metrics, traces, "RaftControl", func(w http.ResponseWriter, r *http.Request) envelopeErrCoder {
		var req server.RaftControlRequest
		if err := decodeJSON(r, &req); err != nil {
			resp := badRequestEnvelope(err)
			writeJSON(w, resp)
			return resp
		}
		resp := srv.RaftControl(req)
		writeJSON(w, resp)
		return resp
	}))
	mux.HandleFunc("POST /v1/naming", instrument(metrics, traces, "ServletNaming", func(w http.ResponseWriter, r *http.Request) envelopeErrCoder {
		var req server.NamingRequest
		if err := decodeJSON(r, &req); err != nil {
			resp := badRequestEnvelope(err)
			writeJSON(w, resp)
			return resp
		}
		resp := srv.ServletNaming(req)
		writeJSON(w, resp)
		return resp
	}))
	mux.HandleFunc("POST /v1/tso", instrument(metrics, traces, "Tso", func(w http.ResponseWriter, r *http.Request) envelopeErrCoder {
		var req server.TsoRequest
		if err := decodeJSON(r, &req); err != nil {
			resp := badRequestEnvelope(err)
			writeJSON(w, resp)
			return resp
		}
		resp := srv.Tso(r.Context(), req)
		if resp.ErrCode() == "Success" {
			metrics.AddTsoGenerated(resp.Count)
		}
		writeJSON(w, resp)
		return resp
	}))
	return mux
}

// envelopeErrCoder is the common shape every handler response carries,
// letting instrument record its result code without knowing the concrete
// response type.
type envelopeErrCoder interface {
	ErrCode() string
}

// instrument wraps a handler function with a trace span plus request-count
// and latency metrics, keyed by the RPC name named in spec.md §6.
func instrument(metrics *metric.Registry, traces *tracer.Provider, name string, fn func(http.ResponseWriter, *http.Request) envelopeErrCoder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := traces.StartSpan(r.Context(), name)
		r = r.WithContext(ctx)

		start := time.Now()
		resp := fn(w, r)
		metrics.ObserveRequestDuration(name, time.Since(start).Seconds())
		metrics.RecordRequest(name, resp.ErrCode())

		span.SetAttribute("errcode", resp.ErrCode())
		if resp.ErrCode() != "Success" {
			span.RecordError(fmt.Errorf("%s: %s", name, resp.ErrCode()))
		}
		span.End()
	}
}

// pollRaftLeadership keeps the sirius_raft_is_leader gauge current until
// ctx is canceled.
func pollRaftLeadership(ctx context.Context, srv *server.Server, metrics *metric.Registry) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	groups := map[string]raftgroup.GroupID{
		"catalog": raftgroup.GroupCatalog,
		"idalloc": raftgroup.GroupIDAlloc,
		"tso":     raftgroup.GroupTSO,
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for name, group := range groups {
				metrics.SetRaftLeader(name, srv.IsGroupLeader(group))
			}
		}
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// badRequestErr is the JSON shape returned for a malformed request body; it
// satisfies envelopeErrCoder so instrument can record it like any handler
// response.
type badRequestErr struct {
	Errcode string `json:"errcode"`
	Errmsg  string `json:"errmsg"`
}

func (e badRequestErr) ErrCode() string { return e.Errcode }

func badRequestEnvelope(err error) badRequestErr {
	return badRequestErr{Errcode: "InputParamError", Errmsg: err.Error()}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
