package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric sirius-server exposes.
type Registry struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	raftLeader *prometheus.GaugeVec

	tsoGenerated prometheus.Counter

	configCacheHits   prometheus.Counter
	configCacheMisses prometheus.Counter

	kvGCBytesReclaimed prometheus.Counter
}

// NewRegistry builds a fresh Registry with its own prometheus.Registry,
// registering the Go runtime/process collectors alongside the domain
// metrics below.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sirius_requests_total",
			Help: "Total RPC requests handled, by handler and result.",
		}, []string{"handler", "result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sirius_request_duration_seconds",
			Help:    "RPC handler latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"handler"}),
		raftLeader: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sirius_raft_is_leader",
			Help: "1 if this replica currently leads the named Raft group, else 0.",
		}, []string{"group"}),
		tsoGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sirius_tso_timestamps_generated_total",
			Help: "Total timestamps issued by the TSO group on this replica.",
		}),
		configCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sirius_config_cache_hits_total",
			Help: "Config lookups served from the client-side cache.",
		}),
		configCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sirius_config_cache_misses_total",
			Help: "Config lookups that missed the client-side cache and hit the catalog.",
		}),
		kvGCBytesReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sirius_kv_gc_bytes_reclaimed_total",
			Help: "Total bytes reclaimed by the KV engine's value-log garbage collection.",
		}),
	}

	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		NewGoroutineCollector(),
		r.requestsTotal,
		r.requestDuration,
		r.raftLeader,
		r.tsoGenerated,
		r.configCacheHits,
		r.configCacheMisses,
		r.kvGCBytesReclaimed,
	)

	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide Registry, creating it on first use.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns an HTTP handler serving this registry in Prometheus
// exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Prometheus exposes the underlying *prometheus.Registry so subsystems
// that already collect their own metrics (e.g. internal/kv's Badger gauges)
// can register into the same registry instead of keeping a separate one.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// RecordRequest increments the request counter for handler/result, where
// result is typically the response envelope's errcode ("Success" or an
// error code).
func (r *Registry) RecordRequest(handler, result string) {
	r.requestsTotal.WithLabelValues(handler, result).Inc()
}

// ObserveRequestDuration records how long handler took to serve one call.
func (r *Registry) ObserveRequestDuration(handler string, seconds float64) {
	r.requestDuration.WithLabelValues(handler).Observe(seconds)
}

// SetRaftLeader records whether this replica currently leads the named
// Raft group ("catalog", "idalloc", or "tso").
func (r *Registry) SetRaftLeader(group string, isLeader bool) {
	v := 0.0
	if isLeader {
		v = 1.0
	}
	r.raftLeader.WithLabelValues(group).Set(v)
}

// AddTsoGenerated records count newly issued timestamps.
func (r *Registry) AddTsoGenerated(count int64) {
	r.tsoGenerated.Add(float64(count))
}

// IncConfigCacheHit records a config lookup served from cache.
func (r *Registry) IncConfigCacheHit() {
	r.configCacheHits.Inc()
}

// IncConfigCacheMiss records a config lookup that missed the cache.
func (r *Registry) IncConfigCacheMiss() {
	r.configCacheMisses.Inc()
}

// AddKVGCBytesReclaimed records bytes reclaimed by one KV GC cycle.
func (r *Registry) AddKVGCBytesReclaimed(bytes uint64) {
	r.kvGCBytesReclaimed.Add(float64(bytes))
}
