package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.registry == nil {
		t.Error("registry field is nil")
	}
	if r.requestsTotal == nil {
		t.Error("requestsTotal is nil")
	}
	if r.requestDuration == nil {
		t.Error("requestDuration is nil")
	}
	if r.raftLeader == nil {
		t.Error("raftLeader is nil")
	}
}

func TestGlobal(t *testing.T) {
	r1 := Global()
	r2 := Global()
	if r1 != r2 {
		t.Error("Global() should return the same instance")
	}
}

func scrapeBody(t *testing.T, h http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	body := scrapeBody(t, r.Handler())

	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(body, "sirius_goroutines") {
		t.Error("expected sirius_goroutines metric")
	}
}

func TestRequestMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordRequest("DiscoveryManager", "Success")
	r.RecordRequest("DiscoveryManager", "Success")
	r.RecordRequest("DiscoveryQuery", "InputParamError")
	r.ObserveRequestDuration("DiscoveryManager", 0.005)
	r.ObserveRequestDuration("DiscoveryManager", 0.010)

	body := scrapeBody(t, r.Handler())

	if !strings.Contains(body, `sirius_requests_total{handler="DiscoveryManager",result="Success"} 2`) {
		t.Error("expected sirius_requests_total for DiscoveryManager Success 2")
	}
	if !strings.Contains(body, `sirius_requests_total{handler="DiscoveryQuery",result="InputParamError"} 1`) {
		t.Error("expected sirius_requests_total for DiscoveryQuery InputParamError 1")
	}
	if !strings.Contains(body, "sirius_request_duration_seconds_count") {
		t.Error("expected sirius_request_duration_seconds_count")
	}
}

func TestRaftLeaderMetric(t *testing.T) {
	r := NewRegistry()

	r.SetRaftLeader("catalog", true)
	r.SetRaftLeader("idalloc", false)

	body := scrapeBody(t, r.Handler())

	if !strings.Contains(body, `sirius_raft_is_leader{group="catalog"} 1`) {
		t.Error("expected sirius_raft_is_leader{group=\"catalog\"} 1")
	}
	if !strings.Contains(body, `sirius_raft_is_leader{group="idalloc"} 0`) {
		t.Error("expected sirius_raft_is_leader{group=\"idalloc\"} 0")
	}
}

func TestTsoMetric(t *testing.T) {
	r := NewRegistry()

	r.AddTsoGenerated(10)
	r.AddTsoGenerated(5)

	body := scrapeBody(t, r.Handler())
	if !strings.Contains(body, "sirius_tso_timestamps_generated_total 15") {
		t.Error("expected sirius_tso_timestamps_generated_total 15")
	}
}

func TestConfigCacheMetrics(t *testing.T) {
	r := NewRegistry()

	r.IncConfigCacheHit()
	r.IncConfigCacheHit()
	r.IncConfigCacheMiss()

	body := scrapeBody(t, r.Handler())
	if !strings.Contains(body, "sirius_config_cache_hits_total 2") {
		t.Error("expected sirius_config_cache_hits_total 2")
	}
	if !strings.Contains(body, "sirius_config_cache_misses_total 1") {
		t.Error("expected sirius_config_cache_misses_total 1")
	}
}

func TestKVGCMetric(t *testing.T) {
	r := NewRegistry()

	r.AddKVGCBytesReclaimed(1024)
	r.AddKVGCBytesReclaimed(2048)

	body := scrapeBody(t, r.Handler())
	if !strings.Contains(body, "sirius_kv_gc_bytes_reclaimed_total 3072") {
		t.Error("expected sirius_kv_gc_bytes_reclaimed_total 3072")
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.RecordRequest("DiscoveryManager", "Success")
				r.ObserveRequestDuration("DiscoveryManager", 0.001)
				r.SetRaftLeader("catalog", true)
				r.AddTsoGenerated(1)
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	body := scrapeBody(t, r.Handler())
	if !strings.Contains(body, "sirius_tso_timestamps_generated_total 1000") {
		t.Error("expected sirius_tso_timestamps_generated_total 1000 after concurrent updates")
	}
}
