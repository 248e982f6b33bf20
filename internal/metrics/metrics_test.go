package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_RegistersMetrics はCollectorの二重登録がpanicすることで
// レジストリ登録が行われていることを検証する。
func TestNewCollector_RegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("同一レジストリへの二重登録がpanicしなかった")
		}
	}()
	_ = NewCollector(reg)
}

// TestCollector_RecordsWithoutPanic は各記録メソッドが正常に動作することを検証する。
func TestCollector_RecordsWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpstreamRequest("pricing", "ok")
	c.RecordUpstreamRequest("pricing", "bad_status")
	c.RecordUpstreamLatency("pricing", 200*time.Millisecond)
	c.RecordCacheLookup("pricing", "hit")
	c.RecordCacheLookup("property", "miss")
	c.RecordRefreshSuccess()
	c.RecordRefreshFailure()
}

// TestHandler_ServesMetrics は記録済みメトリクスがPrometheusフォーマットで返ることを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordUpstreamRequest("pricing", "ok")
	c.RecordCacheLookup("pricing", "hit")

	handler := Handler(reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	if !strings.Contains(bodyStr, "houserank_upstream_requests_total") {
		t.Error("response should contain houserank_upstream_requests_total metric")
	}
	if !strings.Contains(bodyStr, "houserank_cache_lookups_total") {
		t.Error("response should contain houserank_cache_lookups_total metric")
	}
}
