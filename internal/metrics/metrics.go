// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// アップストリーム呼び出しとキャッシュ判定の両方を記録する。
type Collector struct {
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	refreshed        prometheus.Counter
	refreshFailures  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "houserank_upstream_requests_total",
			Help: "アップストリーム呼び出しの操作・結果別の合計数",
		}, []string{"operation", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "houserank_upstream_latency_seconds",
			Help:    "アップストリーム呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "houserank_cache_lookups_total",
			Help: "キャッシュ判定のサブリソース・結果別の合計数",
		}, []string{"resource", "outcome"}),
		refreshed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "houserank_refresh_success_total",
			Help: "バックグラウンドリフレッシュ成功の合計数",
		}),
		refreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "houserank_refresh_fail_total",
			Help: "バックグラウンドリフレッシュ失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.upstreamRequests,
		c.upstreamLatency,
		c.cacheLookups,
		c.refreshed,
		c.refreshFailures,
	)

	return c
}

// RecordUpstreamRequest はアップストリーム呼び出しの結果を記録する。
func (c *Collector) RecordUpstreamRequest(operation, outcome string) {
	c.upstreamRequests.WithLabelValues(operation, outcome).Inc()
}

// RecordUpstreamLatency はアップストリーム呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(operation string, d time.Duration) {
	c.upstreamLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordCacheLookup はキャッシュ判定の結果を記録する。
func (c *Collector) RecordCacheLookup(resource, outcome string) {
	c.cacheLookups.WithLabelValues(resource, outcome).Inc()
}

// RecordRefreshSuccess はバックグラウンドリフレッシュ成功を記録する。
func (c *Collector) RecordRefreshSuccess() {
	c.refreshed.Inc()
}

// RecordRefreshFailure はバックグラウンドリフレッシュ失敗を記録する。
func (c *Collector) RecordRefreshFailure() {
	c.refreshFailures.Inc()
}

// Handler はPrometheusフォーマットでメトリクスを公開するHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
