// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーとワーカーから利用する。
type MetricsCollector interface {
	RecordInteraction(interactionType string)
	RecordRecommendationRequest(duration time.Duration)
	ObserveUpstreamFetch(source string, success bool, duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
// news.FetchObserverインターフェースも満たす。
type Collector struct {
	interactions          *prometheus.CounterVec
	recommendationReqs    prometheus.Counter
	recommendationLatency prometheus.Histogram
	upstreamFetch         *prometheus.CounterVec
	upstreamLatency       *prometheus.HistogramVec
	httpStatus            *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdeck_interactions_total",
			Help: "記録されたインタラクションの種別ごとの合計数",
		}, []string{"interaction_type"}),
		recommendationReqs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdeck_recommendation_requests_total",
			Help: "推薦リクエストの合計数",
		}),
		recommendationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newsdeck_recommendation_latency_seconds",
			Help:    "推薦生成のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		upstreamFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdeck_upstream_fetch_total",
			Help: "アップストリーム取得のソース・結果ごとの合計数",
		}, []string{"source", "result"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newsdeck_upstream_fetch_latency_seconds",
			Help:    "アップストリーム取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdeck_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.interactions,
		c.recommendationReqs,
		c.recommendationLatency,
		c.upstreamFetch,
		c.upstreamLatency,
		c.httpStatus,
	)

	return c
}

// RecordInteraction はインタラクションの記録を種別付きでカウントする。
func (c *Collector) RecordInteraction(interactionType string) {
	c.interactions.WithLabelValues(interactionType).Inc()
}

// RecordRecommendationRequest は推薦リクエストとそのレイテンシを記録する。
func (c *Collector) RecordRecommendationRequest(duration time.Duration) {
	c.recommendationReqs.Inc()
	c.recommendationLatency.Observe(duration.Seconds())
}

// ObserveUpstreamFetch はアップストリーム取得の結果とレイテンシを記録する。
func (c *Collector) ObserveUpstreamFetch(source string, success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.upstreamFetch.WithLabelValues(source, result).Inc()
	c.upstreamLatency.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
