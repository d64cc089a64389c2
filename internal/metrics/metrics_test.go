package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ MetricsCollector = (*Collector)(nil)

func TestRecordInteraction_CountsByType(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordInteraction("impression")
	c.RecordInteraction("impression")
	c.RecordInteraction("click")

	if got := testutil.ToFloat64(c.interactions.WithLabelValues("impression")); got != 2 {
		t.Errorf("interactions{impression} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.interactions.WithLabelValues("click")); got != 1 {
		t.Errorf("interactions{click} = %v, want 1", got)
	}
}

func TestRecordRecommendationRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRecommendationRequest(50 * time.Millisecond)
	c.RecordRecommendationRequest(100 * time.Millisecond)

	if got := testutil.ToFloat64(c.recommendationReqs); got != 2 {
		t.Errorf("recommendation_requests_total = %v, want 2", got)
	}
}

func TestObserveUpstreamFetch_LabelsResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveUpstreamFetch("newsapi", true, 100*time.Millisecond)
	c.ObserveUpstreamFetch("newsapi", false, 200*time.Millisecond)
	c.ObserveUpstreamFetch("rss", true, 50*time.Millisecond)

	if got := testutil.ToFloat64(c.upstreamFetch.WithLabelValues("newsapi", "success")); got != 1 {
		t.Errorf("upstream_fetch{newsapi,success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.upstreamFetch.WithLabelValues("newsapi", "failure")); got != 1 {
		t.Errorf("upstream_fetch{newsapi,failure} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.upstreamFetch.WithLabelValues("rss", "success")); got != 1 {
		t.Errorf("upstream_fetch{rss,success} = %v, want 1", got)
	}
}

func TestRecordHTTPStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(500)

	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("200")); got != 2 {
		t.Errorf("http_status{200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("500")); got != 1 {
		t.Errorf("http_status{500} = %v, want 1", got)
	}
}

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordInteraction("click")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "newsdeck_interactions_total") {
		t.Error("scrape output should contain newsdeck_interactions_total")
	}
}
