package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestPrometheus_RecordsRequestsAndBusinessMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	p := NewPrometheus(NewPrometheusOptions{
		Subsystem:   "tongue_test",
		MetricsList: []*Metric{MetricsBusinessProcess},
		ReqCntURLLabelMappingFn: func(c *gin.Context) string {
			return c.FullPath()
		},
	})
	p.Use(r)
	r.GET("/scans/:id", func(c *gin.Context) {
		ObserveBusinessProcess("analyze", "mock", time.Now().Add(-20*time.Millisecond))
		Inc(MetricsScanQuota, "free", "refused")
		Inc(MetricsWebhookEvents, "invoice.paid", "handled")
		c.String(http.StatusOK, "ok")
	})

	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scans/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	_, ok := MetricsBusinessProcess.MetricCollector.(*prometheus.HistogramVec)
	require.True(t, ok)

	body := scrape(t, r)
	require.True(t, strings.Contains(body, `tongue_test_bp_dur_count{subtype="mock",type="analyze"} 2`), body)
	require.True(t, strings.Contains(body, `tongue_test_req_total{code="200",method="GET",ref="",url="/scans/:id"} 2`), body)
	require.True(t, strings.Contains(body, `tongue_test_scan_quota_total{outcome="refused",tier="free"} 2`), body)
	require.True(t, strings.Contains(body, `tongue_test_webhook_events_total{event_type="invoice.paid",outcome="handled"} 2`), body)
}

func TestNewPrometheus_ReusesRegisteredCollectors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	first := NewPrometheus(NewPrometheusOptions{Subsystem: "tongue_reuse"})
	second := NewPrometheus(NewPrometheusOptions{Subsystem: "tongue_reuse"})
	require.Same(t, first.reqCnt, second.reqCnt)
}

func TestInc_UnregisteredIsNoop(t *testing.T) {
	require.NotPanics(t, func() { Inc(&Metric{Name: "never_registered"}, "x") })
}

func TestComputeApproximateRequestSize(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("abc"))
	require.Greater(t, computeApproximateRequestSize(req), len("/api/analyze")+3)
}
