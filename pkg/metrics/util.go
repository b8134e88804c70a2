package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func prometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// MillisecondsSince returns the elapsed time since start in milliseconds.
func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// computeApproximateRequestSize follows the estimate used by promhttp.
func computeApproximateRequestSize(r *http.Request) int {
	s := 0
	if r.URL != nil {
		s = len(r.URL.Path)
	}
	s += len(r.Method)
	s += len(r.Proto)
	for name, values := range r.Header {
		s += len(name)
		for _, value := range values {
			s += len(value)
		}
	}
	s += len(r.Host)
	if r.ContentLength != -1 {
		s += int(r.ContentLength)
	}
	return s
}

// ObserveBusinessProcess records the latency of a named business process,
// e.g. ("analyze", "openai") or ("webhook", "checkout.session.completed").
// It is a no-op until the histogram has been registered by NewPrometheus.
func ObserveBusinessProcess(processType, subtype string, start time.Time) {
	h, ok := MetricsBusinessProcess.MetricCollector.(*prometheus.HistogramVec)
	if !ok || h == nil {
		return
	}
	h.WithLabelValues(processType, subtype).Observe(MillisecondsSince(start))
}

// Inc bumps a registered counter vec. Unregistered metrics are ignored.
func Inc(m *Metric, labels ...string) {
	c, ok := m.MetricCollector.(*prometheus.CounterVec)
	if !ok || c == nil {
		return
	}
	c.WithLabelValues(labels...).Inc()
}
