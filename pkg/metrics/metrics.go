package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HistogramBuckets are in milliseconds. Vision model calls routinely take
// 5-30s, so the upper range is wider than for plain HTTP handlers.
var HistogramBuckets = []float64{
	10, 25, 50, 100, 250, 500,
	1000, 2000, 3000, 5000, 7500,
	10000, 15000, 20000, 30000, 45000, 60000, 90000,
}

type Kind string

const (
	KindCounterVec   Kind = "counter_vec"
	KindHistogramVec Kind = "histogram_vec"
	KindSummaryVec   Kind = "summary_vec"
)

// Metric describes one collector. MetricCollector is set on registration.
type Metric struct {
	MetricCollector prometheus.Collector
	Name            string
	Description     string
	Kind            Kind
	Labels          []string
}

// NewMetric builds the collector for m.Kind.
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	switch m.Kind {
	case KindCounterVec:
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Labels)
	case KindHistogramVec:
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
			Buckets:   HistogramBuckets,
		}, m.Labels)
	case KindSummaryVec:
		return prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Labels)
	}
	return nil
}

var MetricsBusinessProcess = &Metric{
	Name:        "bp_dur",
	Description: "process latency in milliseconds",
	Kind:        KindHistogramVec,
	Labels:      []string{"type", "subtype"},
}

var MetricsScanQuota = &Metric{
	Name:        "scan_quota_total",
	Description: "Scan quota decisions, partitioned by tier and outcome.",
	Kind:        KindCounterVec,
	Labels:      []string{"tier", "outcome"},
}

var MetricsWebhookEvents = &Metric{
	Name:        "webhook_events_total",
	Description: "Billing webhook events, partitioned by event type and outcome.",
	Kind:        KindCounterVec,
	Labels:      []string{"event_type", "outcome"},
}

// BusinessMetrics are registered by every NewPrometheus call.
var BusinessMetrics = []*Metric{
	MetricsBusinessProcess,
	MetricsScanQuota,
	MetricsWebhookEvents,
}

const (
	RefererKey = "X-Referer"
)
