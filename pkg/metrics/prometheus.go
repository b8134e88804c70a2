package metrics

// Request metrics middleware, adapted from github.com/zsais/go-gin-prometheus
// without the push gateway and basic-auth variants.

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var reqCnt = &Metric{
	Name:        "req_total",
	Description: "How many HTTP requests processed, partitioned by status code and HTTP method.",
	Kind:        KindCounterVec,
	Labels:      []string{"code", "method", "url", "ref"},
}

var reqDur = &Metric{
	Name:        "req_dur_ms",
	Description: "The HTTP request latencies in milliseconds.",
	Kind:        KindHistogramVec,
	Labels:      []string{"code", "method", "url", "ref"},
}

var resSz = &Metric{
	Name:        "resp_sz_bytes",
	Description: "The HTTP response sizes in bytes.",
	Kind:        KindSummaryVec,
	Labels:      []string{"code", "method", "url", "ref"},
}

var reqSz = &Metric{
	Name:        "req_sz_bytes",
	Description: "The HTTP request sizes in bytes.",
	Kind:        KindSummaryVec,
	Labels:      []string{"code", "method", "url", "ref"},
}

var requestMetrics = []*Metric{reqCnt, reqDur, resSz, reqSz}

const defaultMetricPath = "/metrics"

// URLLabelFn maps a request to its "url" label. Use the route template
// (c.FullPath()) to keep cardinality bounded for routes like /api/scans/:id.
type URLLabelFn func(c *gin.Context) string

type Prometheus struct {
	reqCnt        *prometheus.CounterVec
	reqDur        *prometheus.HistogramVec
	reqSz, resSz  *prometheus.SummaryVec
	listenAddress string

	MetricsPath string
	urlLabel    URLLabelFn
	logger      *zap.SugaredLogger
}

type NewPrometheusOptions struct {
	Subsystem               string
	MetricsList             []*Metric
	MetricsPath             string
	ReqCntURLLabelMappingFn URLLabelFn
	Logger                  *zap.SugaredLogger
}

// NewPrometheus registers the request metrics, BusinessMetrics and any
// extra metrics in options.MetricsList.
func NewPrometheus(options NewPrometheusOptions) *Prometheus {
	p := &Prometheus{
		MetricsPath: options.MetricsPath,
		urlLabel:    options.ReqCntURLLabelMappingFn,
		logger:      options.Logger,
	}
	if p.MetricsPath == "" {
		p.MetricsPath = defaultMetricPath
	}
	if p.urlLabel == nil {
		p.urlLabel = func(c *gin.Context) string { return c.Request.URL.Path }
	}
	if p.logger == nil {
		p.logger = zap.NewNop().Sugar()
	}

	seen := map[*Metric]bool{}
	all := append(append(append([]*Metric{}, requestMetrics...), BusinessMetrics...), options.MetricsList...)
	for _, m := range all {
		if seen[m] {
			continue
		}
		seen[m] = true
		p.register(m, options.Subsystem)
	}
	return p
}

// register adopts an already registered collector so that building the
// middleware twice in one process keeps recording into the same series.
func (p *Prometheus) register(m *Metric, subsystem string) {
	c := NewMetric(m, subsystem)
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			c = are.ExistingCollector
		} else {
			p.logger.Errorw("metric could not be registered", "metric", m.Name, "error", err)
		}
	}
	m.MetricCollector = c
	switch m {
	case reqCnt:
		p.reqCnt = c.(*prometheus.CounterVec)
	case reqDur:
		p.reqDur = c.(*prometheus.HistogramVec)
	case resSz:
		p.resSz = c.(*prometheus.SummaryVec)
	case reqSz:
		p.reqSz = c.(*prometheus.SummaryVec)
	}
}

// SetListenAddress serves the metrics path on a separate address instead of
// the application engine, keeping scrapes out of the access log.
func (p *Prometheus) SetListenAddress(address string) {
	p.listenAddress = address
}

// Use adds the middleware to e and mounts the metrics path.
func (p *Prometheus) Use(e *gin.Engine) {
	e.Use(p.HandlerFunc())
	if p.listenAddress == "" {
		e.GET(p.MetricsPath, prometheusHandler())
		return
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET(p.MetricsPath, prometheusHandler())
	srv := &http.Server{Addr: p.listenAddress, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Errorw("metrics server stopped", "addr", p.listenAddress, "error", err)
		}
	}()
}

func (p *Prometheus) HandlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == p.MetricsPath {
			c.Next()
			return
		}

		start := time.Now()
		reqSize := computeApproximateRequestSize(c.Request)

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		url := p.urlLabel(c)
		ref := c.Request.Header.Get(RefererKey)

		p.reqDur.WithLabelValues(status, c.Request.Method, url, ref).Observe(MillisecondsSince(start))
		p.reqCnt.WithLabelValues(status, c.Request.Method, url, ref).Inc()
		p.reqSz.WithLabelValues(status, c.Request.Method, url, ref).Observe(float64(reqSize))
		p.resSz.WithLabelValues(status, c.Request.Method, url, ref).Observe(float64(c.Writer.Size()))
	}
}
