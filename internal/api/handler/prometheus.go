package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmerrifield20/omnisec-monitor/internal/report"
)

var (
	omnisecRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omnisec_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	omnisecRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "omnisec_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	omnisecReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omnisec_reports_generated_total",
		Help: "Security reports generated by tier and outcome.",
	}, []string{"report_type", "result"})

	omnisecAnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omnisec_model_analyses_total",
		Help: "Model analyses run by analysis type and outcome.",
	}, []string{"analysis_type", "result"})

	omnisecDependencyChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omnisec_dependency_checks_total",
		Help: "Backing store health probes by dependency and result.",
	}, []string{"dependency", "result"})
)

// knownAnalysisTypes bounds the analysis_type label; anything else is "other".
var knownAnalysisTypes = map[string]bool{
	"full":        true,
	"quick":       true,
	"adversarial": true,
	"privacy":     true,
	"bias":        true,
}

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		omnisecRequestsTotal.WithLabelValues(method, path, status).Inc()
		omnisecRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// reportLabel maps a requested report_type onto a known tier or "invalid".
func reportLabel(tier string) string {
	t, err := report.ParseTier(tier)
	if err != nil {
		return "invalid"
	}
	return string(t)
}

func analysisLabel(analysisType string) string {
	if knownAnalysisTypes[analysisType] {
		return analysisType
	}
	return "other"
}

func recordReport(tier string, ok bool) {
	omnisecReportsTotal.WithLabelValues(tier, result(ok)).Inc()
}

func recordAnalysis(analysisType string, ok bool) {
	omnisecAnalysesTotal.WithLabelValues(analysisType, result(ok)).Inc()
}

// RecordDependencyCheck records a backing store health probe.
func RecordDependencyCheck(dependency string, success bool) {
	omnisecDependencyChecksTotal.WithLabelValues(dependency, result(success)).Inc()
}
