package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/omnisec-monitor/internal/collector"
	"go.uber.org/zap"
)

type metricsCollector interface {
	SystemMetrics(ctx context.Context) (*collector.SystemMetrics, error)
	CollectSecurity(ctx context.Context, orgID string) (*collector.SecurityMetrics, error)
}

// MetricsAPIHandler serves collected system and security metrics.
type MetricsAPIHandler struct {
	collector metricsCollector
	logger    *zap.Logger
}

// NewMetricsAPIHandler creates a new MetricsAPIHandler.
func NewMetricsAPIHandler(c metricsCollector, logger *zap.Logger) *MetricsAPIHandler {
	return &MetricsAPIHandler{collector: c, logger: logger}
}

// Register mounts the metrics routes on the given router group.
func (h *MetricsAPIHandler) Register(rg *gin.RouterGroup) {
	m := rg.Group("/metrics")
	{
		m.GET("/system", h.System)
		m.GET("/security", h.Security)
	}
}

// System handles GET /metrics/system.
func (h *MetricsAPIHandler) System(c *gin.Context) {
	out, err := h.collector.SystemMetrics(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to get system metrics")
		return
	}
	respondOK(c, out)
}

// Security handles GET /metrics/security?organization_id=.
func (h *MetricsAPIHandler) Security(c *gin.Context) {
	out, err := h.collector.CollectSecurity(c.Request.Context(), c.Query("organization_id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get security metrics")
		return
	}
	respondOK(c, out)
}
