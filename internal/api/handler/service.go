package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/omnisec-monitor/internal/health"
)

// ServiceName is reported by /health and /.
const ServiceName = "OmniSec Monitoring Service"

type healthReporter interface {
	Report() health.Report
}

type clientCounter interface {
	ClientCount() int
}

// ServiceHandler serves the liveness and index endpoints.
type ServiceHandler struct {
	version string
	health  healthReporter // nil = always healthy
	hub     clientCounter  // nil = realtime disabled
}

// NewServiceHandler creates a new ServiceHandler.
func NewServiceHandler(version string, health healthReporter, hub clientCounter) *ServiceHandler {
	return &ServiceHandler{version: version, health: health, hub: hub}
}

// Register mounts /health and / on the engine root.
func (h *ServiceHandler) Register(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/", h.Index)
}

// Health handles GET /health. It answers 503 while any dependency is degraded.
func (h *ServiceHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":    health.StatusHealthy,
		"timestamp": time.Now().UTC(),
		"version":   h.version,
		"service":   "monitoring",
	}
	code := http.StatusOK
	if h.health != nil {
		r := h.health.Report()
		body["status"] = r.Status
		body["dependencies"] = r.Dependencies
		if r.Status == health.StatusDegraded {
			code = http.StatusServiceUnavailable
		}
	}
	if h.hub != nil {
		body["websocket_clients"] = h.hub.ClientCount()
	}
	c.JSON(code, body)
}

// Index handles GET /.
func (h *ServiceHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": ServiceName,
		"version": h.version,
		"status":  "running",
		"endpoints": gin.H{
			"health":     "/health",
			"analytics":  "/api/v1/analytics/",
			"metrics":    "/api/v1/metrics/",
			"reports":    "/api/v1/reports/",
			"analyze":    "/api/v1/analyze/model",
			"realtime":   "/ws",
			"prometheus": "/metrics",
		},
	})
}
