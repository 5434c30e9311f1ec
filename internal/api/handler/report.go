package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/omnisec-monitor/internal/report"
	"go.uber.org/zap"
)

const defaultReportDays = 30

type reportGenerator interface {
	Generate(ctx context.Context, orgID, tier string, days int) (report.Report, error)
}

// ReportHandler serves tiered security reports.
type ReportHandler struct {
	reports reportGenerator
	logger  *zap.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports reportGenerator, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// Register mounts the report routes on the given router group.
func (h *ReportHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/reports/security", h.Security)
}

// Security handles GET /reports/security?organization_id=&report_type=&days=.
func (h *ReportHandler) Security(c *gin.Context) {
	days, err := intQuery(c, "days", defaultReportDays)
	if err != nil {
		respondError(c, h.logger, err, "Failed to generate security report")
		return
	}
	tier := c.DefaultQuery("report_type", string(report.TierSummary))

	out, err := h.reports.Generate(c.Request.Context(), c.Query("organization_id"), tier, days)
	recordReport(reportLabel(tier), err == nil)
	if err != nil {
		respondError(c, h.logger, err, "Failed to generate security report")
		return
	}
	respondOK(c, out)
}
