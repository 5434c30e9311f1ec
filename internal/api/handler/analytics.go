package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/omnisec-monitor/internal/analytics"
	"github.com/jmerrifield20/omnisec-monitor/internal/model"
	"go.uber.org/zap"
)

const defaultThreatDays = 7

// threatAnalyzer is the subset of *analytics.Analyzer the handler calls.
type threatAnalyzer interface {
	AnalyzeThreats(ctx context.Context, orgID string, days int, severity model.Severity) (*analytics.ThreatAnalytics, error)
	AnalyzeModelSecurity(ctx context.Context, orgID, modelID string) (map[string]*analytics.ModelSecurityReport, error)
	AnalyzeModel(ctx context.Context, orgID, modelID, analysisType string) (*model.AnalysisResult, error)
}

// AnalyticsHandler serves threat and model analytics.
type AnalyticsHandler struct {
	analyzer threatAnalyzer
	logger   *zap.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyzer threatAnalyzer, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analyzer: analyzer, logger: logger}
}

// Register mounts the analytics routes on the given router group.
func (h *AnalyticsHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/analytics")
	{
		a.GET("/threats", h.Threats)
		a.GET("/models", h.Models)
	}
	rg.POST("/analyze/model", h.AnalyzeModel)
}

// Threats handles GET /analytics/threats?organization_id=&days=&severity=.
func (h *AnalyticsHandler) Threats(c *gin.Context) {
	days, err := intQuery(c, "days", defaultThreatDays)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get threat analytics")
		return
	}

	out, err := h.analyzer.AnalyzeThreats(c.Request.Context(),
		c.Query("organization_id"), days, model.Severity(c.Query("severity")))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get threat analytics")
		return
	}
	respondOK(c, out)
}

// Models handles GET /analytics/models?organization_id=&model_id=.
func (h *AnalyticsHandler) Models(c *gin.Context) {
	out, err := h.analyzer.AnalyzeModelSecurity(c.Request.Context(), c.Query("organization_id"), c.Query("model_id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to get model analytics")
		return
	}
	respondOK(c, out)
}

// analyzeModelRequest is accepted as a JSON body or as query parameters.
type analyzeModelRequest struct {
	OrganizationID string `json:"organization_id" form:"organization_id" binding:"required"`
	ModelID        string `json:"model_id"        form:"model_id"        binding:"required"`
	AnalysisType   string `json:"analysis_type"   form:"analysis_type"`
}

// AnalyzeModel handles POST /analyze/model.
func (h *AnalyticsHandler) AnalyzeModel(c *gin.Context) {
	var req analyzeModelRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "organization_id and model_id are required"})
		return
	}
	if req.AnalysisType == "" {
		req.AnalysisType = analytics.DefaultAnalysisType
	}

	out, err := h.analyzer.AnalyzeModel(c.Request.Context(), req.OrganizationID, req.ModelID, req.AnalysisType)
	recordAnalysis(analysisLabel(req.AnalysisType), err == nil)
	if err != nil {
		respondError(c, h.logger, err, "Failed to analyze model")
		return
	}
	respondOK(c, out)
}
