package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/omnisec-monitor/internal/analytics"
	"github.com/jmerrifield20/omnisec-monitor/internal/api/handler"
	"github.com/jmerrifield20/omnisec-monitor/internal/collector"
	"github.com/jmerrifield20/omnisec-monitor/internal/health"
	"github.com/jmerrifield20/omnisec-monitor/internal/model"
	"github.com/jmerrifield20/omnisec-monitor/internal/report"
	"go.uber.org/zap"
)

// ── Stubs ────────────────────────────────────────────────────────────────

type stubAnalyzer struct {
	err      error
	gotDays  int
	gotSev   model.Severity
	gotModel string
	gotType  string
}

func (s *stubAnalyzer) AnalyzeThreats(_ context.Context, orgID string, days int, sev model.Severity) (*analytics.ThreatAnalytics, error) {
	s.gotDays, s.gotSev = days, sev
	if s.err != nil {
		return nil, s.err
	}
	if err := model.ValidateOrganizationID(orgID); err != nil {
		return nil, err
	}
	return &analytics.ThreatAnalytics{Summary: analytics.ThreatSummary{TotalThreats: 4}}, nil
}

func (s *stubAnalyzer) AnalyzeModelSecurity(_ context.Context, _, modelID string) (map[string]*analytics.ModelSecurityReport, error) {
	s.gotModel = modelID
	if s.err != nil {
		return nil, s.err
	}
	return map[string]*analytics.ModelSecurityReport{"m1": {SecurityScore: 80}}, nil
}

func (s *stubAnalyzer) AnalyzeModel(_ context.Context, orgID, modelID, analysisType string) (*model.AnalysisResult, error) {
	s.gotType = analysisType
	if s.err != nil {
		return nil, s.err
	}
	return &model.AnalysisResult{ID: "a1", OrganizationID: orgID, ModelID: modelID, AnalysisType: analysisType}, nil
}

type stubRelational struct{ err error }

func (s stubRelational) ThreatCounts(context.Context, string, model.TimeWindow) ([]model.ThreatCountRow, error) {
	return []model.ThreatCountRow{{ThreatType: "prompt_injection", Severity: model.SeverityHigh, Count: 2, Resolved: 2}}, s.err
}

func (s stubRelational) ModelCounts(context.Context, string) (model.ModelCounts, error) {
	return model.ModelCounts{Total: 2, Active: 2}, nil
}

func (s stubRelational) UserActivity(context.Context, string, model.TimeWindow) (model.UserActivity, error) {
	return model.UserActivity{ActiveUsers: 1, TotalActions: 5}, nil
}

type stubEventLog struct{}

func (stubEventLog) CountSecurityEvents(context.Context, string, model.TimeWindow) (int64, error) {
	return 10, nil
}

func (stubEventLog) CountThreatDetections(context.Context, string, model.TimeWindow) (int64, error) {
	return 2, nil
}

func (stubEventLog) FindThreats(context.Context, model.ThreatQuery) ([]model.ThreatRecord, error) {
	return nil, nil
}

func (stubEventLog) FindInteractions(context.Context, model.InteractionQuery) ([]model.InteractionRecord, error) {
	return nil, nil
}

type stubCollector struct{ err error }

func (s stubCollector) SystemMetrics(context.Context) (*collector.SystemMetrics, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &collector.SystemMetrics{CPU: collector.CPUMetrics{UsagePercent: 12.5, Count: 4}}, nil
}

func (s stubCollector) CollectSecurity(_ context.Context, orgID string) (*collector.SecurityMetrics, error) {
	if err := model.ValidateOrganizationID(orgID); err != nil {
		return nil, err
	}
	return &collector.SecurityMetrics{OrganizationID: orgID}, nil
}

type stubHealth struct{ report health.Report }

func (s stubHealth) Report() health.Report { return s.report }

type stubHub struct{}

func (stubHub) ClientCount() int { return 3 }

// ── Helpers ──────────────────────────────────────────────────────────────

type fixture struct {
	router   *gin.Engine
	analyzer *stubAnalyzer
}

func setupRouter(t *testing.T, rel stubRelational) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	logger := zap.NewNop()

	an := &stubAnalyzer{}
	gen := report.NewGenerator(rel, stubEventLog{}, logger)

	v1 := r.Group("/api/v1")
	handler.NewAnalyticsHandler(an, logger).Register(v1)
	handler.NewReportHandler(gen, logger).Register(v1)
	handler.NewMetricsAPIHandler(stubCollector{}, logger).Register(v1)
	return &fixture{router: r, analyzer: an}
}

func do(t *testing.T, r http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return w, resp
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestThreats_200(t *testing.T) {
	f := setupRouter(t, stubRelational{})

	w, resp := do(t, f.router, http.MethodGet, "/api/v1/analytics/threats?organization_id=org1&severity=high", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp["success"] != true {
		t.Errorf("expected success=true, got %v", resp["success"])
	}
	if _, ok := resp["timestamp"]; !ok {
		t.Error("expected timestamp in envelope")
	}
	data := resp["data"].(map[string]any)
	if data["summary"].(map[string]any)["total_threats"].(float64) != 4 {
		t.Errorf("unexpected data: %v", data)
	}
	if f.analyzer.gotDays != 7 {
		t.Errorf("expected default days=7, got %d", f.analyzer.gotDays)
	}
	if f.analyzer.gotSev != model.SeverityHigh {
		t.Errorf("expected severity high, got %q", f.analyzer.gotSev)
	}
}

func TestThreats_400_badDays(t *testing.T) {
	f := setupRouter(t, stubRelational{})

	w, resp := do(t, f.router, http.MethodGet, "/api/v1/analytics/threats?organization_id=org1&days=week", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(resp["error"].(string), "week") {
		t.Errorf("expected error to name the value, got %v", resp["error"])
	}
}

func TestThreats_400_missingOrganization(t *testing.T) {
	f := setupRouter(t, stubRelational{})

	w, _ := do(t, f.router, http.MethodGet, "/api/v1/analytics/threats", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestThreats_500_hidesCause(t *testing.T) {
	f := setupRouter(t, stubRelational{})
	f.analyzer.err = errors.New("pq: password authentication failed")

	w, resp := do(t, f.router, http.MethodGet, "/api/v1/analytics/threats?organization_id=org1", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if resp["error"] != "Failed to get threat analytics" {
		t.Errorf("unexpected error message %v", resp["error"])
	}
}

func TestModels_passesModelFilter(t *testing.T) {
	f := setupRouter(t, stubRelational{})

	w, _ := do(t, f.router, http.MethodGet, "/api/v1/analytics/models?organization_id=org1&model_id=m1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if f.analyzer.gotModel != "m1" {
		t.Errorf("expected model filter m1, got %q", f.analyzer.gotModel)
	}
}

func TestAnalyzeModel_jsonBody(t *testing.T) {
	f := setupRouter(t, stubRelational{})

	w, resp := do(t, f.router, http.MethodPost, "/api/v1/analyze/model",
		`{"organization_id":"org1","model_id":"m1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if f.analyzer.gotType != analytics.DefaultAnalysisType {
		t.Errorf("expected default analysis type, got %q", f.analyzer.gotType)
	}
	if resp["data"].(map[string]any)["model_id"] != "m1" {
		t.Errorf("unexpected data %v", resp["data"])
	}
}

func TestAnalyzeModel_queryParams(t *testing.T) {
	f := setupRouter(t, stubRelational{})

	w, _ := do(t, f.router, http.MethodPost, "/api/v1/analyze/model?organization_id=org1&model_id=m1&analysis_type=quick", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if f.analyzer.gotType != "quick" {
		t.Errorf("expected quick, got %q", f.analyzer.gotType)
	}
}

func TestAnalyzeModel_400_missingModel(t *testing.T) {
	f := setupRouter(t, stubRelational{})

	w, _ := do(t, f.router, http.MethodPost, "/api/v1/analyze/model", `{"organization_id":"org1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSecurityReport_defaultsToSummary(t *testing.T) {
	f := setupRouter(t, stubRelational{})

	w, resp := do(t, f.router, http.MethodGet, "/api/v1/reports/security?organization_id=org1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := resp["data"].(map[string]any)
	if data["report_type"] != "summary" {
		t.Errorf("expected summary, got %v", data["report_type"])
	}
	if data["period"].(map[string]any)["days"].(float64) != 30 {
		t.Errorf("expected 30 days, got %v", data["period"])
	}
}

func TestSecurityReport_detailedFlattensSummary(t *testing.T) {
	f := setupRouter(t, stubRelational{})

	_, resp := do(t, f.router, http.MethodGet, "/api/v1/reports/security?organization_id=org1&report_type=detailed", "")
	data := resp["data"].(map[string]any)
	if data["report_type"] != "detailed" {
		t.Errorf("expected detailed, got %v", data["report_type"])
	}
	for _, key := range []string{"executive_summary", "threat_analysis", "model_security", "detailed_analysis"} {
		if _, ok := data[key]; !ok {
			t.Errorf("expected top-level key %q", key)
		}
	}
}

func TestSecurityReport_400_unknownTier(t *testing.T) {
	f := setupRouter(t, stubRelational{})

	w, resp := do(t, f.router, http.MethodGet, "/api/v1/reports/security?organization_id=org1&report_type=bogus_tier", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(resp["error"].(string), "bogus_tier") {
		t.Errorf("expected error to name bogus_tier, got %v", resp["error"])
	}
}

func TestSecurityReport_500_storeError(t *testing.T) {
	f := setupRouter(t, stubRelational{err: errors.New("connection reset")})

	w, _ := do(t, f.router, http.MethodGet, "/api/v1/reports/security?organization_id=org1", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestSystemMetrics_200(t *testing.T) {
	f := setupRouter(t, stubRelational{})

	w, resp := do(t, f.router, http.MethodGet, "/api/v1/metrics/system", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	cpu := resp["data"].(map[string]any)["cpu"].(map[string]any)
	if cpu["usage_percent"].(float64) != 12.5 {
		t.Errorf("unexpected cpu block %v", cpu)
	}
}

func TestSecurityMetrics_400_badOrganization(t *testing.T) {
	f := setupRouter(t, stubRelational{})

	w, _ := do(t, f.router, http.MethodGet, "/api/v1/metrics/security?organization_id=a%20b", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("healthy", func(t *testing.T) {
		r := gin.New()
		handler.NewServiceHandler("1.0.0", stubHealth{health.Report{
			Status:       health.StatusHealthy,
			Dependencies: map[string]string{"postgres": health.StatusHealthy},
			CheckedAt:    time.Now(),
		}}, stubHub{}).Register(r)

		w, resp := do(t, r, http.MethodGet, "/health", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if resp["websocket_clients"].(float64) != 3 {
			t.Errorf("expected 3 clients, got %v", resp["websocket_clients"])
		}
	})

	t.Run("degraded", func(t *testing.T) {
		r := gin.New()
		handler.NewServiceHandler("1.0.0", stubHealth{health.Report{
			Status:       health.StatusDegraded,
			Dependencies: map[string]string{"mongo": health.StatusDegraded},
		}}, nil).Register(r)

		w, resp := do(t, r, http.MethodGet, "/health", "")
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", w.Code)
		}
		if resp["status"] != health.StatusDegraded {
			t.Errorf("expected degraded, got %v", resp["status"])
		}
	})
}

func TestIndex(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler.NewServiceHandler("1.0.0", nil, nil).Register(r)

	w, resp := do(t, r, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp["version"] != "1.0.0" {
		t.Errorf("unexpected version %v", resp["version"])
	}
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := gin.New()
	r.Use(handler.RateLimiter(ctx, 1, 2))
	r.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w, _ := do(t, r, http.MethodGet, "/ping", "")
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected [200 200 429], got %v", codes)
	}
}

func TestRateLimiter_disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handler.RateLimiter(context.Background(), 0, 0))
	r.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	for i := 0; i < 20; i++ {
		if w, _ := do(t, r, http.MethodGet, "/ping", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d limited with rps=0", i)
		}
	}
}
