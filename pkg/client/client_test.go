package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmerrifield20/omnisec-monitor/pkg/client"
)

// ── Stub server ─────────────────────────────────────────────────────────

func ok(w http.ResponseWriter, data any) {
	json.NewEncoder(w).Encode(map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC(),
	})
}

func fail(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}

func stubMonitorServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":            "healthy",
			"version":           "1.2.3",
			"service":           "monitoring",
			"websocket_clients": 2,
		})
	})

	mux.HandleFunc("/api/v1/analytics/threats", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("organization_id") == "" {
			fail(w, http.StatusBadRequest, `invalid organization_id "": must be 1-128 printable characters without spaces or slashes`)
			return
		}
		if q.Get("organization_id") == "explode" {
			fail(w, http.StatusInternalServerError, "Failed to get threat analytics")
			return
		}
		ok(w, map[string]any{
			"summary": map[string]any{"total_threats": 3, "unique_threat_types": 2},
			"threat_distribution": map[string]int{
				"prompt_injection": 2, "data_extraction": 1,
			},
			"temporal_patterns": map[string]any{
				"hourly_distribution": map[string]int{"10": 3},
			},
			"echo_days":     q.Get("days"),
			"echo_severity": q.Get("severity"),
		})
	})

	mux.HandleFunc("/api/v1/analytics/models", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("model_id")
		if id == "" {
			id = "m1"
		}
		ok(w, map[string]any{
			id: map[string]any{"security_score": 85, "recommendations": []string{"Continue monitoring"}},
		})
	})

	mux.HandleFunc("/api/v1/reports/security", func(w http.ResponseWriter, r *http.Request) {
		tier := r.URL.Query().Get("report_type")
		if tier == "" {
			tier = "summary"
		}
		if tier == "bogus_tier" {
			fail(w, http.StatusBadRequest, `invalid report_type "bogus_tier": unknown report type`)
			return
		}
		ok(w, map[string]any{"report_type": tier})
	})

	mux.HandleFunc("/api/v1/metrics/system", func(w http.ResponseWriter, r *http.Request) {
		ok(w, map[string]any{"cpu": map[string]any{"usage_percent": 42.5, "count": 8}})
	})

	mux.HandleFunc("/api/v1/metrics/security", func(w http.ResponseWriter, r *http.Request) {
		ok(w, map[string]any{
			"organization_id": r.URL.Query().Get("organization_id"),
			"threats":         map[string]any{"total": 9, "active": 4},
		})
	})

	mux.HandleFunc("/api/v1/analyze/model", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			fail(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req client.AnalyzeModelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ModelID == "" {
			fail(w, http.StatusBadRequest, "organization_id and model_id are required")
			return
		}
		ok(w, map[string]any{
			"id":              "a-1",
			"organization_id": req.OrganizationID,
			"model_id":        req.ModelID,
			"analysis_type":   "full",
		})
	})

	return httptest.NewServer(mux)
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv := stubMonitorServer(t)
	defer srv.Close()

	h, err := client.MustNew(srv.URL).Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "healthy" || h.Version != "1.2.3" || h.WebsocketClients != 2 {
		t.Errorf("unexpected health: %+v", h)
	}
}

func TestHealth_degraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"status":       "degraded",
			"dependencies": map[string]string{"mongo": "degraded"},
		})
	}))
	defer srv.Close()

	h, err := client.MustNew(srv.URL).Health(context.Background())
	if err == nil {
		t.Fatal("expected error for degraded service")
	}
	if h == nil || h.Dependencies["mongo"] != "degraded" {
		t.Errorf("expected decoded body alongside error, got %+v", h)
	}
}

func TestThreats_success(t *testing.T) {
	srv := stubMonitorServer(t)
	defer srv.Close()

	ta, err := client.MustNew(srv.URL).Threats(context.Background(), "org1", 14, "high")
	if err != nil {
		t.Fatalf("Threats: %v", err)
	}
	if ta.Summary.TotalThreats != 3 {
		t.Errorf("expected 3 threats, got %d", ta.Summary.TotalThreats)
	}
	if ta.ThreatDistribution["prompt_injection"] != 2 {
		t.Errorf("unexpected distribution: %v", ta.ThreatDistribution)
	}
	if ta.TemporalPatterns.HourlyDistribution[10] != 3 {
		t.Errorf("unexpected hourly distribution: %v", ta.TemporalPatterns.HourlyDistribution)
	}
}

func TestThreats_sendsFilters(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		ok(w, map[string]any{})
	}))
	defer srv.Close()

	_, err := client.MustNew(srv.URL).Threats(context.Background(), "org1", 14, "high")
	if err != nil {
		t.Fatalf("Threats: %v", err)
	}
	for _, want := range []string{"organization_id=org1", "days=14", "severity=high"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestThreats_clientError(t *testing.T) {
	srv := stubMonitorServer(t)
	defer srv.Close()

	_, err := client.MustNew(srv.URL).Threats(context.Background(), "", 7, "")
	if !client.IsClientError(err) {
		t.Fatalf("expected client error, got %v", err)
	}
	if !strings.Contains(err.Error(), "organization_id") {
		t.Errorf("expected server message in error, got %v", err)
	}
}

func TestThreats_serverError(t *testing.T) {
	srv := stubMonitorServer(t)
	defer srv.Close()

	_, err := client.MustNew(srv.URL).Threats(context.Background(), "explode", 7, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if client.IsClientError(err) {
		t.Error("500 must not be reported as a client error")
	}
}

func TestModels(t *testing.T) {
	srv := stubMonitorServer(t)
	defer srv.Close()

	out, err := client.MustNew(srv.URL).Models(context.Background(), "org1", "m7")
	if err != nil {
		t.Fatalf("Models: %v", err)
	}
	if out["m7"] == nil || out["m7"].SecurityScore != 85 {
		t.Errorf("unexpected models: %v", out)
	}
}

func TestSecurityReport(t *testing.T) {
	srv := stubMonitorServer(t)
	defer srv.Close()
	c := client.MustNew(srv.URL)

	raw, err := c.SecurityReport(context.Background(), "org1", "executive", 30)
	if err != nil {
		t.Fatalf("SecurityReport: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatal(err)
	}
	if body["report_type"] != "executive" {
		t.Errorf("unexpected report: %s", raw)
	}

	_, err = c.SecurityReport(context.Background(), "org1", "bogus_tier", 30)
	if !client.IsClientError(err) || !strings.Contains(err.Error(), "bogus_tier") {
		t.Errorf("expected client error naming bogus_tier, got %v", err)
	}
}

func TestMetrics(t *testing.T) {
	srv := stubMonitorServer(t)
	defer srv.Close()
	c := client.MustNew(srv.URL)

	sys, err := c.SystemMetrics(context.Background())
	if err != nil {
		t.Fatalf("SystemMetrics: %v", err)
	}
	if sys.CPU.UsagePercent != 42.5 || sys.CPU.Count != 8 {
		t.Errorf("unexpected cpu: %+v", sys.CPU)
	}

	sec, err := c.SecurityMetrics(context.Background(), "org1")
	if err != nil {
		t.Fatalf("SecurityMetrics: %v", err)
	}
	if sec.OrganizationID != "org1" || sec.Threats.Active != 4 {
		t.Errorf("unexpected security metrics: %+v", sec)
	}
}

func TestAnalyzeModel(t *testing.T) {
	srv := stubMonitorServer(t)
	defer srv.Close()

	res, err := client.MustNew(srv.URL).AnalyzeModel(context.Background(), client.AnalyzeModelRequest{
		OrganizationID: "org1",
		ModelID:        "m1",
	})
	if err != nil {
		t.Fatalf("AnalyzeModel: %v", err)
	}
	if res.ID != "a-1" || res.ModelID != "m1" || res.AnalysisType != "full" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		ok(w, map[string]any{"cpu": map[string]any{"count": 4}})
	}))
	defer srv.Close()

	c := client.MustNew(srv.URL, client.WithCacheTTL(5*time.Minute))
	c.SystemMetrics(context.Background())
	c.SystemMetrics(context.Background())

	if calls.Load() != 1 {
		t.Errorf("expected 1 HTTP call (cached), got %d", calls.Load())
	}
}

func TestBearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		ok(w, map[string]any{})
	}))
	defer srv.Close()

	c := client.MustNew(srv.URL, client.WithBearerToken("tok"))
	if _, err := c.SystemMetrics(context.Background()); err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer tok" {
		t.Errorf("expected bearer header, got %q", auth)
	}
}
