package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIError is a non-2xx answer from the monitoring service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("monitor returned HTTP %d: %s", e.StatusCode, e.Message)
}

// IsClientError reports whether err is an *APIError with status 400.
func IsClientError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusBadRequest
}

// Health is the body of GET /health.
type Health struct {
	Status           string            `json:"status"`
	Version          string            `json:"version"`
	Service          string            `json:"service"`
	Timestamp        time.Time         `json:"timestamp"`
	Dependencies     map[string]string `json:"dependencies,omitempty"`
	WebsocketClients int               `json:"websocket_clients"`
}

// AnalyzeModelRequest is the payload for AnalyzeModel.
type AnalyzeModelRequest struct {
	OrganizationID string `json:"organization_id"`
	ModelID        string `json:"model_id"`
	AnalysisType   string `json:"analysis_type,omitempty"`
}

// Client is the SDK entry point.
type Client struct {
	base       string
	httpClient *http.Client
	cache      *responseCache
	token      string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("nil http client")
		}
		c.httpClient = hc
		return nil
	}
}

// WithCacheTTL enables in-memory caching of read responses with the given TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) error {
		c.cache = newResponseCache(ttl)
		return nil
	}
}

// WithBearerToken attaches a token to every request, for deployments that
// sit behind an authenticating proxy.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// New creates a Client for the service at base, e.g. "http://localhost:8000".
func New(base string, opts ...Option) (*Client, error) {
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	c := &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on error.
func MustNew(base string, opts ...Option) *Client {
	c, err := New(base, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Health returns the service liveness report. A degraded service answers
// 503; its body is still decoded and returned alongside the error.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	code, body, err := c.doStatusBody(req)
	if err != nil {
		return nil, err
	}
	var h Health
	if err := json.Unmarshal(body, &h); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	if code >= 300 {
		return &h, &APIError{StatusCode: code, Message: h.Status}
	}
	return &h, nil
}

// Threats calls GET /api/v1/analytics/threats. severity is one of
// low|medium|high|critical, or empty for all.
func (c *Client) Threats(ctx context.Context, orgID string, days int, severity string) (*ThreatAnalytics, error) {
	q := url.Values{"organization_id": {orgID}}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	if severity != "" {
		q.Set("severity", severity)
	}
	var out ThreatAnalytics
	if err := c.get(ctx, "/api/v1/analytics/threats", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Models calls GET /api/v1/analytics/models. modelID may be empty to score
// every model of the organization.
func (c *Client) Models(ctx context.Context, orgID, modelID string) (map[string]*ModelSecurityReport, error) {
	q := url.Values{"organization_id": {orgID}}
	if modelID != "" {
		q.Set("model_id", modelID)
	}
	var out map[string]*ModelSecurityReport
	if err := c.get(ctx, "/api/v1/analytics/models", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SecurityReport calls GET /api/v1/reports/security and returns the report
// body undecoded. An empty tier selects the summary report.
func (c *Client) SecurityReport(ctx context.Context, orgID, tier string, days int) (json.RawMessage, error) {
	q := url.Values{"organization_id": {orgID}}
	if tier != "" {
		q.Set("report_type", tier)
	}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	var out json.RawMessage
	if err := c.get(ctx, "/api/v1/reports/security", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SystemMetrics calls GET /api/v1/metrics/system.
func (c *Client) SystemMetrics(ctx context.Context) (*SystemMetrics, error) {
	var out SystemMetrics
	if err := c.get(ctx, "/api/v1/metrics/system", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SecurityMetrics calls GET /api/v1/metrics/security.
func (c *Client) SecurityMetrics(ctx context.Context, orgID string) (*SecurityMetrics, error) {
	var out SecurityMetrics
	if err := c.get(ctx, "/api/v1/metrics/security", url.Values{"organization_id": {orgID}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeModel calls POST /api/v1/analyze/model.
func (c *Client) AnalyzeModel(ctx context.Context, r AnalyzeModelRequest) (*AnalysisResult, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v1/analyze/model", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var out AnalysisResult
	if err := decodeData(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// get performs a GET against path and decodes the envelope data into dst,
// going through the response cache when one is configured.
func (c *Client) get(ctx context.Context, path string, q url.Values, dst any) error {
	target := c.base + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	if c.cache != nil {
		if body, ok := c.cache.get(target); ok {
			return decodeData(body, dst)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := decodeData(body, dst); err != nil {
		return err
	}

	if c.cache != nil {
		c.cache.set(target, body)
	}
	return nil
}

// decodeData unwraps {"success":true,"data":...}.
func decodeData(body []byte, dst any) error {
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("unsuccessful response: %s", env.Error)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// do executes an HTTP request and turns any non-2xx status into *APIError.
func (c *Client) do(req *http.Request) ([]byte, error) {
	code, body, err := c.doStatusBody(req)
	if err != nil {
		return nil, err
	}
	if code >= 300 {
		return nil, &APIError{StatusCode: code, Message: errorMessage(body)}
	}
	return body, nil
}

// doStatusBody is a lower-level HTTP call that returns (statusCode, body, error)
// without failing on non-2xx responses.
func (c *Client) doStatusBody(req *http.Request) (int, []byte, error) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

// --- simple in-memory response cache ---

type cacheEntry struct {
	body      []byte
	expiresAt time.Time
}

type responseCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{entries: make(map[string]*cacheEntry), ttl: ttl}
}

func (rc *responseCache) get(key string) ([]byte, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	e, ok := rc.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.body, true
}

func (rc *responseCache) set(key string, body []byte) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.entries[key] = &cacheEntry{body: body, expiresAt: time.Now().Add(rc.ttl)}
}
