// Package client is the Go SDK for the OmniSec monitoring service.
//
// It wraps the JSON API exposed by cmd/monitor and unwraps the
// {"success":true,"data":...} envelope so callers deal in typed results.
//
//	c, err := client.New("http://localhost:8000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ta, err := c.Threats(ctx, "org-1", 7, "")
//	fmt.Println(ta.Summary.TotalThreats)
//
// # Reports
//
// Security reports come back as raw JSON because their shape depends on the
// requested tier:
//
//	raw, err := c.SecurityReport(ctx, "org-1", "executive", 30)
//
// # Errors
//
// Non-2xx responses are returned as *APIError. IsClientError distinguishes
// caller mistakes (400) from server failures:
//
//	if _, err := c.Threats(ctx, "", 7, ""); client.IsClientError(err) {
//	    // fix the request
//	}
//
// # Caching
//
// Read calls can be cached in memory with WithCacheTTL. Writes
// (AnalyzeModel) are never cached.
package client
