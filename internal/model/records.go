// Package model holds the records read from the relational and event-log
// stores, plus the client error type shared by the analytics layers.
package model

import "time"

// Severity is the ordinal impact level recorded on a threat.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the four known severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ModelType identifies the framework an AI model was built with.
type ModelType string

const (
	ModelTypeTensorFlow  ModelType = "tensorflow"
	ModelTypePyTorch     ModelType = "pytorch"
	ModelTypeONNX        ModelType = "onnx"
	ModelTypeHuggingFace ModelType = "huggingface"
)

// ThreatRecord is a single detection written by the ingestion pipeline into
// the threat_detection_logs collection. It is read-only to this service.
type ThreatRecord struct {
	ID             string    `json:"id,omitempty"              bson:"_id,omitempty"`
	OrganizationID string    `json:"organization_id"           bson:"organization_id"`
	ThreatType     string    `json:"threat_type,omitempty"     bson:"threat_type,omitempty"`
	Severity       Severity  `json:"severity,omitempty"        bson:"severity,omitempty"`
	Timestamp      time.Time `json:"timestamp,omitempty"       bson:"timestamp,omitempty"`
	ModelID        string    `json:"model_id,omitempty"        bson:"model_id,omitempty"`
	// FalsePositive is nil when the detector never set the flag.
	FalsePositive *bool `json:"false_positive,omitempty" bson:"false_positive,omitempty"`
}

// IsFalsePositive reports the flag, treating a missing flag as false.
func (t ThreatRecord) IsFalsePositive() bool {
	return t.FalsePositive != nil && *t.FalsePositive
}

// ModelRecord is a row of the ai_models table.
type ModelRecord struct {
	ID             string    `json:"id"              db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name"            db:"name"`
	Type           ModelType `json:"type"            db:"type"`
	Version        string    `json:"version"         db:"version"`
	IsActive       bool      `json:"is_active"       db:"is_active"`
}

// InteractionRecord is one inference call recorded in model_interactions.
type InteractionRecord struct {
	OrganizationID string    `json:"organization_id" bson:"organization_id"`
	ModelID        string    `json:"model_id"        bson:"model_id"`
	UserID         string    `json:"user_id,omitempty" bson:"user_id,omitempty"`
	DurationMS     float64   `json:"duration_ms"     bson:"duration_ms"`
	Timestamp      time.Time `json:"timestamp"       bson:"timestamp"`
	Type           string    `json:"type,omitempty"  bson:"type,omitempty"`
}

// ThreatCountRow is one (threat_type, severity) group of security_threats
// with the number of rows and how many of them are resolved.
type ThreatCountRow struct {
	ThreatType string
	Severity   Severity
	Count      int
	Resolved   int
}

// ThreatTrendRow is one (threat_type, severity) group with the fraction of
// resolved rows in [0,1].
type ThreatTrendRow struct {
	ThreatType     string
	Severity       Severity
	Count          int
	ResolutionRate float64
}

// ModelCounts holds the total and active model counts of an organization.
type ModelCounts struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// UserActivity summarises audit_logs over a window.
type UserActivity struct {
	ActiveUsers  int `json:"active_users"`
	TotalActions int `json:"total_actions"`
}

// ThreatStatus counts all and unresolved security_threats rows.
type ThreatStatus struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// TimeWindow is the half-open interval [Start, End).
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// LastDays returns the window of the given number of days ending at now.
func LastDays(now time.Time, days int) TimeWindow {
	return TimeWindow{Start: now.AddDate(0, 0, -days), End: now}
}

// Days returns the whole number of days covered by the window.
func (w TimeWindow) Days() int {
	return int(w.End.Sub(w.Start).Hours() / 24)
}

// ThreatQuery filters threat detection records. Empty fields do not filter.
type ThreatQuery struct {
	OrganizationID string
	Window         *TimeWindow
	Severity       Severity
	ModelID        string
}

// InteractionQuery filters model interaction records. Empty fields do not filter.
type InteractionQuery struct {
	OrganizationID string
	ModelID        string
	Window         *TimeWindow
}
