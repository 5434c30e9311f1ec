package report

import (
	"time"

	"github.com/jmerrifield20/omnisec-monitor/internal/analytics"
	"github.com/jmerrifield20/omnisec-monitor/internal/model"
)

// Tier names one of the three report shapes.
type Tier string

const (
	TierSummary   Tier = "summary"
	TierDetailed  Tier = "detailed"
	TierExecutive Tier = "executive"
)

// ParseTier returns an InvalidArgumentError naming s when it is not a tier.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(s); t {
	case TierSummary, TierDetailed, TierExecutive:
		return t, nil
	}
	return "", model.InvalidArgument("report_type", s, "unknown report type")
}

// Report is implemented by *Summary, *Detailed and *Executive.
type Report interface {
	ReportTier() Tier
}

// Period is the reporting window.
type Period struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Days      int       `json:"days"`
}

// ExecutiveSummary is the headline block shared by the summary and detailed tiers.
type ExecutiveSummary struct {
	TotalThreats          int     `json:"total_threats"`
	ResolvedThreats       int     `json:"resolved_threats"`
	ResolutionRatePercent float64 `json:"resolution_rate_percent"`
	SecurityEvents        int64   `json:"security_events"`
	ThreatDetections      int64   `json:"threat_detections"`
	ActiveModels          int     `json:"active_models"`
	ActiveUsers           int     `json:"active_users"`
}

// TypeSummary aggregates all rows of one threat type.
type TypeSummary struct {
	Total      int                    `json:"total"`
	Resolved   int                    `json:"resolved"`
	BySeverity map[model.Severity]int `json:"by_severity"`
}

// TopThreat is a threat type ranked by total count.
type TopThreat struct {
	ThreatType string `json:"threat_type"`
	TypeSummary
}

// ThreatAnalysis holds the per-type breakdown of a summary.
type ThreatAnalysis struct {
	ByType     map[string]*TypeSummary `json:"by_type"`
	TopThreats []TopThreat             `json:"top_threats"`

	// order is the first-seen order of ByType keys.
	order []string
}

// ModelSecurity is the model inventory block of a summary.
type ModelSecurity struct {
	TotalModels     int     `json:"total_models"`
	ActiveModels    int     `json:"active_models"`
	ThreatsPerModel float64 `json:"threats_per_model"`
}

// Summary is the base report tier.
type Summary struct {
	ReportType       Tier             `json:"report_type"`
	OrganizationID   string           `json:"organization_id"`
	Period           Period           `json:"period"`
	ExecutiveSummary ExecutiveSummary `json:"executive_summary"`
	ThreatAnalysis   ThreatAnalysis   `json:"threat_analysis"`
	ModelSecurity    ModelSecurity    `json:"model_security"`
	Recommendations  []string         `json:"recommendations"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// ReportTier implements Report.
func (s *Summary) ReportTier() Tier { return s.ReportType }

// DetailedAnalysis holds the four analysis sections of the detailed tier.
type DetailedAnalysis struct {
	TemporalPatterns  TemporalAnalysis      `json:"temporal_patterns"`
	ModelInteractions map[string]ModelUsage `json:"model_interactions"`
	UserBehavior      UserBehavior          `json:"user_behavior"`
	AttackVectors     AttackVectors         `json:"attack_vectors"`
}

// TemporalAnalysis shows when threats and interactions happen.
type TemporalAnalysis struct {
	ThreatsByHour      analytics.TemporalPatterns `json:"threats_by_hour"`
	InteractionsByHour analytics.TemporalPatterns `json:"interactions_by_hour"`
	DailyThreats       map[string]int             `json:"daily_threats"`
}

// ModelUsage is the per-model interaction rollup of the detailed tier.
type ModelUsage struct {
	Interactions  int     `json:"interactions"`
	UniqueUsers   int     `json:"unique_users"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	Threats       int     `json:"threats"`
}

// UserCount is one user ranked by interaction count.
type UserCount struct {
	UserID       string `json:"user_id"`
	Interactions int    `json:"interactions"`
}

// UserBehavior combines audit-log activity with model usage per user.
type UserBehavior struct {
	ActiveUsers      int         `json:"active_users"`
	TotalActions     int         `json:"total_actions"`
	ActionsPerUser   float64     `json:"actions_per_user"`
	InteractingUsers int         `json:"interacting_users"`
	TopUsers         []UserCount `json:"top_users"`
}

// AttackVectors breaks detections down by kind and severity.
type AttackVectors struct {
	ByType            map[string]int `json:"by_type"`
	BySeverity        map[string]int `json:"by_severity"`
	AvgSeverityScore  float64        `json:"avg_severity_score"`
	FalsePositiveRate float64        `json:"false_positive_rate"`
	TargetedModels    int            `json:"targeted_models"`
}

// Detailed is the summary tier plus DetailedAnalysis.
type Detailed struct {
	Summary
	DetailedAnalysis DetailedAnalysis `json:"detailed_analysis"`
}

// KeyMetrics are the headline numbers of the executive tier.
type KeyMetrics struct {
	SecurityPostureScore int     `json:"security_posture_score"`
	ThreatTrend          string  `json:"threat_trend"`
	ResolutionEfficiency float64 `json:"resolution_efficiency"`
	ModelCoverage        float64 `json:"model_coverage"`
}

// RiskAssessment is the risk block of the executive tier.
type RiskAssessment struct {
	CurrentRiskLevel string      `json:"current_risk_level"`
	CriticalIssues   []string    `json:"critical_issues"`
	TrendingThreats  []TopThreat `json:"trending_threats"`
}

// ComplianceStatus is reported as fixed labels until coverage is measured.
type ComplianceStatus struct {
	MonitoringCoverage string `json:"monitoring_coverage"`
	IncidentResponse   string `json:"incident_response"`
	PolicyCompliance   string `json:"policy_compliance"`
}

// Executive is re-shaped from a summary for a non-technical audience.
type Executive struct {
	ReportType               Tier             `json:"report_type"`
	OrganizationID           string           `json:"organization_id"`
	Period                   Period           `json:"period"`
	KeyMetrics               KeyMetrics       `json:"key_metrics"`
	RiskAssessment           RiskAssessment   `json:"risk_assessment"`
	StrategicRecommendations []string         `json:"strategic_recommendations"`
	ComplianceStatus         ComplianceStatus `json:"compliance_status"`
	GeneratedAt              time.Time        `json:"generated_at"`
}

// ReportTier implements Report.
func (e *Executive) ReportTier() Tier { return e.ReportType }
