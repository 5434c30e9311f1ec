package client

import "time"

// ThreatSummary is the headline block of a threat analysis.
type ThreatSummary struct {
	TotalThreats      int     `json:"total_threats"`
	UniqueThreatTypes int     `json:"unique_threat_types"`
	AvgSeverityScore  float64 `json:"avg_severity_score"`
	DetectionRate     float64 `json:"detection_rate"`
	FalsePositiveRate float64 `json:"false_positive_rate"`
}

// ThreatTrend is one threat type's count and resolution rate.
type ThreatTrend struct {
	Count          int     `json:"count"`
	ResolutionRate float64 `json:"resolution_rate"`
}

// HourCount is one entry of TemporalPatterns.PeakHours.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// TemporalPatterns groups threats by hour of day.
type TemporalPatterns struct {
	HourlyDistribution map[int]int `json:"hourly_distribution"`
	PeakHours          []HourCount `json:"peak_hours"`
}

// ModelVulnerability aggregates threats against one model.
type ModelVulnerability struct {
	ThreatCount       int     `json:"threat_count"`
	UniqueThreatTypes int     `json:"unique_threat_types"`
	AvgSeverity       float64 `json:"avg_severity"`
}

// ThreatAnalytics is the body of GET /api/v1/analytics/threats.
type ThreatAnalytics struct {
	Summary              ThreatSummary                 `json:"summary"`
	ThreatDistribution   map[string]int                `json:"threat_distribution"`
	TemporalPatterns     TemporalPatterns              `json:"temporal_patterns"`
	ModelVulnerabilities map[string]ModelVulnerability `json:"model_vulnerabilities"`
	Recommendations      []string                      `json:"recommendations"`
	Trends               map[string]ThreatTrend        `json:"trends"`
}

// ModelInfo identifies the scored model.
type ModelInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Version string `json:"version"`
}

type VulnerabilityAssessment struct {
	ModelTypeRisks []string `json:"model_type_risks"`
	ThreatExposure int      `json:"threat_exposure"`
	CriticalCount  int      `json:"critical_vulnerabilities"`
	RecentAttacks  int      `json:"recent_attacks"`
}

type ThreatExposure struct {
	Total   int `json:"total"`
	Last24h int `json:"last_24h"`
	Last7d  int `json:"last_7d"`
	Last30d int `json:"last_30d"`
}

type InteractionPatterns struct {
	TotalInteractions int            `json:"total_interactions"`
	UniqueUsers       int            `json:"unique_users"`
	InteractionTypes  map[string]int `json:"interaction_types"`
	AvgDurationMS     float64        `json:"avg_duration_ms"`
}

// ModelSecurityReport is one entry of GET /api/v1/analytics/models.
// InteractionPatterns is nil when the event log had nothing for the model.
type ModelSecurityReport struct {
	ModelInfo               ModelInfo               `json:"model_info"`
	SecurityScore           int                     `json:"security_score"`
	VulnerabilityAssessment VulnerabilityAssessment `json:"vulnerability_assessment"`
	ThreatExposure          ThreatExposure          `json:"threat_exposure"`
	InteractionPatterns     *InteractionPatterns    `json:"interaction_patterns"`
	Recommendations         []string                `json:"recommendations"`
}

// SystemMetrics is the body of GET /api/v1/metrics/system.
type SystemMetrics struct {
	Timestamp time.Time     `json:"timestamp"`
	CPU       CPUMetrics    `json:"cpu"`
	Memory    MemoryMetrics `json:"memory"`
	Disk      DiskMetrics   `json:"disk"`
	Network   NetMetrics    `json:"network"`
}

type CPUMetrics struct {
	UsagePercent float64   `json:"usage_percent"`
	Count        int       `json:"count"`
	LoadAverage  []float64 `json:"load_average"`
}

type MemoryMetrics struct {
	TotalGB     float64 `json:"total_gb"`
	AvailableGB float64 `json:"available_gb"`
	UsedPercent float64 `json:"used_percent"`
	FreeGB      float64 `json:"free_gb"`
}

type DiskMetrics struct {
	TotalGB     float64 `json:"total_gb"`
	UsedGB      float64 `json:"used_gb"`
	FreeGB      float64 `json:"free_gb"`
	UsedPercent float64 `json:"used_percent"`
}

type NetMetrics struct {
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
}

// SecurityMetrics is the body of GET /api/v1/metrics/security.
type SecurityMetrics struct {
	Timestamp      time.Time       `json:"timestamp"`
	OrganizationID string          `json:"organization_id"`
	Threats        ThreatMetrics   `json:"threats"`
	Models         ModelCounts     `json:"models"`
	Activity       ActivityMetrics `json:"activity"`
}

type ThreatMetrics struct {
	Total         int   `json:"total"`
	Active        int   `json:"active"`
	Detections24h int64 `json:"detections_24h"`
}

type ModelCounts struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

type ActivityMetrics struct {
	SecurityEvents24h int64 `json:"security_events_24h"`
	AuditLogs24h      int64 `json:"audit_logs_24h"`
}

// AnalysisResult is the body of POST /api/v1/analyze/model.
type AnalysisResult struct {
	ID                 string             `json:"id"`
	OrganizationID     string             `json:"organization_id"`
	ModelID            string             `json:"model_id"`
	AnalysisType       string             `json:"analysis_type"`
	Timestamp          time.Time          `json:"timestamp"`
	SecurityAssessment SecurityAssessment `json:"security_assessment"`
	DetailedFindings   []AnalysisFinding  `json:"detailed_findings"`
	PerformanceImpact  PerformanceImpact  `json:"performance_impact"`
}

type SecurityAssessment struct {
	OverallScore         int `json:"overall_score"`
	VulnerabilitiesFound int `json:"vulnerabilities_found"`
	CriticalIssues       int `json:"critical_issues"`
	HighIssues           int `json:"high_issues"`
	MediumIssues         int `json:"medium_issues"`
	LowIssues            int `json:"low_issues"`
}

type AnalysisFinding struct {
	Type           string  `json:"type"`
	Severity       string  `json:"severity"`
	Confidence     float64 `json:"confidence"`
	Description    string  `json:"description"`
	Recommendation string  `json:"recommendation"`
}

type PerformanceImpact struct {
	LatencyMS      int `json:"latency_ms"`
	MemoryUsageMB  int `json:"memory_usage_mb"`
	CPUUtilization int `json:"cpu_utilization"`
}
