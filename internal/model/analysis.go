package model

import "time"

// AnalysisResult is the outcome of a deep model analysis run. It is written
// best-effort to the analysis sinks after it has been returned to the caller.
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

// SecurityAssessment is the issue tally of an analysis run.
type SecurityAssessment struct {
	OverallScore         int `json:"overall_score"`
	VulnerabilitiesFound int `json:"vulnerabilities_found"`
	CriticalIssues       int `json:"critical_issues"`
	HighIssues           int `json:"high_issues"`
	MediumIssues         int `json:"medium_issues"`
	LowIssues            int `json:"low_issues"`
}

// AnalysisFinding is one weakness reported by an analysis run.
type AnalysisFinding struct {
	Type           string   `json:"type"`
	Severity       Severity `json:"severity"`
	Confidence     float64  `json:"confidence"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}

// PerformanceImpact is the measured overhead of the analysed model.
type PerformanceImpact struct {
	LatencyMS      int `json:"latency_ms"`
	MemoryUsageMB  int `json:"memory_usage_mb"`
	CPUUtilization int `json:"cpu_utilization"`
}

// PerformanceMetric is a collected snapshot stored in performance_metrics.
type PerformanceMetric struct {
	Timestamp  time.Time `json:"timestamp"   bson:"timestamp"`
	MetricType string    `json:"metric_type" bson:"metric_type"`
	Data       any       `json:"data"        bson:"data"`
	Service    string    `json:"service"     bson:"service"`
}
