package report

import (
	"math"
	"time"
)

// SecurityPostureScore scores a summary from 0 to 100. The result is
// truncated, not rounded.
func SecurityPostureScore(p Policy, s *Summary) int {
	es := s.ExecutiveSummary
	resolutionPenalty := (100 - es.ResolutionRatePercent) * p.ResolutionWeight
	volumePenalty := math.Min(float64(es.TotalThreats)*p.VolumePenaltyPerThreat, p.VolumePenaltyCap)
	coverage := ratio(s.ModelSecurity.ActiveModels, s.ModelSecurity.TotalModels)
	modelPenalty := (1 - coverage) * p.CoverageWeight

	score := math.Max(0, 100-resolutionPenalty-volumePenalty-modelPenalty)
	return int(score)
}

// ThreatTrend labels the threat volume of a window.
func ThreatTrend(p Policy, totalThreats int) string {
	switch {
	case totalThreats > p.TrendIncreasingAbove:
		return "Increasing"
	case totalThreats > p.TrendStableAbove:
		return "Stable"
	default:
		return "Decreasing"
	}
}

// RiskLevel maps a posture score to a risk label.
func RiskLevel(p Policy, score int) string {
	switch {
	case score >= p.RiskLowFrom:
		return "Low"
	case score >= p.RiskMediumFrom:
		return "Medium"
	case score >= p.RiskHighFrom:
		return "High"
	default:
		return "Critical"
	}
}

// BuildExecutive re-shapes a summary for the executive tier.
func BuildExecutive(s *Summary, p Policy, now time.Time) *Executive {
	score := SecurityPostureScore(p, s)

	trending := s.ThreatAnalysis.TopThreats
	if len(trending) > p.TrendingThreats {
		trending = trending[:p.TrendingThreats]
	}

	return &Executive{
		ReportType:     TierExecutive,
		OrganizationID: s.OrganizationID,
		Period:         s.Period,
		KeyMetrics: KeyMetrics{
			SecurityPostureScore: score,
			ThreatTrend:          ThreatTrend(p, s.ExecutiveSummary.TotalThreats),
			ResolutionEfficiency: s.ExecutiveSummary.ResolutionRatePercent,
			ModelCoverage:        round2(ratio(s.ModelSecurity.ActiveModels, s.ModelSecurity.TotalModels) * 100),
		},
		RiskAssessment: RiskAssessment{
			CurrentRiskLevel: RiskLevel(p, score),
			CriticalIssues:   CriticalIssues(p, s),
			TrendingThreats:  trending,
		},
		StrategicRecommendations: StrategicRecommendations(p, s, score),
		ComplianceStatus: ComplianceStatus{
			MonitoringCoverage: "Good",
			IncidentResponse:   "Adequate",
			PolicyCompliance:   "Review Required",
		},
		GeneratedAt: now,
	}
}
