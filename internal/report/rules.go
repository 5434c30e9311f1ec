package report

import "fmt"

// Each rule is a guarded template; a rule may emit several lines. Rules run in
// declaration order and their output is concatenated without deduplication.

type summaryRule func(p Policy, s *Summary) []string

var summaryRules = []summaryRule{
	ruleThreatVariety,
	ruleLowResolutionByType,
	ruleInactiveModels,
	ruleEventVolume,
}

func ruleThreatVariety(p Policy, s *Summary) []string {
	if len(s.ThreatAnalysis.ByType) > p.ThreatVarietyLimit {
		return []string{"High variety of threat types detected - consider implementing comprehensive threat monitoring"}
	}
	return nil
}

func ruleLowResolutionByType(p Policy, s *Summary) []string {
	var out []string
	for _, t := range s.ThreatAnalysis.typesInOrder() {
		if ratio(t.Resolved, t.Total) < p.LowResolutionRatio {
			out = append(out, fmt.Sprintf("Low resolution rate for %s threats - review response procedures", t.ThreatType))
		}
	}
	return out
}

func ruleInactiveModels(p Policy, s *Summary) []string {
	ms := s.ModelSecurity
	if float64(ms.ActiveModels) < float64(ms.TotalModels)*p.ModelActivationRatio {
		return []string{"Consider activating more models or removing inactive ones to improve security posture"}
	}
	return nil
}

func ruleEventVolume(p Policy, s *Summary) []string {
	if s.ExecutiveSummary.SecurityEvents > p.HighEventVolume {
		return []string{"High security event volume - consider implementing automated filtering"}
	}
	return nil
}

func summaryRecommendations(p Policy, s *Summary) []string {
	out := []string{}
	for _, rule := range summaryRules {
		out = append(out, rule(p, s)...)
	}
	return out
}

type issueRule func(p Policy, s *Summary) []string

var criticalIssueRules = []issueRule{
	func(p Policy, s *Summary) []string {
		if s.ExecutiveSummary.ResolutionRatePercent < p.CriticalResolutionPercent {
			return []string{"Low threat resolution rate"}
		}
		return nil
	},
	func(p Policy, s *Summary) []string {
		if s.ExecutiveSummary.TotalThreats > p.CriticalThreatVolume {
			return []string{"High threat volume"}
		}
		return nil
	},
	func(_ Policy, s *Summary) []string {
		var out []string
		for _, t := range s.ThreatAnalysis.TopThreats {
			if _, ok := t.BySeverity["critical"]; ok {
				out = append(out, fmt.Sprintf("Critical %s threats detected", t.ThreatType))
			}
		}
		return out
	},
}

// CriticalIssues lists the issues an executive report escalates.
func CriticalIssues(p Policy, s *Summary) []string {
	out := []string{}
	for _, rule := range criticalIssueRules {
		out = append(out, rule(p, s)...)
	}
	return out
}

type strategicRule func(p Policy, s *Summary, score int) string

var strategicRules = []strategicRule{
	func(p Policy, _ *Summary, score int) string {
		if score < p.StrategicScoreBelow {
			return "Invest in additional security monitoring and response capabilities"
		}
		return ""
	},
	func(p Policy, s *Summary, _ int) string {
		if s.ExecutiveSummary.TotalThreats > p.StrategicThreatVolume {
			return "Consider implementing automated threat response systems"
		}
		return ""
	},
	func(p Policy, s *Summary, _ int) string {
		if s.ModelSecurity.ThreatsPerModel > p.StrategicThreatsPerModel {
			return "Review and strengthen individual model security configurations"
		}
		return ""
	},
	func(Policy, *Summary, int) string { return "Regular security training for development teams" },
	func(Policy, *Summary, int) string { return "Establish quarterly security review meetings" },
}

// StrategicRecommendations returns the executive recommendation list for a
// summary whose posture score is score.
func StrategicRecommendations(p Policy, s *Summary, score int) []string {
	out := []string{}
	for _, rule := range strategicRules {
		if rec := rule(p, s, score); rec != "" {
			out = append(out, rec)
		}
	}
	return out
}
