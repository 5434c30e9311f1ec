package analytics

import (
	"fmt"

	"github.com/jmerrifield20/omnisec-monitor/internal/model"
)

// threatRule inspects a threat window and returns a recommendation, or ""
// when it does not apply.
type threatRule func(p Policy, threats []model.ThreatRecord) string

// threatRules run in declaration order; every rule that fires contributes one
// recommendation.
var threatRules = []threatRule{
	ruleThreatType("adversarial_attack", "Implement adversarial training to improve model robustness"),
	ruleThreatType("data_extraction", "Apply differential privacy techniques to protect training data"),
	ruleThreatType("model_poisoning", "Implement model integrity verification and anomaly detection"),
	ruleThreatVolume,
}

func ruleThreatType(threatType, advice string) threatRule {
	return func(_ Policy, threats []model.ThreatRecord) string {
		for _, t := range threats {
			if t.ThreatType == threatType {
				return advice
			}
		}
		return ""
	}
}

func ruleThreatVolume(p Policy, threats []model.ThreatRecord) string {
	if len(threats) > p.AutomatedResponseThreats {
		return "Consider implementing automated threat response mechanisms"
	}
	return ""
}

// Recommendations evaluates the threat rules against a window of threats.
func (p Policy) Recommendations(threats []model.ThreatRecord) []string {
	recs := []string{}
	for _, rule := range threatRules {
		if r := rule(p, threats); r != "" {
			recs = append(recs, r)
		}
	}
	return recs
}

// modelRule inspects one model and its threats.
type modelRule func(p Policy, m model.ModelRecord, threats []model.ThreatRecord) string

var modelRules = []modelRule{
	ruleModelActivity,
	ruleLanguageModelInput,
	ruleModelCritical,
}

func ruleModelActivity(p Policy, m model.ModelRecord, threats []model.ThreatRecord) string {
	if len(threats) > p.HighActivityThreats {
		return fmt.Sprintf("Model %s shows high threat activity - consider additional monitoring", m.Name)
	}
	return ""
}

func ruleLanguageModelInput(_ Policy, m model.ModelRecord, _ []model.ThreatRecord) string {
	if m.Type == model.ModelTypeHuggingFace || m.Type == model.ModelTypePyTorch {
		return "Implement input validation and sanitization for language models"
	}
	return ""
}

func ruleModelCritical(_ Policy, _ model.ModelRecord, threats []model.ThreatRecord) string {
	for _, t := range threats {
		if t.Severity == model.SeverityCritical {
			return "Address critical vulnerabilities immediately"
		}
	}
	return ""
}

// ModelRecommendations evaluates the per-model rules.
func (p Policy) ModelRecommendations(m model.ModelRecord, threats []model.ThreatRecord) []string {
	recs := []string{}
	for _, rule := range modelRules {
		if r := rule(p, m, threats); r != "" {
			recs = append(recs, r)
		}
	}
	return recs
}
