package analytics

import (
	"time"

	"github.com/jmerrifield20/omnisec-monitor/internal/model"
)

// Policy collects every weight and threshold the analyzer applies. Changing
// scoring policy means changing a Policy value, not the aggregation code.
type Policy struct {
	// SeverityWeights feed the mean severity score; unknown levels use
	// DefaultSeverityWeight.
	SeverityWeights       map[model.Severity]float64
	DefaultSeverityWeight float64

	// Model security score: 100 - PerThreatPenalty*n - sum(severity penalty)
	// - HighUsagePenalty when interactions exceed HighUsageInteractions.
	BaseSecurityScore      int
	PerThreatPenalty       int
	SeverityPenalties      map[model.Severity]int
	DefaultSeverityPenalty int
	HighUsageInteractions  int
	HighUsagePenalty       int

	ModelTypeRisks   map[model.ModelType][]string
	UnknownTypeRisks []string

	RecentAttackWindow time.Duration

	// Recommendation thresholds.
	AutomatedResponseThreats int
	HighActivityThreats      int
}

// DefaultPolicy returns the production scoring policy.
func DefaultPolicy() Policy {
	return Policy{
		SeverityWeights: map[model.Severity]float64{
			model.SeverityCritical: 4,
			model.SeverityHigh:     3,
			model.SeverityMedium:   2,
			model.SeverityLow:      1,
		},
		DefaultSeverityWeight: 1,

		BaseSecurityScore: 100,
		PerThreatPenalty:  5,
		SeverityPenalties: map[model.Severity]int{
			model.SeverityCritical: 20,
			model.SeverityHigh:     15,
			model.SeverityMedium:   10,
			model.SeverityLow:      5,
		},
		DefaultSeverityPenalty: 5,
		HighUsageInteractions:  1000,
		HighUsagePenalty:       10,

		ModelTypeRisks: map[model.ModelType][]string{
			model.ModelTypeTensorFlow:  {"adversarial_attacks", "model_extraction"},
			model.ModelTypePyTorch:     {"gradient_attacks", "inference_attacks"},
			model.ModelTypeONNX:        {"format_vulnerabilities", "serialization_attacks"},
			model.ModelTypeHuggingFace: {"prompt_injection", "data_extraction"},
		},
		UnknownTypeRisks: []string{"unknown_risks"},

		RecentAttackWindow: 7 * 24 * time.Hour,

		AutomatedResponseThreats: 10,
		HighActivityThreats:      5,
	}
}

func (p Policy) severityWeight(s model.Severity) float64 {
	if w, ok := p.SeverityWeights[s]; ok {
		return w
	}
	return p.DefaultSeverityWeight
}

func (p Policy) severityPenalty(s model.Severity) int {
	if v, ok := p.SeverityPenalties[s]; ok {
		return v
	}
	return p.DefaultSeverityPenalty
}

// TypeRisks returns the known risk categories for a model type.
func (p Policy) TypeRisks(t model.ModelType) []string {
	if risks, ok := p.ModelTypeRisks[t]; ok {
		return append([]string(nil), risks...)
	}
	return append([]string(nil), p.UnknownTypeRisks...)
}
