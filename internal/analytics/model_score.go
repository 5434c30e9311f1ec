package analytics

import (
	"time"

	"github.com/jmerrifield20/omnisec-monitor/internal/model"
)

// ModelSecurityScore computes the 0-100 security score of a single model.
// Every threat costs PerThreatPenalty plus its severity penalty, heavy usage
// costs HighUsagePenalty, and the result never drops below zero.
func (p Policy) ModelSecurityScore(threats []model.ThreatRecord, interactions []model.InteractionRecord) int {
	score := p.BaseSecurityScore - p.PerThreatPenalty*len(threats)
	for _, t := range threats {
		score -= p.severityPenalty(t.Severity)
	}
	if len(interactions) > p.HighUsageInteractions {
		score -= p.HighUsagePenalty
	}
	if score < 0 {
		return 0
	}
	return score
}

// VulnerabilityAssessment summarises the exposure of one model.
type VulnerabilityAssessment struct {
	ModelTypeRisks []string `json:"model_type_risks"`
	ThreatExposure int      `json:"threat_exposure"`
	CriticalCount  int      `json:"critical_vulnerabilities"`
	RecentAttacks  int      `json:"recent_attacks"`
}

// AssessVulnerabilities rolls up a model's threats against its type's known
// risks. RecentAttacks counts threats within RecentAttackWindow of now.
func (p Policy) AssessVulnerabilities(m model.ModelRecord, threats []model.ThreatRecord, now time.Time) VulnerabilityAssessment {
	va := VulnerabilityAssessment{
		ModelTypeRisks: p.TypeRisks(m.Type),
		ThreatExposure: len(threats),
	}
	for _, t := range threats {
		if t.Severity == model.SeverityCritical {
			va.CriticalCount++
		}
		if within(t.Timestamp, now, p.RecentAttackWindow) {
			va.RecentAttacks++
		}
	}
	return va
}

// ThreatExposure counts threats in trailing windows.
type ThreatExposure struct {
	Total   int `json:"total"`
	Last24h int `json:"last_24h"`
	Last7d  int `json:"last_7d"`
	Last30d int `json:"last_30d"`
}

const day = 24 * time.Hour

// ThreatExposureOf counts threats whose age at now is within 24h, 7d and 30d.
// A threat without a timestamp is infinitely old: it counts towards Total only.
func ThreatExposureOf(threats []model.ThreatRecord, now time.Time) ThreatExposure {
	exp := ThreatExposure{Total: len(threats)}
	for _, t := range threats {
		if within(t.Timestamp, now, day) {
			exp.Last24h++
		}
		if within(t.Timestamp, now, 7*day) {
			exp.Last7d++
		}
		if within(t.Timestamp, now, 30*day) {
			exp.Last30d++
		}
	}
	return exp
}

// within reports whether ts is at most window older than now. Future
// timestamps are within every window; zero timestamps are within none.
func within(ts, now time.Time, window time.Duration) bool {
	if ts.IsZero() {
		return false
	}
	return now.Sub(ts) <= window
}

// InteractionPatterns summarises how a model is being used.
type InteractionPatterns struct {
	TotalInteractions int            `json:"total_interactions"`
	UniqueUsers       int            `json:"unique_users"`
	InteractionTypes  map[string]int `json:"interaction_types"`
	AvgDurationMS     float64        `json:"avg_duration_ms"`
}

// InteractionPatternsOf returns nil for an empty interaction set.
func InteractionPatternsOf(interactions []model.InteractionRecord) *InteractionPatterns {
	if len(interactions) == 0 {
		return nil
	}
	users := make(map[string]struct{})
	var total float64
	for _, i := range interactions {
		if i.UserID != "" {
			users[i.UserID] = struct{}{}
		}
		total += i.DurationMS
	}
	return &InteractionPatterns{
		TotalInteractions: len(interactions),
		UniqueUsers:       len(users),
		InteractionTypes: DistributionBy(interactions, func(i model.InteractionRecord) string {
			return i.Type
		}),
		AvgDurationMS: total / float64(len(interactions)),
	}
}

// ModelVulnerability is the per-model rollup inside ThreatAnalytics.
type ModelVulnerability struct {
	ThreatCount       int     `json:"threat_count"`
	UniqueThreatTypes int     `json:"unique_threat_types"`
	AvgSeverity       float64 `json:"avg_severity"`
}

// ModelVulnerabilities groups threats by model id; threats without a model
// id are ignored.
func (p Policy) ModelVulnerabilities(threats []model.ThreatRecord) map[string]ModelVulnerability {
	byModel := make(map[string][]model.ThreatRecord)
	for _, t := range threats {
		if t.ModelID == "" {
			continue
		}
		byModel[t.ModelID] = append(byModel[t.ModelID], t)
	}

	out := make(map[string]ModelVulnerability, len(byModel))
	for id, list := range byModel {
		out[id] = ModelVulnerability{
			ThreatCount:       len(list),
			UniqueThreatTypes: uniqueCount(list, ThreatType),
			AvgSeverity:       p.SeverityScore(list),
		}
	}
	return out
}
