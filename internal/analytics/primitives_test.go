package analytics_test

import (
	"testing"
	"time"

	"github.com/jmerrifield20/omnisec-monitor/internal/analytics"
	"github.com/jmerrifield20/omnisec-monitor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestEmptyInputsScoreZero(t *testing.T) {
	p := analytics.DefaultPolicy()

	assert.Equal(t, 0.0, p.SeverityScore(nil))
	assert.Equal(t, 0.0, analytics.DetectionRate(nil))
	assert.Equal(t, 0.0, analytics.FalsePositiveRate(nil))
	assert.Equal(t, 0.0, p.SeverityScore([]model.ThreatRecord{}))
}

func TestSeverityScore_mean(t *testing.T) {
	p := analytics.DefaultPolicy()
	threats := []model.ThreatRecord{
		{Severity: model.SeverityCritical},
		{Severity: model.SeverityLow},
		{Severity: "bogus"},
		{},
	}
	// 4 + 1 + 1 + 1
	assert.InDelta(t, 7.0/4.0, p.SeverityScore(threats), 1e-9)
}

func TestDetectionAndFalsePositiveRates(t *testing.T) {
	threats := []model.ThreatRecord{
		{FalsePositive: boolPtr(true)},
		{FalsePositive: boolPtr(false)},
		{FalsePositive: boolPtr(false)},
		{FalsePositive: boolPtr(true)},
	}
	assert.InDelta(t, 0.5, analytics.DetectionRate(threats), 1e-9)
	assert.InDelta(t, 0.5, analytics.FalsePositiveRate(threats), 1e-9)
}

func TestRates_missingFlagIsNotFalsePositive(t *testing.T) {
	threats := []model.ThreatRecord{
		{FalsePositive: boolPtr(true)},
		{}, // flag never set
	}
	assert.InDelta(t, 0.5, analytics.DetectionRate(threats), 1e-9, "missing flag counts as detected")
	assert.InDelta(t, 0.5, analytics.FalsePositiveRate(threats), 1e-9, "missing flag is not a false positive")
}

func TestDistributionBy(t *testing.T) {
	rows := []map[string]string{{"t": "a"}, {"t": "a"}, {"t": "b"}}
	dist := analytics.DistributionBy(rows, func(r map[string]string) string { return r["t"] })
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, dist)
}

func TestDistributionBy_missingKeyIsUnknown(t *testing.T) {
	threats := []model.ThreatRecord{{ThreatType: "prompt_injection"}, {}, {}}
	dist := analytics.DistributionBy(threats, analytics.ThreatType)
	assert.Equal(t, map[string]int{"prompt_injection": 1, "unknown": 2}, dist)
}

func at(hour int) time.Time {
	return time.Date(2026, 3, 1, hour, 15, 0, 0, time.UTC)
}

func TestTemporalByHour(t *testing.T) {
	threats := []model.ThreatRecord{
		{Timestamp: at(9)},
		{Timestamp: at(3)},
		{Timestamp: at(3)},
		{Timestamp: at(14)},
		{Timestamp: at(22)},
		{Timestamp: at(14)},
		{}, // skipped
	}
	tp := analytics.TemporalByHour(threats, analytics.ThreatTime)

	assert.Equal(t, map[int]int{9: 1, 3: 2, 14: 2, 22: 1}, tp.HourlyDistribution)
	require.Len(t, tp.PeakHours, 3)
	// Ties keep first-seen order: 3 before 14, then 9 before 22.
	assert.Equal(t, []analytics.HourCount{{Hour: 3, Count: 2}, {Hour: 14, Count: 2}, {Hour: 9, Count: 1}}, tp.PeakHours)
}

func TestTemporalByHour_empty(t *testing.T) {
	tp := analytics.TemporalByHour([]model.ThreatRecord{{}}, analytics.ThreatTime)
	assert.Empty(t, tp.HourlyDistribution)
	assert.Empty(t, tp.PeakHours)
}

func TestTrends_weightsResolutionByCount(t *testing.T) {
	trends := analytics.Trends([]model.ThreatTrendRow{
		{ThreatType: "model_stealing", Severity: model.SeverityHigh, Count: 3, ResolutionRate: 1},
		{ThreatType: "model_stealing", Severity: model.SeverityLow, Count: 1, ResolutionRate: 0},
		{ThreatType: "data_extraction", Severity: model.SeverityLow, Count: 2, ResolutionRate: 0.5},
	})

	require.Contains(t, trends, "model_stealing")
	assert.Equal(t, 4, trends["model_stealing"].Count)
	assert.InDelta(t, 0.75, trends["model_stealing"].ResolutionRate, 1e-9)
	assert.InDelta(t, 0.5, trends["data_extraction"].ResolutionRate, 1e-9)
}

func TestRecommendations_declarationOrder(t *testing.T) {
	p := analytics.DefaultPolicy()
	threats := make([]model.ThreatRecord, 0, 12)
	threats = append(threats,
		model.ThreatRecord{ThreatType: "model_poisoning"},
		model.ThreatRecord{ThreatType: "adversarial_attack"},
	)
	for i := 0; i < 10; i++ {
		threats = append(threats, model.ThreatRecord{ThreatType: "noise"})
	}

	assert.Equal(t, []string{
		"Implement adversarial training to improve model robustness",
		"Implement model integrity verification and anomaly detection",
		"Consider implementing automated threat response mechanisms",
	}, p.Recommendations(threats))
}

func TestRecommendations_noneFire(t *testing.T) {
	recs := analytics.DefaultPolicy().Recommendations(nil)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}
