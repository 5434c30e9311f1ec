package report

// Policy holds the report thresholds and posture score weights.
type Policy struct {
	TopThreats      int
	TrendingThreats int

	// Summary recommendations.
	ThreatVarietyLimit   int
	LowResolutionRatio   float64
	ModelActivationRatio float64
	HighEventVolume      int64

	// Posture score: 100 - (100-rr)*ResolutionWeight
	// - min(total*VolumePenaltyPerThreat, VolumePenaltyCap)
	// - (1-coverage)*CoverageWeight.
	ResolutionWeight       float64
	VolumePenaltyPerThreat float64
	VolumePenaltyCap       float64
	CoverageWeight         float64

	TrendIncreasingAbove int
	TrendStableAbove     int

	RiskLowFrom    int
	RiskMediumFrom int
	RiskHighFrom   int

	CriticalResolutionPercent float64
	CriticalThreatVolume      int

	StrategicScoreBelow      int
	StrategicThreatVolume    int
	StrategicThreatsPerModel float64
}

// DefaultPolicy returns the production report policy.
func DefaultPolicy() Policy {
	return Policy{
		TopThreats:      5,
		TrendingThreats: 3,

		ThreatVarietyLimit:   5,
		LowResolutionRatio:   0.5,
		ModelActivationRatio: 0.8,
		HighEventVolume:      1000,

		ResolutionWeight:       0.5,
		VolumePenaltyPerThreat: 2,
		VolumePenaltyCap:       30,
		CoverageWeight:         20,

		TrendIncreasingAbove: 50,
		TrendStableAbove:     20,

		RiskLowFrom:    80,
		RiskMediumFrom: 60,
		RiskHighFrom:   40,

		CriticalResolutionPercent: 50,
		CriticalThreatVolume:      100,

		StrategicScoreBelow:      70,
		StrategicThreatVolume:    50,
		StrategicThreatsPerModel: 5,
	}
}
