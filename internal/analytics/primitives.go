package analytics

import (
	"sort"
	"time"

	"github.com/jmerrifield20/omnisec-monitor/internal/model"
)

// unknownKey is the distribution bucket for records missing the grouping key.
const unknownKey = "unknown"

// SeverityScore returns the mean severity weight of threats, or 0 for none.
func (p Policy) SeverityScore(threats []model.ThreatRecord) float64 {
	if len(threats) == 0 {
		return 0
	}
	var total float64
	for _, t := range threats {
		total += p.severityWeight(t.Severity)
	}
	return total / float64(len(threats))
}

// DetectionRate is the fraction of threats not flagged as false positives.
// A record without the flag counts as a detection.
func DetectionRate(threats []model.ThreatRecord) float64 {
	if len(threats) == 0 {
		return 0
	}
	detected := 0
	for _, t := range threats {
		if !t.IsFalsePositive() {
			detected++
		}
	}
	return float64(detected) / float64(len(threats))
}

// FalsePositiveRate is the fraction of threats flagged as false positives.
// A record without the flag does not count.
func FalsePositiveRate(threats []model.ThreatRecord) float64 {
	if len(threats) == 0 {
		return 0
	}
	fp := 0
	for _, t := range threats {
		if t.IsFalsePositive() {
			fp++
		}
	}
	return float64(fp) / float64(len(threats))
}

// DistributionBy counts items per key. Items whose key is empty are counted
// under "unknown".
func DistributionBy[T any](items []T, key func(T) string) map[string]int {
	dist := make(map[string]int)
	for _, it := range items {
		k := key(it)
		if k == "" {
			k = unknownKey
		}
		dist[k]++
	}
	return dist
}

// ThreatType is the DistributionBy key for threat records.
func ThreatType(t model.ThreatRecord) string { return t.ThreatType }

// ThreatSeverity is the DistributionBy key for threat severity.
func ThreatSeverity(t model.ThreatRecord) string { return string(t.Severity) }

// HourCount is one bucket of an hour-of-day histogram.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// TemporalPatterns is an hour-of-day histogram with its busiest hours.
type TemporalPatterns struct {
	HourlyDistribution map[int]int `json:"hourly_distribution"`
	PeakHours          []HourCount `json:"peak_hours"`
}

// peakHourCount is how many buckets PeakHours keeps.
const peakHourCount = 3

// TemporalByHour buckets items by the UTC hour of their timestamp. Items with
// a zero timestamp are skipped. PeakHours holds the top three buckets by
// count; equal counts keep the order in which their hour was first seen.
func TemporalByHour[T any](items []T, ts func(T) time.Time) TemporalPatterns {
	hourly := make(map[int]int)
	var order []int
	for _, it := range items {
		t := ts(it)
		if t.IsZero() {
			continue
		}
		h := t.UTC().Hour()
		if _, seen := hourly[h]; !seen {
			order = append(order, h)
		}
		hourly[h]++
	}

	peaks := make([]HourCount, 0, len(order))
	for _, h := range order {
		peaks = append(peaks, HourCount{Hour: h, Count: hourly[h]})
	}
	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].Count > peaks[j].Count })
	if len(peaks) > peakHourCount {
		peaks = peaks[:peakHourCount]
	}

	return TemporalPatterns{HourlyDistribution: hourly, PeakHours: peaks}
}

// ThreatTime is the TemporalByHour accessor for threat records.
func ThreatTime(t model.ThreatRecord) time.Time { return t.Timestamp }

// InteractionTime is the TemporalByHour accessor for interaction records.
func InteractionTime(i model.InteractionRecord) time.Time { return i.Timestamp }

// uniqueCount returns the number of distinct keys, counting empty as "unknown".
func uniqueCount[T any](items []T, key func(T) string) int {
	return len(DistributionBy(items, key))
}
