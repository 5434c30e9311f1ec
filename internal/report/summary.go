package report

import (
	"math"
	"sort"
	"time"

	"github.com/jmerrifield20/omnisec-monitor/internal/model"
)

// SummaryInput is everything the summary tier joins for one window.
type SummaryInput struct {
	OrganizationID   string
	Window           model.TimeWindow
	ThreatRows       []model.ThreatCountRow
	Models           model.ModelCounts
	Activity         model.UserActivity
	SecurityEvents   int64
	ThreatDetections int64
}

// BuildSummary composes the summary tier from already-fetched rows.
func BuildSummary(in SummaryInput, p Policy, now time.Time) *Summary {
	analysis := groupByType(in.ThreatRows)
	analysis.TopThreats = topThreats(analysis, p.TopThreats)

	var total, resolved int
	for _, row := range in.ThreatRows {
		total += row.Count
		resolved += row.Resolved
	}

	s := &Summary{
		ReportType:     TierSummary,
		OrganizationID: in.OrganizationID,
		Period: Period{
			StartDate: in.Window.Start,
			EndDate:   in.Window.End,
			Days:      in.Window.Days(),
		},
		ExecutiveSummary: ExecutiveSummary{
			TotalThreats:          total,
			ResolvedThreats:       resolved,
			ResolutionRatePercent: round2(ratio(resolved, total) * 100),
			SecurityEvents:        in.SecurityEvents,
			ThreatDetections:      in.ThreatDetections,
			ActiveModels:          in.Models.Active,
			ActiveUsers:           in.Activity.ActiveUsers,
		},
		ThreatAnalysis: analysis,
		ModelSecurity: ModelSecurity{
			TotalModels:     in.Models.Total,
			ActiveModels:    in.Models.Active,
			ThreatsPerModel: round2(ratio(total, in.Models.Active)),
		},
		GeneratedAt: now,
	}
	s.Recommendations = summaryRecommendations(p, s)
	return s
}

func groupByType(rows []model.ThreatCountRow) ThreatAnalysis {
	a := ThreatAnalysis{ByType: make(map[string]*TypeSummary)}
	for _, row := range rows {
		ts, ok := a.ByType[row.ThreatType]
		if !ok {
			ts = &TypeSummary{BySeverity: make(map[model.Severity]int)}
			a.ByType[row.ThreatType] = ts
			a.order = append(a.order, row.ThreatType)
		}
		ts.Total += row.Count
		ts.Resolved += row.Resolved
		ts.BySeverity[row.Severity] += row.Count
	}
	return a
}

// topThreats ranks by total; equal totals keep first-seen order.
func topThreats(a ThreatAnalysis, n int) []TopThreat {
	out := a.typesInOrder()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// typesInOrder returns the by_type entries in first-seen order.
func (a ThreatAnalysis) typesInOrder() []TopThreat {
	out := make([]TopThreat, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, TopThreat{ThreatType: name, TypeSummary: *a.ByType[name]})
	}
	return out
}

func ratio(num, den int) float64 {
	return float64(num) / float64(max(den, 1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
