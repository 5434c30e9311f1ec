package report

import (
	"sort"

	"github.com/jmerrifield20/omnisec-monitor/internal/analytics"
	"github.com/jmerrifield20/omnisec-monitor/internal/model"
)

const topUsers = 5

// DetailedInput is the raw event data behind the detailed analysis sections.
type DetailedInput struct {
	Threats      []model.ThreatRecord
	Interactions []model.InteractionRecord
	Activity     model.UserActivity
}

// BuildDetailed extends a summary with the detailed analysis sections. The
// summary fields are copied unchanged apart from report_type.
func BuildDetailed(s *Summary, in DetailedInput, ap analytics.Policy) *Detailed {
	d := &Detailed{Summary: *s}
	d.ReportType = TierDetailed
	d.DetailedAnalysis = DetailedAnalysis{
		TemporalPatterns:  temporalAnalysis(in),
		ModelInteractions: modelInteractions(in),
		UserBehavior:      userBehavior(in),
		AttackVectors:     attackVectors(in.Threats, ap),
	}
	return d
}

func temporalAnalysis(in DetailedInput) TemporalAnalysis {
	daily := make(map[string]int)
	for _, t := range in.Threats {
		if t.Timestamp.IsZero() {
			continue
		}
		daily[t.Timestamp.UTC().Format("2006-01-02")]++
	}
	return TemporalAnalysis{
		ThreatsByHour:      analytics.TemporalByHour(in.Threats, analytics.ThreatTime),
		InteractionsByHour: analytics.TemporalByHour(in.Interactions, analytics.InteractionTime),
		DailyThreats:       daily,
	}
}

func modelInteractions(in DetailedInput) map[string]ModelUsage {
	byModel := make(map[string][]model.InteractionRecord)
	for _, i := range in.Interactions {
		if i.ModelID == "" {
			continue
		}
		byModel[i.ModelID] = append(byModel[i.ModelID], i)
	}

	out := make(map[string]ModelUsage, len(byModel))
	for id, records := range byModel {
		ip := analytics.InteractionPatternsOf(records)
		out[id] = ModelUsage{
			Interactions:  ip.TotalInteractions,
			UniqueUsers:   ip.UniqueUsers,
			AvgDurationMS: ip.AvgDurationMS,
		}
	}
	for _, t := range in.Threats {
		if t.ModelID == "" {
			continue
		}
		u := out[t.ModelID]
		u.Threats++
		out[t.ModelID] = u
	}
	return out
}

func userBehavior(in DetailedInput) UserBehavior {
	counts := make(map[string]int)
	var order []string
	for _, i := range in.Interactions {
		if i.UserID == "" {
			continue
		}
		if _, ok := counts[i.UserID]; !ok {
			order = append(order, i.UserID)
		}
		counts[i.UserID]++
	}

	top := make([]UserCount, 0, len(order))
	for _, id := range order {
		top = append(top, UserCount{UserID: id, Interactions: counts[id]})
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Interactions > top[j].Interactions })
	if len(top) > topUsers {
		top = top[:topUsers]
	}

	return UserBehavior{
		ActiveUsers:      in.Activity.ActiveUsers,
		TotalActions:     in.Activity.TotalActions,
		ActionsPerUser:   round2(ratio(in.Activity.TotalActions, in.Activity.ActiveUsers)),
		InteractingUsers: len(order),
		TopUsers:         top,
	}
}

func attackVectors(threats []model.ThreatRecord, ap analytics.Policy) AttackVectors {
	targeted := make(map[string]struct{})
	for _, t := range threats {
		if t.ModelID != "" {
			targeted[t.ModelID] = struct{}{}
		}
	}
	return AttackVectors{
		ByType:            analytics.DistributionBy(threats, analytics.ThreatType),
		BySeverity:        analytics.DistributionBy(threats, analytics.ThreatSeverity),
		AvgSeverityScore:  ap.SeverityScore(threats),
		FalsePositiveRate: analytics.FalsePositiveRate(threats),
		TargetedModels:    len(targeted),
	}
}
