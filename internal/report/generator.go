// Package report composes security reports in three tiers. The summary tier
// joins grouped counts from both stores; the detailed tier appends analysis
// of the raw event log; the executive tier is re-shaped from the summary.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jmerrifield20/omnisec-monitor/internal/analytics"
	"github.com/jmerrifield20/omnisec-monitor/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Relational supplies grouped counts from the relational store.
// *postgres.Store satisfies this interface.
type Relational interface {
	ThreatCounts(ctx context.Context, orgID string, w model.TimeWindow) ([]model.ThreatCountRow, error)
	ModelCounts(ctx context.Context, orgID string) (model.ModelCounts, error)
	UserActivity(ctx context.Context, orgID string, w model.TimeWindow) (model.UserActivity, error)
}

// EventLog supplies counts and raw records from the event-log store.
// *eventlog.Store satisfies this interface.
type EventLog interface {
	CountSecurityEvents(ctx context.Context, orgID string, w model.TimeWindow) (int64, error)
	CountThreatDetections(ctx context.Context, orgID string, w model.TimeWindow) (int64, error)
	FindThreats(ctx context.Context, q model.ThreatQuery) ([]model.ThreatRecord, error)
	FindInteractions(ctx context.Context, q model.InteractionQuery) ([]model.InteractionRecord, error)
}

// Generator builds reports for one organization and window at a time.
type Generator struct {
	relational Relational
	events     EventLog
	policy     Policy
	analytics  analytics.Policy
	now        func() time.Time
	logger     *zap.Logger
}

// NewGenerator creates a Generator with the default policies.
func NewGenerator(relational Relational, events EventLog, logger *zap.Logger) *Generator {
	return &Generator{
		relational: relational,
		events:     events,
		policy:     DefaultPolicy(),
		analytics:  analytics.DefaultPolicy(),
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// SetPolicy overrides the report thresholds.
func (g *Generator) SetPolicy(p Policy) { g.policy = p }

// SetAnalyticsPolicy overrides the scoring policy used by the detailed tier.
func (g *Generator) SetAnalyticsPolicy(p analytics.Policy) { g.analytics = p }

// SetClock replaces the wall clock. Used in tests.
func (g *Generator) SetClock(now func() time.Time) { g.now = now }

// Generate builds the report of the given tier over the last days days.
// Unknown tiers, malformed organization ids and non-positive days return a
// *model.InvalidArgumentError.
func (g *Generator) Generate(ctx context.Context, orgID, tier string, days int) (Report, error) {
	t, err := ParseTier(tier)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateOrganizationID(orgID); err != nil {
		return nil, err
	}
	if err := model.ValidateDays(days); err != nil {
		return nil, err
	}

	now := g.now()
	w := model.LastDays(now, days)

	in, err := g.fetchSummary(ctx, orgID, w)
	if err != nil {
		g.logger.Error("security report generation failed",
			zap.String("organization_id", orgID),
			zap.String("report_type", string(t)),
			zap.Error(err),
		)
		return nil, err
	}
	summary := BuildSummary(in, g.policy, now)

	switch t {
	case TierDetailed:
		din, err := g.fetchDetailed(ctx, orgID, w)
		if err != nil {
			g.logger.Error("security report generation failed",
				zap.String("organization_id", orgID),
				zap.String("report_type", string(t)),
				zap.Error(err),
			)
			return nil, err
		}
		din.Activity = in.Activity
		return BuildDetailed(summary, din, g.analytics), nil
	case TierExecutive:
		return BuildExecutive(summary, g.policy, now), nil
	default:
		return summary, nil
	}
}

// fetchSummary runs the five summary queries concurrently. The first failure
// cancels the rest.
func (g *Generator) fetchSummary(ctx context.Context, orgID string, w model.TimeWindow) (SummaryInput, error) {
	in := SummaryInput{OrganizationID: orgID, Window: w}
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() (err error) {
		if in.ThreatRows, err = g.relational.ThreatCounts(ctx, orgID, w); err != nil {
			return fmt.Errorf("threat counts: %w", err)
		}
		return nil
	})
	eg.Go(func() (err error) {
		if in.Models, err = g.relational.ModelCounts(ctx, orgID); err != nil {
			return fmt.Errorf("model counts: %w", err)
		}
		return nil
	})
	eg.Go(func() (err error) {
		if in.Activity, err = g.relational.UserActivity(ctx, orgID, w); err != nil {
			return fmt.Errorf("user activity: %w", err)
		}
		return nil
	})
	eg.Go(func() (err error) {
		if in.SecurityEvents, err = g.events.CountSecurityEvents(ctx, orgID, w); err != nil {
			return fmt.Errorf("count security events: %w", err)
		}
		return nil
	})
	eg.Go(func() (err error) {
		if in.ThreatDetections, err = g.events.CountThreatDetections(ctx, orgID, w); err != nil {
			return fmt.Errorf("count threat detections: %w", err)
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return SummaryInput{}, err
	}
	return in, nil
}

func (g *Generator) fetchDetailed(ctx context.Context, orgID string, w model.TimeWindow) (DetailedInput, error) {
	var in DetailedInput
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() (err error) {
		in.Threats, err = g.events.FindThreats(ctx, model.ThreatQuery{OrganizationID: orgID, Window: &w})
		if err != nil {
			return fmt.Errorf("find threats: %w", err)
		}
		return nil
	})
	eg.Go(func() (err error) {
		in.Interactions, err = g.events.FindInteractions(ctx, model.InteractionQuery{OrganizationID: orgID, Window: &w})
		if err != nil {
			return fmt.Errorf("find interactions: %w", err)
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return DetailedInput{}, err
	}
	return in, nil
}
