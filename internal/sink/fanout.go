// Package sink fans computed results out to every configured destination:
// the relational store, the event log and the Kafka results topic.
package sink

import (
	"context"
	"errors"

	"github.com/jmerrifield20/omnisec-monitor/internal/model"
)

// AnalysisSink persists deep analysis results.
type AnalysisSink interface {
	StoreAnalysis(ctx context.Context, r *model.AnalysisResult) error
}

// MetricSink persists collected metric snapshots.
type MetricSink interface {
	StorePerformanceMetric(ctx context.Context, m model.PerformanceMetric) error
}

// Analyses writes to every sink in order. One failing sink does not stop the
// rest; all errors are joined.
type Analyses []AnalysisSink

func (f Analyses) StoreAnalysis(ctx context.Context, r *model.AnalysisResult) error {
	var errs []error
	for _, s := range f {
		if err := s.StoreAnalysis(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Metrics writes to every sink in order with the same semantics as Analyses.
type Metrics []MetricSink

func (f Metrics) StorePerformanceMetric(ctx context.Context, m model.PerformanceMetric) error {
	var errs []error
	for _, s := range f {
		if err := s.StorePerformanceMetric(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
