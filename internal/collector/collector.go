// Package collector samples host resources and per-organization security
// counters, stores every sample best-effort, and runs the periodic sampler
// that feeds the realtime channel.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/jmerrifield20/omnisec-monitor/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ServiceName tags every stored performance metric.
const ServiceName = "monitoring"

// Metric types stored with each snapshot.
const (
	TypeSystem   = "system"
	TypeSecurity = "security"
)

// Relational supplies security counters from the relational store.
type Relational interface {
	ThreatStatus(ctx context.Context, orgID string) (model.ThreatStatus, error)
	ModelCounts(ctx context.Context, orgID string) (model.ModelCounts, error)
	AuditLogCount(ctx context.Context, orgID string, since time.Time) (int64, error)
}

// EventLog supplies security counters from the event-log store.
type EventLog interface {
	CountSecurityEvents(ctx context.Context, orgID string, w model.TimeWindow) (int64, error)
	CountThreatDetections(ctx context.Context, orgID string, w model.TimeWindow) (int64, error)
}

// MetricSink persists collected snapshots. Failures are logged and dropped.
type MetricSink interface {
	StorePerformanceMetric(ctx context.Context, m model.PerformanceMetric) error
}

// Snapshots caches the latest sample of each kind.
type Snapshots interface {
	Put(ctx context.Context, name string, v any) error
	Get(ctx context.Context, name string, dst any) (bool, error)
}

// Collector gathers system and security metrics on demand.
type Collector struct {
	host       Host
	relational Relational
	events     EventLog
	sink       MetricSink
	snapshots  Snapshots
	now        func() time.Time
	logger     *zap.Logger
}

// New creates a Collector.
func New(host Host, relational Relational, events EventLog, logger *zap.Logger) *Collector {
	return &Collector{
		host:       host,
		relational: relational,
		events:     events,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// SetSink configures where collected samples are stored.
func (c *Collector) SetSink(s MetricSink) { c.sink = s }

// SetSnapshots configures the latest-sample cache read by SystemMetrics.
func (c *Collector) SetSnapshots(s Snapshots) { c.snapshots = s }

// SetClock replaces the wall clock. Used in tests.
func (c *Collector) SetClock(now func() time.Time) { c.now = now }

// CollectSystem reads the host counters and stores the sample.
func (c *Collector) CollectSystem(ctx context.Context) (*SystemMetrics, error) {
	stats, err := c.host.Read(ctx)
	if err != nil {
		collectionFailures.WithLabelValues(TypeSystem).Inc()
		c.logger.Error("system metrics collection failed", zap.Error(err))
		return nil, err
	}
	m := systemMetrics(stats, c.now())
	observeSystem(m)
	c.store(ctx, TypeSystem, m)
	return m, nil
}

// SystemMetrics returns the sampler's cached sample when there is one and
// collects a fresh one otherwise.
func (c *Collector) SystemMetrics(ctx context.Context) (*SystemMetrics, error) {
	if c.snapshots != nil {
		var cached SystemMetrics
		ok, err := c.snapshots.Get(ctx, TypeSystem, &cached)
		if err != nil {
			c.logger.Warn("read system snapshot", zap.Error(err))
		}
		if ok {
			return &cached, nil
		}
	}
	return c.CollectSystem(ctx)
}

// CollectSecurity counts the organization's threats, models and recent
// activity and stores the sample. Event-log counts start at UTC midnight;
// the audit-log count covers the last 24 hours.
func (c *Collector) CollectSecurity(ctx context.Context, orgID string) (*SecurityMetrics, error) {
	if err := model.ValidateOrganizationID(orgID); err != nil {
		return nil, err
	}

	now := c.now()
	today := model.TimeWindow{Start: now.Truncate(24 * time.Hour), End: now.Add(time.Nanosecond)}
	m := &SecurityMetrics{Timestamp: now, OrganizationID: orgID}

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		st, err := c.relational.ThreatStatus(gctx, orgID)
		if err != nil {
			return fmt.Errorf("threat status: %w", err)
		}
		m.Threats.Total, m.Threats.Active = st.Total, st.Active
		return nil
	})
	eg.Go(func() (err error) {
		if m.Models, err = c.relational.ModelCounts(gctx, orgID); err != nil {
			return fmt.Errorf("model counts: %w", err)
		}
		return nil
	})
	eg.Go(func() (err error) {
		if m.Activity.AuditLogs24h, err = c.relational.AuditLogCount(gctx, orgID, now.Add(-24*time.Hour)); err != nil {
			return fmt.Errorf("audit log count: %w", err)
		}
		return nil
	})
	eg.Go(func() (err error) {
		if m.Activity.SecurityEvents24h, err = c.events.CountSecurityEvents(gctx, orgID, today); err != nil {
			return fmt.Errorf("count security events: %w", err)
		}
		return nil
	})
	eg.Go(func() (err error) {
		if m.Threats.Detections24h, err = c.events.CountThreatDetections(gctx, orgID, today); err != nil {
			return fmt.Errorf("count threat detections: %w", err)
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		collectionFailures.WithLabelValues(TypeSecurity).Inc()
		c.logger.Error("security metrics collection failed", zap.String("organization_id", orgID), zap.Error(err))
		return nil, err
	}

	c.store(ctx, TypeSecurity, m)
	return m, nil
}

func (c *Collector) store(ctx context.Context, kind string, data any) {
	if c.sink == nil {
		return
	}
	err := c.sink.StorePerformanceMetric(ctx, model.PerformanceMetric{
		Timestamp:  c.now(),
		MetricType: kind,
		Data:       data,
		Service:    ServiceName,
	})
	if err != nil {
		c.logger.Warn("failed to store performance metric", zap.String("metric_type", kind), zap.Error(err))
	}
}
