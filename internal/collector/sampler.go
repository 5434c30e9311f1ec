package collector

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Broadcaster delivers a sample to realtime subscribers of a topic.
type Broadcaster interface {
	Publish(ctx context.Context, topic string, v any) error
}

// SamplerConfig holds sampler configuration.
type SamplerConfig struct {
	Interval      time.Duration
	Organizations []string
	// Concurrency bounds parallel security collections per tick.
	Concurrency int
}

// SecurityTopic is the realtime topic for one organization's security samples.
func SecurityTopic(orgID string) string { return TypeSecurity + ":" + orgID }

// Sampler collects on a fixed interval, caches the latest sample and
// broadcasts it.
type Sampler struct {
	collector   *Collector
	snapshots   Snapshots
	broadcaster Broadcaster
	cfg         SamplerConfig
	logger      *zap.Logger
}

// NewSampler creates a Sampler. snapshots and broadcaster may be nil.
func NewSampler(c *Collector, snapshots Snapshots, broadcaster Broadcaster, cfg SamplerConfig, logger *zap.Logger) *Sampler {
	if cfg.Interval == 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 4
	}
	return &Sampler{
		collector:   c,
		snapshots:   snapshots,
		broadcaster: broadcaster,
		cfg:         cfg,
		logger:      logger,
	}
}

// Start runs the sampling loop until quit is signalled.
func (s *Sampler) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Interval*9/10)
			s.SampleOnce(ctx)
			cancel()
		case <-quit:
			return
		}
	}
}

// SampleOnce collects system metrics and the security metrics of every
// configured organization.
func (s *Sampler) SampleOnce(ctx context.Context) {
	if m, err := s.collector.CollectSystem(ctx); err == nil {
		s.emit(ctx, TypeSystem, m)
	}

	var eg errgroup.Group
	eg.SetLimit(s.cfg.Concurrency)
	for _, org := range s.cfg.Organizations {
		eg.Go(func() error {
			m, err := s.collector.CollectSecurity(ctx, org)
			if err != nil {
				return nil
			}
			observeSecurity(m)
			s.emit(ctx, SecurityTopic(org), m)
			return nil
		})
	}
	_ = eg.Wait()
}

func (s *Sampler) emit(ctx context.Context, topic string, v any) {
	if s.snapshots != nil {
		if err := s.snapshots.Put(ctx, topic, v); err != nil {
			s.logger.Warn("sampler: cache snapshot", zap.String("topic", topic), zap.Error(err))
		}
	}
	if s.broadcaster != nil {
		if err := s.broadcaster.Publish(ctx, topic, v); err != nil {
			s.logger.Warn("sampler: broadcast", zap.String("topic", topic), zap.Error(err))
		}
	}
}
