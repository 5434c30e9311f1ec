package health

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dependency states.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
	StatusUnknown  = "unknown"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// Pinger is a backing store that can report its reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(dependency string, success bool)

// Report is the aggregated state served by GET /health.
type Report struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
	CheckedAt    time.Time         `json:"checked_at"`
}

// Checker periodically pings the service's backing stores. A dependency is
// degraded after FailThreshold consecutive failures and healthy again after
// one success.
type Checker struct {
	deps       map[string]Pinger
	failCounts map[string]int
	status     map[string]string
	checkedAt  time.Time
	mu         sync.RWMutex
	cfg        Config
	onMetrics  MetricsRecordFunc
	logger     *zap.Logger
}

// New creates a Checker. Dependencies are added with Add.
func New(cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	return &Checker{
		deps:       make(map[string]Pinger),
		failCounts: make(map[string]int),
		status:     make(map[string]string),
		cfg:        cfg,
		logger:     logger,
	}
}

// Add registers a dependency under name. Its state is unknown until probed.
func (h *Checker) Add(name string, p Pinger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deps[name] = p
	h.status[name] = StatusUnknown
}

// SetMetricsRecord configures the metrics recording callback.
func (h *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	h.onMetrics = fn
}

// Start runs the health check loop until quit is signalled. The first round
// runs immediately.
func (h *Checker) Start(quit <-chan os.Signal) {
	h.CheckAll(context.Background())

	ticker := time.NewTicker(h.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.CheckAll(context.Background())
		case <-quit:
			return
		}
	}
}

// CheckAll pings every dependency concurrently.
func (h *Checker) CheckAll(ctx context.Context) {
	h.mu.RLock()
	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			h.probe(ctx, name)
		}(name)
	}
	wg.Wait()

	h.mu.Lock()
	h.checkedAt = time.Now().UTC()
	h.mu.Unlock()
}

func (h *Checker) probe(ctx context.Context, name string) {
	h.mu.RLock()
	p := h.deps[name]
	h.mu.RUnlock()

	pctx, cancel := context.WithTimeout(ctx, h.cfg.ProbeTimeout)
	err := p.Ping(pctx)
	cancel()
	success := err == nil

	if h.onMetrics != nil {
		h.onMetrics(name, success)
	}

	h.mu.Lock()
	prevCount := h.failCounts[name]
	if success {
		h.failCounts[name] = 0
	} else {
		h.failCounts[name]++
	}
	count := h.failCounts[name]

	switch {
	case success:
		h.status[name] = StatusHealthy
	case count >= h.cfg.FailThreshold:
		h.status[name] = StatusDegraded
	}
	h.mu.Unlock()

	if success && prevCount >= h.cfg.FailThreshold {
		h.logger.Info("health: recovered", zap.String("dependency", name))
	} else if !success && count == h.cfg.FailThreshold {
		h.logger.Warn("health: degraded",
			zap.String("dependency", name),
			zap.Int("fail_count", count),
			zap.Error(err),
		)
	}
}

// Report returns the current state of every dependency. The service is
// degraded when any dependency is.
func (h *Checker) Report() Report {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r := Report{
		Status:       StatusHealthy,
		Dependencies: make(map[string]string, len(h.status)),
		CheckedAt:    h.checkedAt,
	}
	for name, s := range h.status {
		r.Dependencies[name] = s
		if s == StatusDegraded {
			r.Status = StatusDegraded
		}
	}
	return r
}
