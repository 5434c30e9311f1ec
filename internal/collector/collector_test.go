package collector

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/jmerrifield20/omnisec-monitor/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ── Stubs ────────────────────────────────────────────────────────────────

var now = time.Date(2026, 6, 15, 14, 30, 0, 0, time.UTC)

type stubHost struct {
	stats HostStats
	err   error
}

func (h *stubHost) Read(context.Context) (HostStats, error) { return h.stats, h.err }

type stubRelational struct {
	mu         sync.Mutex
	auditSince time.Time
	err        error
	calls      int

	delay       time.Duration
	inFlight    int
	maxInFlight int
}

func (s *stubRelational) ThreatStatus(context.Context, string) (model.ThreatStatus, error) {
	s.mu.Lock()
	s.calls++
	s.inFlight++
	s.maxInFlight = max(s.maxInFlight, s.inFlight)
	s.mu.Unlock()

	time.Sleep(s.delay)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	return model.ThreatStatus{Total: 12, Active: 5}, s.err
}

func (s *stubRelational) ModelCounts(context.Context, string) (model.ModelCounts, error) {
	return model.ModelCounts{Total: 4, Active: 3}, nil
}

func (s *stubRelational) AuditLogCount(_ context.Context, _ string, since time.Time) (int64, error) {
	s.mu.Lock()
	s.auditSince = since
	s.mu.Unlock()
	return 40, nil
}

type stubEvents struct {
	mu      sync.Mutex
	windows []model.TimeWindow
}

func (s *stubEvents) CountSecurityEvents(_ context.Context, _ string, w model.TimeWindow) (int64, error) {
	s.mu.Lock()
	s.windows = append(s.windows, w)
	s.mu.Unlock()
	return 9, nil
}

func (s *stubEvents) CountThreatDetections(_ context.Context, _ string, w model.TimeWindow) (int64, error) {
	s.mu.Lock()
	s.windows = append(s.windows, w)
	s.mu.Unlock()
	return 3, nil
}

type stubSink struct {
	mu      sync.Mutex
	metrics []model.PerformanceMetric
	err     error
}

func (s *stubSink) StorePerformanceMetric(_ context.Context, m model.PerformanceMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, m)
	return s.err
}

type memSnapshots struct {
	mu   sync.Mutex
	data map[string]any
}

func (m *memSnapshots) Put(_ context.Context, name string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]any)
	}
	m.data[name] = v
	return nil
}

func (m *memSnapshots) Get(_ context.Context, name string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[name]
	if !ok {
		return false, nil
	}
	*dst.(*SystemMetrics) = *v.(*SystemMetrics)
	return true, nil
}

type stubBroadcaster struct {
	mu     sync.Mutex
	topics []string
}

func (b *stubBroadcaster) Publish(_ context.Context, topic string, _ any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	return nil
}

func sampleStats() HostStats {
	return HostStats{
		CPUPercent:   37.5,
		CPUCount:     8,
		LoadAverage:  []float64{1, 0.5, 0.25},
		MemTotal:     16 * gib,
		MemAvailable: 6 * gib,
		MemFree:      2 * gib,
		MemUsedPct:   62.5,
		DiskTotal:    200 * gib,
		DiskUsed:     50 * gib,
		DiskFree:     150 * gib,
		BytesSent:    1000,
		BytesRecv:    2000,
	}
}

func newCollector(host Host) (*Collector, *stubRelational, *stubEvents, *stubSink) {
	rel, ev, sink := &stubRelational{}, &stubEvents{}, &stubSink{}
	c := New(host, rel, ev, zap.NewNop())
	c.SetSink(sink)
	c.SetClock(func() time.Time { return now })
	return c, rel, ev, sink
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestSystemMetricsConversion(t *testing.T) {
	m := systemMetrics(sampleStats(), now)

	assert.Equal(t, MemoryMetrics{TotalGB: 16, AvailableGB: 6, UsedPercent: 62.5, FreeGB: 2}, m.Memory)
	assert.Equal(t, DiskMetrics{TotalGB: 200, UsedGB: 50, FreeGB: 150, UsedPercent: 25}, m.Disk)
	assert.Equal(t, 8, m.CPU.Count)
	assert.Equal(t, uint64(2000), m.Network.BytesRecv)
}

func TestSystemMetricsConversion_EmptyDisk(t *testing.T) {
	m := systemMetrics(HostStats{}, now)
	assert.Zero(t, m.Disk.UsedPercent)
}

func TestCollectSystem_StoresSample(t *testing.T) {
	c, _, _, sink := newCollector(&stubHost{stats: sampleStats()})

	m, err := c.CollectSystem(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 37.5, m.CPU.UsagePercent)
	require.Len(t, sink.metrics, 1)
	assert.Equal(t, TypeSystem, sink.metrics[0].MetricType)
	assert.Equal(t, ServiceName, sink.metrics[0].Service)
	assert.Same(t, m, sink.metrics[0].Data)
}

func TestCollectSystem_HostError(t *testing.T) {
	c, _, _, sink := newCollector(&stubHost{err: errors.New("no procfs")})

	_, err := c.CollectSystem(context.Background())

	assert.Error(t, err)
	assert.Empty(t, sink.metrics)
}

func TestCollectSystem_SinkFailureIsNotFatal(t *testing.T) {
	c, _, _, sink := newCollector(&stubHost{stats: sampleStats()})
	sink.err = errors.New("mongo down")

	_, err := c.CollectSystem(context.Background())
	assert.NoError(t, err)
}

func TestSystemMetrics_PrefersSnapshot(t *testing.T) {
	host := &stubHost{stats: sampleStats()}
	c, _, _, sink := newCollector(host)
	snaps := &memSnapshots{}
	c.SetSnapshots(snaps)

	fresh, err := c.SystemMetrics(context.Background())
	require.NoError(t, err)
	assert.Len(t, sink.metrics, 1, "no snapshot yet, so a fresh sample is collected")

	cached := &SystemMetrics{Timestamp: now.Add(-time.Minute), CPU: CPUMetrics{UsagePercent: 99}}
	require.NoError(t, snaps.Put(context.Background(), TypeSystem, cached))

	got, err := c.SystemMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 99.0, got.CPU.UsagePercent)
	assert.NotEqual(t, fresh.CPU.UsagePercent, got.CPU.UsagePercent)
	assert.Len(t, sink.metrics, 1)
}

func TestCollectSecurity(t *testing.T) {
	c, rel, ev, sink := newCollector(&stubHost{})

	m, err := c.CollectSecurity(context.Background(), "org1")

	require.NoError(t, err)
	assert.Equal(t, ThreatMetrics{Total: 12, Active: 5, Detections24h: 3}, m.Threats)
	assert.Equal(t, model.ModelCounts{Total: 4, Active: 3}, m.Models)
	assert.Equal(t, ActivityMetrics{SecurityEvents24h: 9, AuditLogs24h: 40}, m.Activity)
	assert.Equal(t, "org1", m.OrganizationID)

	assert.Equal(t, now.Add(-24*time.Hour), rel.auditSince)
	require.Len(t, ev.windows, 2)
	for _, w := range ev.windows {
		assert.Equal(t, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), w.Start)
		assert.True(t, w.End.After(now))
	}

	require.Len(t, sink.metrics, 1)
	assert.Equal(t, TypeSecurity, sink.metrics[0].MetricType)
}

func TestCollectSecurity_InvalidOrganization(t *testing.T) {
	c, rel, _, _ := newCollector(&stubHost{})

	_, err := c.CollectSecurity(context.Background(), "bad org")

	assert.True(t, model.IsInvalidArgument(err))
	assert.Zero(t, rel.calls)
}

func TestCollectSecurity_StoreError(t *testing.T) {
	c, rel, _, sink := newCollector(&stubHost{})
	rel.err = errors.New("connection reset")

	_, err := c.CollectSecurity(context.Background(), "org1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Empty(t, sink.metrics)
}

func TestSampler_SampleOnce(t *testing.T) {
	c, _, _, _ := newCollector(&stubHost{stats: sampleStats()})
	snaps := &memSnapshots{}
	bc := &stubBroadcaster{}
	s := NewSampler(c, snaps, bc, SamplerConfig{Interval: time.Minute, Organizations: []string{"org1", "org2"}}, zap.NewNop())

	s.SampleOnce(context.Background())

	assert.ElementsMatch(t, []string{"system", "security:org1", "security:org2"}, bc.topics)
	assert.Contains(t, snaps.data, "system")
	assert.Contains(t, snaps.data, "security:org1")
	assert.Contains(t, snaps.data, "security:org2")
}

func TestCollectSecurity_AdHocLeavesOrgGaugesAlone(t *testing.T) {
	c, _, _, _ := newCollector(&stubHost{})
	before := testutil.CollectAndCount(activeThreats)

	for i := 0; i < 50; i++ {
		_, err := c.CollectSecurity(context.Background(), "adhoc-"+strconv.Itoa(i))
		require.NoError(t, err)
	}

	assert.Equal(t, before, testutil.CollectAndCount(activeThreats))
	assert.Equal(t, before, testutil.CollectAndCount(activeModels))
}

func TestSampler_SetsOrgGaugesForConfiguredOrganizations(t *testing.T) {
	c, _, _, _ := newCollector(&stubHost{stats: sampleStats()})
	s := NewSampler(c, nil, nil, SamplerConfig{Organizations: []string{"gauge-org"}}, zap.NewNop())

	s.SampleOnce(context.Background())

	assert.Equal(t, 5.0, testutil.ToFloat64(activeThreats.WithLabelValues("gauge-org")))
	assert.Equal(t, 3.0, testutil.ToFloat64(activeModels.WithLabelValues("gauge-org")))
}

func TestSampler_BoundsConcurrency(t *testing.T) {
	c, rel, _, _ := newCollector(&stubHost{stats: sampleStats()})
	rel.delay = 5 * time.Millisecond
	orgs := make([]string, 12)
	for i := range orgs {
		orgs[i] = "org" + strconv.Itoa(i)
	}
	bc := &stubBroadcaster{}
	s := NewSampler(c, nil, bc, SamplerConfig{Organizations: orgs, Concurrency: 2}, zap.NewNop())

	s.SampleOnce(context.Background())

	assert.Len(t, bc.topics, len(orgs)+1)
	assert.LessOrEqual(t, rel.maxInFlight, 2)
}

func TestSampler_SkipsFailedCollections(t *testing.T) {
	c, _, _, _ := newCollector(&stubHost{err: errors.New("no procfs")})
	bc := &stubBroadcaster{}
	s := NewSampler(c, nil, bc, SamplerConfig{Organizations: []string{"org1"}}, zap.NewNop())

	s.SampleOnce(context.Background())

	assert.Equal(t, []string{"security:org1"}, bc.topics)
}

func TestSampler_StartStopsOnSignal(t *testing.T) {
	c, _, _, _ := newCollector(&stubHost{stats: sampleStats()})
	s := NewSampler(c, nil, nil, SamplerConfig{Interval: 10 * time.Millisecond}, zap.NewNop())

	quit := make(chan os.Signal, 1)
	done := make(chan struct{})
	go func() {
		s.Start(quit)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	quit <- syscall.SIGTERM

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sampler did not stop")
	}
}
