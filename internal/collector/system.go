package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
)

// HostStats is a raw reading of host counters.
type HostStats struct {
	CPUPercent   float64
	CPUCount     int
	LoadAverage  []float64 // nil where the platform has no load average
	MemTotal     uint64
	MemAvailable uint64
	MemFree      uint64
	MemUsedPct   float64
	DiskTotal    uint64
	DiskUsed     uint64
	DiskFree     uint64
	BytesSent    uint64
	BytesRecv    uint64
	PacketsSent  uint64
	PacketsRecv  uint64
}

// Host reads host counters.
type Host interface {
	Read(ctx context.Context) (HostStats, error)
}

// PSHost reads host counters through gopsutil.
type PSHost struct {
	// CPUInterval is how long CPU usage is sampled for.
	CPUInterval time.Duration
	// DiskPath is the mount point whose usage is reported.
	DiskPath string
}

// NewPSHost samples CPU over one second and reports usage of "/".
func NewPSHost() *PSHost {
	return &PSHost{CPUInterval: time.Second, DiskPath: "/"}
}

func (h *PSHost) Read(ctx context.Context) (HostStats, error) {
	var s HostStats

	pct, err := cpu.PercentWithContext(ctx, h.CPUInterval, false)
	if err != nil {
		return s, fmt.Errorf("cpu percent: %w", err)
	}
	if len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if s.CPUCount, err = cpu.CountsWithContext(ctx, true); err != nil {
		return s, fmt.Errorf("cpu count: %w", err)
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		s.LoadAverage = []float64{avg.Load1, avg.Load5, avg.Load15}
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return s, fmt.Errorf("virtual memory: %w", err)
	}
	s.MemTotal, s.MemAvailable, s.MemFree, s.MemUsedPct = vm.Total, vm.Available, vm.Free, vm.UsedPercent

	du, err := disk.UsageWithContext(ctx, h.DiskPath)
	if err != nil {
		return s, fmt.Errorf("disk usage %s: %w", h.DiskPath, err)
	}
	s.DiskTotal, s.DiskUsed, s.DiskFree = du.Total, du.Used, du.Free

	io, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return s, fmt.Errorf("net io counters: %w", err)
	}
	if len(io) > 0 {
		s.BytesSent, s.BytesRecv = io[0].BytesSent, io[0].BytesRecv
		s.PacketsSent, s.PacketsRecv = io[0].PacketsSent, io[0].PacketsRecv
	}
	return s, nil
}
