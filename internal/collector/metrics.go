package collector

import (
	"math"
	"time"

	"github.com/jmerrifield20/omnisec-monitor/internal/model"
)

const gib = 1 << 30

// SystemMetrics is the host resource snapshot served by /api/v1/metrics/system.
type SystemMetrics struct {
	Timestamp time.Time     `json:"timestamp"`
	CPU       CPUMetrics    `json:"cpu"`
	Memory    MemoryMetrics `json:"memory"`
	Disk      DiskMetrics   `json:"disk"`
	Network   NetMetrics    `json:"network"`
}

type CPUMetrics struct {
	UsagePercent float64   `json:"usage_percent"`
	Count        int       `json:"count"`
	LoadAverage  []float64 `json:"load_average"`
}

type MemoryMetrics struct {
	TotalGB     float64 `json:"total_gb"`
	AvailableGB float64 `json:"available_gb"`
	UsedPercent float64 `json:"used_percent"`
	FreeGB      float64 `json:"free_gb"`
}

type DiskMetrics struct {
	TotalGB     float64 `json:"total_gb"`
	UsedGB      float64 `json:"used_gb"`
	FreeGB      float64 `json:"free_gb"`
	UsedPercent float64 `json:"used_percent"`
}

type NetMetrics struct {
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
}

// SecurityMetrics is the per-organization snapshot served by
// /api/v1/metrics/security.
type SecurityMetrics struct {
	Timestamp      time.Time         `json:"timestamp"`
	OrganizationID string            `json:"organization_id"`
	Threats        ThreatMetrics     `json:"threats"`
	Models         model.ModelCounts `json:"models"`
	Activity       ActivityMetrics   `json:"activity"`
}

type ThreatMetrics struct {
	Total         int   `json:"total"`
	Active        int   `json:"active"`
	Detections24h int64 `json:"detections_24h"`
}

type ActivityMetrics struct {
	SecurityEvents24h int64 `json:"security_events_24h"`
	AuditLogs24h      int64 `json:"audit_logs_24h"`
}

// systemMetrics converts raw counters to the reported units.
func systemMetrics(s HostStats, now time.Time) *SystemMetrics {
	return &SystemMetrics{
		Timestamp: now,
		CPU: CPUMetrics{
			UsagePercent: s.CPUPercent,
			Count:        s.CPUCount,
			LoadAverage:  s.LoadAverage,
		},
		Memory: MemoryMetrics{
			TotalGB:     toGB(s.MemTotal),
			AvailableGB: toGB(s.MemAvailable),
			UsedPercent: s.MemUsedPct,
			FreeGB:      toGB(s.MemFree),
		},
		Disk: DiskMetrics{
			TotalGB:     toGB(s.DiskTotal),
			UsedGB:      toGB(s.DiskUsed),
			FreeGB:      toGB(s.DiskFree),
			UsedPercent: round2(float64(s.DiskUsed) / float64(max(s.DiskTotal, 1)) * 100),
		},
		Network: NetMetrics{
			BytesSent:   s.BytesSent,
			BytesRecv:   s.BytesRecv,
			PacketsSent: s.PacketsSent,
			PacketsRecv: s.PacketsRecv,
		},
	}
}

func toGB(b uint64) float64 { return round2(float64(b) / gib) }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
