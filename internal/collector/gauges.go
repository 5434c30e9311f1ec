package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hostCPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "omnisec_host_cpu_usage_percent",
		Help: "Host CPU utilisation at the last sample.",
	})

	hostMemoryPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "omnisec_host_memory_used_percent",
		Help: "Host memory utilisation at the last sample.",
	})

	hostDiskPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "omnisec_host_disk_used_percent",
		Help: "Disk utilisation of the monitored mount at the last sample.",
	})

	activeThreats = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "omnisec_active_threats",
		Help: "Unresolved threats per organization at the last sample.",
	}, []string{"organization_id"})

	activeModels = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "omnisec_active_models",
		Help: "Active models per organization at the last sample.",
	}, []string{"organization_id"})

	collectionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omnisec_collection_failures_total",
		Help: "Metric collections that failed, by kind.",
	}, []string{"kind"})
)

func observeSystem(m *SystemMetrics) {
	hostCPUPercent.Set(m.CPU.UsagePercent)
	hostMemoryPercent.Set(m.Memory.UsedPercent)
	hostDiskPercent.Set(m.Disk.UsedPercent)
}

// observeSecurity is only called for the sampler's configured organizations
// so the organization_id label stays bounded.
func observeSecurity(m *SecurityMetrics) {
	activeThreats.WithLabelValues(m.OrganizationID).Set(float64(m.Threats.Active))
	activeModels.WithLabelValues(m.OrganizationID).Set(float64(m.Models.Active))
}
