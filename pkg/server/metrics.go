package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/virtscope/capacity-engine/pkg/models"
)

// Metrics exports the overview KPIs as Prometheus gauges so the engine can
// feed external dashboards and alerting.
type Metrics struct {
	registry *prometheus.Registry

	cpuUsedPercent     prometheus.Gauge
	cpuCoresTotal      prometheus.Gauge
	cpuCoresAllocated  prometheus.Gauge
	ramUsedBytes       prometheus.Gauge
	ramTotalBytes      prometheus.Gauge
	storageUsedBytes   prometheus.Gauge
	storageTotalBytes  prometheus.Gauge
	vms                *prometheus.GaugeVec
	efficiencyScore    prometheus.Gauge
	powerWatts         prometheus.Gauge
	monthlyCost        prometheus.Gauge
	yearlyCO2Kg        prometheus.Gauge
	historyDays        prometheus.Gauge
	nodesCount         prometheus.Gauge
	connectionsCount   prometheus.Gauge
	refreshesTotal     prometheus.Counter
	refreshErrorsTotal prometheus.Counter
}

// NewMetrics registers all gauges on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		cpuUsedPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capacity_cpu_used_percent",
			Help: "Fleet-wide CPU utilization percentage.",
		}),
		cpuCoresTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capacity_cpu_cores_total",
			Help: "Physical CPU cores across online nodes.",
		}),
		cpuCoresAllocated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capacity_cpu_cores_allocated",
			Help: "vCPU cores allocated to running guests.",
		}),
		ramUsedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capacity_ram_used_bytes",
			Help: "RAM in use across online nodes.",
		}),
		ramTotalBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capacity_ram_total_bytes",
			Help: "Physical RAM across online nodes.",
		}),
		storageUsedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capacity_storage_used_bytes",
			Help: "Storage in use across reported volumes.",
		}),
		storageTotalBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capacity_storage_total_bytes",
			Help: "Storage capacity across reported volumes.",
		}),
		vms: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "capacity_vms",
			Help: "Guest counts by run state.",
		}, []string{"state"}),
		efficiencyScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capacity_efficiency_score",
			Help: "Composite fleet efficiency score, 0-100.",
		}),
		powerWatts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capacity_power_watts",
			Help: "Estimated total power draw including PUE.",
		}),
		monthlyCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capacity_energy_cost_monthly",
			Help: "Estimated monthly energy cost in the configured currency.",
		}),
		yearlyCO2Kg: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capacity_co2_yearly_kg",
			Help: "Estimated yearly CO2 emissions in kilograms.",
		}),
		historyDays: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capacity_history_days_available",
			Help: "Distinct days of historical data behind the trend series.",
		}),
		nodesCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capacity_nodes",
			Help: "Nodes discovered across all connections.",
		}),
		connectionsCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capacity_connections",
			Help: "Registered cluster connections.",
		}),
		refreshesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "capacity_refreshes_total",
			Help: "Completed background overview refreshes.",
		}),
		refreshErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "capacity_refresh_errors_total",
			Help: "Background refreshes that failed outright.",
		}),
	}

	reg.MustRegister(
		m.cpuUsedPercent, m.cpuCoresTotal, m.cpuCoresAllocated,
		m.ramUsedBytes, m.ramTotalBytes,
		m.storageUsedBytes, m.storageTotalBytes,
		m.vms, m.efficiencyScore,
		m.powerWatts, m.monthlyCost, m.yearlyCO2Kg,
		m.historyDays, m.nodesCount, m.connectionsCount,
		m.refreshesTotal, m.refreshErrorsTotal,
	)
	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Observe updates every gauge from one overview response.
func (m *Metrics) Observe(resp *models.OverviewResponse) {
	m.cpuUsedPercent.Set(resp.KPIs.CPU.Used)
	m.cpuCoresTotal.Set(resp.KPIs.CPU.Total)
	m.cpuCoresAllocated.Set(resp.KPIs.CPU.Allocated)
	m.ramUsedBytes.Set(resp.KPIs.RAM.Used)
	m.ramTotalBytes.Set(resp.KPIs.RAM.Total)
	m.storageUsedBytes.Set(resp.KPIs.Storage.Used)
	m.storageTotalBytes.Set(resp.KPIs.Storage.Total)
	m.vms.WithLabelValues("running").Set(float64(resp.KPIs.VMs.Running))
	m.vms.WithLabelValues("stopped").Set(float64(resp.KPIs.VMs.Stopped))
	m.efficiencyScore.Set(float64(resp.KPIs.Efficiency))
	m.historyDays.Set(float64(resp.Meta.RRDDaysAvailable))
	m.nodesCount.Set(float64(resp.Meta.NodesCount))
	m.connectionsCount.Set(float64(resp.Meta.ConnectionsCount))

	if g := resp.Green; g != nil {
		m.powerWatts.Set(g.Power.TotalWatts)
		m.monthlyCost.Set(g.Cost.Monthly)
		m.yearlyCO2Kg.Set(g.CO2.YearlyKg)
	}
}
