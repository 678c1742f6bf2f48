package models

import "time"

// Data source tags recorded in Meta.DataSource.
const (
	DataSourceRRDWeighted = "rrd_weighted"
	DataSourceFallback    = "fallback"
)

// TrendPoint is one displayed calendar day of the dense utilization series.
// This is the only structure exposed for charting: gap-free, forward-filled.
type TrendPoint struct {
	Label          string  `json:"label"` // YYYY-MM-DD
	CPUPercent     float64 `json:"cpuPercent"`
	RAMPercent     float64 `json:"ramPercent"`
	StoragePercent float64 `json:"storagePercent"`
}

// ResourceKPI summarizes one resource dimension at the current instant.
// Used is a percentage for CPU and absolute bytes for RAM/storage; Trend is
// the first-half/second-half delta in percentage points.
type ResourceKPI struct {
	Used      float64 `json:"used"`
	Allocated float64 `json:"allocated,omitempty"`
	Total     float64 `json:"total"`
	Trend     float64 `json:"trend"`
}

// VMCounts breaks the guest fleet down by run state.
type VMCounts struct {
	Total   int `json:"total"`
	Running int `json:"running"`
	Stopped int `json:"stopped"`
}

// KPIBlock is the top-line figures of the overview.
type KPIBlock struct {
	CPU        ResourceKPI `json:"cpu"`
	RAM        ResourceKPI `json:"ram"`
	Storage    ResourceKPI `json:"storage"`
	VMs        VMCounts    `json:"vms"`
	Efficiency int         `json:"efficiency"` // 0..100
}

// TrendsPeriod is the resolved display window of the dense series.
type TrendsPeriod struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	DaysCount int    `json:"daysCount"`
}

// MetricStats carries percentile statistics over every valid normalized
// reading in the lookback window, per metric.
type MetricStats struct {
	Average float64 `json:"average"`
	P50     float64 `json:"p50"`
	P95     float64 `json:"p95"`
	Peak    float64 `json:"peak"`
}

// OverviewStats groups per-metric statistics.
type OverviewStats struct {
	CPU MetricStats `json:"cpu"`
	RAM MetricStats `json:"ram"`
}

// Meta describes how complete and trustworthy the response data is.
// Degraded confidence is signaled here, never by failing the request.
type Meta struct {
	ConnectionsCount int    `json:"connectionsCount"`
	NodesCount       int    `json:"nodesCount"`
	RRDDaysAvailable int    `json:"rrdDaysAvailable"`
	DataSource       string `json:"dataSource"`
}

// OverviewResponse is the full payload of GetResourceOverview.
type OverviewResponse struct {
	KPIs             KPIBlock                `json:"kpis"`
	Trends           []TrendPoint            `json:"trends"`
	TrendsPeriod     TrendsPeriod            `json:"trendsPeriod"`
	TopCPUVMs        []GuestSnapshot         `json:"topCpuVms"`
	TopRAMVMs        []GuestSnapshot         `json:"topRamVms"`
	Overprovisioning *OverprovisioningReport `json:"overprovisioning"`
	Green            *GreenMetrics           `json:"green"`
	Stats            OverviewStats           `json:"stats"`
	Meta             Meta                    `json:"_meta"`
}

// SnapshotRecord is one persisted overview snapshot row, used by the
// history command.
type SnapshotRecord struct {
	ID                 string    `json:"id"`
	TakenAt            time.Time `json:"takenAt"`
	CPUUsedPercent     float64   `json:"cpuUsedPercent"`
	RAMUsedPercent     float64   `json:"ramUsedPercent"`
	StorageUsedPercent float64   `json:"storageUsedPercent"`
	RunningVMs         int       `json:"runningVms"`
	TotalVMs           int       `json:"totalVms"`
	EfficiencyScore    int       `json:"efficiencyScore"`
	MonthlyCost        float64   `json:"monthlyCost"`
	YearlyCO2Kg        float64   `json:"yearlyCo2Kg"`
	DataSource         string    `json:"dataSource"`
}
