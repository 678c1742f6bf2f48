// Package overview assembles the resource overview: it fans the remote
// fetch out across every connection, node and storage, feeds the results
// through the aggregation pipeline and builds the response consumed by the
// presentation layer.
package overview

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/virtscope/capacity-engine/pkg/analyzer"
	"github.com/virtscope/capacity-engine/pkg/datasource"
	"github.com/virtscope/capacity-engine/pkg/green"
	"github.com/virtscope/capacity-engine/pkg/models"
	"github.com/virtscope/capacity-engine/pkg/overprovision"
	"github.com/virtscope/capacity-engine/pkg/registry"
)

const (
	defaultLookback           = 30 * 24 * time.Hour
	defaultHistoryConcurrency = 24
	topVMCount                = 10
)

// SettingsStore supplies optional operator-tunable hardware coefficients.
// A nil profile means "use defaults".
type SettingsStore interface {
	HardwareProfile(ctx context.Context) (*green.Coefficients, error)
}

// Orchestrator coordinates one overview computation per call. It holds no
// cross-request mutable state; every request builds and discards its own
// aggregation structures.
type Orchestrator struct {
	registry  registry.Registry
	inventory datasource.InventoryClient
	histories []datasource.HistorySource
	settings  SettingsStore
	logger    *zap.Logger

	lookback           time.Duration
	historyConcurrency int
	now                func() time.Time
}

// Option tweaks orchestrator behavior.
type Option func(*Orchestrator)

// WithLookback sets the historical fetch window.
func WithLookback(d time.Duration) Option {
	return func(o *Orchestrator) { o.lookback = d }
}

// WithHistoryConcurrency caps in-flight history fetches so a large fleet
// cannot overwhelm the remote endpoints.
func WithHistoryConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.historyConcurrency = n
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New builds an orchestrator. histories are data-source strategies tried in
// order per node/storage; the first that yields samples wins.
func New(reg registry.Registry, inv datasource.InventoryClient, histories []datasource.HistorySource, settings SettingsStore, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:           reg,
		inventory:          inv,
		histories:          histories,
		settings:           settings,
		logger:             logger,
		lookback:           defaultLookback,
		historyConcurrency: defaultHistoryConcurrency,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// connData is everything successfully fetched for one connection. A
// connection that failed entirely appears with empty slices: zero
// contribution, not a failed request.
type connData struct {
	conn     models.ClusterConnection
	nodes    []models.NodeSnapshot
	guests   []models.GuestSnapshot
	storages []models.StorageSnapshot
}

// GetResourceOverview runs the full pipeline. Per-connection and per-node
// failures degrade data completeness but never fail the call; only an
// unreachable registry or settings store propagates as an error.
func (o *Orchestrator) GetResourceOverview(ctx context.Context) (*models.OverviewResponse, error) {
	conns, err := o.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	if len(conns) == 0 {
		return emptyResponse(), nil
	}

	profile, err := o.settings.HardwareProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hardware profile: %w", err)
	}

	data := o.fetchInventory(ctx, conns)
	nodeHistories, storageDays := o.fetchHistories(ctx, data)

	return o.aggregate(conns, data, nodeHistories, storageDays, profile), nil
}

// fetchInventory issues the node, guest and storage list requests for
// every connection concurrently. Failures are logged and absorbed.
func (o *Orchestrator) fetchInventory(ctx context.Context, conns []models.ClusterConnection) []*connData {
	data := make([]*connData, len(conns))
	var wg sync.WaitGroup

	for i, conn := range conns {
		data[i] = &connData{conn: conn}
		cd := data[i]

		wg.Add(3)
		go func() {
			defer wg.Done()
			nodes, err := o.inventory.ListNodes(ctx, cd.conn)
			if err != nil {
				o.logger.Warn("connection degraded to zero contribution",
					zap.String("connection", cd.conn.ID), zap.String("op", "nodes"), zap.Error(err))
				return
			}
			cd.nodes = nodes
		}()
		go func() {
			defer wg.Done()
			guests, err := o.inventory.ListGuests(ctx, cd.conn)
			if err != nil {
				o.logger.Warn("connection degraded to zero contribution",
					zap.String("connection", cd.conn.ID), zap.String("op", "guests"), zap.Error(err))
				return
			}
			cd.guests = guests
		}()
		go func() {
			defer wg.Done()
			storages, err := o.inventory.ListStorages(ctx, cd.conn)
			if err != nil {
				o.logger.Warn("connection degraded to zero contribution",
					zap.String("connection", cd.conn.ID), zap.String("op", "storages"), zap.Error(err))
				return
			}
			cd.storages = storages
		}()
	}
	wg.Wait()
	return data
}

type nodeHistory struct {
	key      models.NodeKey
	capacity models.NodeCapacity
	samples  []models.RawSample
}

// fetchHistories pulls RRD samples for every online node and every storage
// volume, bounded by the concurrency cap. A failed or timed-out fetch
// degrades that single series to "no historical data".
func (o *Orchestrator) fetchHistories(ctx context.Context, data []*connData) ([]nodeHistory, map[analyzer.DayKey][]float64) {
	var mu sync.Mutex
	var nodeHistories []nodeHistory
	storageDays := make(map[analyzer.DayKey][]float64)
	storageDiag := analyzer.NewDiagnostics()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.historyConcurrency)

	for _, cd := range data {
		conn := cd.conn
		for _, node := range cd.nodes {
			if !node.Online() {
				continue
			}
			node := node
			g.Go(func() error {
				samples := o.nodeSamples(gctx, conn, node.Node)
				mu.Lock()
				nodeHistories = append(nodeHistories, nodeHistory{
					key:      models.NodeKey{ConnectionID: conn.ID, Node: node.Node},
					capacity: models.NodeCapacity{MaxCPUCores: node.CoreCount, MaxMemBytes: node.MemTotalBytes},
					samples:  samples,
				})
				mu.Unlock()
				return nil
			})
		}
		for _, st := range cd.storages {
			st := st
			g.Go(func() error {
				samples := o.storageSamples(gctx, conn, st)
				mu.Lock()
				analyzer.AggregateStorageDaily(samples, st, storageDiag, storageDays)
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait() // workers never return errors; failures degrade in place

	if storageDiag.RejectedTotal() > 0 {
		o.logger.Debug("storage samples rejected during normalization",
			zap.Int("accepted", storageDiag.Accepted),
			zap.Any("rejected", storageDiag.Rejected))
	}
	return nodeHistories, storageDays
}

// nodeSamples tries each history strategy in order for one node.
func (o *Orchestrator) nodeSamples(ctx context.Context, conn models.ClusterConnection, node string) []models.RawSample {
	for _, src := range o.histories {
		samples, err := src.NodeHistory(ctx, conn, node, o.lookback)
		if err != nil {
			o.logger.Warn("node history unavailable",
				zap.String("connection", conn.ID), zap.String("node", node),
				zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		if len(samples) > 0 {
			return samples
		}
	}
	return nil
}

// storageSamples tries each history strategy in order for one storage.
func (o *Orchestrator) storageSamples(ctx context.Context, conn models.ClusterConnection, st models.StorageSnapshot) []models.RawSample {
	for _, src := range o.histories {
		samples, err := src.StorageHistory(ctx, conn, st.Node, st.Storage, o.lookback)
		if err != nil {
			o.logger.Warn("storage history unavailable",
				zap.String("connection", conn.ID), zap.String("node", st.Node),
				zap.String("storage", st.Storage), zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		if len(samples) > 0 {
			return samples
		}
	}
	return nil
}

// aggregate feeds the fetched data through the pipeline and assembles the
// response.
func (o *Orchestrator) aggregate(conns []models.ClusterConnection, data []*connData, nodeHistories []nodeHistory, storageDays map[analyzer.DayKey][]float64, profile *green.Coefficients) *models.OverviewResponse {
	diag := analyzer.NewDiagnostics()

	nodeDailies := make([]analyzer.NodeDaily, 0, len(nodeHistories))
	for _, nh := range nodeHistories {
		nodeDailies = append(nodeDailies, analyzer.NodeDaily{
			Key:      nh.key,
			Capacity: nh.capacity,
			Days:     analyzer.AggregateDaily(nh.samples, diag),
		})
	}
	if diag.RejectedTotal() > 0 {
		o.logger.Debug("node samples rejected during normalization",
			zap.Int("accepted", diag.Accepted), zap.Any("rejected", diag.Rejected))
	}

	dayAverages := analyzer.WeightedAverage(nodeDailies)

	// Flat chronological reading lists for the trend estimator and the
	// stats block: every individual valid reading across the window.
	cpuReadings, ramReadings := flatReadings(nodeDailies)
	storageReadings := flatStorageReadings(storageDays)

	current, capacities, nodesCount := o.currentState(data)
	vms, topCPU, topRAM, opGuests := guestSummary(data)

	series := analyzer.Densify(dayAverages, storageDays, o.now(), analyzer.CurrentUtilization{
		CPUPercent:     current.cpuPercent,
		RAMPercent:     current.ramPercent,
		StoragePercent: current.storagePercent,
	})

	report := overprovision.Analyze(capacities, opGuests)
	allocEff := (report.CPU.EfficiencyPercent + report.RAM.EfficiencyPercent) / 2

	greenMetrics := green.Model(green.Input{
		CPUUsedPercent:     current.cpuPercent,
		TotalCPUCores:      int(current.totalCores),
		TotalRAMBytes:      current.ramTotal,
		RunningVMs:         vms.Running,
		TotalVMs:           vms.Total,
		AllocEfficiencyPct: allocEff,
	}, profile)

	return &models.OverviewResponse{
		KPIs: models.KPIBlock{
			CPU: models.ResourceKPI{
				Used:      round1(current.cpuPercent),
				Allocated: current.allocatedCores,
				Total:     current.totalCores,
				Trend:     analyzer.Trend(cpuReadings),
			},
			RAM: models.ResourceKPI{
				Used:      float64(current.ramUsed),
				Allocated: float64(current.allocatedRAM),
				Total:     float64(current.ramTotal),
				Trend:     analyzer.Trend(ramReadings),
			},
			Storage: models.ResourceKPI{
				Used:  float64(current.storageUsed),
				Total: float64(current.storageTotal),
				Trend: analyzer.Trend(storageReadings),
			},
			VMs:        vms,
			Efficiency: greenMetrics.Efficiency.Score,
		},
		Trends: series.Points,
		TrendsPeriod: models.TrendsPeriod{
			Start:     series.Start.Format("2006-01-02"),
			End:       series.End.Format("2006-01-02"),
			DaysCount: len(series.Points),
		},
		TopCPUVMs:        topCPU,
		TopRAMVMs:        topRAM,
		Overprovisioning: report,
		Green:            greenMetrics,
		Stats: models.OverviewStats{
			CPU: analyzer.Stats(cpuReadings),
			RAM: analyzer.Stats(ramReadings),
		},
		Meta: models.Meta{
			ConnectionsCount: len(conns),
			NodesCount:       nodesCount,
			RRDDaysAvailable: len(dayAverages),
			DataSource:       series.Source,
		},
	}
}

type currentState struct {
	cpuPercent     float64
	totalCores     float64
	allocatedCores float64
	ramUsed        int64
	ramTotal       int64
	allocatedRAM   int64
	storageUsed    int64
	storageTotal   int64
	storagePercent float64
	ramPercent     float64
}

// currentState computes the instantaneous cluster-wide totals from online
// nodes and available storages.
func (o *Orchestrator) currentState(data []*connData) (currentState, map[models.NodeKey]models.NodeCapacity, int) {
	var cs currentState
	capacities := make(map[models.NodeKey]models.NodeCapacity)
	nodesCount := 0
	usedCores := 0.0

	for _, cd := range data {
		for _, n := range cd.nodes {
			nodesCount++
			if !n.Online() {
				continue
			}
			key := models.NodeKey{ConnectionID: cd.conn.ID, Node: n.Node}
			capacities[key] = models.NodeCapacity{MaxCPUCores: n.CoreCount, MaxMemBytes: n.MemTotalBytes}
			cs.totalCores += float64(n.CoreCount)
			usedCores += n.CPURatio * float64(n.CoreCount)
			cs.ramUsed += n.MemUsedBytes
			cs.ramTotal += n.MemTotalBytes
		}
		for _, st := range cd.storages {
			cs.storageUsed += st.UsedBytes
			cs.storageTotal += st.TotalBytes
		}
		for _, g := range cd.guests {
			if !g.Running() {
				continue
			}
			cs.allocatedCores += float64(g.CPUAllocatedCores)
			cs.allocatedRAM += g.RAMAllocatedBytes
		}
	}

	if cs.totalCores > 0 {
		cs.cpuPercent = usedCores / cs.totalCores * 100
	}
	if cs.ramTotal > 0 {
		cs.ramPercent = float64(cs.ramUsed) / float64(cs.ramTotal) * 100
	}
	if cs.storageTotal > 0 {
		cs.storagePercent = float64(cs.storageUsed) / float64(cs.storageTotal) * 100
	}
	return cs, capacities, nodesCount
}

// guestSummary computes VM counts, top consumers and the overprovisioning
// input list.
func guestSummary(data []*connData) (models.VMCounts, []models.GuestSnapshot, []models.GuestSnapshot, []overprovision.Guest) {
	var counts models.VMCounts
	var running []models.GuestSnapshot
	var opGuests []overprovision.Guest

	for _, cd := range data {
		for _, g := range cd.guests {
			counts.Total++
			opGuests = append(opGuests, overprovision.Guest{ConnectionID: cd.conn.ID, Snapshot: g})
			if g.Running() {
				counts.Running++
				running = append(running, g)
			}
		}
	}
	counts.Stopped = counts.Total - counts.Running

	topCPU := topBy(running, func(a, b models.GuestSnapshot) bool { return a.CPUPercent > b.CPUPercent })
	topRAM := topBy(running, func(a, b models.GuestSnapshot) bool { return a.RAMPercent > b.RAMPercent })
	return counts, topCPU, topRAM, opGuests
}

func topBy(guests []models.GuestSnapshot, less func(a, b models.GuestSnapshot) bool) []models.GuestSnapshot {
	sorted := make([]models.GuestSnapshot, len(guests))
	copy(sorted, guests)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if len(sorted) > topVMCount {
		sorted = sorted[:topVMCount]
	}
	return sorted
}

// flatReadings walks the per-node day maps in day order and flattens every
// reading into per-metric lists.
func flatReadings(nodes []analyzer.NodeDaily) (cpu, ram []float64) {
	daySet := make(map[analyzer.DayKey]struct{})
	for _, n := range nodes {
		for day := range n.Days {
			daySet[day] = struct{}{}
		}
	}
	days := make([]analyzer.DayKey, 0, len(daySet))
	for day := range daySet {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	for _, day := range days {
		for _, n := range nodes {
			if readings, ok := n.Days[day]; ok {
				cpu = append(cpu, readings.CPU...)
				ram = append(ram, readings.RAM...)
			}
		}
	}
	return cpu, ram
}

func flatStorageReadings(storageDays map[analyzer.DayKey][]float64) []float64 {
	days := make([]analyzer.DayKey, 0, len(storageDays))
	for day := range storageDays {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	var out []float64
	for _, day := range days {
		out = append(out, storageDays[day]...)
	}
	return out
}

// emptyResponse is the documented all-zero payload for an empty registry.
func emptyResponse() *models.OverviewResponse {
	return &models.OverviewResponse{
		Trends:           []models.TrendPoint{},
		TopCPUVMs:        []models.GuestSnapshot{},
		TopRAMVMs:        []models.GuestSnapshot{},
		Overprovisioning: &models.OverprovisioningReport{},
		Green:            &models.GreenMetrics{},
		Meta: models.Meta{
			DataSource: models.DataSourceFallback,
		},
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
