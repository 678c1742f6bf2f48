package overview

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/virtscope/capacity-engine/pkg/datasource"
	"github.com/virtscope/capacity-engine/pkg/green"
	"github.com/virtscope/capacity-engine/pkg/models"
)

type fakeRegistry struct {
	conns []models.ClusterConnection
	err   error
}

func (f *fakeRegistry) List(ctx context.Context) ([]models.ClusterConnection, error) {
	return f.conns, f.err
}

type fakeInventory struct {
	nodes    map[string][]models.NodeSnapshot
	guests   map[string][]models.GuestSnapshot
	storages map[string][]models.StorageSnapshot
	failing  map[string]bool
}

func (f *fakeInventory) ListNodes(ctx context.Context, conn models.ClusterConnection) ([]models.NodeSnapshot, error) {
	if f.failing[conn.ID] {
		return nil, errors.New("connection refused")
	}
	return f.nodes[conn.ID], nil
}

func (f *fakeInventory) ListGuests(ctx context.Context, conn models.ClusterConnection) ([]models.GuestSnapshot, error) {
	if f.failing[conn.ID] {
		return nil, errors.New("connection refused")
	}
	return f.guests[conn.ID], nil
}

func (f *fakeInventory) ListStorages(ctx context.Context, conn models.ClusterConnection) ([]models.StorageSnapshot, error) {
	if f.failing[conn.ID] {
		return nil, errors.New("connection refused")
	}
	return f.storages[conn.ID], nil
}

type fakeHistory struct {
	nodeSamples map[string][]models.RawSample // keyed by node name
	err         error
}

func (f *fakeHistory) NodeHistory(ctx context.Context, conn models.ClusterConnection, node string, window time.Duration) ([]models.RawSample, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.nodeSamples[node], nil
}

func (f *fakeHistory) StorageHistory(ctx context.Context, conn models.ClusterConnection, node, storage string, window time.Duration) ([]models.RawSample, error) {
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func (f *fakeHistory) IsAvailable(ctx context.Context) bool { return f.err == nil }
func (f *fakeHistory) Name() string                         { return "fake" }

type fakeSettings struct {
	profile *green.Coefficients
	err     error
}

func (f *fakeSettings) HardwareProfile(ctx context.Context) (*green.Coefficients, error) {
	return f.profile, f.err
}

func sampleAt(day time.Time, hour int, cpu, ramFrac float64) models.RawSample {
	ts := day.Add(time.Duration(hour) * time.Hour).Unix()
	return models.RawSample{
		Time:     ts,
		CPU:      models.Float(cpu),
		MemUsed:  models.Float(ramFrac * 64 * (1 << 30)),
		MemTotal: models.Float(64 * (1 << 30)),
	}
}

func newTestOrchestrator(reg *fakeRegistry, inv *fakeInventory, hist datasource.HistorySource, settings SettingsStore) *Orchestrator {
	return New(reg, inv, []datasource.HistorySource{hist}, settings, zap.NewNop(),
		WithClock(func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }),
		WithHistoryConcurrency(4),
	)
}

func threeConnFixture(failing string) (*fakeRegistry, *fakeInventory, *fakeHistory) {
	reg := &fakeRegistry{conns: []models.ClusterConnection{
		{ID: "c1", Name: "alpha"}, {ID: "c2", Name: "beta"}, {ID: "c3", Name: "gamma"},
	}}

	inv := &fakeInventory{
		nodes:    map[string][]models.NodeSnapshot{},
		guests:   map[string][]models.GuestSnapshot{},
		storages: map[string][]models.StorageSnapshot{},
		failing:  map[string]bool{},
	}
	if failing != "" {
		inv.failing[failing] = true
	}

	for _, id := range []string{"c1", "c2", "c3"} {
		inv.nodes[id] = []models.NodeSnapshot{{
			Node: "node-" + id, Status: "online",
			CPURatio: 0.40, CoreCount: 16,
			MemUsedBytes: 32 << 30, MemTotalBytes: 64 << 30,
		}}
		inv.guests[id] = []models.GuestSnapshot{
			{ID: id + "-100", Name: "vm-" + id, Node: "node-" + id, Status: "running",
				CPUPercent: 30, RAMPercent: 40, CPUAllocatedCores: 8, RAMAllocatedBytes: 16 << 30},
			{ID: id + "-101", Name: "stopped-" + id, Node: "node-" + id, Status: "stopped",
				CPUAllocatedCores: 4, RAMAllocatedBytes: 8 << 30},
		}
		inv.storages[id] = []models.StorageSnapshot{{
			Node: "node-" + id, Storage: "local", Status: "available",
			UsedBytes: 200 << 30, TotalBytes: 1000 << 30,
		}}
	}

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	hist := &fakeHistory{nodeSamples: map[string][]models.RawSample{}}
	for _, id := range []string{"c1", "c2", "c3"} {
		var samples []models.RawSample
		for d := 0; d < 5; d++ {
			for h := 0; h < 4; h++ {
				samples = append(samples, sampleAt(day.AddDate(0, 0, d), h, 0.40, 0.50))
			}
		}
		hist.nodeSamples["node-"+id] = samples
	}
	return reg, inv, hist
}

func TestOverviewHappyPath(t *testing.T) {
	reg, inv, hist := threeConnFixture("")
	o := newTestOrchestrator(reg, inv, hist, &fakeSettings{})

	resp, err := o.GetResourceOverview(context.Background())
	if err != nil {
		t.Fatalf("GetResourceOverview failed: %v", err)
	}

	if resp.Meta.ConnectionsCount != 3 || resp.Meta.NodesCount != 3 {
		t.Errorf("unexpected meta: %+v", resp.Meta)
	}
	if resp.Meta.DataSource != models.DataSourceRRDWeighted {
		t.Errorf("expected rrd_weighted, got %s", resp.Meta.DataSource)
	}
	if resp.Meta.RRDDaysAvailable != 5 {
		t.Errorf("expected 5 days of history, got %d", resp.Meta.RRDDaysAvailable)
	}

	// All nodes run at 40% CPU.
	if math.Abs(resp.KPIs.CPU.Used-40.0) > 0.1 {
		t.Errorf("expected CPU 40%%, got %.1f", resp.KPIs.CPU.Used)
	}
	if resp.KPIs.CPU.Total != 48 {
		t.Errorf("expected 48 physical cores, got %.0f", resp.KPIs.CPU.Total)
	}
	if resp.KPIs.CPU.Allocated != 24 { // 3 running VMs x 8 vCPU
		t.Errorf("expected 24 allocated vCPUs, got %.0f", resp.KPIs.CPU.Allocated)
	}
	if resp.KPIs.VMs.Total != 6 || resp.KPIs.VMs.Running != 3 || resp.KPIs.VMs.Stopped != 3 {
		t.Errorf("unexpected VM counts: %+v", resp.KPIs.VMs)
	}

	if len(resp.Trends) != 5 {
		t.Errorf("expected 5 trend points, got %d", len(resp.Trends))
	}
	if resp.TrendsPeriod.Start != "2026-03-01" || resp.TrendsPeriod.End != "2026-03-05" {
		t.Errorf("unexpected period: %+v", resp.TrendsPeriod)
	}

	if len(resp.TopCPUVMs) != 3 {
		t.Errorf("expected 3 top CPU VMs, got %d", len(resp.TopCPUVMs))
	}
	if resp.Overprovisioning == nil || resp.Green == nil {
		t.Fatal("report blocks must always be present")
	}
	if resp.KPIs.Efficiency < 0 || resp.KPIs.Efficiency > 100 {
		t.Errorf("efficiency out of bounds: %d", resp.KPIs.Efficiency)
	}
}

func TestOverviewPartialConnectionFailure(t *testing.T) {
	reg, inv, hist := threeConnFixture("c2")
	o := newTestOrchestrator(reg, inv, hist, &fakeSettings{})

	resp, err := o.GetResourceOverview(context.Background())
	if err != nil {
		t.Fatalf("one failing connection must not fail the request: %v", err)
	}

	// The failing connection still counts in meta but contributes nothing.
	if resp.Meta.ConnectionsCount != 3 {
		t.Errorf("expected connectionsCount 3, got %d", resp.Meta.ConnectionsCount)
	}
	if resp.Meta.NodesCount != 2 {
		t.Errorf("expected 2 nodes from surviving connections, got %d", resp.Meta.NodesCount)
	}
	if resp.KPIs.CPU.Total != 32 {
		t.Errorf("expected 32 cores from surviving connections, got %.0f", resp.KPIs.CPU.Total)
	}
	if math.Abs(resp.KPIs.CPU.Used-40.0) > 0.1 {
		t.Errorf("surviving KPIs must stay correct, got CPU %.1f", resp.KPIs.CPU.Used)
	}
	if resp.KPIs.VMs.Total != 4 {
		t.Errorf("expected 4 guests from surviving connections, got %d", resp.KPIs.VMs.Total)
	}
}

func TestOverviewHistoryFailureFallsBack(t *testing.T) {
	reg, inv, _ := threeConnFixture("")
	broken := &fakeHistory{err: errors.New("rrd endpoint timeout")}
	o := newTestOrchestrator(reg, inv, broken, &fakeSettings{})

	resp, err := o.GetResourceOverview(context.Background())
	if err != nil {
		t.Fatalf("history failures must not fail the request: %v", err)
	}
	if resp.Meta.DataSource != models.DataSourceFallback {
		t.Errorf("expected fallback data source, got %s", resp.Meta.DataSource)
	}
	if len(resp.Trends) == 0 {
		t.Error("fallback must still produce a chartable series")
	}
	// Flat series at current utilization.
	for _, p := range resp.Trends {
		if math.Abs(p.CPUPercent-40.0) > 0.1 {
			t.Fatalf("fallback series must be flat at current CPU, got %.1f", p.CPUPercent)
		}
	}
}

func TestOverviewEmptyRegistry(t *testing.T) {
	o := newTestOrchestrator(&fakeRegistry{}, &fakeInventory{}, &fakeHistory{}, &fakeSettings{})

	resp, err := o.GetResourceOverview(context.Background())
	if err != nil {
		t.Fatalf("empty registry must yield the empty response, not an error: %v", err)
	}
	if resp.Meta.ConnectionsCount != 0 || resp.KPIs.CPU.Total != 0 {
		t.Errorf("expected all-zero response, got %+v", resp.KPIs)
	}
	if resp.Trends == nil || resp.TopCPUVMs == nil {
		t.Error("empty response must keep slices non-nil for JSON consumers")
	}
}

func TestOverviewRegistryErrorPropagates(t *testing.T) {
	o := newTestOrchestrator(&fakeRegistry{err: errors.New("registry down")}, &fakeInventory{}, &fakeHistory{}, &fakeSettings{})
	if _, err := o.GetResourceOverview(context.Background()); err == nil {
		t.Error("registry failure must propagate")
	}
}

func TestOverviewSettingsErrorPropagates(t *testing.T) {
	reg, inv, hist := threeConnFixture("")
	o := newTestOrchestrator(reg, inv, hist, &fakeSettings{err: errors.New("corrupt profile")})
	if _, err := o.GetResourceOverview(context.Background()); err == nil {
		t.Error("settings store failure must propagate")
	}
}

func TestOverviewHonorsCancellation(t *testing.T) {
	reg, inv, hist := threeConnFixture("")
	o := newTestOrchestrator(reg, inv, hist, &fakeSettings{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context degrades history fetches; the call still returns
	// a well-formed response rather than hanging.
	resp, err := o.GetResourceOverview(ctx)
	if err != nil {
		t.Fatalf("cancelled context must degrade, not error: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a response")
	}
}
