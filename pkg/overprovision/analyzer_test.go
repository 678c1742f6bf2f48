package overprovision

import (
	"math"
	"testing"

	"github.com/virtscope/capacity-engine/pkg/models"
)

func TestRightsizeRecommendation(t *testing.T) {
	// 8 vCPU / 16GB at 25% CPU / 50% RAM exercises the headroom
	// arithmetic end to end.
	g := Guest{
		ConnectionID: "c1",
		Snapshot: models.GuestSnapshot{
			ID: "101", Name: "web-01", Node: "pve1", Status: "running",
			CPUPercent: 25, RAMPercent: 50,
			CPUAllocatedCores: 8, RAMAllocatedBytes: 16 << 30,
		},
	}

	c, score, ok := rightsize(g)
	if !ok {
		t.Fatal("expected a candidate: savings exceed both thresholds")
	}
	if c.RecommendedCPU != 3 { // ceil(8*0.25*1.3) = ceil(2.6)
		t.Errorf("expected recommended CPU 3, got %d", c.RecommendedCPU)
	}
	if c.RecommendedRAMGB != 10 { // ceil(16*0.5*1.2) = ceil(9.6)
		t.Errorf("expected recommended RAM 10GB, got %d", c.RecommendedRAMGB)
	}
	if c.SavingsCPU != 5 {
		t.Errorf("expected CPU savings 5, got %d", c.SavingsCPU)
	}
	if math.Abs(c.SavingsRAMGB-6) > 0.001 {
		t.Errorf("expected RAM savings 6GB, got %.2f", c.SavingsRAMGB)
	}
	if math.Abs(score-56) > 0.001 { // 5*10 + 6
		t.Errorf("expected priority score 56, got %.2f", score)
	}
}

func TestRightsizeMinimumFloor(t *testing.T) {
	g := Guest{
		Snapshot: models.GuestSnapshot{
			Status: "running", CPUPercent: 1, RAMPercent: 1,
			CPUAllocatedCores: 4, RAMAllocatedBytes: 8 << 30,
		},
	}
	c, _, ok := rightsize(g)
	if !ok {
		t.Fatal("expected a candidate")
	}
	if c.RecommendedCPU != 1 || c.RecommendedRAMGB != 1 {
		t.Errorf("recommendations must floor at 1, got %d CPU / %dGB", c.RecommendedCPU, c.RecommendedRAMGB)
	}
}

func TestRightsizeBelowThresholdSkipped(t *testing.T) {
	// High utilization: savings under both thresholds.
	g := Guest{
		Snapshot: models.GuestSnapshot{
			Status: "running", CPUPercent: 90, RAMPercent: 90,
			CPUAllocatedCores: 4, RAMAllocatedBytes: 8 << 30,
		},
	}
	if _, _, ok := rightsize(g); ok {
		t.Error("marginal VM must not be listed as a candidate")
	}
}

func TestAnalyzeRatiosAndCandidates(t *testing.T) {
	capacities := map[models.NodeKey]models.NodeCapacity{
		{ConnectionID: "c1", Node: "pve1"}: {MaxCPUCores: 16, MaxMemBytes: 64 << 30},
		{ConnectionID: "c1", Node: "pve2"}: {MaxCPUCores: 16, MaxMemBytes: 64 << 30},
	}
	guests := []Guest{
		{ConnectionID: "c1", Snapshot: models.GuestSnapshot{
			ID: "100", Node: "pve1", Status: "running",
			CPUPercent: 25, RAMPercent: 50,
			CPUAllocatedCores: 24, RAMAllocatedBytes: 48 << 30,
		}},
		{ConnectionID: "c1", Snapshot: models.GuestSnapshot{
			ID: "101", Node: "pve2", Status: "running",
			CPUPercent: 50, RAMPercent: 50,
			CPUAllocatedCores: 8, RAMAllocatedBytes: 16 << 30,
		}},
		// Stopped guests contribute nothing.
		{ConnectionID: "c1", Snapshot: models.GuestSnapshot{
			ID: "102", Node: "pve1", Status: "stopped",
			CPUAllocatedCores: 64, RAMAllocatedBytes: 256 << 30,
		}},
	}

	report := Analyze(capacities, guests)

	if math.Abs(report.CPU.Ratio-1.0) > 0.001 { // 32 vCPU / 32 cores
		t.Errorf("expected CPU ratio 1.0, got %.2f", report.CPU.Ratio)
	}
	if math.Abs(report.RAM.Ratio-0.5) > 0.001 { // 64GB / 128GB
		t.Errorf("expected RAM ratio 0.5, got %.2f", report.RAM.Ratio)
	}
	// Used-of-allocated: (24*0.25 + 8*0.5) / 32 = 10/32.
	if math.Abs(report.CPU.EfficiencyPercent-31.3) > 0.1 {
		t.Errorf("expected CPU efficiency ~31.3%%, got %.1f", report.CPU.EfficiencyPercent)
	}

	if len(report.Nodes) != 2 {
		t.Fatalf("expected 2 node breakdown rows, got %d", len(report.Nodes))
	}
	pve1 := report.Nodes[0]
	if pve1.Node != "pve1" {
		t.Fatalf("expected sorted node order, got %s first", pve1.Node)
	}
	if math.Abs(pve1.CPURatio-1.5) > 0.001 { // 24/16
		t.Errorf("expected pve1 CPU ratio 1.5, got %.2f", pve1.CPURatio)
	}

	// VM 100 saves big; VM 101 saves 8-ceil(8*0.5*1.3)=2 CPU only.
	if len(report.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(report.Candidates))
	}
	if report.Candidates[0].ID != "100" {
		t.Errorf("expected biggest saver ranked first, got %s", report.Candidates[0].ID)
	}
}

func TestAnalyzeCandidateTruncation(t *testing.T) {
	capacities := map[models.NodeKey]models.NodeCapacity{
		{ConnectionID: "c1", Node: "pve1"}: {MaxCPUCores: 512, MaxMemBytes: 2048 << 30},
	}
	var guests []Guest
	for i := 0; i < 15; i++ {
		guests = append(guests, Guest{ConnectionID: "c1", Snapshot: models.GuestSnapshot{
			ID: string(rune('a' + i)), Node: "pve1", Status: "running",
			CPUPercent: 10, RAMPercent: 10,
			CPUAllocatedCores: 8, RAMAllocatedBytes: 16 << 30,
		}})
	}

	report := Analyze(capacities, guests)
	if len(report.Candidates) != 10 {
		t.Errorf("candidate list must be truncated to 10, got %d", len(report.Candidates))
	}
}
