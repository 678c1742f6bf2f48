package analyzer

import (
	"math"
	"testing"

	"github.com/virtscope/capacity-engine/pkg/models"
)

const day = DayKey("2026-03-01")

func nodeDaily(conn, name string, cores int, memGB int64, cpu, ram []float64) NodeDaily {
	return NodeDaily{
		Key:      models.NodeKey{ConnectionID: conn, Node: name},
		Capacity: models.NodeCapacity{MaxCPUCores: cores, MaxMemBytes: memGB << 30},
		Days:     map[DayKey]*DailyReadings{day: {CPU: cpu, RAM: ram}},
	}
}

func TestWeightedAverageEqualWeights(t *testing.T) {
	nodes := []NodeDaily{
		nodeDaily("c1", "a", 8, 64, []float64{20}, []float64{40}),
		nodeDaily("c1", "b", 8, 64, []float64{80}, []float64{40}),
	}

	out := WeightedAverage(nodes)
	avg, ok := out[day]
	if !ok {
		t.Fatal("expected an entry for the day")
	}
	if math.Abs(avg.CPUPercent-50.0) > 0.001 {
		t.Errorf("expected global CPU 50%%, got %.2f", avg.CPUPercent)
	}
	if avg.ContributingNodes != 2 {
		t.Errorf("expected 2 contributing nodes, got %d", avg.ContributingNodes)
	}
}

func TestWeightedAverageWeightSensitivity(t *testing.T) {
	nodes := []NodeDaily{
		nodeDaily("c1", "a", 8, 64, []float64{20}, []float64{40}),
		nodeDaily("c1", "b", 24, 64, []float64{80}, []float64{40}),
	}

	out := WeightedAverage(nodes)
	avg := out[day]
	// (20*8 + 80*24) / 32 = 65
	if math.Abs(avg.CPUPercent-65.0) > 0.001 {
		t.Errorf("expected global CPU 65%%, got %.2f", avg.CPUPercent)
	}
}

func TestWeightedAverageEqualReadingsIgnoreWeights(t *testing.T) {
	nodes := []NodeDaily{
		nodeDaily("c1", "a", 4, 32, []float64{37}, []float64{21}),
		nodeDaily("c2", "b", 12, 256, []float64{37}, []float64{21}),
	}

	avg := WeightedAverage(nodes)[day]
	if math.Abs(avg.CPUPercent-37.0) > 0.001 {
		t.Errorf("weights must not matter for equal readings: got CPU %.2f", avg.CPUPercent)
	}
	if math.Abs(avg.RAMPercent-21.0) > 0.001 {
		t.Errorf("weights must not matter for equal readings: got RAM %.2f", avg.RAMPercent)
	}
}

func TestWeightedAverageNearIdleExclusion(t *testing.T) {
	active := nodeDaily("c1", "a", 8, 64, []float64{50}, []float64{40})
	// Near-idle node: RAM below threshold but a non-trivial CPU reading.
	// Its capacity must be absent from both weight sums.
	idle := nodeDaily("c1", "b", 64, 512, []float64{70}, []float64{2})

	avg := WeightedAverage([]NodeDaily{active, idle})[day]
	if math.Abs(avg.CPUPercent-50.0) > 0.001 {
		t.Errorf("idle node leaked into CPU average: got %.2f", avg.CPUPercent)
	}
	if math.Abs(avg.RAMPercent-40.0) > 0.001 {
		t.Errorf("idle node leaked into RAM average: got %.2f", avg.RAMPercent)
	}
	if avg.ContributingNodes != 1 {
		t.Errorf("expected 1 contributing node, got %d", avg.ContributingNodes)
	}
}

func TestWeightedAverageNoRAMReadingStaysIncluded(t *testing.T) {
	// A node with no RAM readings at all cannot be judged near-idle; its
	// CPU still contributes.
	cpuOnly := NodeDaily{
		Key:      models.NodeKey{ConnectionID: "c1", Node: "a"},
		Capacity: models.NodeCapacity{MaxCPUCores: 8, MaxMemBytes: 64 << 30},
		Days:     map[DayKey]*DailyReadings{day: {CPU: []float64{30}}},
	}
	ramOnly := NodeDaily{
		Key:      models.NodeKey{ConnectionID: "c1", Node: "b"},
		Capacity: models.NodeCapacity{MaxCPUCores: 16, MaxMemBytes: 128 << 30},
		Days:     map[DayKey]*DailyReadings{day: {RAM: []float64{60}}},
	}

	avg := WeightedAverage([]NodeDaily{cpuOnly, ramOnly})[day]
	if math.Abs(avg.CPUPercent-30.0) > 0.001 {
		t.Errorf("expected CPU 30%%, got %.2f", avg.CPUPercent)
	}
	if math.Abs(avg.RAMPercent-60.0) > 0.001 {
		t.Errorf("expected RAM 60%%, got %.2f", avg.RAMPercent)
	}
	if avg.ContributingNodes != 1 {
		t.Errorf("expected max(1,1)=1 contributing nodes, got %d", avg.ContributingNodes)
	}
}

func TestWeightedAverageSkipsSignallessDay(t *testing.T) {
	// All-zero numerators: nothing to report for the day.
	zero := nodeDaily("c1", "a", 8, 64, []float64{0}, nil)
	out := WeightedAverage([]NodeDaily{zero})
	if _, ok := out[day]; ok {
		t.Error("day with zero numerator sums must not be emitted")
	}
}

func TestAggregateDaily(t *testing.T) {
	diag := NewDiagnostics()
	samples := []models.RawSample{
		{Time: 1767225600, CPU: models.Float(0.2), MemUsed: models.Float(8 << 30), MemTotal: models.Float(32 << 30)}, // 2026-01-01
		{Time: 1767229200, CPU: models.Float(0.4)},                       // same day
		{Time: 1767312000, CPU: models.Float(0.6)},                       // 2026-01-02
		{Time: 1767312100, CPU: models.Float(-5)},                        // invalid: whole sample empty
		{Time: 0, CPU: models.Float(0.9)},                                // no timestamp
		{Time: 1767398400, MemUsed: models.Float(1), MemTotal: models.Float(0)}, // invalid RAM only
	}

	days := AggregateDaily(samples, diag)
	if len(days) != 2 {
		t.Fatalf("expected 2 days with data, got %d", len(days))
	}

	d1 := days[DayKey("2026-01-01")]
	if d1 == nil || len(d1.CPU) != 2 || len(d1.RAM) != 1 {
		t.Fatalf("unexpected day 1 readings: %+v", d1)
	}
	d2 := days[DayKey("2026-01-02")]
	if d2 == nil || len(d2.CPU) != 1 {
		t.Fatalf("unexpected day 2 readings: %+v", d2)
	}
	if _, ok := days[DayKey("2026-01-03")]; ok {
		t.Error("day with no valid readings must be deleted")
	}
}
