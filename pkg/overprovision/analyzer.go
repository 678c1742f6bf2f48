// Package overprovision computes allocation-vs-physical ratios and per-VM
// rightsizing recommendations from current-instant inventory snapshots.
package overprovision

import (
	"math"
	"sort"

	"github.com/virtscope/capacity-engine/pkg/models"
)

const (
	// Headroom margins applied on top of the observed working set. RAM
	// headroom is narrower than CPU because RAM over-commit has harsher
	// failure modes.
	cpuHeadroom = 1.3
	ramHeadroom = 1.2

	// Minimum savings before a VM is worth listing; keeps marginal VMs out
	// of the candidate list.
	minCPUSavings   = 2
	minRAMSavingsGB = 2.0

	// CPU savings weigh 10x a GB of RAM in the ranking: a vCPU is a
	// coarser, more contended resource unit. Asserted, not derived; do not
	// extend to new resource types without an explicit cost model.
	cpuPriorityWeight = 10.0

	maxCandidates = 10

	bytesPerGB = 1 << 30
)

// Guest pairs a guest snapshot with the connection it came from.
type Guest struct {
	ConnectionID string
	Snapshot     models.GuestSnapshot
}

// Analyze builds the full overprovisioning report from the current node
// capacities and guest inventory. Only running guests contribute to
// utilization, allocation totals and recommendations.
func Analyze(capacities map[models.NodeKey]models.NodeCapacity, guests []Guest) *models.OverprovisioningReport {
	report := &models.OverprovisioningReport{}

	var physicalCores float64
	var physicalMem float64
	for _, c := range capacities {
		physicalCores += float64(c.MaxCPUCores)
		physicalMem += float64(c.MaxMemBytes)
	}

	type nodeAlloc struct {
		cpu float64
		ram float64
	}
	perNode := make(map[models.NodeKey]*nodeAlloc)

	var allocCores, allocMem float64
	var usedOfAllocCores, usedOfAllocMem float64
	type scored struct {
		candidate models.RightsizingCandidate
		score     float64
	}
	var candidates []scored

	for _, g := range guests {
		vm := g.Snapshot
		if !vm.Running() {
			continue
		}

		allocCores += float64(vm.CPUAllocatedCores)
		allocMem += float64(vm.RAMAllocatedBytes)
		usedOfAllocCores += float64(vm.CPUAllocatedCores) * vm.CPUPercent / 100
		usedOfAllocMem += float64(vm.RAMAllocatedBytes) * vm.RAMPercent / 100

		key := models.NodeKey{ConnectionID: g.ConnectionID, Node: vm.Node}
		na := perNode[key]
		if na == nil {
			na = &nodeAlloc{}
			perNode[key] = na
		}
		na.cpu += float64(vm.CPUAllocatedCores)
		na.ram += float64(vm.RAMAllocatedBytes)

		if c, score, ok := rightsize(g); ok {
			candidates = append(candidates, scored{candidate: c, score: score})
		}
	}

	report.CPU = ratioBlock(allocCores, physicalCores, usedOfAllocCores)
	report.RAM = ratioBlock(allocMem, physicalMem, usedOfAllocMem)

	for key, cap := range capacities {
		nr := models.NodeRatio{ConnectionID: key.ConnectionID, Node: key.Node}
		if na := perNode[key]; na != nil {
			if cap.MaxCPUCores > 0 {
				nr.CPURatio = round2(na.cpu / float64(cap.MaxCPUCores))
			}
			if cap.MaxMemBytes > 0 {
				nr.RAMRatio = round2(na.ram / float64(cap.MaxMemBytes))
			}
		}
		report.Nodes = append(report.Nodes, nr)
	}
	sort.Slice(report.Nodes, func(i, j int) bool {
		if report.Nodes[i].ConnectionID != report.Nodes[j].ConnectionID {
			return report.Nodes[i].ConnectionID < report.Nodes[j].ConnectionID
		}
		return report.Nodes[i].Node < report.Nodes[j].Node
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	for _, s := range candidates {
		report.Candidates = append(report.Candidates, s.candidate)
	}

	return report
}

// rightsize computes the recommendation for one running VM and whether it
// clears the minimum-savings thresholds. The priority score is used only
// for ranking, never exposed.
func rightsize(g Guest) (models.RightsizingCandidate, float64, bool) {
	vm := g.Snapshot

	allocCPU := vm.CPUAllocatedCores
	recCPU := int(math.Ceil(float64(allocCPU) * vm.CPUPercent / 100 * cpuHeadroom))
	if recCPU < 1 {
		recCPU = 1
	}

	allocRAMGB := float64(vm.RAMAllocatedBytes) / bytesPerGB
	recRAMGB := int(math.Ceil(allocRAMGB * vm.RAMPercent / 100 * ramHeadroom))
	if recRAMGB < 1 {
		recRAMGB = 1
	}

	savingsCPU := allocCPU - recCPU
	if savingsCPU < 0 {
		savingsCPU = 0
	}
	savingsRAMGB := allocRAMGB - float64(recRAMGB)
	if savingsRAMGB < 0 {
		savingsRAMGB = 0
	}

	if savingsCPU < minCPUSavings && savingsRAMGB < minRAMSavingsGB {
		return models.RightsizingCandidate{}, 0, false
	}

	c := models.RightsizingCandidate{
		ID:               vm.ID,
		Name:             vm.Name,
		Node:             vm.Node,
		ConnectionID:     g.ConnectionID,
		CPUPercent:       vm.CPUPercent,
		RAMPercent:       vm.RAMPercent,
		AllocatedCPU:     allocCPU,
		RecommendedCPU:   recCPU,
		AllocatedRAMGB:   round2(allocRAMGB),
		RecommendedRAMGB: recRAMGB,
		SavingsCPU:       savingsCPU,
		SavingsRAMGB:     round2(savingsRAMGB),
	}
	score := float64(savingsCPU)*cpuPriorityWeight + savingsRAMGB
	return c, score, true
}

func ratioBlock(allocated, physical, usedOfAllocated float64) models.RatioBlock {
	b := models.RatioBlock{
		Allocated: allocated,
		Physical:  physical,
	}
	if physical > 0 {
		b.Ratio = round2(allocated / physical)
	}
	if allocated > 0 {
		b.EfficiencyPercent = round1(usedOfAllocated / allocated * 100)
	}
	return b
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
