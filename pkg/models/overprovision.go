package models

// RatioBlock summarizes one resource dimension of the overprovisioning
// report. Ratio is allocated/physical; values > 1 mean commitment beyond
// physical capacity. EfficiencyPercent is how much of the allocation is
// actually used by running guests.
type RatioBlock struct {
	Allocated         float64 `json:"allocated"`
	Physical          float64 `json:"physical"`
	Ratio             float64 `json:"ratio"`
	EfficiencyPercent float64 `json:"efficiencyPercent"`
}

// NodeRatio is the per-node allocation/physical breakdown, independent of
// the VM-level recommendations.
type NodeRatio struct {
	ConnectionID string  `json:"connectionId"`
	Node         string  `json:"node"`
	CPURatio     float64 `json:"cpuRatio"`
	RAMRatio     float64 `json:"ramRatio"`
}

// RightsizingCandidate is one VM whose allocation can shrink by at least
// the minimum-savings thresholds.
type RightsizingCandidate struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Node             string  `json:"node"`
	ConnectionID     string  `json:"connectionId"`
	CPUPercent       float64 `json:"cpuPercent"`
	RAMPercent       float64 `json:"ramPercent"`
	AllocatedCPU     int     `json:"allocatedCpu"`
	RecommendedCPU   int     `json:"recommendedCpu"`
	AllocatedRAMGB   float64 `json:"allocatedRamGb"`
	RecommendedRAMGB int     `json:"recommendedRamGb"`
	SavingsCPU       int     `json:"savingsCpu"`
	SavingsRAMGB     float64 `json:"savingsRamGb"`
}

// OverprovisioningReport is the full allocation-vs-physical analysis.
type OverprovisioningReport struct {
	CPU        RatioBlock             `json:"cpu"`
	RAM        RatioBlock             `json:"ram"`
	Nodes      []NodeRatio            `json:"nodes"`
	Candidates []RightsizingCandidate `json:"candidates"`
}
