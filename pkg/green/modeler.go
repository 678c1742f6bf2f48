package green

import (
	"fmt"
	"math"

	"github.com/virtscope/capacity-engine/pkg/models"
)

// Unit-conversion constants for the pedagogical equivalences. Straight
// divisions from yearly CO2, no special logic.
const (
	kgCO2PerKmDriven  = 0.12  // average passenger car
	kgCO2PerTreeYear  = 21.0  // absorption of one mature tree per year
	kWhPerPhoneCharge = 0.012 // full smartphone charge
)

const bytesPerGB = 1 << 30

// Input is the instantaneous fleet picture the model consumes.
type Input struct {
	CPUUsedPercent     float64
	TotalCPUCores      int
	TotalRAMBytes      int64
	RunningVMs         int
	TotalVMs           int
	AllocEfficiencyPct float64 // from the overprovisioning report
}

// Model derives power/cost/CO2/efficiency figures. Pure function of its
// inputs; every granularity is internally consistent modulo rounding.
func Model(in Input, profile *Coefficients) *models.GreenMetrics {
	c := Merge(profile)

	servers := int(math.Ceil(float64(in.TotalCPUCores) / c.AvgCoresPerServer))
	if servers < 1 {
		servers = 1
	}

	itWatts := wattsAt(in, c, in.CPUUsedPercent)
	totalWatts := itWatts * c.PUE
	maxWatts := wattsAt(in, c, 100) * c.PUE

	hourlyKWh := totalWatts / 1000
	dailyKWh := hourlyKWh * 24
	monthlyKWh := dailyKWh * 30
	yearlyKWh := dailyKWh * 365

	yearlyCO2 := yearlyKWh * c.CO2KgPerKWh

	score, factors := efficiencyScore(in, c)

	return &models.GreenMetrics{
		Power: models.PowerBlock{
			ITWatts:            round1(itWatts),
			TotalWatts:         round1(totalWatts),
			MaxWatts:           round1(maxWatts),
			EstimatedServers:   servers,
			UtilizationPercent: round1(in.CPUUsedPercent),
		},
		CO2: models.CO2Block{
			HourlyKg:  round3(hourlyKWh * c.CO2KgPerKWh),
			DailyKg:   round2(dailyKWh * c.CO2KgPerKWh),
			MonthlyKg: round1(monthlyKWh * c.CO2KgPerKWh),
			YearlyKg:  round1(yearlyCO2),
		},
		Cost: models.CostBlock{
			Hourly:   round3(hourlyKWh * c.CostPerKWh),
			Daily:    round2(dailyKWh * c.CostPerKWh),
			Monthly:  round1(monthlyKWh * c.CostPerKWh),
			Yearly:   round1(yearlyKWh * c.CostPerKWh),
			Currency: c.Currency,
		},
		Efficiency: models.EfficiencyBlock{
			Score:   score,
			Factors: factors,
		},
		Equivalents: models.Equivalents{
			KmDriven:     round1(yearlyCO2 / kgCO2PerKmDriven),
			TreesNeeded:  round1(yearlyCO2 / kgCO2PerTreeYear),
			PhoneCharges: math.Round(yearlyKWh / kWhPerPhoneCharge),
		},
	}
}

// wattsAt computes IT-equipment draw at a given CPU utilization.
func wattsAt(in Input, c Coefficients, cpuPercent float64) float64 {
	servers := math.Ceil(float64(in.TotalCPUCores) / c.AvgCoresPerServer)
	if servers < 1 {
		servers = 1
	}
	cpuWatts := c.TDPPerCoreWatts * float64(in.TotalCPUCores) * cpuPercent / 100
	ramWatts := c.WattsPerGBRAM * float64(in.TotalRAMBytes) / bytesPerGB
	return cpuWatts + ramWatts + c.OverheadPerNode*servers
}

// efficiencyScore starts at 100 and applies independent additive
// penalties and bonuses; the deltas are order-independent and summed
// before clamping to [0,100].
func efficiencyScore(in Input, c Coefficients) (int, []string) {
	score := 100.0
	var factors []string

	apply := func(delta float64, reason string) {
		score += delta
		factors = append(factors, fmt.Sprintf("%+.0f %s", delta, reason))
	}

	switch {
	case in.CPUUsedPercent < 10:
		apply(-30, "cluster CPU utilization below 10%")
	case in.CPUUsedPercent < 20:
		apply(-20, "cluster CPU utilization below 20%")
	case in.CPUUsedPercent < 30:
		apply(-10, "cluster CPU utilization below 30%")
	}

	if in.TotalVMs > 0 {
		stoppedRatio := float64(in.TotalVMs-in.RunningVMs) / float64(in.TotalVMs)
		switch {
		case stoppedRatio > 0.5:
			apply(-15, "more than half the fleet is stopped")
		case stoppedRatio > 0.3:
			apply(-10, "more than 30% of the fleet is stopped")
		case stoppedRatio > 0.2:
			apply(-5, "more than 20% of the fleet is stopped")
		}
	}

	switch {
	case in.AllocEfficiencyPct > 70:
		apply(+10, "allocations closely match real usage")
	case in.AllocEfficiencyPct > 50:
		apply(+5, "allocations reasonably match real usage")
	}

	switch {
	case c.PUE > 1.8:
		apply(-15, "poor facility PUE")
	case c.PUE > 1.5:
		apply(-10, "mediocre facility PUE")
	case c.PUE > 1.3:
		apply(-5, "average facility PUE")
	case c.PUE <= 1.2:
		apply(+5, "excellent facility PUE")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(score), factors
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
