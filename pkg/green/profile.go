// Package green models power draw, energy cost, CO2 emissions and an
// efficiency score from current utilization and operator-tunable hardware
// coefficients.
package green

// Coefficients are the operator-tunable hardware/power/cost parameters of
// the model. Zero-valued fields are replaced by the documented defaults.
type Coefficients struct {
	TDPPerCoreWatts   float64 `json:"tdpPerCoreWatts"`
	WattsPerGBRAM     float64 `json:"wattsPerGbRam"`
	OverheadPerNode   float64 `json:"overheadPerNodeWatts"`
	AvgCoresPerServer float64 `json:"avgCoresPerServer"`
	PUE               float64 `json:"pue"`
	CostPerKWh        float64 `json:"costPerKwh"`
	CO2KgPerKWh       float64 `json:"co2KgPerKwh"`
	Currency          string  `json:"currency"`
}

// DefaultCoefficients returns conservative figures for commodity
// virtualization hosts in a European colocation facility.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		TDPPerCoreWatts:   12.0,  // modern server CPU, per physical core
		WattsPerGBRAM:     0.4,   // DDR4/DDR5 DIMM draw
		OverheadPerNode:   100.0, // fans, PSU loss, NICs, BMC
		AvgCoresPerServer: 32,
		PUE:               1.6, // typical mixed-age facility
		CostPerKWh:        0.25,
		CO2KgPerKWh:       0.35, // EU grid average
		Currency:          "EUR",
	}
}

// Merge fills zero-valued fields of an operator profile with defaults.
func Merge(profile *Coefficients) Coefficients {
	out := DefaultCoefficients()
	if profile == nil {
		return out
	}
	if profile.TDPPerCoreWatts > 0 {
		out.TDPPerCoreWatts = profile.TDPPerCoreWatts
	}
	if profile.WattsPerGBRAM > 0 {
		out.WattsPerGBRAM = profile.WattsPerGBRAM
	}
	if profile.OverheadPerNode > 0 {
		out.OverheadPerNode = profile.OverheadPerNode
	}
	if profile.AvgCoresPerServer > 0 {
		out.AvgCoresPerServer = profile.AvgCoresPerServer
	}
	if profile.PUE > 0 {
		out.PUE = profile.PUE
	}
	if profile.CostPerKWh > 0 {
		out.CostPerKWh = profile.CostPerKWh
	}
	if profile.CO2KgPerKWh > 0 {
		out.CO2KgPerKWh = profile.CO2KgPerKWh
	}
	if profile.Currency != "" {
		out.Currency = profile.Currency
	}
	return out
}
