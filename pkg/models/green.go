package models

// PowerBlock is the estimated electrical draw of the fleet.
type PowerBlock struct {
	ITWatts            float64 `json:"itWatts"`
	TotalWatts         float64 `json:"totalWatts"` // IT draw scaled by PUE
	MaxWatts           float64 `json:"maxWatts"`   // same formula at 100% CPU
	EstimatedServers   int     `json:"estimatedServers"`
	UtilizationPercent float64 `json:"utilizationPercent"`
}

// CO2Block is estimated emissions in kilograms at several granularities.
// Granularities are mutually consistent modulo independent rounding.
type CO2Block struct {
	HourlyKg  float64 `json:"hourlyKg"`
	DailyKg   float64 `json:"dailyKg"`
	MonthlyKg float64 `json:"monthlyKg"`
	YearlyKg  float64 `json:"yearlyKg"`
}

// CostBlock is estimated energy cost at several granularities.
type CostBlock struct {
	Hourly   float64 `json:"hourly"`
	Daily    float64 `json:"daily"`
	Monthly  float64 `json:"monthly"`
	Yearly   float64 `json:"yearly"`
	Currency string  `json:"currency"`
}

// EfficiencyBlock is the 0..100 score plus the reasons it moved.
type EfficiencyBlock struct {
	Score   int      `json:"score"`
	Factors []string `json:"factors,omitempty"`
}

// Equivalents are pedagogical unit conversions of the yearly CO2 figure.
type Equivalents struct {
	KmDriven     float64 `json:"kmDriven"`
	TreesNeeded  float64 `json:"treesNeeded"`
	PhoneCharges float64 `json:"phoneCharges"`
}

// GreenMetrics is the derived power/cost/CO2/efficiency model output.
type GreenMetrics struct {
	Power       PowerBlock      `json:"power"`
	CO2         CO2Block        `json:"co2"`
	Cost        CostBlock       `json:"cost"`
	Efficiency  EfficiencyBlock `json:"efficiency"`
	Equivalents Equivalents     `json:"equivalents"`
}
