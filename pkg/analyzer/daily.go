package analyzer

import "github.com/virtscope/capacity-engine/pkg/models"

// AggregateDaily groups every valid normalized reading for one node by UTC
// calendar day. Readings are appended, not averaged; averaging belongs to
// the weighted averager. Days where both lists end up empty are removed so
// map size works as a completeness signal downstream.
func AggregateDaily(samples []models.RawSample, diag *Diagnostics) map[DayKey]*DailyReadings {
	days := make(map[DayKey]*DailyReadings)
	for _, raw := range samples {
		ns, ok := NormalizeNodeSample(raw, diag)
		if !ok {
			continue
		}
		day := days[ns.Day]
		if day == nil {
			day = &DailyReadings{}
			days[ns.Day] = day
		}
		if ns.CPUPercent != nil {
			day.CPU = append(day.CPU, *ns.CPUPercent)
		}
		if ns.RAMPercent != nil {
			day.RAM = append(day.RAM, *ns.RAMPercent)
		}
	}
	for k, d := range days {
		if len(d.CPU) == 0 && len(d.RAM) == 0 {
			delete(days, k)
		}
	}
	return days
}

// AggregateStorageDaily groups valid storage readings by day across one
// volume's history.
func AggregateStorageDaily(samples []models.RawSample, live models.StorageSnapshot, diag *Diagnostics, into map[DayKey][]float64) {
	for _, raw := range samples {
		day, pct, ok := NormalizeStorageSample(raw, live, diag)
		if !ok {
			continue
		}
		into[day] = append(into[day], pct)
	}
}
