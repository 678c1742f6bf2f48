package analyzer

import (
	"math"
	"sort"
	"time"

	"github.com/virtscope/capacity-engine/pkg/models"
)

// CurrentUtilization is the instantaneous cluster-wide picture, used to
// seed storage forward-fill and to synthesize the degraded fallback series.
type CurrentUtilization struct {
	CPUPercent     float64
	RAMPercent     float64
	StoragePercent float64
}

// DensifyResult is the ordered, gap-free display series plus its resolved
// period and the data-source strategy that produced it.
type DensifyResult struct {
	Points []models.TrendPoint
	Start  time.Time
	End    time.Time
	Source string
}

// Densify turns the sparse daily global averages into one point per
// calendar day over the display window. Low-confidence days (too few
// reporting nodes) are discarded, gaps are forward-filled with the last
// known good values so charts never show a drop caused purely by a
// reporting gap, and when no historical data survives at all a flat series
// built from the current instantaneous utilization is emitted instead.
func Densify(days map[DayKey]DailyGlobalAverage, storageDays map[DayKey][]float64, now time.Time, current CurrentUtilization) DensifyResult {
	retained := confidentDays(days)
	retained = recentDays(retained, now)

	if len(retained) == 0 {
		return fallbackSeries(now, current)
	}

	sort.Slice(retained, func(i, j int) bool { return retained[i].Day < retained[j].Day })

	byDay := make(map[DayKey]DailyGlobalAverage, len(retained))
	for _, d := range retained {
		byDay[d.Day] = d
	}

	first, ok := retained[0].Day.Time()
	if !ok {
		return fallbackSeries(now, current)
	}
	last, ok := retained[len(retained)-1].Day.Time()
	if !ok {
		return fallbackSeries(now, current)
	}

	res := DensifyResult{Start: first, End: last, Source: models.DataSourceRRDWeighted}

	lastCPU := retained[0].CPUPercent
	lastRAM := retained[0].RAMPercent
	lastStorage := current.StoragePercent

	for cursor := first; !cursor.After(last); cursor = cursor.AddDate(0, 0, 1) {
		key := DayKey(cursor.Format(dayKeyLayout))
		if avg, present := byDay[key]; present {
			lastCPU = avg.CPUPercent
			lastRAM = avg.RAMPercent
		}
		if readings, present := storageDays[key]; present {
			if m, has := mean(readings); has {
				lastStorage = m
			}
		}
		res.Points = append(res.Points, models.TrendPoint{
			Label:          string(key),
			CPUPercent:     round1(lastCPU),
			RAMPercent:     round1(lastRAM),
			StoragePercent: round1(lastStorage),
		})
	}
	return res
}

// confidentDays keeps only days reported by at least half the
// best-observed node count (floored at MinConfidentNodes). If the filter
// would remove every day, all days are kept instead: availability wins
// over strictness.
func confidentDays(days map[DayKey]DailyGlobalAverage) []DailyGlobalAverage {
	all := make([]DailyGlobalAverage, 0, len(days))
	maxNodes := 0
	for _, d := range days {
		all = append(all, d)
		if d.ContributingNodes > maxNodes {
			maxNodes = d.ContributingNodes
		}
	}

	minNodes := int(math.Floor(float64(maxNodes) * CompletenessFraction))
	if minNodes < MinConfidentNodes {
		minNodes = MinConfidentNodes
	}

	kept := make([]DailyGlobalAverage, 0, len(all))
	for _, d := range all {
		if d.ContributingNodes >= minNodes {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		return all
	}
	return kept
}

// recentDays restricts to days inside the display window. When every day is
// older than the window, the most recent MaxDisplayDays valid days are used
// regardless of absolute recency.
func recentDays(days []DailyGlobalAverage, now time.Time) []DailyGlobalAverage {
	cutoff := now.UTC().AddDate(0, 0, -MaxDisplayDays)
	recent := make([]DailyGlobalAverage, 0, len(days))
	for _, d := range days {
		if t, ok := d.Day.Time(); ok && !t.Before(cutoff) {
			recent = append(recent, d)
		}
	}
	if len(recent) > 0 {
		return recent
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	if len(days) > MaxDisplayDays {
		days = days[len(days)-MaxDisplayDays:]
	}
	return days
}

func fallbackSeries(now time.Time, current CurrentUtilization) DensifyResult {
	end := now.UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -(FallbackDays - 1))
	res := DensifyResult{Start: start, End: end, Source: models.DataSourceFallback}
	for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, 0, 1) {
		res.Points = append(res.Points, models.TrendPoint{
			Label:          cursor.Format(dayKeyLayout),
			CPUPercent:     round1(current.CPUPercent),
			RAMPercent:     round1(current.RAMPercent),
			StoragePercent: round1(current.StoragePercent),
		})
	}
	return res
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
