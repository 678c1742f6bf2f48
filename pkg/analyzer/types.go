package analyzer

import (
	"time"

	"github.com/virtscope/capacity-engine/pkg/models"
)

// Tunable aggregation thresholds. These are behavioral heuristics carried
// over from operational experience, not derived constants; change with care.
const (
	// MinActiveRAMPercent excludes near-idle nodes from a day's weighted
	// average. Near-zero RAM utilization indicates an empty, decommissioned
	// or freshly-joined node whose inclusion would drag the cluster average
	// toward artificially low utilization.
	MinActiveRAMPercent = 5.0

	// MinConfidentNodes is the floor of the day-completeness filter.
	MinConfidentNodes = 3

	// CompletenessFraction of the best-observed node count a day must reach
	// to be considered trustworthy.
	CompletenessFraction = 0.5

	// MaxDisplayDays bounds the dense series emitted for charting.
	MaxDisplayDays = 180

	// FallbackDays is the length of the synthetic flat series emitted when
	// no historical data is available at all.
	FallbackDays = 30
)

// DayKey is a UTC calendar date in YYYY-MM-DD form.
type DayKey string

const dayKeyLayout = "2006-01-02"

// DayKeyFromUnix converts epoch seconds to the UTC calendar date.
func DayKeyFromUnix(sec int64) DayKey {
	return DayKey(time.Unix(sec, 0).UTC().Format(dayKeyLayout))
}

// Time returns the midnight UTC instant of the day, and whether the key
// parsed cleanly.
func (d DayKey) Time() (time.Time, bool) {
	t, err := time.Parse(dayKeyLayout, string(d))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NormalizedSample is one canonicalized historical reading. A nil field
// means "no valid reading for that metric"; present fields lie in [0,100].
type NormalizedSample struct {
	Day        DayKey
	CPUPercent *float64
	RAMPercent *float64
}

// DailyReadings collects every valid same-day reading for one node.
// Averaging is deferred to the weighted averager so the readings can be
// re-weighted later without re-fetching.
type DailyReadings struct {
	CPU []float64
	RAM []float64
}

// DailyGlobalAverage is one cluster-wide day of capacity-weighted
// utilization. ContributingNodes feeds the downstream completeness filter
// and must never be blended away before that filter runs.
type DailyGlobalAverage struct {
	Day               DayKey
	CPUPercent        float64
	RAMPercent        float64
	ContributingNodes int
}

// NodeDaily pairs one node's daily aggregate with its averaging weight.
type NodeDaily struct {
	Key      models.NodeKey
	Capacity models.NodeCapacity
	Days     map[DayKey]*DailyReadings
}

// Diagnostics is the structured accept/reject tally returned alongside each
// stage's output, so data-quality issues are explicit data rather than
// incidental state.
type Diagnostics struct {
	Accepted int
	Rejected map[string]int
}

// NewDiagnostics returns an empty tally.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{Rejected: make(map[string]int)}
}

func (d *Diagnostics) accept() {
	if d != nil {
		d.Accepted++
	}
}

func (d *Diagnostics) reject(reason string) {
	if d != nil {
		d.Rejected[reason]++
	}
}

// RejectedTotal sums all rejection reasons.
func (d *Diagnostics) RejectedTotal() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, c := range d.Rejected {
		n += c
	}
	return n
}
