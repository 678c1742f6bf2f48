package analyzer

import (
	"math"

	"github.com/virtscope/capacity-engine/pkg/models"
)

// Rejection reasons recorded by the normalizer.
const (
	rejectNoTimestamp   = "no_timestamp"
	rejectBadCPU        = "cpu_invalid"
	rejectBadRAM        = "ram_invalid"
	rejectBadStorage    = "storage_invalid"
	rejectEmptyReadings = "no_readings"
)

// NormalizeNodeSample converts one raw node RRD point into canonical form.
// The second return value is false when the sample contributes nothing.
// Malformed fields never cause an error; they are simply "no reading".
func NormalizeNodeSample(s models.RawSample, diag *Diagnostics) (NormalizedSample, bool) {
	if s.Time <= 0 {
		diag.reject(rejectNoTimestamp)
		return NormalizedSample{}, false
	}

	out := NormalizedSample{Day: DayKeyFromUnix(s.Time)}

	if s.CPU != nil {
		// Source is a 0..1 ratio. Negative or non-finite values indicate a
		// bad reading, not a valid 0%, so they are dropped rather than
		// clamped to zero.
		v := *s.CPU
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			diag.reject(rejectBadCPU)
		} else {
			pct := v * 100
			if pct > 100 {
				pct = 100
			}
			out.CPUPercent = &pct
		}
	}

	// Prefer the memused/memtotal pair; fall back to the legacy mem/maxmem
	// aliases when absent.
	used, total := s.MemUsed, s.MemTotal
	if used == nil {
		used = s.Mem
	}
	if total == nil {
		total = s.MaxMem
	}
	if used != nil && total != nil {
		u, t := *used, *total
		if finite(u) && finite(t) && u > 0 && t > 0 {
			pct := u / t * 100
			if pct >= 0 && pct <= 100 {
				out.RAMPercent = &pct
			} else {
				diag.reject(rejectBadRAM)
			}
		} else {
			diag.reject(rejectBadRAM)
		}
	}

	if out.CPUPercent == nil && out.RAMPercent == nil {
		diag.reject(rejectEmptyReadings)
		return NormalizedSample{}, false
	}
	diag.accept()
	return out, true
}

// NormalizeStorageSample converts one raw storage RRD point into a used
// percentage. When the sample carries no usable used/total pair the live
// snapshot's figures keep the point interpretable; if those are missing too
// the day stays a true gap rather than a guessed 0%.
func NormalizeStorageSample(s models.RawSample, live models.StorageSnapshot, diag *Diagnostics) (DayKey, float64, bool) {
	if s.Time <= 0 {
		diag.reject(rejectNoTimestamp)
		return "", 0, false
	}
	day := DayKeyFromUnix(s.Time)

	if s.Used != nil && s.Total != nil {
		u, t := *s.Used, *s.Total
		if finite(u) && finite(t) && u > 0 && t > 0 {
			pct := u / t * 100
			if pct >= 0 && pct <= 100 {
				diag.accept()
				return day, pct, true
			}
		}
		diag.reject(rejectBadStorage)
	}

	if live.TotalBytes > 0 && live.UsedBytes > 0 {
		diag.accept()
		return day, live.UsedPercent(), true
	}

	diag.reject(rejectBadStorage)
	return "", 0, false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
