package analyzer

// WeightedAverage combines per-node daily aggregates across all nodes of
// all connections into one global daily average, weighted by each node's
// physical capacity. Each day is computed independently; node contribution
// order has no effect (pure summation).
//
// A day with only one of N nodes reporting still produces an average here:
// completeness filtering is deliberately deferred to the densifier so this
// stage stays a pure "what do we know" aggregator.
func WeightedAverage(nodes []NodeDaily) map[DayKey]DailyGlobalAverage {
	type accum struct {
		cpuNum, cpuDen float64 // Σ mean(cpu)*cores, Σ cores
		ramNum, ramDen float64 // Σ mean(ram)*memBytes, Σ memBytes
		nodesWithCPU   int
		nodesWithRAM   int
	}
	byDay := make(map[DayKey]*accum)

	for _, node := range nodes {
		cores := float64(node.Capacity.MaxCPUCores)
		memBytes := float64(node.Capacity.MaxMemBytes)
		for day, readings := range node.Days {
			ramMean, hasRAM := mean(readings.RAM)

			// Near-idle exclusion: a node sitting below the activity
			// threshold is dropped from the day entirely, CPU included,
			// so its capacity never enters either weight sum.
			if hasRAM && ramMean < MinActiveRAMPercent {
				continue
			}

			acc := byDay[day]
			if acc == nil {
				acc = &accum{}
				byDay[day] = acc
			}
			if cpuMean, ok := mean(readings.CPU); ok && cores > 0 {
				acc.cpuNum += cpuMean * cores
				acc.cpuDen += cores
				acc.nodesWithCPU++
			}
			if hasRAM && memBytes > 0 {
				acc.ramNum += ramMean * memBytes
				acc.ramDen += memBytes
				acc.nodesWithRAM++
			}
		}
	}

	out := make(map[DayKey]DailyGlobalAverage, len(byDay))
	for day, acc := range byDay {
		// No signal at all for the day.
		if acc.cpuNum == 0 && acc.ramNum == 0 {
			continue
		}
		avg := DailyGlobalAverage{Day: day}
		if acc.cpuDen > 0 {
			avg.CPUPercent = acc.cpuNum / acc.cpuDen
		}
		if acc.ramDen > 0 {
			avg.RAMPercent = acc.ramNum / acc.ramDen
		}
		avg.ContributingNodes = acc.nodesWithCPU
		if acc.nodesWithRAM > avg.ContributingNodes {
			avg.ContributingNodes = acc.nodesWithRAM
		}
		out[day] = avg
	}
	return out
}

func mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}
