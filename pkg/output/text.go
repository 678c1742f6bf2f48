package output

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/virtscope/capacity-engine/pkg/models"
)

// TextHandler prints a human-readable summary.
type TextHandler struct{}

func (h *TextHandler) Format() string { return "text" }

func (h *TextHandler) DisplayOverview(ctx context.Context, resp *models.OverviewResponse) error {
	w := os.Stdout

	fmt.Fprintln(w, "=== Capacity Overview ===")
	fmt.Fprintf(w, "Connections: %d  Nodes: %d  Data source: %s\n",
		resp.Meta.ConnectionsCount, resp.Meta.NodesCount, resp.Meta.DataSource)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "CPU:     %5.1f%% used  (%.0f vCPU allocated / %.0f cores, trend %+.1f)\n",
		resp.KPIs.CPU.Used, resp.KPIs.CPU.Allocated, resp.KPIs.CPU.Total, resp.KPIs.CPU.Trend)
	fmt.Fprintf(w, "RAM:     %s used / %s  (trend %+.1f)\n",
		formatBytes(resp.KPIs.RAM.Used), formatBytes(resp.KPIs.RAM.Total), resp.KPIs.RAM.Trend)
	fmt.Fprintf(w, "Storage: %s used / %s  (trend %+.1f)\n",
		formatBytes(resp.KPIs.Storage.Used), formatBytes(resp.KPIs.Storage.Total), resp.KPIs.Storage.Trend)
	fmt.Fprintf(w, "VMs:     %d total, %d running, %d stopped\n",
		resp.KPIs.VMs.Total, resp.KPIs.VMs.Running, resp.KPIs.VMs.Stopped)
	fmt.Fprintf(w, "Efficiency score: %d/100\n", resp.KPIs.Efficiency)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Trend window: %s .. %s (%d days)\n",
		resp.TrendsPeriod.Start, resp.TrendsPeriod.End, resp.TrendsPeriod.DaysCount)
	fmt.Fprintln(w)

	if op := resp.Overprovisioning; op != nil {
		fmt.Fprintln(w, "--- Overprovisioning ---")
		fmt.Fprintf(w, "CPU ratio: %.2fx (%.1f%% of allocation used)\n",
			op.CPU.Ratio, op.CPU.EfficiencyPercent)
		fmt.Fprintf(w, "RAM ratio: %.2fx (%.1f%% of allocation used)\n",
			op.RAM.Ratio, op.RAM.EfficiencyPercent)
		if len(op.Candidates) > 0 {
			fmt.Fprintf(w, "Rightsizing candidates (%d):\n", len(op.Candidates))
			for _, c := range op.Candidates {
				fmt.Fprintf(w, "  %-20s %s/%s: %d -> %d vCPU, %.0f -> %d GB  (save %d vCPU, %.0f GB)\n",
					c.Name, c.ConnectionID, c.Node,
					c.AllocatedCPU, c.RecommendedCPU,
					c.AllocatedRAMGB, c.RecommendedRAMGB,
					c.SavingsCPU, c.SavingsRAMGB)
			}
		}
		fmt.Fprintln(w)
	}

	if g := resp.Green; g != nil {
		fmt.Fprintln(w, "--- Power & Footprint ---")
		fmt.Fprintf(w, "Draw: %.0fW now (max %.0fW), ~%d physical servers\n",
			g.Power.TotalWatts, g.Power.MaxWatts, g.Power.EstimatedServers)
		fmt.Fprintf(w, "Cost: %.2f %s/month  CO2: %.1f kg/month\n",
			g.Cost.Monthly, g.Cost.Currency, g.CO2.MonthlyKg)
		fmt.Fprintf(w, "Yearly CO2 equals %.0f km driven, %.0f trees to offset\n",
			g.Equivalents.KmDriven, g.Equivalents.TreesNeeded)
		if len(g.Efficiency.Factors) > 0 {
			fmt.Fprintf(w, "Score factors: %s\n", strings.Join(g.Efficiency.Factors, "; "))
		}
	}
	return nil
}

func (h *TextHandler) DisplayHistory(ctx context.Context, records []models.SnapshotRecord) error {
	w := os.Stdout
	if len(records) == 0 {
		fmt.Fprintln(w, "No snapshots recorded.")
		return nil
	}
	fmt.Fprintf(w, "%-36s %-20s %6s %6s %6s %5s %5s\n",
		"ID", "TAKEN", "CPU%", "RAM%", "DISK%", "VMS", "SCORE")
	for _, r := range records {
		fmt.Fprintf(w, "%-36s %-20s %6.1f %6.1f %6.1f %5d %5d\n",
			r.ID, r.TakenAt.Format("2006-01-02 15:04:05"),
			r.CPUUsedPercent, r.RAMUsedPercent, r.StorageUsedPercent,
			r.TotalVMs, r.EfficiencyScore)
	}
	return nil
}

func formatBytes(b float64) string {
	const unit = 1024.0
	if b < unit {
		return fmt.Sprintf("%.0fB", b)
	}
	div, exp := unit, 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", b/div, "KMGTPE"[exp])
}
