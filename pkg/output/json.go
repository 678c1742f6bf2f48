package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/virtscope/capacity-engine/pkg/models"
)

// JSONHandler prints machine-readable output.
type JSONHandler struct{}

func (h *JSONHandler) Format() string { return "json" }

func (h *JSONHandler) DisplayOverview(ctx context.Context, resp *models.OverviewResponse) error {
	return h.print(resp)
}

func (h *JSONHandler) DisplayHistory(ctx context.Context, records []models.SnapshotRecord) error {
	return h.print(records)
}

func (h *JSONHandler) print(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
