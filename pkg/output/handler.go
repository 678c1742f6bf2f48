// Package output renders the overview for CLI consumers.
package output

import (
	"context"

	"github.com/virtscope/capacity-engine/pkg/models"
)

// Handler defines the interface for output formatting.
type Handler interface {
	DisplayOverview(ctx context.Context, resp *models.OverviewResponse) error
	DisplayHistory(ctx context.Context, records []models.SnapshotRecord) error
	Format() string
}

// New returns the handler for a format name; unknown formats fall back to
// text.
func New(format string) Handler {
	switch format {
	case "json":
		return &JSONHandler{}
	default:
		return &TextHandler{}
	}
}
