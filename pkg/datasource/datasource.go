// Package datasource talks to the remote metrics endpoints of managed
// virtualization clusters.
package datasource

import (
	"context"
	"time"

	"github.com/virtscope/capacity-engine/pkg/models"
)

// InventoryClient fetches the current-instant inventory of one connection.
type InventoryClient interface {
	ListNodes(ctx context.Context, conn models.ClusterConnection) ([]models.NodeSnapshot, error)
	ListGuests(ctx context.Context, conn models.ClusterConnection) ([]models.GuestSnapshot, error)
	ListStorages(ctx context.Context, conn models.ClusterConnection) ([]models.StorageSnapshot, error)
}

// HistorySource fetches historical RRD-style samples. Sources are tried in
// order by the orchestrator; the first one that yields samples for a given
// node or storage wins.
type HistorySource interface {
	NodeHistory(ctx context.Context, conn models.ClusterConnection, node string, window time.Duration) ([]models.RawSample, error)
	StorageHistory(ctx context.Context, conn models.ClusterConnection, node, storage string, window time.Duration) ([]models.RawSample, error)
	IsAvailable(ctx context.Context) bool
	Name() string
}
