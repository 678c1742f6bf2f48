// Package storage persists operator settings (hardware profiles) and
// overview snapshot history. The engine itself stays a pure read-and-
// transform pipeline; everything here is optional.
package storage

import (
	"context"

	"github.com/virtscope/capacity-engine/pkg/green"
	"github.com/virtscope/capacity-engine/pkg/models"
)

// Store is the persistence interface consumed by the CLI and server.
type Store interface {
	// HardwareProfile returns the operator-tuned coefficients, or nil when
	// none are stored (defaults apply).
	HardwareProfile(ctx context.Context) (*green.Coefficients, error)

	// SaveHardwareProfile upserts the operator profile.
	SaveHardwareProfile(ctx context.Context, profile green.Coefficients) error

	// SaveSnapshot records the headline figures of one overview run.
	SaveSnapshot(ctx context.Context, resp *models.OverviewResponse) error

	// ListSnapshots returns the most recent snapshot rows, newest first.
	ListSnapshots(ctx context.Context, limit int) ([]models.SnapshotRecord, error)

	Close() error
}

// MemoryStore is the no-database fallback: defaults-only profile, no
// snapshot history.
type MemoryStore struct {
	profile *green.Coefficients
}

// NewMemoryStore builds an in-memory store, optionally seeded with a
// profile.
func NewMemoryStore(profile *green.Coefficients) *MemoryStore {
	return &MemoryStore{profile: profile}
}

func (m *MemoryStore) HardwareProfile(ctx context.Context) (*green.Coefficients, error) {
	return m.profile, nil
}

func (m *MemoryStore) SaveHardwareProfile(ctx context.Context, profile green.Coefficients) error {
	m.profile = &profile
	return nil
}

func (m *MemoryStore) SaveSnapshot(ctx context.Context, resp *models.OverviewResponse) error {
	return nil
}

func (m *MemoryStore) ListSnapshots(ctx context.Context, limit int) ([]models.SnapshotRecord, error) {
	return nil, nil
}

func (m *MemoryStore) Close() error { return nil }
