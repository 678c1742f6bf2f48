// Package registry resolves the list of managed cluster endpoints.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/virtscope/capacity-engine/pkg/models"
)

// Registry returns the cluster connections the engine should query.
type Registry interface {
	List(ctx context.Context) ([]models.ClusterConnection, error)
}

// Static is a fixed, environment-configured registry.
type Static struct {
	connections []models.ClusterConnection
}

// Parse builds a Static registry from a semicolon-separated list of
// id|name|url|token-id|secret entries. An empty spec yields an empty
// registry, not an error: no connections configured is a valid state the
// overview reports as an empty response.
func Parse(spec string) (*Static, error) {
	s := &Static{}
	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, "|")
		if len(parts) != 5 {
			return nil, fmt.Errorf("malformed endpoint entry %q: want id|name|url|token-id|secret", entry)
		}
		conn := models.ClusterConnection{
			ID:      strings.TrimSpace(parts[0]),
			Name:    strings.TrimSpace(parts[1]),
			URL:     strings.TrimRight(strings.TrimSpace(parts[2]), "/"),
			TokenID: strings.TrimSpace(parts[3]),
			Secret:  strings.TrimSpace(parts[4]),
		}
		if conn.ID == "" || conn.URL == "" {
			return nil, fmt.Errorf("endpoint entry %q: id and url are required", entry)
		}
		s.connections = append(s.connections, conn)
	}
	return s, nil
}

// List returns the configured connections.
func (s *Static) List(ctx context.Context) ([]models.ClusterConnection, error) {
	out := make([]models.ClusterConnection, len(s.connections))
	copy(out, s.connections)
	return out, nil
}

// Len reports how many connections are configured.
func (s *Static) Len() int { return len(s.connections) }
