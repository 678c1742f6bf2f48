package models

// ClusterConnection identifies one independently managed virtualization
// cluster endpoint. The engine never mutates connections; they come from
// the connection registry.
type ClusterConnection struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	TokenID string `json:"-"`
	Secret  string `json:"-"`
}

// NodeSnapshot is the current instantaneous state of one physical host.
// Nodes with Status != "online" are excluded from all aggregation.
type NodeSnapshot struct {
	Node          string  `json:"node"`
	Status        string  `json:"status"`
	CPURatio      float64 `json:"cpu"` // 0..1
	CoreCount     int     `json:"maxcpu"`
	MemUsedBytes  int64   `json:"mem"`
	MemTotalBytes int64   `json:"maxmem"`
}

// Online reports whether the node participates in aggregation.
func (n NodeSnapshot) Online() bool { return n.Status == "online" }

// GuestSnapshot is the current instantaneous state of one VM or container.
// Only running guests contribute to utilization and allocation totals.
type GuestSnapshot struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Node              string  `json:"node"`
	Status            string  `json:"status"`
	CPUPercent        float64 `json:"cpuPercent"`
	RAMPercent        float64 `json:"ramPercent"`
	CPUAllocatedCores int     `json:"cpuAllocatedCores"`
	RAMAllocatedBytes int64   `json:"ramAllocatedBytes"`
}

// Running reports whether the guest counts toward utilization totals.
func (g GuestSnapshot) Running() bool { return g.Status == "running" }

// StorageSnapshot is the current instantaneous state of one storage volume.
type StorageSnapshot struct {
	Node       string `json:"node"`
	Storage    string `json:"storage"`
	UsedBytes  int64  `json:"usedBytes"`
	TotalBytes int64  `json:"totalBytes"`
	Status     string `json:"status"`
}

// UsedPercent returns the live used/total ratio as a percentage, or 0 when
// the volume reports no capacity.
func (s StorageSnapshot) UsedPercent() float64 {
	if s.TotalBytes <= 0 {
		return 0
	}
	return float64(s.UsedBytes) / float64(s.TotalBytes) * 100
}

// NodeCapacity is the averaging weight for one node, keyed by
// (connection id, node name). Immutable for the duration of one
// aggregation pass.
type NodeCapacity struct {
	MaxCPUCores int
	MaxMemBytes int64
}

// NodeKey identifies a node across connections.
type NodeKey struct {
	ConnectionID string
	Node         string
}
