package datasource

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/virtscope/capacity-engine/pkg/models"
)

// ProxmoxClient queries Proxmox-style REST endpoints. It implements both
// the inventory and the history contracts; all operations are read-only.
type ProxmoxClient struct {
	http *http.Client
}

// NewProxmoxClient builds a client with a per-request timeout. insecure
// skips TLS verification for self-signed cluster certificates.
func NewProxmoxClient(timeout time.Duration, insecure bool) *ProxmoxClient {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 8,
	}
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &ProxmoxClient{
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (c *ProxmoxClient) Name() string { return "proxmox_rrd" }

// IsAvailable is trivially true: per-connection reachability is handled by
// the orchestrator's partial-failure policy, not a global gate.
func (c *ProxmoxClient) IsAvailable(ctx context.Context) bool { return true }

type apiNode struct {
	Node   string  `json:"node"`
	Status string  `json:"status"`
	CPU    float64 `json:"cpu"`
	MaxCPU int     `json:"maxcpu"`
	Mem    int64   `json:"mem"`
	MaxMem int64   `json:"maxmem"`
}

type apiResource struct {
	VMID    json.Number `json:"vmid"`
	Name    string      `json:"name"`
	Node    string      `json:"node"`
	Status  string      `json:"status"`
	CPU     float64     `json:"cpu"`
	MaxCPU  int         `json:"maxcpu"`
	Mem     int64       `json:"mem"`
	MaxMem  int64       `json:"maxmem"`
	Storage string      `json:"storage"`
	Disk    int64       `json:"disk"`
	MaxDisk int64       `json:"maxdisk"`
}

// ListNodes fetches the current state of every physical host.
func (c *ProxmoxClient) ListNodes(ctx context.Context, conn models.ClusterConnection) ([]models.NodeSnapshot, error) {
	var nodes []apiNode
	if err := c.get(ctx, conn, "/api2/json/nodes", nil, &nodes); err != nil {
		return nil, fmt.Errorf("list nodes for %s: %w", conn.ID, err)
	}

	out := make([]models.NodeSnapshot, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, models.NodeSnapshot{
			Node:          n.Node,
			Status:        n.Status,
			CPURatio:      n.CPU,
			CoreCount:     n.MaxCPU,
			MemUsedBytes:  n.Mem,
			MemTotalBytes: n.MaxMem,
		})
	}
	return out, nil
}

// ListGuests fetches every VM and container across the connection.
func (c *ProxmoxClient) ListGuests(ctx context.Context, conn models.ClusterConnection) ([]models.GuestSnapshot, error) {
	var resources []apiResource
	q := url.Values{"type": {"vm"}}
	if err := c.get(ctx, conn, "/api2/json/cluster/resources", q, &resources); err != nil {
		return nil, fmt.Errorf("list guests for %s: %w", conn.ID, err)
	}

	out := make([]models.GuestSnapshot, 0, len(resources))
	for _, r := range resources {
		g := models.GuestSnapshot{
			ID:                r.VMID.String(),
			Name:              r.Name,
			Node:              r.Node,
			Status:            r.Status,
			CPUPercent:        r.CPU * 100,
			CPUAllocatedCores: r.MaxCPU,
			RAMAllocatedBytes: r.MaxMem,
		}
		if r.MaxMem > 0 {
			g.RAMPercent = float64(r.Mem) / float64(r.MaxMem) * 100
		}
		out = append(out, g)
	}
	return out, nil
}

// ListStorages fetches every storage volume across the connection.
func (c *ProxmoxClient) ListStorages(ctx context.Context, conn models.ClusterConnection) ([]models.StorageSnapshot, error) {
	var resources []apiResource
	q := url.Values{"type": {"storage"}}
	if err := c.get(ctx, conn, "/api2/json/cluster/resources", q, &resources); err != nil {
		return nil, fmt.Errorf("list storages for %s: %w", conn.ID, err)
	}

	out := make([]models.StorageSnapshot, 0, len(resources))
	for _, r := range resources {
		out = append(out, models.StorageSnapshot{
			Node:       r.Node,
			Storage:    r.Storage,
			UsedBytes:  r.Disk,
			TotalBytes: r.MaxDisk,
			Status:     r.Status,
		})
	}
	return out, nil
}

// NodeHistory fetches RRD samples for one node over the lookback window.
func (c *ProxmoxClient) NodeHistory(ctx context.Context, conn models.ClusterConnection, node string, window time.Duration) ([]models.RawSample, error) {
	path := fmt.Sprintf("/api2/json/nodes/%s/rrddata", url.PathEscape(node))
	return c.rrddata(ctx, conn, path, window)
}

// StorageHistory fetches RRD samples for one storage volume.
func (c *ProxmoxClient) StorageHistory(ctx context.Context, conn models.ClusterConnection, node, storage string, window time.Duration) ([]models.RawSample, error) {
	path := fmt.Sprintf("/api2/json/nodes/%s/storage/%s/rrddata",
		url.PathEscape(node), url.PathEscape(storage))
	return c.rrddata(ctx, conn, path, window)
}

func (c *ProxmoxClient) rrddata(ctx context.Context, conn models.ClusterConnection, path string, window time.Duration) ([]models.RawSample, error) {
	q := url.Values{
		"timeframe": {timeframe(window)},
		"cf":        {"AVERAGE"},
	}
	var samples []models.RawSample
	if err := c.get(ctx, conn, path, q, &samples); err != nil {
		return nil, fmt.Errorf("rrddata %s: %w", path, err)
	}
	return samples, nil
}

// timeframe picks the coarsest RRD archive that still covers the window.
func timeframe(window time.Duration) string {
	switch {
	case window <= 26*time.Hour:
		return "day"
	case window <= 8*24*time.Hour:
		return "week"
	case window <= 35*24*time.Hour:
		return "month"
	default:
		return "year"
	}
}

type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *ProxmoxClient) get(ctx context.Context, conn models.ClusterConnection, path string, query url.Values, out interface{}) error {
	u := conn.URL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if conn.TokenID != "" {
		req.Header.Set("Authorization", "PVEAPIToken="+conn.TokenID+"="+conn.Secret)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", strconv.Itoa(resp.StatusCode), string(body))
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
