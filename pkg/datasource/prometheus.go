package datasource

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/virtscope/capacity-engine/pkg/models"
)

// PrometheusSource reads node and storage history from a Prometheus server
// scraping pve-exporter style metrics. It is the secondary history
// strategy: used when the cluster's own RRD endpoint yields nothing.
type PrometheusSource struct {
	client v1.API
	url    string
	step   time.Duration
}

// NewPrometheusSource builds the source against a Prometheus base URL.
func NewPrometheusSource(url string) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{Address: url})
	if err != nil {
		return nil, fmt.Errorf("create prometheus client: %w", err)
	}
	return &PrometheusSource{
		client: v1.NewAPI(client),
		url:    url,
		step:   time.Hour,
	}, nil
}

func (p *PrometheusSource) Name() string { return "prometheus" }

// IsAvailable probes the server with a trivial query.
func (p *PrometheusSource) IsAvailable(ctx context.Context) bool {
	_, _, err := p.client.Query(ctx, "up", time.Now())
	return err == nil
}

// NodeHistory reassembles RawSamples from the exporter's cpu ratio and
// memory usage/size series for one node.
func (p *PrometheusSource) NodeHistory(ctx context.Context, conn models.ClusterConnection, node string, window time.Duration) ([]models.RawSample, error) {
	byTime := make(map[int64]*models.RawSample)

	cpuQuery := fmt.Sprintf(`pve_cpu_usage_ratio{id="node/%s"}`, node)
	if err := p.collect(ctx, cpuQuery, window, func(ts int64, v float64) {
		sampleAt(byTime, ts).CPU = models.Float(v)
	}); err != nil {
		return nil, err
	}

	memUsedQuery := fmt.Sprintf(`pve_memory_usage_bytes{id="node/%s"}`, node)
	if err := p.collect(ctx, memUsedQuery, window, func(ts int64, v float64) {
		sampleAt(byTime, ts).MemUsed = models.Float(v)
	}); err != nil {
		return nil, err
	}

	memTotalQuery := fmt.Sprintf(`pve_memory_size_bytes{id="node/%s"}`, node)
	if err := p.collect(ctx, memTotalQuery, window, func(ts int64, v float64) {
		sampleAt(byTime, ts).MemTotal = models.Float(v)
	}); err != nil {
		return nil, err
	}

	return flatten(byTime), nil
}

// StorageHistory reassembles RawSamples from the exporter's disk usage and
// size series for one storage volume.
func (p *PrometheusSource) StorageHistory(ctx context.Context, conn models.ClusterConnection, node, storage string, window time.Duration) ([]models.RawSample, error) {
	byTime := make(map[int64]*models.RawSample)

	usedQuery := fmt.Sprintf(`pve_disk_usage_bytes{id="storage/%s/%s"}`, node, storage)
	if err := p.collect(ctx, usedQuery, window, func(ts int64, v float64) {
		sampleAt(byTime, ts).Used = models.Float(v)
	}); err != nil {
		return nil, err
	}

	totalQuery := fmt.Sprintf(`pve_disk_size_bytes{id="storage/%s/%s"}`, node, storage)
	if err := p.collect(ctx, totalQuery, window, func(ts int64, v float64) {
		sampleAt(byTime, ts).Total = models.Float(v)
	}); err != nil {
		return nil, err
	}

	return flatten(byTime), nil
}

func (p *PrometheusSource) collect(ctx context.Context, query string, window time.Duration, set func(ts int64, v float64)) error {
	now := time.Now()
	r := v1.Range{Start: now.Add(-window), End: now, Step: p.step}

	result, _, err := p.client.QueryRange(ctx, query, r)
	if err != nil {
		return fmt.Errorf("query range %q: %w", query, err)
	}

	matrix, ok := result.(model.Matrix)
	if !ok {
		return fmt.Errorf("unexpected result type %T for %q", result, query)
	}
	for _, stream := range matrix {
		for _, pair := range stream.Values {
			set(pair.Timestamp.Unix(), float64(pair.Value))
		}
	}
	return nil
}

func sampleAt(byTime map[int64]*models.RawSample, ts int64) *models.RawSample {
	s := byTime[ts]
	if s == nil {
		s = &models.RawSample{Time: ts}
		byTime[ts] = s
	}
	return s
}

func flatten(byTime map[int64]*models.RawSample) []models.RawSample {
	out := make([]models.RawSample, 0, len(byTime))
	for _, s := range byTime {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}
