// Package server exposes the overview over HTTP: a JSON API, a Prometheus
// scrape endpoint and a health probe. The overview is recomputed on a fixed
// interval and served from the last good result, so a slow fleet never
// stalls an API consumer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/virtscope/capacity-engine/pkg/models"
	"github.com/virtscope/capacity-engine/pkg/overview"
	"github.com/virtscope/capacity-engine/pkg/storage"
)

const historyDefaultLimit = 20

// Server serves the cached overview and refreshes it in the background.
type Server struct {
	orchestrator *overview.Orchestrator
	store        storage.Store
	metrics      *Metrics
	logger       *zap.Logger

	addr     string
	interval time.Duration

	mu       sync.RWMutex
	last     *models.OverviewResponse
	lastTime time.Time
}

// New builds a server. store may be a MemoryStore when persistence is
// disabled; history requests then return an empty list.
func New(orch *overview.Orchestrator, store storage.Store, logger *zap.Logger, addr string, interval time.Duration) *Server {
	return &Server{
		orchestrator: orch,
		store:        store,
		metrics:      NewMetrics(),
		logger:       logger,
		addr:         addr,
		interval:     interval,
	}
}

// Run refreshes once up front, then serves until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.refresh(ctx)
	go s.refreshLoop(ctx)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/overview", s.handleOverview)
	r.Get("/api/history", s.handleHistory)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	return r
}

func (s *Server) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// refresh recomputes the overview and, on success, swaps the cached copy,
// updates the gauges and persists a snapshot. A failed refresh keeps the
// previous result in place.
func (s *Server) refresh(ctx context.Context) {
	start := time.Now()
	resp, err := s.orchestrator.GetResourceOverview(ctx)
	if err != nil {
		s.metrics.refreshErrorsTotal.Inc()
		s.logger.Error("overview refresh failed", zap.Error(err))
		return
	}
	s.metrics.refreshesTotal.Inc()
	s.metrics.Observe(resp)

	s.mu.Lock()
	s.last = resp
	s.lastTime = time.Now()
	s.mu.Unlock()

	if err := s.store.SaveSnapshot(ctx, resp); err != nil {
		s.logger.Warn("snapshot save failed", zap.Error(err))
	}

	s.logger.Info("overview refreshed",
		zap.Duration("took", time.Since(start)),
		zap.Int("nodes", resp.Meta.NodesCount),
		zap.String("dataSource", resp.Meta.DataSource))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.last != nil
	s.mu.RUnlock()

	if !ready {
		http.Error(w, "no overview computed yet", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := s.last
	lastTime := s.lastTime
	s.mu.RUnlock()

	if resp == nil {
		http.Error(w, "overview not ready", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Last-Modified", lastTime.UTC().Format(http.TimeFormat))
	s.writeJSON(w, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := historyDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.store.ListSnapshots(r.Context(), limit)
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err))
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.SnapshotRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	s.writeJSON(w, records)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response failed", zap.Error(err))
	}
}
