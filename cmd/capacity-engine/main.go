package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/virtscope/capacity-engine/pkg/config"
	"github.com/virtscope/capacity-engine/pkg/datasource"
	"github.com/virtscope/capacity-engine/pkg/log"
	"github.com/virtscope/capacity-engine/pkg/output"
	"github.com/virtscope/capacity-engine/pkg/overview"
	"github.com/virtscope/capacity-engine/pkg/registry"
	"github.com/virtscope/capacity-engine/pkg/server"
	"github.com/virtscope/capacity-engine/pkg/storage"
)

var (
	// Overview flags
	outputFormat string
	saveResults  bool

	// Serve flags
	listenAddr      string
	refreshInterval string

	// History flags
	historyLimit int

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "capacity-engine",
		Short: "Fleet capacity analytics for virtualization clusters",
		Long:  `Aggregates per-node utilization history across registered cluster connections into fleet-wide trends, overprovisioning analysis and power/cost estimates.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger = log.InitLog(log.LevelFromString(cfg.LogLevel))
			return nil
		},
		RunE: runOverview,
	}
	rootCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json")
	rootCmd.Flags().BoolVar(&saveResults, "save", false, "Save a snapshot to the database")

	overviewCmd := &cobra.Command{
		Use:   "overview",
		Short: "Compute and print the fleet overview once",
		RunE:  runOverview,
	}
	overviewCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json")
	overviewCmd.Flags().BoolVar(&saveResults, "save", false, "Save a snapshot to the database")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the overview over HTTP with periodic refresh",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (overrides CAPACITY_LISTEN_ADDR)")
	serveCmd.Flags().StringVar(&refreshInterval, "interval", "", "Refresh interval, e.g. 5m (overrides CAPACITY_REFRESH_INTERVAL)")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List stored overview snapshots",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of snapshots to show")
	historyCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json")

	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildOrchestrator wires the registry, data sources and settings store
// from configuration.
func buildOrchestrator(store storage.Store) (*overview.Orchestrator, error) {
	reg, err := registry.Parse(cfg.Endpoints)
	if err != nil {
		return nil, fmt.Errorf("parse endpoints: %w", err)
	}

	proxmox := datasource.NewProxmoxClient(cfg.RequestTimeout, cfg.TLSSkipVerify)

	histories := []datasource.HistorySource{proxmox}
	if cfg.PrometheusURL != "" {
		prom, err := datasource.NewPrometheusSource(cfg.PrometheusURL)
		if err != nil {
			return nil, fmt.Errorf("prometheus source: %w", err)
		}
		histories = append(histories, prom)
	}

	return overview.New(reg, proxmox, histories, store, logger,
		overview.WithLookback(cfg.Lookback()),
		overview.WithHistoryConcurrency(cfg.HistoryConcurrency),
	), nil
}

// initStorage returns the Postgres store when enabled, the in-memory
// fallback otherwise.
func initStorage() (storage.Store, error) {
	if !cfg.StorageEnabled {
		return storage.NewMemoryStore(nil), nil
	}
	store, err := storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}
	return store, nil
}

func runOverview(cmd *cobra.Command, args []string) error {
	defer func() { _ = logger.Sync() }()

	store, err := initStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	orch, err := buildOrchestrator(store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resp, err := orch.GetResourceOverview(ctx)
	if err != nil {
		return fmt.Errorf("compute overview: %w", err)
	}

	if saveResults {
		if err := store.SaveSnapshot(ctx, resp); err != nil {
			logger.Warn("snapshot save failed", zap.Error(err))
		}
	}

	return output.New(outputFormat).DisplayOverview(ctx, resp)
}

func runServe(cmd *cobra.Command, args []string) error {
	defer func() { _ = logger.Sync() }()

	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if refreshInterval != "" {
		d, err := time.ParseDuration(refreshInterval)
		if err != nil {
			return fmt.Errorf("parse interval: %w", err)
		}
		cfg.RefreshInterval = d
	}

	store, err := initStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	orch, err := buildOrchestrator(store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(orch, store, logger, cfg.ListenAddr, cfg.RefreshInterval)
	return srv.Run(ctx)
}

func runHistory(cmd *cobra.Command, args []string) error {
	defer func() { _ = logger.Sync() }()

	if !cfg.StorageEnabled {
		return fmt.Errorf("storage is disabled; set CAPACITY_STORAGE_ENABLED=true")
	}
	store, err := initStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records, err := store.ListSnapshots(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	return output.New(outputFormat).DisplayHistory(ctx, records)
}
