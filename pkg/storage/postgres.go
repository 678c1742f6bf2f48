package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/virtscope/capacity-engine/pkg/green"
	"github.com/virtscope/capacity-engine/pkg/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

const defaultProfileName = "default"

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the database, configures the pool and runs
// migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema, err := postgresFS.ReadFile("migrations/001_postgres_schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// HardwareProfile loads the default operator profile. A missing row is not
// an error: nil means "apply defaults".
func (s *PostgresStore) HardwareProfile(ctx context.Context) (*green.Coefficients, error) {
	query := `
		SELECT tdp_per_core_watts, watts_per_gb_ram, overhead_per_node_watts,
			avg_cores_per_server, pue, cost_per_kwh, co2_kg_per_kwh, currency
		FROM hardware_profiles
		WHERE name = $1
	`
	var c green.Coefficients
	err := s.db.QueryRowContext(ctx, query, defaultProfileName).Scan(
		&c.TDPPerCoreWatts, &c.WattsPerGBRAM, &c.OverheadPerNode,
		&c.AvgCoresPerServer, &c.PUE, &c.CostPerKWh, &c.CO2KgPerKWh, &c.Currency,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load hardware profile: %w", err)
	}
	return &c, nil
}

// SaveHardwareProfile upserts the default operator profile.
func (s *PostgresStore) SaveHardwareProfile(ctx context.Context, profile green.Coefficients) error {
	query := `
		INSERT INTO hardware_profiles (
			name, tdp_per_core_watts, watts_per_gb_ram, overhead_per_node_watts,
			avg_cores_per_server, pue, cost_per_kwh, co2_kg_per_kwh, currency, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (name) DO UPDATE SET
			tdp_per_core_watts = EXCLUDED.tdp_per_core_watts,
			watts_per_gb_ram = EXCLUDED.watts_per_gb_ram,
			overhead_per_node_watts = EXCLUDED.overhead_per_node_watts,
			avg_cores_per_server = EXCLUDED.avg_cores_per_server,
			pue = EXCLUDED.pue,
			cost_per_kwh = EXCLUDED.cost_per_kwh,
			co2_kg_per_kwh = EXCLUDED.co2_kg_per_kwh,
			currency = EXCLUDED.currency,
			updated_at = NOW()
	`
	_, err := s.db.ExecContext(ctx, query, defaultProfileName,
		profile.TDPPerCoreWatts, profile.WattsPerGBRAM, profile.OverheadPerNode,
		profile.AvgCoresPerServer, profile.PUE, profile.CostPerKWh,
		profile.CO2KgPerKWh, profile.Currency,
	)
	return err
}

// SaveSnapshot records the headline figures of one overview run.
func (s *PostgresStore) SaveSnapshot(ctx context.Context, resp *models.OverviewResponse) error {
	ramPercent := 0.0
	if resp.KPIs.RAM.Total > 0 {
		ramPercent = resp.KPIs.RAM.Used / resp.KPIs.RAM.Total * 100
	}
	storagePercent := 0.0
	if resp.KPIs.Storage.Total > 0 {
		storagePercent = resp.KPIs.Storage.Used / resp.KPIs.Storage.Total * 100
	}

	query := `
		INSERT INTO overview_snapshots (
			id, taken_at, cpu_used_percent, ram_used_percent, storage_used_percent,
			running_vms, total_vms, efficiency_score, monthly_cost, yearly_co2_kg, data_source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(), time.Now().UTC(),
		resp.KPIs.CPU.Used, ramPercent, storagePercent,
		resp.KPIs.VMs.Running, resp.KPIs.VMs.Total,
		resp.KPIs.Efficiency, resp.Green.Cost.Monthly, resp.Green.CO2.YearlyKg,
		resp.Meta.DataSource,
	)
	return err
}

// ListSnapshots returns the most recent snapshot rows, newest first.
func (s *PostgresStore) ListSnapshots(ctx context.Context, limit int) ([]models.SnapshotRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, taken_at, cpu_used_percent, ram_used_percent, storage_used_percent,
			running_vms, total_vms, efficiency_score, monthly_cost, yearly_co2_kg, data_source
		FROM overview_snapshots
		ORDER BY taken_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.SnapshotRecord
	for rows.Next() {
		var rec models.SnapshotRecord
		if err := rows.Scan(
			&rec.ID, &rec.TakenAt, &rec.CPUUsedPercent, &rec.RAMUsedPercent,
			&rec.StorageUsedPercent, &rec.RunningVMs, &rec.TotalVMs,
			&rec.EfficiencyScore, &rec.MonthlyCost, &rec.YearlyCO2Kg, &rec.DataSource,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
