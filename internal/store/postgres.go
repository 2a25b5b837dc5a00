package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/ppiankov/banklab/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS banklab_runs (
	run_id       UUID PRIMARY KEY,
	created_at   TIMESTAMPTZ NOT NULL,
	entities     TEXT[] NOT NULL
);

CREATE TABLE IF NOT EXISTS banklab_fundamentals (
	run_id        UUID NOT NULL REFERENCES banklab_runs(run_id) ON DELETE CASCADE,
	entity_id     TEXT NOT NULL,
	fiscal_year   INT NOT NULL,
	fiscal_period TEXT NOT NULL,
	as_of_date    DATE,
	concept_name  TEXT NOT NULL,
	value         DOUBLE PRECISION,
	source_tag    TEXT NOT NULL,
	PRIMARY KEY (run_id, entity_id, fiscal_year, fiscal_period, concept_name)
);

CREATE TABLE IF NOT EXISTS banklab_kpis (
	run_id        UUID NOT NULL REFERENCES banklab_runs(run_id) ON DELETE CASCADE,
	entity_id     TEXT NOT NULL,
	fiscal_year   INT NOT NULL,
	fiscal_period TEXT NOT NULL,
	as_of_date    DATE,
	kpi_name      TEXT NOT NULL,
	unit          TEXT NOT NULL,
	value         DOUBLE PRECISION,
	PRIMARY KEY (run_id, entity_id, fiscal_year, fiscal_period, kpi_name)
);

CREATE TABLE IF NOT EXISTS banklab_quality (
	run_id     UUID NOT NULL REFERENCES banklab_runs(run_id) ON DELETE CASCADE,
	seq        INT NOT NULL,
	check_name TEXT NOT NULL,
	severity   TEXT NOT NULL,
	entity_id  TEXT NOT NULL,
	period     TEXT NOT NULL,
	message    TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
`

// Run is everything persisted for one pipeline run
type Run struct {
	ID         string
	CreatedAt  time.Time
	Entities   []string
	Normalized []model.NormalizedLineItem
	KPIs       []model.KPIObservation
	Warnings   []model.QualityWarning
}

// Postgres is an optional sink for run tables
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to url and pings the server
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// EnsureSchema creates the run tables if missing
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun upserts a run and its rows in one transaction
func (p *Postgres) SaveRun(ctx context.Context, run Run) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO banklab_runs (run_id, created_at, entities)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id) DO UPDATE
		SET created_at = EXCLUDED.created_at, entities = EXCLUDED.entities
	`, run.ID, run.CreatedAt, run.Entities); err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, it := range run.Normalized {
		batch.Queue(`
			INSERT INTO banklab_fundamentals
				(run_id, entity_id, fiscal_year, fiscal_period, as_of_date, concept_name, value, source_tag)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (run_id, entity_id, fiscal_year, fiscal_period, concept_name) DO UPDATE
			SET as_of_date = EXCLUDED.as_of_date, value = EXCLUDED.value, source_tag = EXCLUDED.source_tag
		`, run.ID, it.EntityID, it.FiscalYear, string(it.FiscalPeriod), nullDate(it.AsOf),
			it.Concept, nullFloat(it.Value), it.SourceTag)
	}
	for _, o := range run.KPIs {
		batch.Queue(`
			INSERT INTO banklab_kpis
				(run_id, entity_id, fiscal_year, fiscal_period, as_of_date, kpi_name, unit, value)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (run_id, entity_id, fiscal_year, fiscal_period, kpi_name) DO UPDATE
			SET as_of_date = EXCLUDED.as_of_date, unit = EXCLUDED.unit, value = EXCLUDED.value
		`, run.ID, o.EntityID, o.FiscalYear, string(o.FiscalPeriod), nullDate(o.AsOf),
			o.Name, o.Unit, nullFloat(o.Value))
	}
	for i, w := range run.Warnings {
		batch.Queue(`
			INSERT INTO banklab_quality (run_id, seq, check_name, severity, entity_id, period, message)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (run_id, seq) DO UPDATE
			SET check_name = EXCLUDED.check_name, severity = EXCLUDED.severity,
			    entity_id = EXCLUDED.entity_id, period = EXCLUDED.period, message = EXCLUDED.message
		`, run.ID, i, w.CheckName, string(w.Severity), w.EntityID, w.Period, w.Message)
	}

	queued := batch.Len()
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to store row %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	log.WithFields(log.Fields{
		"run_id":       run.ID,
		"fundamentals": len(run.Normalized),
		"kpis":         len(run.KPIs),
		"warnings":     len(run.Warnings),
	}).Info("Stored run in Postgres")
	return nil
}

// CountRows returns the number of rows stored for a run in table
func (p *Postgres) CountRows(ctx context.Context, table, runID string) (int, error) {
	switch table {
	case "banklab_fundamentals", "banklab_kpis", "banklab_quality":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	err := p.pool.QueryRow(ctx, "SELECT count(*) FROM "+table+" WHERE run_id = $1", runID).Scan(&n)
	return n, err
}

func nullFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
