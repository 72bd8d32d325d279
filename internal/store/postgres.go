package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/nbs-planner/internal/db"
	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/pipeline"
	"github.com/sells-group/nbs-planner/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool  db.Pool
	retry resilience.Policy
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	retry := resilience.DefaultPolicy()
	if err := resilience.Do(ctx, "postgres: ping", retry, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, retry: retry}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, retry: resilience.DefaultPolicy()}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS plan_runs (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	grid_rows          INTEGER NOT NULL,
	grid_cols          INTEGER NOT NULL,
	cell_size_m        DOUBLE PRECISION NOT NULL,
	budget             DOUBLE PRECISION,
	total_cost         DOUBLE PRECISION NOT NULL DEFAULT 0,
	intervention_cells INTEGER NOT NULL DEFAULT 0,
	detail             JSONB NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS plan_cells (
	run_id               TEXT NOT NULL REFERENCES plan_runs(id) ON DELETE CASCADE,
	cell_row             INTEGER NOT NULL,
	cell_col             INTEGER NOT NULL,
	category             TEXT NOT NULL,
	density              DOUBLE PRECISION NOT NULL,
	roughness_length     DOUBLE PRECISION NOT NULL,
	mean_building_height DOUBLE PRECISION NOT NULL,
	sky_view_factor      DOUBLE PRECISION NOT NULL,
	cost                 DOUBLE PRECISION NOT NULL,
	composite_priority   DOUBLE PRECISION NOT NULL,
	cell_rank            INTEGER NOT NULL,
	selected             BOOLEAN NOT NULL,
	geom                 BYTEA NOT NULL,
	data                 JSONB NOT NULL,
	PRIMARY KEY (run_id, cell_row, cell_col)
);

CREATE INDEX IF NOT EXISTS idx_plan_runs_name ON plan_runs(name);
CREATE INDEX IF NOT EXISTS idx_plan_runs_created_at ON plan_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_plan_cells_category ON plan_cells(run_id, category);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SavePlan writes the run and its cells, retrying transient failures.
func (s *PostgresStore) SavePlan(ctx context.Context, name string, plan *pipeline.Plan) (*Run, error) {
	run := NewRun(uuid.New().String(), name, time.Now().UTC(), plan)
	detail, err := encodeRunDetail(run)
	if err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(plan.Cells))
	for i := range plan.Cells {
		row, err := cellRow(run.ID, &plan.Cells[i])
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	err = resilience.Do(ctx, "postgres: save plan", s.retry, func(ctx context.Context) error {
		return s.insertPlan(ctx, run, detail, rows)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Debug("postgres: saved plan",
		zap.String("run_id", run.ID),
		zap.Int("cells", len(rows)),
	)
	return run, nil
}

// insertPlan inserts the run row, then streams the cells with COPY inside
// the same transaction.
func (s *PostgresStore) insertPlan(ctx context.Context, run *Run, detail []byte, rows [][]any) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO plan_runs (id, name, grid_rows, grid_cols, cell_size_m, budget, total_cost, intervention_cells, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.Name, run.Rows, run.Cols, run.CellSizeM, run.Budget,
		run.Stats.TotalCost, run.Stats.InterventionCells, detail, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert run")
	}

	if _, err := db.CopyFrom(ctx, tx, "plan_cells", cellColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: copy cells")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

const postgresRunColumns = `id, name, grid_rows, grid_cols, cell_size_m, budget, detail, created_at`

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresRunColumns+` FROM plan_runs WHERE id = $1`, runID)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}
	return r, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT ` + postgresRunColumns + ` FROM plan_runs`
	var args []any
	if filter.Name != "" {
		args = append(args, filter.Name)
		query += ` WHERE name = $1`
	}
	args = append(args, listLimit(filter.Limit), filter.Offset)
	if filter.Name != "" {
		query += ` ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	} else {
		query += ` ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs rows")
}

func (s *PostgresStore) ListCells(ctx context.Context, runID string, filter CellFilter) ([]model.GridCell, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	query := `SELECT data, geom FROM plan_cells WHERE run_id = $1`
	args := []any{runID}
	if filter.Category != nil {
		args = append(args, filter.Category.Slug())
		query += ` AND category = $2`
	}
	if filter.SelectedOnly {
		query += ` AND selected`
	}
	query += ` ORDER BY cell_row, cell_col`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list cells")
	}
	defer rows.Close()

	var cells []model.GridCell
	for rows.Next() {
		var data, geomWKB []byte
		if err := rows.Scan(&data, &geomWKB); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cell")
		}
		c, err := decodeCell(data, geomWKB)
		if err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return cells, eris.Wrap(rows.Err(), "postgres: list cells rows")
}

// scanPgRun reads postgresRunColumns. pgx.ErrNoRows is returned unwrapped.
func scanPgRun(row pgx.Row) (*Run, error) {
	var r Run
	var budget sql.NullFloat64
	var detail []byte

	err := row.Scan(&r.ID, &r.Name, &r.Rows, &r.Cols, &r.CellSizeM, &budget, &detail, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	if budget.Valid {
		r.Budget = &budget.Float64
	}
	if err := decodeRunDetail(detail, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
