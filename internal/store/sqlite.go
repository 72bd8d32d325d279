package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/pipeline"
	"github.com/sells-group/nbs-planner/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db    *sql.DB
	retry resilience.Policy
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, retry: resilience.DefaultPolicy()}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS plan_runs (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	grid_rows          INTEGER NOT NULL,
	grid_cols          INTEGER NOT NULL,
	cell_size_m        REAL NOT NULL,
	budget             REAL,
	total_cost         REAL NOT NULL DEFAULT 0,
	intervention_cells INTEGER NOT NULL DEFAULT 0,
	detail             TEXT NOT NULL,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS plan_cells (
	run_id               TEXT NOT NULL REFERENCES plan_runs(id) ON DELETE CASCADE,
	cell_row             INTEGER NOT NULL,
	cell_col             INTEGER NOT NULL,
	category             TEXT NOT NULL,
	density              REAL NOT NULL,
	roughness_length     REAL NOT NULL,
	mean_building_height REAL NOT NULL,
	sky_view_factor      REAL NOT NULL,
	cost                 REAL NOT NULL,
	composite_priority   REAL NOT NULL,
	cell_rank            INTEGER NOT NULL,
	selected             BOOLEAN NOT NULL,
	geom                 BLOB NOT NULL,
	data                 TEXT NOT NULL,
	PRIMARY KEY (run_id, cell_row, cell_col)
);

CREATE INDEX IF NOT EXISTS idx_plan_runs_name ON plan_runs(name);
CREATE INDEX IF NOT EXISTS idx_plan_runs_created_at ON plan_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_plan_cells_category ON plan_cells(run_id, category);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SavePlan writes the run and all of its cells in one transaction.
func (s *SQLiteStore) SavePlan(ctx context.Context, name string, plan *pipeline.Plan) (*Run, error) {
	run := NewRun(uuid.New().String(), name, time.Now().UTC(), plan)
	detail, err := encodeRunDetail(run)
	if err != nil {
		return nil, err
	}

	err = resilience.Do(ctx, "sqlite: save plan", s.retry, func(ctx context.Context) error {
		return s.insertPlan(ctx, run, detail, plan.Cells)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Debug("sqlite: saved plan",
		zap.String("run_id", run.ID),
		zap.Int("cells", len(plan.Cells)),
	)
	return run, nil
}

// insertPlan writes one run in a single transaction.
func (s *SQLiteStore) insertPlan(ctx context.Context, run *Run, detail []byte, cells []model.GridCell) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO plan_runs (id, name, grid_rows, grid_cols, cell_size_m, budget, total_cost, intervention_cells, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Rows, run.Cols, run.CellSizeM, run.Budget,
		run.Stats.TotalCost, run.Stats.InterventionCells, string(detail), run.CreatedAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert run")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO plan_cells (`+strings.Join(cellColumns, ", ")+`)
		 VALUES (?`+strings.Repeat(", ?", len(cellColumns)-1)+`)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare cell insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i := range cells {
		row, err := cellRow(run.ID, &cells[i])
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert cell %s", cells[i].ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

const sqliteRunColumns = `id, name, grid_rows, grid_cols, cell_size_m, budget, detail, created_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM plan_runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: run %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM plan_runs`
	var args []any
	if filter.Name != "" {
		query += ` WHERE name = ?`
		args = append(args, filter.Name)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, listLimit(filter.Limit), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs rows")
}

func (s *SQLiteStore) ListCells(ctx context.Context, runID string, filter CellFilter) ([]model.GridCell, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	query := `SELECT data, geom FROM plan_cells WHERE run_id = ?`
	args := []any{runID}
	if filter.Category != nil {
		query += ` AND category = ?`
		args = append(args, filter.Category.Slug())
	}
	if filter.SelectedOnly {
		query += ` AND selected`
	}
	query += ` ORDER BY cell_row, cell_col`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list cells")
	}
	defer rows.Close() //nolint:errcheck

	var cells []model.GridCell
	for rows.Next() {
		var data string
		var geomWKB []byte
		if err := rows.Scan(&data, &geomWKB); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cell")
		}
		c, err := decodeCell([]byte(data), geomWKB)
		if err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return cells, eris.Wrap(rows.Err(), "sqlite: list cells rows")
}

type scannable interface {
	Scan(dest ...any) error
}

// scanRun reads sqliteRunColumns. sql.ErrNoRows is returned unwrapped.
func scanRun(row scannable) (*Run, error) {
	var r Run
	var budget sql.NullFloat64
	var detail string

	err := row.Scan(&r.ID, &r.Name, &r.Rows, &r.Cols, &r.CellSizeM, &budget, &detail, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if budget.Valid {
		r.Budget = &budget.Float64
	}
	if err := decodeRunDetail([]byte(detail), &r); err != nil {
		return nil, err
	}
	return &r, nil
}
