package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/nbs-planner/internal/model"
	"github.com/sells-group/nbs-planner/internal/resilience"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS plan_runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SavePlan(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	plan := samplePlan()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO plan_runs`).
		WithArgs(pgxmock.AnyArg(), "downtown", 1, 2, 100.0, pgxmock.AnyArg(),
			1500.0, 1, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"plan_cells"}, cellColumns).
		WillReturnResult(2)
	mock.ExpectCommit()

	run, err := s.SavePlan(context.Background(), "downtown", plan)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "downtown", run.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SavePlan_CopyError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO plan_runs`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"plan_cells"}, cellColumns).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.SavePlan(context.Background(), "downtown", samplePlan())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy cells")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SavePlan_RetriesSerializationFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	s.retry = resilience.Policy{Attempts: 3, Backoff: time.Millisecond, MaxBackoff: time.Millisecond}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO plan_runs`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"plan_cells"}, cellColumns).
		WillReturnResult(2)
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001"})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO plan_runs`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"plan_cells"}, cellColumns).
		WillReturnResult(2)
	mock.ExpectCommit()

	_, err := s.SavePlan(context.Background(), "downtown", samplePlan())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, grid_rows, grid_cols, cell_size_m, budget, detail, created_at FROM plan_runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	detail := []byte(`{"stats":{"total_cells":4},"building_stats":{"total_buildings":2},"summaries":[]}`)

	rows := pgxmock.NewRows([]string{"id", "name", "grid_rows", "grid_cols", "cell_size_m", "budget", "detail", "created_at"}).
		AddRow("run-1", "downtown", 2, 2, 150.0, nil, detail, created)
	mock.ExpectQuery(`SELECT .+ FROM plan_runs WHERE name = \$1 ORDER BY created_at DESC, id LIMIT \$2 OFFSET \$3`).
		WithArgs("downtown", 10, 0).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), RunFilter{Name: "downtown", Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Nil(t, runs[0].Budget)
	assert.Equal(t, 4, runs[0].Stats.TotalCells)
	assert.Equal(t, 2, runs[0].Buildings.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCells_RunMissing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM plan_runs WHERE id = \$1`).
		WithArgs("gone").
		WillReturnError(pgx.ErrNoRows)

	gr := model.CategoryGreenRoof
	_, err := s.ListCells(context.Background(), "gone", CellFilter{Category: &gr})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
