package remover

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SH1NG3R/SQL-eter/internal/testutil"
	"github.com/SH1NG3R/SQL-eter/internal/testutil/dbtest"
	"github.com/SH1NG3R/SQL-eter/pkg/adapter"
	"github.com/SH1NG3R/SQL-eter/pkg/core"
	"github.com/SH1NG3R/SQL-eter/pkg/dialect"
)

func TestRemove_ScenarioKeepOldest(t *testing.T) {
	ctx := context.Background()
	h := dbtest.OpenMemory(t)
	dbtest.Seed(t, h, "t", dbtest.ScenarioRows)

	r := New(h, testutil.NewTestLogger(t), Options{})
	result, err := r.KeepOldest(ctx, "t", []string{"k"}, false)
	require.NoError(t, err)

	assert.Equal(t, core.RemovalStatusSuccess, result.Status)
	assert.Equal(t, int64(2), result.DeletedCount)
	assert.False(t, result.DryRun)
	assert.Equal(t, core.StrategyOldest, result.Strategy)
	assert.Equal(t, 2, result.Groups)
	assert.Equal(t, []int64{1, 3, 4}, dbtest.IDs(t, h, "t"))

	require.NotEmpty(t, result.BackupTable)
	assert.True(t, strings.HasPrefix(result.BackupTable, "t_backup_"))
	assert.Equal(t, int64(5), dbtest.Count(t, h, result.BackupTable), "backup holds the pre-delete rows")
}

func TestRemove_ScenarioKeepNewest(t *testing.T) {
	h := dbtest.OpenMemory(t)
	dbtest.Seed(t, h, "t", dbtest.ScenarioRows)

	result, err := New(h, nil, Options{}).KeepNewest(context.Background(), "t", []string{"k"}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.DeletedCount)
	assert.Equal(t, []int64{2, 3, 5}, dbtest.IDs(t, h, "t"))
}

func TestRemove_DryRunMatchesRealRun(t *testing.T) {
	rows := []dbtest.Row{
		{1, "a"}, {2, "a"}, {3, "a"}, {4, "b"}, {5, "c"}, {6, "c"}, {7, "d"}, {8, "d"}, {9, "d"}, {10, "d"},
	}
	for _, s := range core.Strategies() {
		t.Run(string(s), func(t *testing.T) {
			ctx := context.Background()
			h := dbtest.OpenMemory(t)
			dbtest.Seed(t, h, "t", rows)
			r := New(h, testutil.NewTestLogger(t), Options{})

			preview, err := r.Remove(ctx, "t", []string{"k"}, s, true)
			require.NoError(t, err)
			assert.True(t, preview.DryRun)
			assert.Empty(t, preview.BackupTable, "dry run never takes a backup")
			assert.Empty(t, dbtest.TablesWithPrefix(t, h, "t_backup_"))
			assert.Equal(t, int64(len(rows)), dbtest.Count(t, h, "t"), "dry run never mutates")

			before := dbtest.Count(t, h, "t")
			applied, err := r.Remove(ctx, "t", []string{"k"}, s, false)
			require.NoError(t, err)
			after := dbtest.Count(t, h, "t")

			assert.Equal(t, preview.DeletedCount, applied.DeletedCount)
			assert.Equal(t, int64(6), applied.DeletedCount)
			assert.Equal(t, before-after, applied.DeletedCount)
			assert.NotEmpty(t, applied.BackupTable)
		})
	}
}

func TestRemove_SurvivorInvariant(t *testing.T) {
	rows := []dbtest.Row{
		{3, "x"}, {8, "y"}, {1, "x"}, {9, "x"}, {4, "y"}, {7, "z"}, {2, "z"}, {5, "w"},
	}
	tests := []struct {
		strategy core.Strategy
		kept     []int64
	}{
		{core.StrategyOldest, []int64{1, 2, 4, 5}},
		{core.StrategyNewest, []int64{5, 7, 8, 9}},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			h := dbtest.OpenMemory(t)
			dbtest.Seed(t, h, "t", rows)

			_, err := New(h, nil, Options{}).Remove(context.Background(), "t", []string{"k"}, tt.strategy, false)
			require.NoError(t, err)
			assert.Equal(t, tt.kept, dbtest.IDs(t, h, "t"))
		})
	}
}

func TestRemove_NoDuplicates(t *testing.T) {
	for _, dryRun := range []bool{true, false} {
		h := dbtest.OpenMemory(t)
		dbtest.Seed(t, h, "t", []dbtest.Row{{1, "a"}, {2, "b"}, {3, "c"}})

		result, err := New(h, testutil.NewTestLogger(t), Options{}).Remove(context.Background(), "t", []string{"k"}, core.StrategyOldest, dryRun)
		require.NoError(t, err)
		assert.Equal(t, core.RemovalStatusSuccess, result.Status)
		assert.Equal(t, int64(0), result.DeletedCount)
		assert.Empty(t, result.BackupTable)
		assert.Equal(t, core.MessageNoDuplicates, result.Message)
		assert.Empty(t, dbtest.TablesWithPrefix(t, h, "t_backup_"), "no backup for a no-op")
	}
}

func TestRemove_CustomIDColumnAndPrefix(t *testing.T) {
	ctx := context.Background()
	h := dbtest.OpenMemory(t)
	db, err := h.DB()
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "CREATE TABLE people (person_id INTEGER PRIMARY KEY, email TEXT)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO people VALUES (1, 'a'), (2, 'a'), (3, 'b')")
	require.NoError(t, err)

	r := New(h, nil, Options{IDColumn: "person_id", BackupPrefix: "dev_backup"})
	result, err := r.KeepNewest(ctx, "people", []string{"email"}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.DeletedCount)
	assert.True(t, strings.HasPrefix(result.BackupTable, "people_dev_backup_"))
}

func TestRemove_AnalyzeFailureSurfaces(t *testing.T) {
	h := dbtest.OpenMemory(t)

	_, err := New(h, testutil.NewTestLogger(t), Options{}).Remove(context.Background(), "missing", []string{"k"}, core.StrategyOldest, false)
	var qe *core.QueryError
	assert.True(t, errors.As(err, &qe))
}

func TestRemove_MySQLDerivedTableDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	d, _ := dialect.Parse("mysql")
	h := adapter.NewHandle(d, db, nil)

	mock.ExpectQuery(`GROUP_CONCAT\(id ORDER BY id\)`).WillReturnRows(
		sqlmock.NewRows([]string{"k", "duplicate_count", "min_id", "max_id", "all_ids"}).AddRow("a", 2, 1, 2, "1,2"))
	mock.ExpectExec(`CREATE TABLE t_backup_\d{8}_\d{6} AS SELECT \* FROM t`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM t`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM t_backup_`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectExec(`DELETE FROM t WHERE id NOT IN \(SELECT \* FROM \(SELECT MIN\(id\) FROM t GROUP BY k\) AS temp\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := New(h, testutil.NewTestLogger(t), Options{}).Remove(context.Background(), "t", []string{"k"}, core.StrategyOldest, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.DeletedCount)
	assert.NoError(t, mock.ExpectationsWereMet(), "mysql runs without a transaction")
}

func TestRemove_BackupFailurePreventsDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	d, _ := dialect.Parse("mysql")
	h := adapter.NewHandle(d, db, nil)

	mock.ExpectQuery(`WITH duplicates AS`).WillReturnRows(
		sqlmock.NewRows([]string{"k", "duplicate_count", "min_id", "max_id", "all_ids"}).AddRow("a", 2, 1, 2, "1,2"))
	mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("Error 1142: CREATE command denied"))

	_, err = New(h, testutil.NewTestLogger(t), Options{}).Remove(context.Background(), "t", []string{"k"}, core.StrategyOldest, false)
	var be *core.BackupError
	require.True(t, errors.As(err, &be))
	assert.Contains(t, err.Error(), "CREATE command denied")
	assert.NoError(t, mock.ExpectationsWereMet(), "no DELETE may follow a failed backup")
}

func TestRemove_BackupMismatchPreventsDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	d, _ := dialect.Parse("mysql")
	h := adapter.NewHandle(d, db, nil)

	mock.ExpectQuery(`WITH duplicates AS`).WillReturnRows(
		sqlmock.NewRows([]string{"k", "duplicate_count", "min_id", "max_id", "all_ids"}).AddRow("a", 2, 1, 2, "1,2"))
	mock.ExpectExec(`CREATE TABLE`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))

	_, err = New(h, nil, Options{}).Remove(context.Background(), "t", []string{"k"}, core.StrategyOldest, false)
	var be *core.BackupError
	require.True(t, errors.As(err, &be))
	assert.ErrorIs(t, err, ErrBackupMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemove_PostgresRunsInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	d, _ := dialect.Parse("postgresql")
	h := adapter.NewHandle(d, db, nil)

	mock.ExpectQuery(`ARRAY_AGG`).WillReturnRows(
		sqlmock.NewRows([]string{"email", "duplicate_count", "min_id", "max_id", "all_ids"}).AddRow("a", 3, 1, 3, "1,2,3"))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE users_backup_`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(3))
	mock.ExpectExec(`DELETE FROM users WHERE id NOT IN \(SELECT MAX\(id\) FROM users GROUP BY email\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	result, err := New(h, nil, Options{}).KeepNewest(context.Background(), "users", []string{"email"}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.DeletedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemove_PostgresDeleteFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	d, _ := dialect.Parse("postgresql")
	h := adapter.NewHandle(d, db, nil)

	mock.ExpectQuery(`ARRAY_AGG`).WillReturnRows(
		sqlmock.NewRows([]string{"email", "duplicate_count", "min_id", "max_id", "all_ids"}).AddRow("a", 2, 1, 2, "1,2"))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	mock.ExpectExec(`DELETE FROM users`).WillReturnError(errors.New("canceling statement due to lock timeout"))
	mock.ExpectRollback()

	_, err = New(h, testutil.NewTestLogger(t), Options{}).KeepOldest(context.Background(), "users", []string{"email"}, false)
	var qe *core.QueryError
	require.True(t, errors.As(err, &qe))
	assert.Contains(t, err.Error(), "lock timeout")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemove_MySQLTruncatedIDsDryRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	d, _ := dialect.Parse("mysql")
	h := adapter.NewHandle(d, db, nil)

	mock.ExpectQuery(`GROUP_CONCAT\(id ORDER BY id\)`).WillReturnRows(
		sqlmock.NewRows([]string{"k", "duplicate_count", "min_id", "max_id", "all_ids"}).AddRow("a", 400, 1, 900, "1,2,3,"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM t WHERE id NOT IN \(SELECT MIN\(id\) FROM t GROUP BY k\)`).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(399))

	result, err := New(h, testutil.NewTestLogger(t), Options{}).Remove(context.Background(), "t", []string{"k"}, core.StrategyOldest, true)
	require.NoError(t, err)
	assert.Equal(t, int64(399), result.DeletedCount)
	assert.Equal(t, 1, result.Groups)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemove_NullKeys(t *testing.T) {
	seed := func(t *testing.T) *adapter.Handle {
		h := dbtest.OpenMemory(t)
		dbtest.Seed(t, h, "t", nil)
		dbtest.Exec(t, h, "INSERT INTO t (id, k) VALUES (1, NULL), (2, NULL), (3, 'x')")
		return h
	}
	ctx := context.Background()

	h := seed(t)
	dry, err := New(h, testutil.NewTestLogger(t), Options{}).KeepOldest(ctx, "t", []string{"k"}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dry.DeletedCount)
	assert.Equal(t, []int64{1, 2, 3}, dbtest.IDs(t, h, "t"))

	applied, err := New(h, testutil.NewTestLogger(t), Options{}).KeepOldest(ctx, "t", []string{"k"}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), applied.DeletedCount)
	assert.Equal(t, []int64{1, 3}, dbtest.IDs(t, h, "t"))

	h = seed(t)
	newest, err := New(h, nil, Options{}).KeepNewest(ctx, "t", []string{"k"}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), newest.DeletedCount)
	assert.Equal(t, []int64{2, 3}, dbtest.IDs(t, h, "t"))
}

func TestRemove_StrategyValidation(t *testing.T) {
	h := dbtest.OpenMemory(t)
	dbtest.Seed(t, h, "t", dbtest.ScenarioRows)
	r := New(h, testutil.NewTestLogger(t), Options{})

	_, err := r.Remove(context.Background(), "t", []string{"k"}, core.Strategy("middle"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid strategy "middle"`)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, dbtest.IDs(t, h, "t"))
	assert.Empty(t, dbtest.TablesWithPrefix(t, h, "t_backup_"))

	result, err := r.Remove(context.Background(), "t", []string{"k"}, "", true)
	require.NoError(t, err)
	assert.Equal(t, core.DefaultStrategy, result.Strategy)

	result, err = r.Remove(context.Background(), "t", []string{"k"}, core.Strategy("NEWEST"), true)
	require.NoError(t, err)
	assert.Equal(t, core.StrategyNewest, result.Strategy)
}
