package stats

import (
	"context"
	"errors"
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

func TestCompare(t *testing.T) {
	tests := []struct {
		name    string
		before  int64
		after   int64
		removed int64
		pct     *float64
	}{
		{"twenty percent", 1000, 800, 200, ptr(20.0)},
		{"rounded", 3, 2, 1, ptr(33.33)},
		{"nothing removed", 10, 10, 0, ptr(0.0)},
		{"empty table", 0, 0, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp := Compare(core.TableStats{RowCount: tt.before}, core.TableStats{RowCount: tt.after})
			assert.Equal(t, tt.removed, cmp.RecordsRemoved)
			if tt.pct == nil {
				assert.Nil(t, cmp.ReductionPercentage)
				return
			}
			require.NotNil(t, cmp.ReductionPercentage)
			assert.InDelta(t, *tt.pct, *cmp.ReductionPercentage, 1e-9)
		})
	}
}

func ptr(f float64) *float64 { return &f }

func TestGet_SQLite(t *testing.T) {
	h := dbtest.OpenMemory(t)
	dbtest.Seed(t, h, "t", dbtest.ScenarioRows)

	s := New(h, testutil.NewTestLogger(t)).Get(context.Background(), "t")
	assert.Equal(t, core.TableStats{Table: "t", RowCount: 5, TableSize: "N/A", IndexSize: "N/A"}, s)
	assert.False(t, s.Failed())
}

func TestGet_MissingTableIsSentinel(t *testing.T) {
	h := dbtest.OpenMemory(t)

	s := New(h, testutil.NewTestLogger(t)).Get(context.Background(), "missing")
	assert.Equal(t, int64(0), s.RowCount)
	assert.Equal(t, "Error", s.TableSize)
	assert.Equal(t, "Error", s.IndexSize)
	assert.True(t, s.Failed())
}

func TestGet_NotInitialized(t *testing.T) {
	s := New(&adapter.Handle{}, nil).Get(context.Background(), "t")
	assert.True(t, s.Failed())
}

func TestGet_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	d, _ := dialect.Parse("postgresql")

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1200))
	mock.ExpectQuery(`pg_size_pretty\(pg_total_relation_size\(\$1::regclass\)\)`).
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"size", "index"}).AddRow("1024 kB", "240 kB"))

	s := New(adapter.NewHandle(d, db, nil), nil).Get(context.Background(), "users")
	assert.Equal(t, int64(1200), s.RowCount)
	assert.Equal(t, "1024 kB", s.TableSize)
	assert.Equal(t, "240 kB", s.IndexSize)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_MySQL(t *testing.T) {
	t.Run("sizes in MB", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		d, _ := dialect.Parse("mysql")

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
		mock.ExpectQuery(`information_schema.TABLES`).WithArgs("orders").
			WillReturnRows(sqlmock.NewRows([]string{"size", "index"}).AddRow([]byte("1.52 MB"), []byte("0.02 MB")))

		s := New(adapter.NewHandle(d, db, nil), nil).Get(context.Background(), "orders")
		assert.Equal(t, "1.52 MB", s.TableSize)
		assert.Equal(t, "0.02 MB", s.IndexSize)
	})

	t.Run("unknown to information_schema", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		d, _ := dialect.Parse("mysql")

		mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`information_schema.TABLES`).WillReturnRows(sqlmock.NewRows([]string{"size", "index"}))

		s := New(adapter.NewHandle(d, db, nil), nil).Get(context.Background(), "orders")
		assert.Equal(t, "N/A", s.TableSize)
	})

	t.Run("size query fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		d, _ := dialect.Parse("mysql")

		mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
		mock.ExpectQuery(`information_schema.TABLES`).WillReturnError(errors.New("access denied"))

		s := New(adapter.NewHandle(d, db, nil), testutil.NewTestLogger(t)).Get(context.Background(), "orders")
		assert.True(t, s.Failed())
		assert.Equal(t, int64(0), s.RowCount)
	})
}
