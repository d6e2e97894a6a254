// Package dbtest provides SQLite backed fixtures for component tests.
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SH1NG3R/SQL-eter/internal/testutil"
	"github.com/SH1NG3R/SQL-eter/pkg/adapter"
	_ "github.com/SH1NG3R/SQL-eter/pkg/adapters/sqlite" // register sqlite driver
)

// Row is one fixture row: an id and its key value.
type Row struct {
	ID int64
	K  string
}

// ScenarioRows is the canonical fixture: {1,2} share a, {4,5} share c.
var ScenarioRows = []Row{
	{1, "a"},
	{2, "a"},
	{3, "b"},
	{4, "c"},
	{5, "c"},
}

// OpenMemory returns a handle on a fresh in-memory SQLite database.
func OpenMemory(t testing.TB) *adapter.Handle {
	t.Helper()
	h, err := adapter.Open("sqlite://", "sqlite", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// FileTarget returns a sqlite connection target inside t.TempDir().
func FileTarget(t testing.TB, name string) string {
	t.Helper()
	return "sqlite:///" + filepath.Join(t.TempDir(), name)
}

// OpenFile returns a handle on target, closing it when the test ends.
func OpenFile(t testing.TB, target string) *adapter.Handle {
	t.Helper()
	h, err := adapter.Open(target, "sqlite", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// Seed creates table (id INTEGER PRIMARY KEY, k TEXT) holding rows.
func Seed(t testing.TB, h *adapter.Handle, table string, rows []Row) {
	t.Helper()
	db, err := h.DB()
	require.NoError(t, err)

	ctx := context.Background()
	_, err = db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (id INTEGER PRIMARY KEY, k TEXT)", table))
	require.NoError(t, err)

	if len(rows) == 0 {
		return
	}
	values := make([]string, len(rows))
	args := make([]any, 0, len(rows)*2)
	for i, r := range rows {
		values[i] = "(?, ?)"
		args = append(args, r.ID, r.K)
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (id, k) VALUES %s", table, strings.Join(values, ", ")), args...)
	require.NoError(t, err)
}

// IDs returns the ids left in table in ascending order.
func IDs(t testing.TB, h *adapter.Handle, table string) []int64 {
	t.Helper()
	db, err := h.DB()
	require.NoError(t, err)

	rows, err := db.QueryContext(context.Background(), fmt.Sprintf("SELECT id FROM %s", table))
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Exec runs a fixture statement on h.
func Exec(t testing.TB, h *adapter.Handle, stmt string, args ...any) {
	t.Helper()
	db, err := h.DB()
	require.NoError(t, err)
	_, err = db.ExecContext(context.Background(), stmt, args...)
	require.NoError(t, err)
}

// Count returns COUNT(*) of table.
func Count(t testing.TB, h *adapter.Handle, table string) int64 {
	t.Helper()
	db, err := h.DB()
	require.NoError(t, err)
	var n int64
	require.NoError(t, db.QueryRowContext(context.Background(), fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n))
	return n
}

// TableExists reports whether SQLite knows a table called name.
func TableExists(t testing.TB, h *adapter.Handle, name string) bool {
	t.Helper()
	db, err := h.DB()
	require.NoError(t, err)
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n))
	return n == 1
}

// TablesWithPrefix lists SQLite tables whose name starts with prefix.
func TablesWithPrefix(t testing.TB, h *adapter.Handle, prefix string) []string {
	t.Helper()
	db, err := h.DB()
	require.NoError(t, err)

	rows, err := db.QueryContext(context.Background(),
		"SELECT name FROM sqlite_master WHERE type = 'table' AND substr(name, 1, ?) = ? ORDER BY name", len(prefix), prefix)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}
