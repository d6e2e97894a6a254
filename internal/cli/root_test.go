package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SH1NG3R/SQL-eter/internal/cli/config"
	"github.com/SH1NG3R/SQL-eter/internal/cli/testutil"
	"github.com/SH1NG3R/SQL-eter/internal/testutil/dbtest"
	"github.com/SH1NG3R/SQL-eter/pkg/core"
)

type result struct {
	out    string
	errOut string
	err    error
}

// execute runs the root command with args and stdin.
func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	config.ResetConfig()

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	closeLogFile()
	return result{out: out.String(), errOut: errOut.String(), err: err}
}

func withConn(p *testutil.Project, args ...string) []string {
	return append(args, p.ConnectionArgs()...)
}

type jsonReport struct {
	RunID   string              `json:"run_id"`
	Removal *core.RemovalResult `json:"removal"`
	Before  core.TableStats     `json:"before"`
	After   *core.TableStats    `json:"after"`
	Error   string              `json:"error"`
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), "output: %s", s)
	return v
}

func remainingIDs(t *testing.T, p *testutil.Project) []int64 {
	t.Helper()
	return dbtest.IDs(t, dbtest.OpenFile(t, p.Target), "t")
}

func TestRepair_DryRun(t *testing.T) {
	p := testutil.SetupTestProject(t)

	res := execute(t, "", withConn(p, "repair", "--table", "t", "--columns", "k", "--dry-run", "-o", "json")...)
	require.NoError(t, res.err, res.errOut)

	rep := decode[jsonReport](t, res.out)
	require.NotNil(t, rep.Removal)
	assert.Equal(t, core.RemovalStatusSuccess, rep.Removal.Status)
	assert.True(t, rep.Removal.DryRun)
	assert.Equal(t, int64(2), rep.Removal.DeletedCount)
	assert.Empty(t, rep.Removal.BackupTable)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, remainingIDs(t, p))
}

func TestRepair_Real(t *testing.T) {
	p := testutil.SetupTestProject(t)

	res := execute(t, "", withConn(p, "repair", "--table", "t", "--columns", "k", "-o", "json")...)
	require.NoError(t, res.err, res.errOut)

	rep := decode[jsonReport](t, res.out)
	assert.Equal(t, int64(2), rep.Removal.DeletedCount)
	assert.True(t, strings.HasPrefix(rep.Removal.BackupTable, "t_backup_"))
	assert.Equal(t, int64(5), rep.Before.RowCount)
	require.NotNil(t, rep.After)
	assert.Equal(t, int64(3), rep.After.RowCount)
	assert.Equal(t, []int64{1, 3, 4}, remainingIDs(t, p))
}

func TestRepair_KeyColumnLists(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
	}{
		{"comma separated", []string{"--columns", "k,id"}},
		{"space separated", []string{"--columns", "k", "id"}},
		{"mixed", []string{"--columns", "k", "id,k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testutil.SetupTestProject(t)

			args := append([]string{"repair", "--table", "t"}, tt.columns...)
			args = append(args, "-o", "json")
			res := execute(t, "", withConn(p, args...)...)
			require.NoError(t, res.err, res.errOut)

			rep := decode[jsonReport](t, res.out)
			require.NotNil(t, rep.Removal)
			assert.Equal(t, int64(0), rep.Removal.DeletedCount, "every row is unique on (k, id)")
			assert.Empty(t, rep.Removal.BackupTable)
			assert.Equal(t, []int64{1, 2, 3, 4, 5}, remainingIDs(t, p))
		})
	}
}

func TestCommands_RejectStrayArguments(t *testing.T) {
	p := testutil.SetupTestProject(t)

	tests := []struct {
		name string
		args []string
	}{
		{"repair without columns flag", []string{"repair", "--table", "t", "k"}},
		{"analyze without columns flag", []string{"analyze", "--table", "t", "k"}},
		{"stats", []string{"stats", "--table", "t", "extra"}},
		{"compact", []string{"compact", "--table", "t", "extra"}},
		{"ping", []string{"ping", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, "", withConn(p, tt.args...)...)
			require.Error(t, res.err)
			assert.Equal(t, []int64{1, 2, 3, 4, 5}, remainingIDs(t, p))
		})
	}
}

func TestAnalyze_SpaceSeparatedColumns(t *testing.T) {
	p := testutil.SetupTestProject(t)

	res := execute(t, "", withConn(p, "analyze", "--table", "t", "--columns", "k", "id", "-o", "json")...)
	require.NoError(t, res.err, res.errOut)

	out := decode[struct {
		Columns    []string `json:"columns"`
		GroupCount int      `json:"group_count"`
	}](t, res.out)
	assert.Equal(t, []string{"k", "id"}, out.Columns)
	assert.Equal(t, 0, out.GroupCount)
}

func TestRepair_NewestMarkdown(t *testing.T) {
	p := testutil.SetupTestProject(t)

	res := execute(t, "", withConn(p, "repair", "--table", "t", "--columns", "k", "--strategy", "newest", "--show-sql", "-v")...)
	require.NoError(t, res.err, res.errOut)

	testutil.AssertNoANSI(t, res.out)
	testutil.AssertValidMarkdown(t, res.out)
	assert.Contains(t, res.out, "DELETE FROM t WHERE id NOT IN (SELECT MAX(id) FROM t GROUP BY k)")
	assert.Contains(t, res.out, "## Initial Statistics")
	assert.Contains(t, res.out, "## Final Statistics")
	assert.Contains(t, res.out, "- **Deleted:** 2")
	assert.Equal(t, []int64{2, 3, 5}, remainingIDs(t, p))
}

func TestRepair_Errors(t *testing.T) {
	p := testutil.SetupTestProject(t)

	tests := []struct {
		name      string
		args      []string
		errSubstr string
	}{
		{
			name:      "unsupported dialect",
			args:      []string{"repair", "--db-type", "invalid_db", "--connection-string", p.Target, "--table", "t", "--columns", "k"},
			errSubstr: "unsupported database type",
		},
		{
			name:      "missing columns",
			args:      withConn(p, "repair", "--table", "t"),
			errSubstr: "key column",
		},
		{
			name:      "missing table",
			args:      withConn(p, "repair", "--columns", "k"),
			errSubstr: "table is required",
		},
		{
			name:      "invalid strategy",
			args:      withConn(p, "repair", "--table", "t", "--columns", "k", "--strategy", "middle"),
			errSubstr: "invalid strategy",
		},
		{
			name:      "unknown column",
			args:      withConn(p, "repair", "--table", "t", "--columns", "nope"),
			errSubstr: "repair failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, "", tt.args...)
			require.Error(t, res.err)
			assert.Contains(t, res.err.Error(), tt.errSubstr)
		})
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, remainingIDs(t, p), "failed runs never delete")
}

func TestRepair_ConfigFileAndEnv(t *testing.T) {
	p := testutil.SetupTestProject(t)
	p.WriteFile(t, "sqleter.yaml", "db_type: sqlite\nconnection_string: "+p.Target+"\ntable: t\n")
	t.Setenv("SQLETER_COLUMNS", "k")

	res := execute(t, "", "repair", "-o", "json")
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, int64(2), decode[jsonReport](t, res.out).Removal.DeletedCount)
}

func TestRun_ConfirmDeclined(t *testing.T) {
	p := testutil.SetupTestProject(t)

	res := execute(t, "n\n", withConn(p, "run", "--table", "t", "--columns", "k")...)
	require.NoError(t, res.err, res.errOut)

	assert.Contains(t, res.errOut, "[y/N]")
	assert.Contains(t, res.errOut, "operation cancelled")
	assert.Contains(t, res.out, "Would Delete")
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, remainingIDs(t, p))
}

func TestRun_ConfirmAccepted(t *testing.T) {
	p := testutil.SetupTestProject(t)

	res := execute(t, "y\n", withConn(p, "run", "--table", "t", "--columns", "k")...)
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "## Comparison")
	assert.Equal(t, []int64{1, 3, 4}, remainingIDs(t, p))
}

func TestRun_Yes(t *testing.T) {
	p := testutil.SetupTestProject(t)

	res := execute(t, "", withConn(p, "run", "--table", "t", "--columns", "k", "--yes", "--no-compact", "-o", "json")...)
	require.NoError(t, res.err, res.errOut)
	assert.NotContains(t, res.errOut, "[y/N]")

	rep := decode[jsonReport](t, res.out)
	assert.Equal(t, int64(2), rep.Removal.DeletedCount)
	assert.Equal(t, []int64{1, 3, 4}, remainingIDs(t, p))
}

func TestAnalyze(t *testing.T) {
	p := testutil.SetupTestProject(t)

	res := execute(t, "", withConn(p, "analyze", "--table", "t", "--columns", "k", "-o", "json")...)
	require.NoError(t, res.err, res.errOut)

	out := decode[struct {
		GroupCount      int                   `json:"group_count"`
		TotalDuplicates int64                 `json:"total_duplicates"`
		Groups          []core.DuplicateGroup `json:"groups"`
	}](t, res.out)
	assert.Equal(t, 2, out.GroupCount)
	assert.Equal(t, int64(2), out.TotalDuplicates)
	require.Len(t, out.Groups, 2)
	for _, g := range out.Groups {
		assert.Equal(t, int64(2), g.Count)
	}

	res = execute(t, "", withConn(p, "analyze", "--table", "t", "--columns", "k")...)
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "| k | Count | Min ID | Max ID | IDs |")
}

func TestStats(t *testing.T) {
	p := testutil.SetupTestProject(t)

	res := execute(t, "", withConn(p, "stats", "--table", "t", "-o", "json")...)
	require.NoError(t, res.err, res.errOut)

	s := decode[core.TableStats](t, res.out)
	assert.Equal(t, int64(5), s.RowCount)
	assert.Equal(t, core.StatsUnavailable, s.TableSize)

	res = execute(t, "", withConn(p, "stats", "--table", "missing")...)
	assert.Error(t, res.err)
}

func TestCompact(t *testing.T) {
	p := testutil.SetupTestProject(t)

	res := execute(t, "", withConn(p, "compact", "--table", "t", "--analyze", "--reindex", "-o", "json")...)
	require.NoError(t, res.err, res.errOut)
	out := decode[map[string]any](t, res.out)
	assert.Equal(t, true, out["compacted"])
	assert.Equal(t, true, out["analyzed"])
	assert.Equal(t, true, out["reindexed"])
}

func TestBackupLifecycle(t *testing.T) {
	p := testutil.SetupTestProject(t)

	res := execute(t, "", withConn(p, "backup", "create", "--table", "t", "--suffix", "manual")...)
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "t_backup_manual")

	res = execute(t, "", withConn(p, "backup", "verify", "--table", "t", "--backup", "t_backup_manual", "-o", "json")...)
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, true, decode[map[string]any](t, res.out)["rows_matched"])

	res = execute(t, "", withConn(p, "repair", "--table", "t", "--columns", "k")...)
	require.NoError(t, res.err, res.errOut)

	res = execute(t, "", withConn(p, "backup", "verify", "--table", "t", "--backup", "t_backup_manual")...)
	require.Error(t, res.err, "after the repair the table has fewer rows than the manual backup")

	res = execute(t, "", withConn(p, "backup", "restore", "--table", "t", "--backup", "t_backup_manual", "--yes")...)
	require.NoError(t, res.err, res.errOut)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, remainingIDs(t, p))

	res = execute(t, "", "backup", "list", "-o", "json")
	require.NoError(t, res.err, res.errOut)
	runs := decode[[]core.RepairRun](t, res.out)
	require.Len(t, runs, 1, "only the repair run recorded a backup")
	assert.True(t, strings.HasPrefix(runs[0].BackupTable, "t_backup_"))
}

func TestBackupRestore_Declined(t *testing.T) {
	p := testutil.SetupTestProject(t)

	res := execute(t, "", withConn(p, "backup", "create", "--table", "t", "--suffix", "b")...)
	require.NoError(t, res.err, res.errOut)

	res = execute(t, "no\n", withConn(p, "backup", "restore", "--table", "t", "--backup", "t_backup_b")...)
	require.NoError(t, res.err)
	assert.Contains(t, res.errOut, "restore cancelled")
}

func TestHistory(t *testing.T) {
	p := testutil.SetupTestProject(t)

	res := execute(t, "", "history")
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "No runs recorded")

	require.NoError(t, execute(t, "", withConn(p, "repair", "--table", "t", "--columns", "k", "--dry-run")...).err)
	require.NoError(t, execute(t, "", withConn(p, "repair", "--table", "t", "--columns", "k")...).err)

	res = execute(t, "", "history", "-o", "json")
	require.NoError(t, res.err, res.errOut)
	runs := decode[[]core.RepairRun](t, res.out)
	require.Len(t, runs, 2)
	assert.False(t, runs[0].DryRun, "newest first")
	assert.True(t, runs[1].DryRun)
	for _, run := range runs {
		assert.Equal(t, core.RunStatusCompleted, run.Status)
		assert.Equal(t, "sqlite", run.Dialect)
	}
}

func TestHistory_JournalDisabled(t *testing.T) {
	p := testutil.SetupTestProject(t)
	p.WriteFile(t, "sqleter.yaml", "state_path: \"\"\n")

	res := execute(t, "", "history")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "run journal is disabled")
}

func TestBatch(t *testing.T) {
	p := testutil.SetupTestProject(t)
	second := dbtest.FileTarget(t, "second.db")
	dbtest.Seed(t, dbtest.OpenFile(t, second), "t", dbtest.ScenarioRows)

	jobs := p.WriteFile(t, "jobs.yaml", `
workers: 2
defaults:
  db_type: sqlite
  columns: [k]
jobs:
  - name: first
    connection_string: `+p.Target+`
    table: t
  - name: second
    connection_string: `+second+`
    table: t
    strategy: newest
  - name: broken
    connection_string: `+second+`
    table: missing
`)

	res := execute(t, "", "batch", "--file", jobs, "-o", "json")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "1 of 3 jobs failed")

	reports := decode[[]jsonReport](t, res.out)
	require.Len(t, reports, 3)
	assert.Equal(t, int64(2), reports[0].Removal.DeletedCount)
	assert.Equal(t, int64(2), reports[1].Removal.DeletedCount)
	assert.NotEmpty(t, reports[2].Error)

	assert.Equal(t, []int64{1, 3, 4}, remainingIDs(t, p))
	assert.Equal(t, []int64{2, 3, 5}, dbtest.IDs(t, dbtest.OpenFile(t, second), "t"))
}

func TestBatch_InvalidFile(t *testing.T) {
	p := testutil.SetupTestProject(t)
	jobs := p.WriteFile(t, "jobs.yaml", "jobs:\n  - table: t\n")

	res := execute(t, "", "batch", "--file", jobs)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "key column")
}

func TestPing(t *testing.T) {
	p := testutil.SetupTestProject(t)

	res := execute(t, "", withConn(p, "ping")...)
	require.NoError(t, res.err, res.errOut)
	assert.Contains(t, res.out, "connected to sqlite database")

	res = execute(t, "", "ping")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "db_type is required")
}

func TestVersion(t *testing.T) {
	res := execute(t, "", "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "sqleter v"+Version)
}

func TestCompletion(t *testing.T) {
	res := execute(t, "", "completion", "bash")
	require.NoError(t, res.err)
	assert.Contains(t, res.out, "sqleter")
}

func TestLogFile(t *testing.T) {
	p := testutil.SetupTestProject(t)

	res := execute(t, "", withConn(p, "repair", "--table", "t", "--columns", "k", "--log-file", "logs/run.log", "--log-format", "json")...)
	require.NoError(t, res.err, res.errOut)

	logged, err := os.ReadFile(filepath.Join(p.Dir, "logs", "run.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logged), `"msg":"backup created"`)
	assert.Contains(t, res.errOut, `"msg":"backup created"`, "logs are tee'd to stderr")
}
