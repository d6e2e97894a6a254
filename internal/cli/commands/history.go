package commands

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SH1NG3R/SQL-eter/internal/cli/output"
	"github.com/SH1NG3R/SQL-eter/pkg/core"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent repair runs from the run journal",
		Example: `  sqleter history
  sqleter history --limit 50 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContextWithoutDB(cmd)
			store, err := openJournal(cmdCtx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return renderHistory(cmdCtx.Renderer, runs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

func renderHistory(r *output.Renderer, runs []*core.RepairRun) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(runs)
	}
	if len(runs) == 0 {
		r.Println("No runs recorded")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		mode := "real"
		if run.DryRun {
			mode = "dry run"
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format(time.DateTime),
			run.Dialect,
			run.Table,
			strings.Join(run.Columns, ","),
			string(run.Strategy),
			mode,
			r.Styles().Status(string(run.Status)),
			strconv.FormatInt(run.DeletedCount, 10),
		})
	}
	r.Table([]string{"Run", "Started", "Dialect", "Table", "Columns", "Strategy", "Mode", "Status", "Deleted"}, rows)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
