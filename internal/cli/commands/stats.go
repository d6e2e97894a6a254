package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SH1NG3R/SQL-eter/internal/cli/output"
	"github.com/SH1NG3R/SQL-eter/internal/stats"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show row count and storage size of a table",
		Long: `Show the row count, table size and index size of a table.

Sizes are reported the way the database formats them. SQLite has no per-table
size and reports N/A.`,
		Example: `  sqleter stats --table customers
  sqleter stats --table customers -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd)
		},
	}

	addTableFlags(cmd, false)

	return cmd
}

func runStats(cmd *cobra.Command) error {
	if getConfig().Table == "" {
		return fmt.Errorf("table is required\nHint: use --table")
	}
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := cmdCtx.Context(cmd)
	defer cancel()

	s := stats.New(cmdCtx.Handle, cmdCtx.Logger).Get(ctx, cmdCtx.Cfg.Table)
	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(s); err != nil {
			return err
		}
	} else {
		renderStats(r, "Table Statistics", s)
	}
	if s.Failed() {
		return fmt.Errorf("could not read statistics for %s", s.Table)
	}
	return nil
}
