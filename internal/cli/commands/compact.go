package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SH1NG3R/SQL-eter/internal/cli/output"
	"github.com/SH1NG3R/SQL-eter/internal/compactor"
)

// CompactOutput is the JSON shape of the compact command.
type CompactOutput struct {
	Table     string `json:"table"`
	Compacted bool   `json:"compacted"`
	Analyzed  *bool  `json:"analyzed,omitempty"`
	Reindexed *bool  `json:"reindexed,omitempty"`
}

// NewCompactCommand creates the compact command.
func NewCompactCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Reclaim space and refresh statistics for a table",
		Long: `Run the database's space reclaim statement for a table:

  postgresql  VACUUM ANALYZE (VACUUM FULL ANALYZE with --full)
  mysql       OPTIMIZE TABLE
  sqlite      VACUUM (affects the whole database file)

--analyze and --reindex additionally refresh planner statistics and rebuild
indexes where the database supports it.`,
		Example: `  sqleter compact --table customers
  sqleter compact --table customers --full --analyze --reindex`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompact(cmd)
		},
	}

	addTableFlags(cmd, false)
	cmd.Flags().Bool("full", false, "Rewrite the whole table (PostgreSQL VACUUM FULL)")
	cmd.Flags().Bool("analyze", false, "Refresh planner statistics")
	cmd.Flags().Bool("reindex", false, "Rebuild the table's indexes")

	return cmd
}

func runCompact(cmd *cobra.Command) error {
	if getConfig().Table == "" {
		return fmt.Errorf("table is required\nHint: use --table")
	}
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	ctx, cancel := cmdCtx.Context(cmd)
	defer cancel()

	c := compactor.New(cmdCtx.Handle, cmdCtx.Logger, compactor.Options{Full: cfg.Compact.Full})
	result := CompactOutput{Table: cfg.Table, Compacted: c.Compress(ctx, cfg.Table)}
	ok := result.Compacted
	if cfg.Compact.Analyze {
		v := c.RefreshStatistics(ctx, cfg.Table)
		result.Analyzed = &v
		ok = ok && v
	}
	if cfg.Compact.Reindex {
		v := c.Reindex(ctx, cfg.Table)
		result.Reindexed = &v
		ok = ok && v
	}

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(result); err != nil {
			return err
		}
	} else {
		r.Header(1, fmt.Sprintf("Compacting %s", cfg.Table))
		reportStep(r, "compress", result.Compacted)
		if result.Analyzed != nil {
			reportStep(r, "analyze", *result.Analyzed)
		}
		if result.Reindexed != nil {
			reportStep(r, "reindex", *result.Reindexed)
		}
	}
	if !ok {
		return fmt.Errorf("compaction of %s failed", cfg.Table)
	}
	return nil
}

func reportStep(r *output.Renderer, step string, ok bool) {
	if ok {
		r.Success(step)
		return
	}
	r.Error(step + " failed")
}
