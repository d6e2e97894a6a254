package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SH1NG3R/SQL-eter/internal/cli/output"
	"github.com/SH1NG3R/SQL-eter/internal/engine"
	"github.com/SH1NG3R/SQL-eter/internal/remover"
	"github.com/SH1NG3R/SQL-eter/pkg/core"
)

// RepairOptions holds options for the repair command.
type RepairOptions struct {
	DryRun  bool
	ShowSQL bool
	Compact bool
}

// NewRepairCommand creates the repair command.
func NewRepairCommand() *cobra.Command {
	opts := &RepairOptions{}

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Remove duplicate rows from a table",
		Long: `Find rows that share the same values in the key columns and delete all but
one of them per group.

A real run first copies the table to {table}_{backup_prefix}_{timestamp} and
checks the copy before anything is deleted. On PostgreSQL and SQLite the
backup, the check and the delete run in one transaction.`,
		Example: `  # Preview what would be removed
  sqleter repair --db-type postgresql \
    --connection-string postgresql://app@localhost/shop \
    --table customers --columns email --dry-run

  # Keep the newest row of each group
  sqleter repair --db-type sqlite --connection-string sqlite:///shop.db \
    --table orders --columns customer_id,sku --strategy newest

  # Print the generated DELETE statement
  sqleter repair --table orders --columns sku --dry-run --show-sql`,
		Args: columnArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(cmd, opts, args)
		},
	}

	addTableFlags(cmd, true)
	addStrategyFlag(cmd)
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Count the rows that would be deleted without changing data")
	cmd.Flags().BoolVar(&opts.ShowSQL, "show-sql", false, "Print the dialect-specific DELETE statement")
	cmd.Flags().BoolVar(&opts.Compact, "compact", false, "Reclaim space after rows were deleted")

	return cmd
}

func runRepair(cmd *cobra.Command, opts *RepairOptions, args []string) error {
	cfg := getConfig()
	appendColumnArgs(cfg, args)
	if err := cfg.ValidateTarget(); err != nil {
		return err
	}
	strategy, err := core.ParseStrategy(cfg.Strategy)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	ctx, cancel := cmdCtx.Context(cmd)
	defer cancel()

	if !cmdCtx.Handle.TestConnection(ctx) {
		return fmt.Errorf("connection test failed for %s database", cfg.DBType)
	}

	if opts.ShowSQL && r.EffectiveMode() != output.ModeJSON {
		stmt := remover.New(cmdCtx.Handle, cmdCtx.Logger, remover.Options{IDColumn: cfg.IDColumn}).
			DeleteStatement(cfg.Table, cfg.Columns, strategy)
		printSQL(r, stmt)
	}

	job := engine.Job{
		DBType:   cfg.DBType,
		Table:    cfg.Table,
		Columns:  cfg.Columns,
		Strategy: strategy,
		DryRun:   opts.DryRun,
		Compact:  opts.Compact,
	}
	report, err := cmdCtx.Engine(nil).Repair(ctx, cmdCtx.Handle, job)

	if r.EffectiveMode() == output.ModeJSON {
		if jerr := r.JSON(report); jerr != nil {
			return jerr
		}
		return err
	}
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}

	if cfg.Verbose {
		renderStats(r, "Initial Statistics", report.Before)
	}
	renderRemoval(r, report.Removal)
	if cfg.Verbose && report.After != nil {
		renderStats(r, "Final Statistics", *report.After)
		renderComparison(r, *report.Comparison)
	}
	if report.Compacted != nil && !*report.Compacted {
		r.Warning("compaction did not complete, see logs")
	}
	return nil
}

func printSQL(r *output.Renderer, stmt string) {
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println("```sql")
		r.Println(stmt)
		r.Println("```")
		r.Println("")
		return
	}
	r.Println(r.Styles().Muted.Render(stmt))
	r.Println("")
}
