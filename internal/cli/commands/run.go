package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SH1NG3R/SQL-eter/internal/analyzer"
	"github.com/SH1NG3R/SQL-eter/internal/cli/output"
	"github.com/SH1NG3R/SQL-eter/internal/engine"
	"github.com/SH1NG3R/SQL-eter/pkg/core"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Yes       bool
	NoCompact bool
	Top       int
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full interactive repair workflow",
		Long: `Run the complete workflow on one table:

  1. Collect initial statistics
  2. Show the largest duplicate groups
  3. Preview the removal (dry run)
  4. Ask for confirmation (skip with --yes)
  5. Back up and remove duplicates
  6. Compact the table
  7. Collect final statistics and compare

Declining the confirmation leaves the table untouched.`,
		Example: `  # Interactive run
  sqleter run --table customers --columns email

  # Unattended run keeping the newest rows
  sqleter run --table customers --columns email --strategy newest --yes`,
		Args: columnArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, opts, args)
		},
	}

	addTableFlags(cmd, true)
	addStrategyFlag(cmd)
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&opts.NoCompact, "no-compact", false, "Skip compaction after removal")
	cmd.Flags().IntVar(&opts.Top, "top", 5, "Number of duplicate groups to show")

	return cmd
}

func runWorkflow(cmd *cobra.Command, opts *RunOptions, args []string) error {
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
	jsonMode := r.EffectiveMode() == output.ModeJSON

	ctx, cancel := cmdCtx.Context(cmd)
	defer cancel()

	if !cmdCtx.Handle.TestConnection(ctx) {
		return fmt.Errorf("connection test failed for %s database", cfg.DBType)
	}

	if !jsonMode {
		r.Header(1, fmt.Sprintf("Repairing %s", cfg.Table))
		a := analyzer.New(cmdCtx.Handle, cmdCtx.Logger).WithIDColumn(cfg.IDColumn)
		groups, err := a.Analyze(ctx, cfg.Table, cfg.Columns)
		if err != nil {
			return err
		}
		if len(groups) > 0 {
			r.Header(2, "Largest Duplicate Groups")
			renderGroups(r, cfg.Columns, groups, opts.Top)
			r.Println("")
		}
	}

	var confirm engine.ConfirmFunc
	if !opts.Yes {
		in := bufio.NewReader(cmd.InOrStdin())
		confirm = func(_ context.Context, job engine.Job, preview *core.RemovalResult) bool {
			if !jsonMode {
				renderRemoval(r, preview)
			}
			return promptYesNo(in, r.ErrWriter(),
				fmt.Sprintf("Delete %s duplicate rows from %s?", output.FormatCount(preview.DeletedCount), job.Table))
		}
	}

	job := engine.Job{
		DBType:   cfg.DBType,
		Table:    cfg.Table,
		Columns:  cfg.Columns,
		Strategy: strategy,
		Compact:  !opts.NoCompact,
	}
	report, err := cmdCtx.Engine(confirm).Repair(ctx, cmdCtx.Handle, job)

	if jsonMode {
		if jerr := r.JSON(report); jerr != nil {
			return jerr
		}
		if errors.Is(err, engine.ErrCancelled) {
			return nil
		}
		return err
	}

	switch {
	case errors.Is(err, engine.ErrCancelled):
		r.Warning("operation cancelled, no rows were deleted")
		return nil
	case err != nil:
		return fmt.Errorf("repair failed: %w", err)
	}

	renderRemoval(r, report.Removal)
	if report.Compacted != nil {
		if *report.Compacted {
			r.Success("table compacted")
		} else {
			r.Warning("compaction did not complete, see logs")
		}
	}
	if report.Comparison != nil {
		renderComparison(r, *report.Comparison)
	}
	return nil
}

// promptYesNo asks question on w and reads the answer from in.
// Anything but y or yes, including end of input, means no.
func promptYesNo(in *bufio.Reader, w io.Writer, question string) bool {
	_, _ = fmt.Fprintf(w, "%s [y/N]: ", question)
	answer, err := in.ReadString('\n')
	if err != nil && answer == "" {
		_, _ = fmt.Fprintln(w)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
