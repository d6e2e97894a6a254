package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SH1NG3R/SQL-eter/internal/analyzer"
	"github.com/SH1NG3R/SQL-eter/internal/cli/output"
	"github.com/SH1NG3R/SQL-eter/pkg/core"
)

// AnalyzeOptions holds options for the analyze command.
type AnalyzeOptions struct {
	Limit int
}

// AnalyzeOutput is the JSON shape of the analyze command.
type AnalyzeOutput struct {
	Table          string                `json:"table"`
	Columns        []string              `json:"columns"`
	GroupCount     int                   `json:"group_count"`
	TotalDuplicate int64                 `json:"total_duplicates"`
	Groups         []core.DuplicateGroup `json:"groups"`
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Report duplicate groups without changing data",
		Long: `List the groups of rows that share the same key column values, largest
group first, with the ids in each group.`,
		Example: `  # Show the ten largest duplicate groups
  sqleter analyze --table customers --columns email

  # All groups as JSON
  sqleter analyze --table customers --columns email --limit 0 -o json`,
		Args: columnArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, args)
		},
	}

	addTableFlags(cmd, true)
	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "Maximum number of groups to show (0 for all)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *AnalyzeOptions, args []string) error {
	appendColumnArgs(getConfig(), args)
	if err := getConfig().ValidateTarget(); err != nil {
		return err
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

	a := analyzer.New(cmdCtx.Handle, cmdCtx.Logger).WithIDColumn(cfg.IDColumn)
	groups, err := a.Analyze(ctx, cfg.Table, cfg.Columns)
	if err != nil {
		return err
	}
	var total int64
	for _, g := range groups {
		total += g.Surplus()
	}

	if r.EffectiveMode() == output.ModeJSON {
		shown := groups
		if opts.Limit > 0 && len(shown) > opts.Limit {
			shown = shown[:opts.Limit]
		}
		return r.JSON(AnalyzeOutput{
			Table:          cfg.Table,
			Columns:        cfg.Columns,
			GroupCount:     len(groups),
			TotalDuplicate: total,
			Groups:         shown,
		})
	}

	r.Header(1, fmt.Sprintf("Duplicates in %s", cfg.Table))
	if len(groups) == 0 {
		r.Success(core.MessageNoDuplicates)
		return nil
	}
	r.KeyValue("Key Columns", strings.Join(cfg.Columns, ", "))
	r.KeyValue("Duplicate Groups", output.FormatCount(int64(len(groups))))
	r.KeyValue("Surplus Rows", output.FormatCount(total))
	r.Println("")
	renderGroups(r, cfg.Columns, groups, opts.Limit)
	return nil
}
