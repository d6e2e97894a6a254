package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SH1NG3R/SQL-eter/internal/cli/config"
	"github.com/SH1NG3R/SQL-eter/internal/cli/output"
	"github.com/SH1NG3R/SQL-eter/internal/engine"
	"github.com/SH1NG3R/SQL-eter/internal/state"
	"github.com/SH1NG3R/SQL-eter/pkg/adapter"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Handle   *adapter.Handle
	// Store is nil when the journal is disabled or could not be opened.
	Store state.Store
}

// NewCommandContext opens a database handle and the run journal.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutDB(cmd)
	cfg := cmdCtx.Cfg

	if err := cfg.ValidateConnection(); err != nil {
		return nil, nil, err
	}
	h, err := adapter.Open(cfg.ConnectionString, cfg.DBType, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	cmdCtx.Handle = h

	if cfg.StatePath != "" {
		store, err := state.OpenSQLiteStore(cfg.StatePath, cmdCtx.Logger)
		if err != nil {
			cmdCtx.Renderer.Warning(fmt.Sprintf("run journal disabled: %v", err))
		} else {
			cmdCtx.Store = store
		}
	}

	cleanup := func() {
		if cmdCtx.Store != nil {
			_ = cmdCtx.Store.Close()
		}
		_ = h.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutDB creates a CommandContext without a database handle.
// Useful for commands that only read the journal or print information.
func NewCommandContextWithoutDB(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Engine builds a repair engine from configuration.
func (c *CommandContext) Engine(confirm engine.ConfirmFunc) *engine.Engine {
	return engine.New(engine.Config{
		Logger:       c.Logger,
		Store:        c.Store,
		IDColumn:     c.Cfg.IDColumn,
		BackupPrefix: c.Cfg.BackupPrefix,
		Compact: engine.CompactConfig{
			Full:    c.Cfg.Compact.Full,
			Analyze: c.Cfg.Compact.Analyze,
			Reindex: c.Cfg.Compact.Reindex,
		},
		Confirm: confirm,
	})
}

// Context returns the command context bounded by the configured timeout.
func (c *CommandContext) Context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if c.Cfg.Timeout > 0 {
		return context.WithTimeout(ctx, c.Cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// getConfig returns the current configuration, or defaults when the root
// command did not load one.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		Strategy:     config.DefaultStrategy,
		IDColumn:     config.DefaultIDColumn,
		BackupPrefix: config.DefaultBackupPrefix,
		OutputFormat: config.DefaultOutput,
		Batch:        config.BatchConfig{Workers: config.DefaultWorkers},
	}
}

// addTableFlags registers the flags naming the table and its duplicate key.
// Values reach the command through configuration, so they can also come from
// the config file or SQLETER_TABLE / SQLETER_COLUMNS.
func addTableFlags(cmd *cobra.Command, withKey bool) {
	cmd.Flags().String("table", "", "Table to operate on")
	if withKey {
		cmd.Flags().StringSlice("columns", nil, "Comma-separated key columns that define a duplicate")
		cmd.Flags().String("id-column", "", "Row identifier column (default: id)")
		cmd.Flags().String("backup-prefix", "", "Backup name prefix (default: backup)")
	}
}

// columnArgs lets trailing arguments extend --columns, so "--columns a b"
// reads like "--columns a,b". Arguments without --columns are rejected.
func columnArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 && !cmd.Flags().Changed("columns") {
		return fmt.Errorf("unexpected argument %q\nHint: list key columns after --columns", args[0])
	}
	return nil
}

// appendColumnArgs adds the trailing arguments accepted by columnArgs to
// cfg.Columns, skipping columns already listed.
func appendColumnArgs(cfg *config.Config, args []string) {
	for _, arg := range args {
		for _, col := range strings.Split(arg, ",") {
			if col = strings.TrimSpace(col); col != "" && !slices.Contains(cfg.Columns, col) {
				cfg.Columns = append(cfg.Columns, col)
			}
		}
	}
}

func addStrategyFlag(cmd *cobra.Command) {
	cmd.Flags().String("strategy", "", "Row to keep per group: oldest (min id) or newest (max id)")
	_ = cmd.RegisterFlagCompletionFunc("strategy", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"oldest", "newest"}, cobra.ShellCompDirectiveNoFileComp
	})
}
