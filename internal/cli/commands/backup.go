package commands

import (
	"bufio"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/SH1NG3R/SQL-eter/internal/backup"
	"github.com/SH1NG3R/SQL-eter/internal/cli/output"
	"github.com/SH1NG3R/SQL-eter/internal/state"
)

// BackupOptions holds options for the backup subcommands.
type BackupOptions struct {
	Suffix string
	Backup string
	Yes    bool
}

// BackupVerifyOutput is the JSON shape of backup verify.
type BackupVerifyOutput struct {
	Table       string `json:"table"`
	Backup      string `json:"backup"`
	TableRows   int64  `json:"table_rows"`
	BackupRows  int64  `json:"backup_rows"`
	RowsMatched bool   `json:"rows_matched"`
}

// NewBackupCommand creates the backup command group.
func NewBackupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, verify, restore and list backup tables",
		Long: `Manage backup tables. A backup is a full copy of a table named
{table}_{backup_prefix}_{suffix}, kept in the same database. Backups are never
deleted automatically.`,
	}

	cmd.AddCommand(newBackupCreateCommand())
	cmd.AddCommand(newBackupVerifyCommand())
	cmd.AddCommand(newBackupRestoreCommand())
	cmd.AddCommand(newBackupListCommand())
	return cmd
}

func newBackupCreateCommand() *cobra.Command {
	opts := &BackupOptions{}
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Copy a table into a new backup table",
		Example: `  sqleter backup create --table customers --suffix before_migration`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := newBackupContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			ctx, cancel := cmdCtx.Context(cmd)
			defer cancel()

			cfg := cmdCtx.Cfg
			name, err := backupManager(cmdCtx).Create(ctx, cfg.Table, opts.Suffix)
			if err != nil {
				return err
			}
			if cmdCtx.Renderer.EffectiveMode() == output.ModeJSON {
				return cmdCtx.Renderer.JSON(map[string]string{"table": cfg.Table, "backup": name})
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("created backup %s", name))
			return nil
		},
	}
	addTableFlags(cmd, false)
	cmd.Flags().String("backup-prefix", "", "Backup name prefix (default: backup)")
	cmd.Flags().StringVar(&opts.Suffix, "suffix", "", "Backup name suffix (default: current timestamp)")
	return cmd
}

func newBackupVerifyCommand() *cobra.Command {
	opts := &BackupOptions{}
	cmd := &cobra.Command{
		Use:     "verify",
		Short:   "Compare the row counts of a table and its backup",
		Example: `  sqleter backup verify --table customers --backup customers_backup_20250101_120000`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Backup == "" {
				return fmt.Errorf("--backup is required")
			}
			cmdCtx, cleanup, err := newBackupContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			ctx, cancel := cmdCtx.Context(cmd)
			defer cancel()

			cfg := cmdCtx.Cfg
			r := cmdCtx.Renderer
			m := backupManager(cmdCtx)
			out := BackupVerifyOutput{Table: cfg.Table, Backup: opts.Backup}
			out.RowsMatched = m.Verify(ctx, cfg.Table, opts.Backup)
			if tableRows, backupRows, err := m.Counts(ctx, cfg.Table, opts.Backup); err == nil {
				out.TableRows, out.BackupRows = tableRows, backupRows
			}

			if r.EffectiveMode() == output.ModeJSON {
				if err := r.JSON(out); err != nil {
					return err
				}
			} else {
				r.KeyValue(cfg.Table, output.FormatCount(out.TableRows))
				r.KeyValue(opts.Backup, output.FormatCount(out.BackupRows))
			}
			if !out.RowsMatched {
				return fmt.Errorf("backup %s does not match %s", opts.Backup, cfg.Table)
			}
			if r.EffectiveMode() != output.ModeJSON {
				r.Success("row counts match")
			}
			return nil
		},
	}
	addTableFlags(cmd, false)
	cmd.Flags().StringVar(&opts.Backup, "backup", "", "Backup table name")
	return cmd
}

func newBackupRestoreCommand() *cobra.Command {
	opts := &BackupOptions{}
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Replace a table with the contents of a backup",
		Long: `Drop the table and recreate it from a backup table. On PostgreSQL and
SQLite the drop and the copy commit together.

The recreated table is a plain copy: indexes, constraints and defaults of the
original table are not restored.`,
		Example: `  sqleter backup restore --table customers --backup customers_backup_20250101_120000 --yes`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Backup == "" {
				return fmt.Errorf("--backup is required")
			}
			cmdCtx, cleanup, err := newBackupContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			ctx, cancel := cmdCtx.Context(cmd)
			defer cancel()

			cfg := cmdCtx.Cfg
			r := cmdCtx.Renderer
			if !opts.Yes {
				question := fmt.Sprintf("Replace %s with %s?", cfg.Table, opts.Backup)
				if !promptYesNo(bufio.NewReader(cmd.InOrStdin()), r.ErrWriter(), question) {
					r.Warning("restore cancelled")
					return nil
				}
			}
			if !backupManager(cmdCtx).Restore(ctx, cfg.Table, opts.Backup) {
				return fmt.Errorf("restore of %s from %s failed", cfg.Table, opts.Backup)
			}
			r.Success(fmt.Sprintf("restored %s from %s", cfg.Table, opts.Backup))
			return nil
		},
	}
	addTableFlags(cmd, false)
	cmd.Flags().StringVar(&opts.Backup, "backup", "", "Backup table name")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newBackupListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backups recorded in the run journal",
		Example: `  sqleter backup list
  sqleter backup list --table customers`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContextWithoutDB(cmd)
			store, err := openJournal(cmdCtx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListBackups(cmd.Context(), cmdCtx.Cfg.Table)
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(runs)
			}
			if len(runs) == 0 {
				r.Println("No backups recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.BackupTable,
					run.Table,
					strconv.FormatInt(run.DeletedCount, 10),
					run.StartedAt.Local().Format(time.DateTime),
				})
			}
			r.Table([]string{"Backup", "Table", "Deleted", "Created"}, rows)
			return nil
		},
	}
	addTableFlags(cmd, false)
	return cmd
}

func newBackupContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	if getConfig().Table == "" {
		return nil, nil, fmt.Errorf("table is required\nHint: use --table")
	}
	return NewCommandContext(cmd)
}

func backupManager(cmdCtx *CommandContext) *backup.Manager {
	return backup.New(cmdCtx.Handle, cmdCtx.Logger, cmdCtx.Cfg.BackupPrefix)
}

// openJournal opens the run journal for reading.
func openJournal(cmdCtx *CommandContext) (state.Store, error) {
	if cmdCtx.Cfg.StatePath == "" {
		return nil, fmt.Errorf("run journal is disabled (state_path is empty)")
	}
	store, err := state.OpenSQLiteStore(cmdCtx.Cfg.StatePath, cmdCtx.Logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}
