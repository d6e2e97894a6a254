package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/SH1NG3R/SQL-eter/internal/cli/config"
	"github.com/SH1NG3R/SQL-eter/internal/cli/output"
	"github.com/SH1NG3R/SQL-eter/internal/engine"
	"github.com/SH1NG3R/SQL-eter/internal/state"
	"github.com/SH1NG3R/SQL-eter/pkg/core"
)

// BatchFile is the YAML document read by the batch command.
type BatchFile struct {
	// Workers overrides batch.workers when positive.
	Workers  int          `yaml:"workers"`
	Defaults engine.Job   `yaml:"defaults"`
	Jobs     []engine.Job `yaml:"jobs"`
}

// BatchOptions holds options for the batch command.
type BatchOptions struct {
	File string
}

// NewBatchCommand creates the batch command.
func NewBatchCommand() *cobra.Command {
	opts := &BatchOptions{}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Repair several tables in parallel from a job file",
		Long: `Run the repair workflow for every job in a YAML file. Jobs run in parallel,
each on its own connection. A failing job does not stop the others; the
command exits non-zero if any job failed.

Job file format:

  workers: 3
  defaults:
    db_type: postgresql
    connection_string: postgresql://app@localhost/shop
    strategy: oldest
  jobs:
    - name: customers
      table: customers
      columns: [email]
    - table: orders
      columns: [customer_id, sku]
      dry_run: true

Missing db_type and connection_string fall back to defaults, then to the
configured connection.`,
		Example: `  sqleter batch --file jobs.yaml
  sqleter batch --file jobs.yaml --workers 8 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Path to the YAML job file")
	cmd.Flags().Int("workers", 0, "Number of jobs to run at once (default: 3)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// LoadBatchFile reads path and fills every job from the file defaults and cfg.
func LoadBatchFile(path string, cfg *config.Config) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	var bf BatchFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("failed to parse job file %s: %w", path, err)
	}
	if len(bf.Jobs) == 0 {
		return nil, fmt.Errorf("job file %s has no jobs", path)
	}

	for i := range bf.Jobs {
		job := &bf.Jobs[i]
		job.DBType = firstNonEmpty(job.DBType, bf.Defaults.DBType, cfg.DBType)
		job.ConnectionString = firstNonEmpty(job.ConnectionString, bf.Defaults.ConnectionString, cfg.ConnectionString)
		job.Strategy = core.Strategy(firstNonEmpty(string(job.Strategy), string(bf.Defaults.Strategy), cfg.Strategy))
		if len(job.Columns) == 0 {
			job.Columns = bf.Defaults.Columns
		}
		strategy, err := core.ParseStrategy(string(job.Strategy))
		if err != nil {
			return nil, fmt.Errorf("job %d (%s): %w", i+1, job.Label(), err)
		}
		job.Strategy = strategy
		if job.Table == "" {
			return nil, fmt.Errorf("job %d: table is required", i+1)
		}
		if len(job.Columns) == 0 {
			return nil, fmt.Errorf("job %d (%s): %w", i+1, job.Label(), core.ErrNoKeyColumns)
		}
	}
	return &bf, nil
}

func runBatch(cmd *cobra.Command, opts *BatchOptions) error {
	cmdCtx := NewCommandContextWithoutDB(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	bf, err := LoadBatchFile(opts.File, cfg)
	if err != nil {
		return err
	}
	workers := cfg.Batch.Workers
	if bf.Workers > 0 && !cmd.Flags().Changed("workers") {
		workers = bf.Workers
	}

	if cfg.StatePath != "" {
		store, err := state.OpenSQLiteStore(cfg.StatePath, cmdCtx.Logger)
		if err != nil {
			r.Warning(fmt.Sprintf("run journal disabled: %v", err))
		} else {
			cmdCtx.Store = store
			defer func() { _ = store.Close() }()
		}
	}

	ctx, cancel := cmdCtx.Context(cmd)
	defer cancel()

	reports := cmdCtx.Engine(nil).RunBatch(ctx, bf.Jobs, workers)

	failed := 0
	for _, rep := range reports {
		if rep.Err != nil {
			failed++
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(reports); err != nil {
			return err
		}
	} else {
		renderBatch(r, reports)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(reports))
	}
	return nil
}

func renderBatch(r *output.Renderer, reports []*engine.Report) {
	r.Header(1, fmt.Sprintf("Batch (%d jobs)", len(reports)))
	rows := make([][]string, 0, len(reports))
	for _, rep := range reports {
		status := r.Styles().Status("success")
		deleted, backupTable, detail := "-", "", ""
		if rep.Removal != nil {
			deleted = strconv.FormatInt(rep.Removal.DeletedCount, 10)
			backupTable = rep.Removal.BackupTable
			if rep.Removal.DryRun {
				detail = "dry run"
			}
		}
		if rep.Err != nil {
			status = r.Styles().Status("failure")
			detail = rep.Error
		}
		rows = append(rows, []string{rep.Job.Label(), rep.Job.DBType, status, deleted, backupTable, detail})
	}
	r.Table([]string{"Job", "Dialect", "Status", "Deleted", "Backup", "Detail"}, rows)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
