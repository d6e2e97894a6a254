package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SH1NG3R/SQL-eter/pkg/adapter"
)

// DefaultWorkers bounds batch parallelism when the caller passes 0.
const DefaultWorkers = 3

// RunBatch repairs every job with up to workers running at once. Each job
// opens and closes its own connection handle. A failing job never stops the
// others; reports come back in job order.
func (e *Engine) RunBatch(ctx context.Context, jobs []Job, workers int) []*Report {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	// Nobody can answer a prompt for parallel jobs.
	batch := &Engine{cfg: e.cfg, logger: e.logger}
	batch.cfg.Confirm = nil

	reports := make([]*Report, len(jobs))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			reports[i] = batch.runJob(ctx, job)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range reports {
		if r.Err != nil {
			failed++
		}
	}
	e.logger.Info("batch finished", slog.Int("jobs", len(jobs)), slog.Int("failed", failed))
	return reports
}

func (e *Engine) runJob(ctx context.Context, job Job) *Report {
	start := time.Now()
	h, err := adapter.Open(job.ConnectionString, job.DBType, e.logger)
	if err != nil {
		e.logger.Error("batch job failed to connect",
			slog.String("job", job.Label()),
			slog.String("error", err.Error()))
		return &Report{Job: job, Err: err, Error: err.Error(), Duration: time.Since(start)}
	}
	defer func() { _ = h.Close() }()

	report, _ := e.Repair(ctx, h, job)
	return report
}
