package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/nayeem-ahmad/ndc95/internal/pkg/id"
)

// Job is one scheduled unit of work. Each run is independent; a failed run is
// logged and the next tick retries from scratch.
type Job func(ctx context.Context) error

// Every runs the job once per interval until ctx is cancelled. The first run
// happens after one full interval, matching scheduled-trigger semantics where
// a deploy does not cause an immediate sweep.
func Every(ctx context.Context, interval time.Duration, name string, job Job) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped", "job", name)
			return
		case <-ticker.C:
			run(ctx, name, job)
		}
	}
}

func run(ctx context.Context, name string, job Job) {
	runID := id.New()
	start := time.Now()
	if err := job(ctx); err != nil {
		slog.Error("scheduled job failed", "job", name, "run_id", runID, "err", err)
		return
	}
	slog.Info("scheduled job done", "job", name, "run_id", runID, "took", time.Since(start))
}
