package core

import (
	"context"
	"fmt"
	"time"
)

// Sweeper periodically ages out orphaned executions: a running Execution
// whose owner node crashed before it could report completion (spec §7 /
// SPEC_FULL §C.3). An execution is considered orphaned once
// started_at + 2*timeout has elapsed with no terminal state recorded.
type Sweeper struct {
	store   Store
	logger  Logger
	clock   Clock
	timeout time.Duration // fallback timeout for jobs with none configured
}

// NewSweeper creates a sweeper. defaultTimeout is used for jobs whose
// own Timeout is zero, so an orphan with no configured timeout still
// ages out eventually instead of lingering forever.
func NewSweeper(store Store, logger Logger, clock Clock, defaultTimeout time.Duration) *Sweeper {
	if clock == nil {
		clock = NewRealClock()
	}
	if defaultTimeout <= 0 {
		defaultTimeout = 5 * time.Minute
	}
	return &Sweeper{store: store, logger: logger, clock: clock, timeout: defaultTimeout}
}

// Run sweeps once per interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce scans every job's executions once and marks orphaned ones
// failed, freeing any unique lock they might still be holding.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	jobs, err := s.store.ListJobs(ctx, JobFilters{}, Paging{})
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("sweeper: list jobs: %s", err)
		}
		return
	}

	now := s.clock.Now()
	for _, job := range jobs {
		s.sweepJob(ctx, job, now)
	}
}

func (s *Sweeper) sweepJob(ctx context.Context, job *JobRecord, now time.Time) {
	executions, err := s.store.ListExecutions(ctx, job.Name, Paging{})
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("sweeper: list executions for %s: %s", job.Name, err)
		}
		return
	}

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}
	deadline := 2 * timeout

	for _, exec := range executions {
		if exec.State != ExecutionRunning {
			continue
		}
		if now.Sub(exec.Date) < deadline {
			continue
		}

		exec.Stop(fmt.Errorf("%w: orphaned after %s with no report", ErrMaxTimeRunning, now.Sub(exec.Date)))
		exec.State = ExecutionFailed
		if err := s.store.RecordExecutionComplete(ctx, exec); err != nil && s.logger != nil {
			s.logger.Errorf("sweeper: mark orphaned execution %s failed: %s", exec.ID, err)
		}
		if job.Unique {
			_ = s.store.ReleaseUniqueLock(ctx, job.Name, exec.OwnerNode)
		}
		if s.logger != nil {
			s.logger.Warningf("sweeper: reclaimed orphaned execution %s for job %s", exec.ID, job.Name)
		}
	}
}
