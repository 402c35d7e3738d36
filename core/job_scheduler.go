package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobSchedulerOptions configures a PolledScheduler.
type JobSchedulerOptions struct {
	// PollInterval is how often GetDueJobs is polled.
	PollInterval time.Duration
	// LockTTL bounds how long the unique lock is held before it is
	// eligible for another node (or this one's sweeper) to reclaim.
	LockTTL time.Duration
	// NodeID identifies this node as a lock owner.
	NodeID string
	// BatchLimit caps how many due jobs are claimed per poll.
	BatchLimit int
}

// PolledScheduler is the Job Scheduler described in spec §4.6: distinct
// from the teacher's in-process cron.Cron ticking, it polls the Store for
// due JobRecords, acquires each one's unique lock through the
// Coordinator, hands it to the Registry/Dispatcher, and immediately
// recomputes next_run_at so a slow run never causes a missed or doubled
// fire.
type PolledScheduler struct {
	store       Store
	coordinator ClusterCoordinator
	registry    *Registry
	dispatcher  StepDispatcher
	logger      Logger
	clock       Clock
	opts        JobSchedulerOptions

	stop chan struct{}
	done chan struct{}
}

// NewPolledScheduler wires the poll loop's collaborators.
func NewPolledScheduler(store Store, coordinator ClusterCoordinator, registry *Registry, dispatcher StepDispatcher, logger Logger, clock Clock, opts JobSchedulerOptions) *PolledScheduler {
	if clock == nil {
		clock = NewRealClock()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 100
	}
	return &PolledScheduler{
		store:       store,
		coordinator: coordinator,
		registry:    registry,
		dispatcher:  dispatcher,
		logger:      logger,
		clock:       clock,
		opts:        opts,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start runs the poll loop until ctx is done or Stop is called.
func (s *PolledScheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Stop signals the poll loop to exit and blocks until it has.
func (s *PolledScheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *PolledScheduler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := s.clock.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C():
			s.pollOnce(ctx)
		}
	}
}

// pollOnce claims and dispatches every currently due job. Exported for
// tests that want to drive a single poll deterministically against a
// FakeClock instead of waiting on the ticker.
func (s *PolledScheduler) pollOnce(ctx context.Context) {
	due, err := s.store.GetDueJobs(ctx, s.clock.Now(), JobFilters{Limit: s.opts.BatchLimit})
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("job scheduler: list due jobs: %s", err)
		}
		return
	}

	for _, job := range due {
		s.claimAndRun(ctx, job)
	}
}

func (s *PolledScheduler) claimAndRun(ctx context.Context, job *JobRecord) {
	if job.Unique {
		acquired, err := s.coordinator.TryAcquire(ctx, job.Name, s.opts.NodeID, s.opts.LockTTL)
		if err != nil {
			if s.logger != nil {
				s.logger.Errorf("job scheduler: acquire lock for %s: %s", job.Name, err)
			}
			return
		}
		if !acquired {
			return
		}
	}

	next, err := ScheduleNext(job.Schedule, s.clock.Now())
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("job scheduler: compute next run for %s: %s", job.Name, err)
		}
		next = s.clock.Now().Add(s.opts.PollInterval)
	}
	// Recompute next_run_at before the job even starts running, through a
	// mutation dedicated to that field alone: a slow or hung body must
	// not block the job's own future schedule, and advancing the
	// schedule here must not also touch RunCount/LastResult, which
	// MarkCompleted/MarkFailed record once the run actually finishes.
	if err := s.store.UpdateJob(ctx, job.Name, JobChanges{NextRunAt: &next}); err != nil && s.logger != nil {
		s.logger.Errorf("job scheduler: advance schedule for %s: %s", job.Name, err)
	}

	exec := &Execution{
		ID:        uuid.NewString(),
		JobName:   job.Name,
		Attempt:   job.RunCount + 1,
		Date:      s.clock.Now(),
		IsRunning: true,
		State:     ExecutionRunning,
		OwnerNode: s.opts.NodeID,
	}
	if err := s.store.RecordExecutionStart(ctx, exec); err != nil && s.logger != nil {
		s.logger.Errorf("job scheduler: record execution start for %s: %s", job.Name, err)
	}

	run := func(runCtx context.Context) error {
		defer func() {
			if job.Unique {
				_ = s.coordinator.Release(runCtx, job.Name, s.opts.NodeID)
			}
		}()

		var runCancel context.CancelFunc
		if job.Timeout > 0 {
			runCtx, runCancel = context.WithTimeout(runCtx, job.Timeout)
			defer runCancel()
		}

		started := s.clock.Now()
		result, err := s.registry.Invoke(runCtx, job.Target, job.Args)

		exec.Duration = s.clock.Now().Sub(started)
		exec.IsRunning = false
		if err != nil {
			exec.Failed = true
			exec.State = ExecutionFailed
			exec.Error = err
			_ = s.store.RecordExecutionComplete(ctx, exec)
			_ = s.store.MarkFailed(ctx, job.Name, err.Error(), next)
			return err
		}
		exec.State = ExecutionSucceeded
		exec.Result = result
		_ = s.store.RecordExecutionComplete(ctx, exec)
		_ = s.store.MarkCompleted(ctx, job.Name, result, next)
		return nil
	}

	if s.dispatcher == nil {
		go func() { _ = run(ctx) }()
		return
	}
	if err := s.dispatcher.Submit(ctx, job.Queue, job.Priority, run, func(error) {}); err != nil {
		if job.Unique {
			_ = s.coordinator.Release(ctx, job.Name, s.opts.NodeID)
		}
		exec.IsRunning = false
		exec.Failed = true
		exec.State = ExecutionFailed
		exec.Error = err
		_ = s.store.RecordExecutionComplete(ctx, exec)
		if s.logger != nil {
			s.logger.Errorf("job scheduler: dispatch %s: %s", job.Name, err)
		}
	}
}
