package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func pollUntilScheduler(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newTestScheduler(store Store, registry *Registry, dispatcher StepDispatcher, clock Clock) *PolledScheduler {
	coord := NewSingleNodeCoordinator(clock)
	return NewPolledScheduler(store, coord, registry, dispatcher, &TestLogger{}, clock, JobSchedulerOptions{NodeID: "node-1"})
}

func TestPolledScheduler_PollOnceRunsDueJobAndRecordsExecution(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(now)
	store := NewMemoryStore(clock)

	registry := NewRegistry()
	ran := make(chan struct{})
	registry.Register("mod.entry", func(ctx context.Context, args any) (any, error) {
		close(ran)
		return "ok", nil
	})

	_ = store.RegisterJob(ctx, &JobRecord{
		Name:     "job-a",
		Target:   "mod.entry",
		Enabled:  true,
		State:    JobStateActive,
		Schedule: JobSchedule{Kind: ScheduleKindInterval, Every: time.Hour},
	})

	sched := newTestScheduler(store, registry, nil, clock)
	sched.pollOnce(ctx)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("expected the due job's target to run")
	}

	pollUntilScheduler(t, time.Second, func() bool {
		job, _ := store.GetJob(ctx, "job-a")
		return job.RunCount == 1
	})

	job, err := store.GetJob(ctx, "job-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.RunCount != 1 {
		t.Errorf("expected RunCount exactly 1, got %d", job.RunCount)
	}

	execs, err := store.ListExecutions(ctx, "job-a", Paging{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(execs) != 1 {
		t.Fatalf("expected exactly 1 recorded execution, got %d", len(execs))
	}
	pollUntilScheduler(t, time.Second, func() bool {
		execs, _ := store.ListExecutions(ctx, "job-a", Paging{})
		return len(execs) == 1 && execs[0].State == ExecutionSucceeded
	})
}

func TestPolledScheduler_PollOnceSkipsNotDueJobs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(now)
	store := NewMemoryStore(clock)
	registry := NewRegistry()
	var invoked bool
	registry.Register("mod.entry", func(ctx context.Context, args any) (any, error) {
		invoked = true
		return nil, nil
	})
	_ = store.RegisterJob(ctx, &JobRecord{
		Name: "job-a", Target: "mod.entry", Enabled: true, State: JobStateActive,
		NextRunAt: now.Add(time.Hour),
		Schedule:  JobSchedule{Kind: ScheduleKindInterval, Every: time.Hour},
	})

	sched := newTestScheduler(store, registry, nil, clock)
	sched.pollOnce(ctx)
	time.Sleep(20 * time.Millisecond)
	if invoked {
		t.Error("expected a not-yet-due job to be skipped")
	}
}

func TestPolledScheduler_FailedRunRecordsExecutionAndError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(now)
	store := NewMemoryStore(clock)
	registry := NewRegistry()
	boom := errors.New("boom")
	registry.Register("mod.entry", func(ctx context.Context, args any) (any, error) {
		return nil, boom
	})
	_ = store.RegisterJob(ctx, &JobRecord{
		Name: "job-a", Target: "mod.entry", Enabled: true, State: JobStateActive,
		Schedule: JobSchedule{Kind: ScheduleKindInterval, Every: time.Hour},
	})

	sched := newTestScheduler(store, registry, nil, clock)
	sched.pollOnce(ctx)

	pollUntilScheduler(t, time.Second, func() bool {
		job, _ := store.GetJob(ctx, "job-a")
		return job.ErrorCount == 1
	})

	job, _ := store.GetJob(ctx, "job-a")
	if job.LastError != "boom" {
		t.Errorf("expected LastError 'boom', got %q", job.LastError)
	}

	pollUntilScheduler(t, time.Second, func() bool {
		execs, _ := store.ListExecutions(ctx, "job-a", Paging{})
		return len(execs) == 1 && execs[0].State == ExecutionFailed
	})
}

func TestPolledScheduler_UniqueJobAcquiresAndReleasesLock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(now)
	store := NewMemoryStore(clock)
	registry := NewRegistry()
	registry.Register("mod.entry", func(ctx context.Context, args any) (any, error) { return nil, nil })
	_ = store.RegisterJob(ctx, &JobRecord{
		Name: "job-a", Target: "mod.entry", Enabled: true, State: JobStateActive, Unique: true,
		Schedule: JobSchedule{Kind: ScheduleKindInterval, Every: time.Hour},
	})

	sched := newTestScheduler(store, registry, nil, clock)
	sched.pollOnce(ctx)

	pollUntilScheduler(t, time.Second, func() bool {
		job, _ := store.GetJob(ctx, "job-a")
		return job.RunCount == 1
	})

	ok, err := sched.coordinator.TryAcquire(ctx, "job-a", "another-node", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected the unique lock to have been released after the run finished")
	}
}

func TestPolledScheduler_UniqueJobSkipsWhenLockHeld(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(now)
	store := NewMemoryStore(clock)
	registry := NewRegistry()
	var invoked bool
	registry.Register("mod.entry", func(ctx context.Context, args any) (any, error) {
		invoked = true
		return nil, nil
	})
	_ = store.RegisterJob(ctx, &JobRecord{
		Name: "job-a", Target: "mod.entry", Enabled: true, State: JobStateActive, Unique: true,
		Schedule: JobSchedule{Kind: ScheduleKindInterval, Every: time.Hour},
	})

	coord := NewSingleNodeCoordinator(clock)
	_, _ = coord.TryAcquire(ctx, "job-a", "other-node", time.Minute)

	sched := NewPolledScheduler(store, coord, registry, nil, &TestLogger{}, clock, JobSchedulerOptions{NodeID: "node-1"})
	sched.pollOnce(ctx)
	time.Sleep(20 * time.Millisecond)
	if invoked {
		t.Error("expected the job to be skipped while another node holds its unique lock")
	}
}

func TestPolledScheduler_DispatchRejectionRecordsFailedExecution(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(now)
	store := NewMemoryStore(clock)
	registry := NewRegistry()
	registry.Register("mod.entry", func(ctx context.Context, args any) (any, error) { return nil, nil })
	_ = store.RegisterJob(ctx, &JobRecord{
		Name: "job-a", Target: "mod.entry", Enabled: true, State: JobStateActive, Queue: "q1",
		Schedule: JobSchedule{Kind: ScheduleKindInterval, Every: time.Hour},
	})

	d := NewDispatcher(&TestLogger{}, 1)
	d.Pause("q1")

	sched := newTestScheduler(store, registry, d, clock)
	sched.pollOnce(ctx)

	execs, err := store.ListExecutions(ctx, "job-a", Paging{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(execs) != 1 {
		t.Fatalf("expected exactly 1 execution recorded for the rejected dispatch, got %d", len(execs))
	}
	if execs[0].State != ExecutionFailed {
		t.Errorf("expected the rejected dispatch to record a failed execution, got %s", execs[0].State)
	}
	if execs[0].IsRunning {
		t.Error("expected IsRunning false once dispatch rejection is recorded")
	}
}

func TestPolledScheduler_AdvancesScheduleBeforeRunCompletes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(now)
	store := NewMemoryStore(clock)
	registry := NewRegistry()
	started := make(chan struct{})
	release := make(chan struct{})
	registry.Register("mod.entry", func(ctx context.Context, args any) (any, error) {
		close(started)
		<-release
		return nil, nil
	})
	_ = store.RegisterJob(ctx, &JobRecord{
		Name: "job-a", Target: "mod.entry", Enabled: true, State: JobStateActive,
		Schedule: JobSchedule{Kind: ScheduleKindInterval, Every: time.Hour},
	})

	sched := newTestScheduler(store, registry, nil, clock)
	sched.pollOnce(ctx)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("expected the job to start running")
	}

	job, _ := store.GetJob(ctx, "job-a")
	if !job.NextRunAt.Equal(now.Add(time.Hour)) {
		t.Errorf("expected next_run_at advanced before the run finished, got %v", job.NextRunAt)
	}
	if job.RunCount != 0 {
		t.Errorf("expected RunCount untouched while the run is still in flight, got %d", job.RunCount)
	}
	close(release)
}

func TestPolledScheduler_StartAndStop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore(nil)
	registry := NewRegistry()
	sched := newTestScheduler(store, registry, nil, nil)
	sched.Start(ctx)
	sched.Stop()
}
