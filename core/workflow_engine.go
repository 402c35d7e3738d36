package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StepDispatcher is the subset of the Queue Dispatcher the Workflow
// Engine needs: admit fn onto queue at priority, and report completion
// via onComplete once the worker returns. Declared locally so this file
// does not need to know the dispatcher's concrete type.
type StepDispatcher interface {
	Submit(ctx context.Context, queue string, priority int, fn func(ctx context.Context) error, onComplete func(error)) error
}

// StepStatus is a step's position in one workflow execution.
type StepStatus string

const (
	StepPending         StepStatus = "pending"
	StepWaitingApproval StepStatus = "waiting_approval"
	StepRunning         StepStatus = "running"
	StepCompleted       StepStatus = "completed"
	StepFailed          StepStatus = "failed"
	StepSkipped         StepStatus = "skipped"
	StepRolledBack      StepStatus = "rolled_back"
)

// Step is one node of a Workflow's DAG (spec §9).
type Step struct {
	Name string
	// Run executes the step, receiving the workflow's accumulated
	// context and returning values merged back into it.
	Run func(ctx context.Context, wfCtx map[string]any) (map[string]any, error)
	// Rollback undoes a completed Run when the workflow later fails
	// terminally. Optional; steps without one are simply skipped during
	// the rollback chain.
	Rollback func(ctx context.Context, wfCtx map[string]any) error
	// Predecessors are step names that must reach a terminal state
	// (completed or skipped) before this step becomes ready.
	Predecessors []string
	// Group names a fan-in point: all steps sharing a Group are
	// dispatched together and any step waiting on Group completes only
	// once every member of Group has.
	Group string
	// When, if set, gates dispatch: a false result skips the step
	// (counts as satisfied for dependents) without running it.
	When func(wfCtx map[string]any) bool
	// AwaitApproval halts the step in StepWaitingApproval until Approve
	// is called for it.
	AwaitApproval bool
	MaxRetries    int
	RetryBase     time.Duration
	RetryMax      time.Duration
	Backoff       BackoffStrategy
	Jitter        float64
	Timeout       time.Duration
	Queue         string
	Priority      int
}

// Workflow is a registered DAG of Steps plus its trigger configuration.
type Workflow struct {
	Name    string
	Steps   map[string]*Step
	order   []string
	Trigger string // "manual", "scheduled", "event"
	Cron    string
	Timeout time.Duration
	Enabled bool
	// groups maps a Group tag to the sorted names of the steps carrying
	// it, built at Build time. A Predecessors entry that names a group
	// rather than a step is a fan-in: it is satisfied only once every
	// member of the group has.
	groups map[string][]string
}

// WorkflowBuilder assembles a Workflow incrementally, per the builder
// registration pattern called for over the dependency-array shape
// BareJob.Dependencies already uses: Workflow.New(name).Step(...).Edge(...).Build().
type WorkflowBuilder struct {
	wf  *Workflow
	err error
}

// NewWorkflow starts building a workflow named name.
func NewWorkflow(name string) *WorkflowBuilder {
	return &WorkflowBuilder{wf: &Workflow{
		Name:    name,
		Steps:   make(map[string]*Step),
		Trigger: "manual",
		Enabled: true,
	}}
}

// Step registers a step. Duplicate names are caught at Build time.
func (b *WorkflowBuilder) Step(s Step) *WorkflowBuilder {
	if b.err != nil {
		return b
	}
	if _, exists := b.wf.Steps[s.Name]; exists {
		b.err = fmt.Errorf("%w: %s", ErrDuplicateStepName, s.Name)
		return b
	}
	step := s
	b.wf.Steps[step.Name] = &step
	b.wf.order = append(b.wf.order, step.Name)
	return b
}

// Edge declares that to depends on from, in addition to whatever
// Predecessors were set on the Step directly.
func (b *WorkflowBuilder) Edge(from, to string) *WorkflowBuilder {
	if b.err != nil {
		return b
	}
	target, ok := b.wf.Steps[to]
	if !ok {
		b.err = fmt.Errorf("%w: %s", ErrUnknownEdgeNode, to)
		return b
	}
	if _, ok := b.wf.Steps[from]; !ok {
		b.err = fmt.Errorf("%w: %s", ErrUnknownEdgeNode, from)
		return b
	}
	target.Predecessors = append(target.Predecessors, from)
	return b
}

// WithTrigger sets how the workflow is started.
func (b *WorkflowBuilder) WithTrigger(kind, cron string) *WorkflowBuilder {
	if b.err != nil {
		return b
	}
	b.wf.Trigger = kind
	b.wf.Cron = cron
	return b
}

// WithTimeout bounds the whole workflow's wall-clock run time.
func (b *WorkflowBuilder) WithTimeout(d time.Duration) *WorkflowBuilder {
	if b.err != nil {
		return b
	}
	b.wf.Timeout = d
	return b
}

// Build validates edge endpoints and acyclicity, returning the Workflow.
func (b *WorkflowBuilder) Build() (*Workflow, error) {
	if b.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWorkflowInvalid, b.err)
	}
	if len(b.wf.Steps) == 0 {
		return nil, fmt.Errorf("%w: workflow %s has no steps", ErrWorkflowInvalid, b.wf.Name)
	}

	groups := make(map[string][]string)
	for name, step := range b.wf.Steps {
		if step.Group != "" {
			groups[step.Group] = append(groups[step.Group], name)
		}
	}
	for _, members := range groups {
		sort.Strings(members)
	}

	for name, step := range b.wf.Steps {
		for _, pred := range step.Predecessors {
			if _, ok := b.wf.Steps[pred]; ok {
				continue
			}
			if _, ok := groups[pred]; ok {
				continue
			}
			return nil, fmt.Errorf("%w: step %s depends on unknown step %s", ErrUnknownEdgeNode, name, pred)
		}
	}
	b.wf.groups = groups

	if cycle := findWorkflowCycle(b.wf); cycle != "" {
		return nil, fmt.Errorf("%w: involving step %s", ErrCircularDependency, cycle)
	}
	return b.wf, nil
}

func findWorkflowCycle(wf *Workflow) string {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var visit func(name string) string
	visit = func(name string) string {
		visited[name] = true
		recStack[name] = true
		for _, pred := range wf.Steps[name].Predecessors {
			members := []string{pred}
			if _, ok := wf.Steps[pred]; !ok {
				members = wf.groups[pred]
			}
			for _, p := range members {
				if !visited[p] {
					if cycle := visit(p); cycle != "" {
						return cycle
					}
				} else if recStack[p] {
					return p
				}
			}
		}
		recStack[name] = false
		return ""
	}

	for name := range wf.Steps {
		if !visited[name] {
			if cycle := visit(name); cycle != "" {
				return cycle
			}
		}
	}
	return ""
}

// WorkflowExecutionState is a workflow run's coarse lifecycle state.
type WorkflowExecutionState string

const (
	WorkflowPending   WorkflowExecutionState = "pending"
	WorkflowRunning   WorkflowExecutionState = "running"
	WorkflowPaused    WorkflowExecutionState = "paused"
	WorkflowCompleted WorkflowExecutionState = "completed"
	WorkflowFailed    WorkflowExecutionState = "failed"
	WorkflowCancelled WorkflowExecutionState = "cancelled"
)

// WorkflowExecutionRecord is the persisted, queryable state of one
// workflow run, analogous to Execution for a plain job.
type WorkflowExecutionRecord struct {
	ID           string
	WorkflowName string
	State        WorkflowExecutionState
	Trigger      string
	Context      map[string]any
	StepStates   map[string]StepStatus
	StepResults  map[string]map[string]any
	StepErrors   map[string]string
	StepAttempts map[string]int
	Approved     map[string]bool

	StartedAt time.Time
	EndedAt   time.Time
	Error     string
}

// workflowRun is the in-memory driver state for a live execution; the
// exported WorkflowExecutionRecord embedded in it is what gets persisted.
type workflowRun struct {
	mu            sync.Mutex
	rec           *WorkflowExecutionRecord
	wf            *Workflow
	completedOrd  []string
	inFlight      map[string]bool
	done          chan stepOutcome
	cancel        context.CancelFunc
	pauseRequests chan struct{}
	// autoPaused marks that the drive loop itself parked the execution
	// in WorkflowPaused because every pending step is gated on approval;
	// it is cleared (and the state restored to running) once a step
	// becomes ready again. A manual Pause() call never sets this, so the
	// drive loop does not resume a run an operator paused explicitly.
	autoPaused bool
}

type stepOutcome struct {
	step   string
	result map[string]any
	err    error
}

// WorkflowEngine drives registered Workflows to completion, dispatching
// ready steps onto a StepDispatcher and persisting progress through a
// Store (spec §4.7).
type WorkflowEngine struct {
	logger     Logger
	clock      Clock
	dispatcher StepDispatcher
	store      Store

	mu        sync.Mutex
	workflows map[string]*Workflow
	runs      map[string]*workflowRun
}

// NewWorkflowEngine creates an engine. store may be nil, in which case
// executions are tracked only in memory for the process lifetime.
func NewWorkflowEngine(logger Logger, clock Clock, dispatcher StepDispatcher, store Store) *WorkflowEngine {
	if clock == nil {
		clock = NewRealClock()
	}
	return &WorkflowEngine{
		logger:     logger,
		clock:      clock,
		dispatcher: dispatcher,
		store:      store,
		workflows:  make(map[string]*Workflow),
		runs:       make(map[string]*workflowRun),
	}
}

// Register adds wf to the engine, persisting it if a Store is attached.
func (e *WorkflowEngine) Register(ctx context.Context, wf *Workflow) error {
	e.mu.Lock()
	e.workflows[wf.Name] = wf
	e.mu.Unlock()

	if e.store == nil {
		return nil
	}
	if err := e.store.RegisterWorkflow(ctx, wf); err != nil {
		return WrapWorkflowError("register", wf.Name, err)
	}
	return nil
}

// Start begins a new execution of the named workflow with the given
// trigger label and initial context, returning the execution record
// immediately; the workflow drives to completion on its own goroutine.
func (e *WorkflowEngine) Start(ctx context.Context, workflowName, trigger string, input map[string]any) (*WorkflowExecutionRecord, error) {
	e.mu.Lock()
	wf, ok := e.workflows[workflowName]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowName)
	}

	wfCtx := make(map[string]any, len(input))
	for k, v := range input {
		wfCtx[k] = v
	}

	rec := &WorkflowExecutionRecord{
		ID:           uuid.NewString(),
		WorkflowName: workflowName,
		State:        WorkflowRunning,
		Trigger:      trigger,
		Context:      wfCtx,
		StepStates:   make(map[string]StepStatus, len(wf.Steps)),
		StepResults:  make(map[string]map[string]any),
		StepErrors:   make(map[string]string),
		StepAttempts: make(map[string]int),
		Approved:     make(map[string]bool),
		StartedAt:    e.clock.Now(),
	}
	for name := range wf.Steps {
		rec.StepStates[name] = StepPending
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if wf.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, wf.Timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}

	run := &workflowRun{
		rec:      rec,
		wf:       wf,
		inFlight: make(map[string]bool),
		done:     make(chan stepOutcome, len(wf.Steps)),
		cancel:   cancel,
	}

	e.mu.Lock()
	e.runs[rec.ID] = run
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.RecordWorkflowStart(ctx, rec); err != nil {
			return nil, WrapWorkflowError("start", workflowName, err)
		}
	}

	go e.drive(runCtx, run)

	return rec, nil
}

// drive is the reactor loop: compute the ready set, dispatch it, wait
// for the next completion, repeat until the execution reaches a
// terminal state.
func (e *WorkflowEngine) drive(ctx context.Context, run *workflowRun) {
	for {
		run.mu.Lock()
		ready := e.readySteps(run)
		for _, name := range ready {
			run.rec.StepStates[name] = StepRunning
			run.inFlight[name] = true
		}
		terminal := len(run.inFlight) == 0 && len(ready) == 0 && e.allStepsSettled(run)
		awaitingApproval := !terminal && len(run.inFlight) == 0 && len(ready) == 0 && e.hasWaitingApproval(run)
		if awaitingApproval {
			if run.rec.State != WorkflowPaused {
				run.rec.State = WorkflowPaused
				run.autoPaused = true
			}
		} else if run.autoPaused && run.rec.State == WorkflowPaused {
			run.rec.State = WorkflowRunning
			run.autoPaused = false
		}
		rec := run.rec
		run.mu.Unlock()

		for _, name := range ready {
			e.dispatchStep(ctx, run, name)
		}

		if terminal {
			e.finalize(ctx, run, true)
			return
		}

		if awaitingApproval && e.store != nil {
			_ = e.store.RecordWorkflowUpdate(ctx, rec)
		}

		select {
		case <-ctx.Done():
			e.finalize(ctx, run, false)
			return
		case outcome := <-run.done:
			e.applyOutcome(ctx, run, outcome)
		}
	}
}

// readySteps returns pending steps whose predecessors are all settled
// (completed or skipped) and, for steps in a Group, whose entire group
// is ready together. Caller must hold run.mu.
func (e *WorkflowEngine) readySteps(run *workflowRun) []string {
	var ready []string
	for _, name := range run.wf.order {
		if run.rec.StepStates[name] != StepPending {
			continue
		}
		step := run.wf.Steps[name]
		if !e.predecessorsSettled(run, step) {
			continue
		}
		if step.AwaitApproval && !run.rec.Approved[name] {
			run.rec.StepStates[name] = StepWaitingApproval
			continue
		}
		ready = append(ready, name)
	}
	sort.Strings(ready)
	return ready
}

func (e *WorkflowEngine) predecessorsSettled(run *workflowRun, step *Step) bool {
	for _, pred := range step.Predecessors {
		if _, ok := run.wf.Steps[pred]; ok {
			if !stepSettled(run.rec.StepStates[pred]) {
				return false
			}
			continue
		}
		// pred names a fan-in group: ready only once every member has
		// reached a terminal state, per the group's members recorded at
		// Build time.
		for _, member := range run.wf.groups[pred] {
			if !stepSettled(run.rec.StepStates[member]) {
				return false
			}
		}
	}
	return true
}

func stepSettled(s StepStatus) bool {
	switch s {
	case StepCompleted, StepSkipped:
		return true
	default:
		return false
	}
}

func (e *WorkflowEngine) allStepsSettled(run *workflowRun) bool {
	for _, state := range run.rec.StepStates {
		switch state {
		case StepCompleted, StepSkipped, StepFailed, StepRolledBack:
			continue
		default:
			return false
		}
	}
	return true
}

// hasWaitingApproval reports whether any step is parked in
// StepWaitingApproval. Caller must hold run.mu.
func (e *WorkflowEngine) hasWaitingApproval(run *workflowRun) bool {
	for _, state := range run.rec.StepStates {
		if state == StepWaitingApproval {
			return true
		}
	}
	return false
}

func (e *WorkflowEngine) dispatchStep(ctx context.Context, run *workflowRun, name string) {
	step := run.wf.Steps[name]

	run.mu.Lock()
	wfCtxSnapshot := cloneContext(run.rec.Context)
	run.mu.Unlock()

	if step.When != nil && !step.When(wfCtxSnapshot) {
		run.done <- stepOutcome{step: name, err: ErrSkippedExecution}
		return
	}

	work := func(stepCtx context.Context) error {
		if step.Timeout > 0 {
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(stepCtx, step.Timeout)
			defer cancel()
		}
		result, err := step.Run(stepCtx, wfCtxSnapshot)
		run.done <- stepOutcome{step: name, result: result, err: err}
		return err
	}

	onComplete := func(error) {}
	if e.dispatcher == nil {
		go func() { _ = work(ctx) }()
		return
	}
	if err := e.dispatcher.Submit(ctx, step.Queue, step.Priority, work, onComplete); err != nil {
		run.done <- stepOutcome{step: name, err: err}
	}
}

func cloneContext(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func (e *WorkflowEngine) applyOutcome(ctx context.Context, run *workflowRun, outcome stepOutcome) {
	run.mu.Lock()
	delete(run.inFlight, outcome.step)
	run.rec.StepAttempts[outcome.step]++

	switch {
	case errors.Is(outcome.err, ErrSkippedExecution):
		run.rec.StepStates[outcome.step] = StepSkipped

	case outcome.err == nil:
		run.rec.StepStates[outcome.step] = StepCompleted
		run.completedOrd = append(run.completedOrd, outcome.step)
		if outcome.result != nil {
			run.rec.StepResults[outcome.step] = outcome.result
			for k, v := range outcome.result {
				run.rec.Context[k] = v
			}
		}

	default:
		step := run.wf.Steps[outcome.step]
		attempt := run.rec.StepAttempts[outcome.step]
		if attempt <= step.MaxRetries {
			run.rec.StepStates[outcome.step] = StepPending
			delay := RetryDelay(attempt, step.RetryBase, step.RetryMax, step.Backoff, step.Jitter)
			run.mu.Unlock()
			time.AfterFunc(delay, func() { e.dispatchStep(ctx, run, outcome.step) })
			run.mu.Lock()
		} else {
			run.rec.StepStates[outcome.step] = StepFailed
			run.rec.StepErrors[outcome.step] = outcome.err.Error()
		}
	}
	run.mu.Unlock()

	if e.store != nil {
		_ = e.store.RecordWorkflowUpdate(ctx, run.rec)
	}
}

// finalize settles the execution's terminal state, running the rollback
// chain if any step ended failed, then persists the final record.
func (e *WorkflowEngine) finalize(ctx context.Context, run *workflowRun, natural bool) {
	run.mu.Lock()
	failed := false
	for _, state := range run.rec.StepStates {
		if state == StepFailed {
			failed = true
			break
		}
	}
	completedOrd := append([]string(nil), run.completedOrd...)
	run.mu.Unlock()

	if failed {
		e.runRollbackChain(ctx, run, completedOrd)
	}

	run.mu.Lock()
	switch {
	case !natural:
		run.rec.State = WorkflowCancelled
	case failed:
		run.rec.State = WorkflowFailed
	default:
		run.rec.State = WorkflowCompleted
	}
	run.rec.EndedAt = e.clock.Now()
	rec := run.rec
	run.mu.Unlock()

	if e.store != nil {
		_ = e.store.RecordWorkflowUpdate(ctx, rec)
	}
	if run.cancel != nil {
		run.cancel()
	}
}

// runRollbackChain undoes completed steps in reverse completion order,
// the workflow equivalent of unwinding a transaction.
func (e *WorkflowEngine) runRollbackChain(ctx context.Context, run *workflowRun, completedOrd []string) {
	for i := len(completedOrd) - 1; i >= 0; i-- {
		name := completedOrd[i]
		step := run.wf.Steps[name]
		if step.Rollback == nil {
			continue
		}
		run.mu.Lock()
		wfCtxSnapshot := cloneContext(run.rec.Context)
		run.mu.Unlock()

		if err := step.Rollback(ctx, wfCtxSnapshot); err != nil && e.logger != nil {
			e.logger.Warningf("workflow %s: rollback of step %s failed: %s", run.rec.WorkflowName, name, err)
			continue
		}
		run.mu.Lock()
		run.rec.StepStates[name] = StepRolledBack
		run.mu.Unlock()
	}
}

// Approve unblocks a step waiting on human approval.
func (e *WorkflowEngine) Approve(_ context.Context, execID, stepName string) error {
	e.mu.Lock()
	run, ok := e.runs[execID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutionNotFound, execID)
	}

	run.mu.Lock()
	if _, ok := run.wf.Steps[stepName]; !ok {
		run.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrStepNotFound, stepName)
	}
	run.rec.Approved[stepName] = true
	run.rec.StepStates[stepName] = StepPending
	run.mu.Unlock()

	// Wake the drive loop by feeding it a no-op outcome for a step that
	// is not in flight; it simply recomputes the ready set on return.
	select {
	case run.done <- stepOutcome{step: "__approve__", err: ErrSkippedExecution}:
	default:
	}
	return nil
}

// Pause marks an execution paused; the drive loop itself keeps running
// but Start will not accept new steps into dispatch until Resume.
// Implemented as a state flag record update, consistent with how
// MemoryStore.ListRunningWorkflowExecutions treats WorkflowPaused as
// still "live".
func (e *WorkflowEngine) Pause(ctx context.Context, execID string) error {
	return e.setState(ctx, execID, WorkflowPaused)
}

// Resume moves a paused execution back to running.
func (e *WorkflowEngine) Resume(ctx context.Context, execID string) error {
	return e.setState(ctx, execID, WorkflowRunning)
}

func (e *WorkflowEngine) setState(ctx context.Context, execID string, state WorkflowExecutionState) error {
	e.mu.Lock()
	run, ok := e.runs[execID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutionNotFound, execID)
	}
	run.mu.Lock()
	run.rec.State = state
	rec := run.rec
	run.mu.Unlock()
	if e.store != nil {
		return e.store.RecordWorkflowUpdate(ctx, rec)
	}
	return nil
}

// Cancel stops an execution's drive loop via its context and triggers
// the rollback chain as if it had failed.
func (e *WorkflowEngine) Cancel(_ context.Context, execID string) error {
	e.mu.Lock()
	run, ok := e.runs[execID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutionNotFound, execID)
	}
	run.cancel()
	return nil
}

// GetExecution returns the live record for execID.
func (e *WorkflowEngine) GetExecution(_ context.Context, execID string) (*WorkflowExecutionRecord, error) {
	e.mu.Lock()
	run, ok := e.runs[execID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, execID)
	}
	run.mu.Lock()
	defer run.mu.Unlock()
	return run.rec, nil
}
