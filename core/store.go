package core

import (
	"context"
	"sort"
	"sync"
	"time"
)

// JobState is the coarse lifecycle state of a scheduled job.
type JobState string

const (
	JobStateActive   JobState = "active"
	JobStatePaused   JobState = "paused"
	JobStateDisabled JobState = "disabled"
	JobStateFailed   JobState = "failed"
)

// ScheduleKind selects how a JobRecord's next fire instant is computed.
type ScheduleKind string

const (
	ScheduleKindCron     ScheduleKind = "cron"
	ScheduleKindInterval ScheduleKind = "interval"
	ScheduleKindReboot   ScheduleKind = "reboot"
	ScheduleKindOneShot  ScheduleKind = "one_shot"
)

// JobSchedule is a job's schedule of exactly one kind.
type JobSchedule struct {
	Kind ScheduleKind
	// Expr is the cron expression for ScheduleKindCron, or an RFC3339
	// instant for ScheduleKindOneShot. Unused for interval/reboot.
	Expr string
	// Every is the fixed interval for ScheduleKindInterval.
	Every time.Duration
	Zone  string
}

// JobRecord is the persisted, data-model representation of a Job (spec
// §3): target reference, schedule, and runtime counters. This is distinct
// from the in-process Job interface (core.Job) that BareJob and friends
// implement for in-process cron execution; JobRecord is what the Store
// owns and the Job Scheduler polls.
type JobRecord struct {
	Name       string
	Target     string // registry id: "module-name.entry-symbol"
	Args       any
	Schedule   JobSchedule
	Queue      string
	Priority   int // 0-9, lower runs first
	MaxRetries int
	Timeout    time.Duration
	Unique     bool
	Enabled    bool
	Paused     bool
	State      JobState
	Tags       []string
	Metadata   map[string]any

	RunCount   int
	ErrorCount int
	LastResult any
	LastError  string
	LastRunAt  time.Time
	NextRunAt  time.Time
}

// JobFilters narrows ListJobs/GetDueJobs results.
type JobFilters struct {
	Queue string
	State JobState
	Tag   string
	Limit int
}

// Paging bounds a list operation.
type Paging struct {
	Offset int
	Limit  int
}

// JobChanges is a sparse set of JobRecord field updates for UpdateJob.
type JobChanges struct {
	Enabled  *bool
	Paused   *bool
	State    *JobState
	Priority *int
	// NextRunAt advances a job's next fire instant without touching
	// RunCount, LastResult, or LastRunAt — the mutation the Job
	// Scheduler uses to persist its recomputed schedule ahead of a run,
	// distinct from MarkCompleted/MarkFailed which record the run itself.
	NextRunAt *time.Time
}

// Store is the persistence surface the Job Scheduler, Queue Dispatcher,
// Workflow Engine, and Dead-Letter pipeline share. All operations accept
// a context carrying a deadline and may fail with a transient error
// (caller retries) or a permanent one (caller gives up); this package
// never implements it beyond an in-memory default for tests and
// single-node deployments — a production adapter (SQL, key-value) is an
// external collaborator.
type Store interface {
	RegisterJob(ctx context.Context, job *JobRecord) error
	GetJob(ctx context.Context, name string) (*JobRecord, error)
	ListJobs(ctx context.Context, filters JobFilters, paging Paging) ([]*JobRecord, error)
	UpdateJob(ctx context.Context, name string, changes JobChanges) error
	DeleteJob(ctx context.Context, name string) error

	GetDueJobs(ctx context.Context, now time.Time, filters JobFilters) ([]*JobRecord, error)
	MarkCompleted(ctx context.Context, name string, result any, nextRunAt time.Time) error
	MarkFailed(ctx context.Context, name string, errMsg string, nextRunAt time.Time) error

	AcquireUniqueLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	ReleaseUniqueLock(ctx context.Context, key, owner string) error
	RenewUniqueLock(ctx context.Context, key, owner string, ttl time.Duration) error

	RecordExecutionStart(ctx context.Context, exec *Execution) error
	RecordExecutionComplete(ctx context.Context, exec *Execution) error
	ListExecutions(ctx context.Context, jobName string, paging Paging) ([]*Execution, error)

	RegisterWorkflow(ctx context.Context, wf *Workflow) error
	GetWorkflow(ctx context.Context, name string) (*Workflow, error)
	ListWorkflows(ctx context.Context) ([]*Workflow, error)
	DeleteWorkflow(ctx context.Context, name string) error

	RecordWorkflowStart(ctx context.Context, exec *WorkflowExecutionRecord) error
	RecordWorkflowUpdate(ctx context.Context, exec *WorkflowExecutionRecord) error
	ListRunningWorkflowExecutions(ctx context.Context, name string, limit int) ([]*WorkflowExecutionRecord, error)

	InsertDLQ(ctx context.Context, entry *DeadLetterEntry) error
	ListDLQ(ctx context.Context, filters DLQFilters) ([]*DeadLetterEntry, error)
	GetDLQ(ctx context.Context, id string) (*DeadLetterEntry, error)
	DeleteDLQ(ctx context.Context, id string) error
	PruneDLQ(ctx context.Context, before time.Time, maxEntries int) (int, error)
}

// uniqueLockEntry is the in-memory representation of a UniqueLock.
type uniqueLockEntry struct {
	owner  string
	expiry time.Time
}

// MemoryStore is an in-memory Store implementation: the default for
// single-node deployments and the backend every test in this module
// drives against. Every map is guarded by a single mutex; this trades
// fine-grained concurrency for the simplicity appropriate to a reference
// implementation of an interface whose production backends live outside
// this package.
type MemoryStore struct {
	mu sync.Mutex

	clock Clock

	jobs       map[string]*JobRecord
	locks      map[string]uniqueLockEntry
	executions map[string][]*Execution
	workflows  map[string]*Workflow
	wfExecs    map[string][]*WorkflowExecutionRecord
	dlq        map[string]*DeadLetterEntry
	dlqOrder   []string
}

// NewMemoryStore creates an in-memory Store. clock is used for lock
// expiry and due-job comparisons; pass a FakeClock in tests.
func NewMemoryStore(clock Clock) *MemoryStore {
	if clock == nil {
		clock = NewRealClock()
	}
	return &MemoryStore{
		clock:      clock,
		jobs:       make(map[string]*JobRecord),
		locks:      make(map[string]uniqueLockEntry),
		executions: make(map[string][]*Execution),
		workflows:  make(map[string]*Workflow),
		wfExecs:    make(map[string][]*WorkflowExecutionRecord),
		dlq:        make(map[string]*DeadLetterEntry),
	}
}

func (m *MemoryStore) RegisterJob(_ context.Context, job *JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.State == "" {
		job.State = JobStateActive
	}
	m.jobs[job.Name] = job
	return nil
}

func (m *MemoryStore) GetJob(_ context.Context, name string) (*JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[name]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (m *MemoryStore) ListJobs(_ context.Context, filters JobFilters, paging Paging) ([]*JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.jobs))
	for name := range m.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []*JobRecord
	for _, name := range names {
		job := m.jobs[name]
		if !jobMatchesFilters(job, filters) {
			continue
		}
		out = append(out, job)
	}

	return paginate(out, paging), nil
}

func jobMatchesFilters(job *JobRecord, filters JobFilters) bool {
	if filters.Queue != "" && job.Queue != filters.Queue {
		return false
	}
	if filters.State != "" && job.State != filters.State {
		return false
	}
	if filters.Tag != "" {
		found := false
		for _, t := range job.Tags {
			if t == filters.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func paginate[T any](items []T, paging Paging) []T {
	if paging.Offset >= len(items) {
		return nil
	}
	end := len(items)
	if paging.Limit > 0 && paging.Offset+paging.Limit < end {
		end = paging.Offset + paging.Limit
	}
	return items[paging.Offset:end]
}

func (m *MemoryStore) UpdateJob(_ context.Context, name string, changes JobChanges) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[name]
	if !ok {
		return ErrJobNotFound
	}
	if changes.Enabled != nil {
		job.Enabled = *changes.Enabled
	}
	if changes.Paused != nil {
		job.Paused = *changes.Paused
	}
	if changes.State != nil {
		job.State = *changes.State
	}
	if changes.Priority != nil {
		job.Priority = *changes.Priority
	}
	if changes.NextRunAt != nil {
		job.NextRunAt = *changes.NextRunAt
	}
	return nil
}

func (m *MemoryStore) DeleteJob(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[name]; !ok {
		return ErrJobNotFound
	}
	delete(m.jobs, name)
	return nil
}

func (m *MemoryStore) GetDueJobs(_ context.Context, now time.Time, filters JobFilters) ([]*JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.jobs))
	for name := range m.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	var due []*JobRecord
	for _, name := range names {
		job := m.jobs[name]
		if !job.Enabled || job.Paused || job.State != JobStateActive {
			continue
		}
		if job.NextRunAt.After(now) {
			continue
		}
		if !jobMatchesFilters(job, filters) {
			continue
		}
		due = append(due, job)
	}

	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].NextRunAt.Equal(due[j].NextRunAt) {
			return due[i].NextRunAt.Before(due[j].NextRunAt)
		}
		return due[i].Priority < due[j].Priority
	})

	if filters.Limit > 0 && len(due) > filters.Limit {
		due = due[:filters.Limit]
	}
	return due, nil
}

func (m *MemoryStore) MarkCompleted(_ context.Context, name string, result any, nextRunAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[name]
	if !ok {
		return ErrJobNotFound
	}
	job.RunCount++
	job.LastResult = result
	job.LastRunAt = m.clock.Now()
	job.NextRunAt = nextRunAt
	return nil
}

func (m *MemoryStore) MarkFailed(_ context.Context, name string, errMsg string, nextRunAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[name]
	if !ok {
		return ErrJobNotFound
	}
	job.ErrorCount++
	job.LastError = errMsg
	job.LastRunAt = m.clock.Now()
	job.NextRunAt = nextRunAt
	return nil
}

// AcquireUniqueLock performs conditional insert: a key is acquirable if
// unheld, or its expiry has passed (a new acquisition atomically replaces
// the stale entry).
func (m *MemoryStore) AcquireUniqueLock(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrInvalidLockTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if existing, ok := m.locks[key]; ok && existing.owner != owner && existing.expiry.After(now) {
		return false, nil
	}
	m.locks[key] = uniqueLockEntry{owner: owner, expiry: now.Add(ttl)}
	return true, nil
}

func (m *MemoryStore) ReleaseUniqueLock(_ context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.locks[key]
	if !ok || existing.owner != owner {
		return nil
	}
	delete(m.locks, key)
	return nil
}

func (m *MemoryStore) RenewUniqueLock(_ context.Context, key, owner string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidLockTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.locks[key]
	if !ok || existing.owner != owner {
		return ErrLockNotHeld
	}
	existing.expiry = m.clock.Now().Add(ttl)
	m.locks[key] = existing
	return nil
}

func (m *MemoryStore) RecordExecutionStart(_ context.Context, exec *Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions[exec.JobName] = append(m.executions[exec.JobName], exec)
	return nil
}

func (m *MemoryStore) RecordExecutionComplete(_ context.Context, exec *Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.executions[exec.JobName]
	for i, e := range list {
		if e.ID == exec.ID {
			list[i] = exec
			return nil
		}
	}
	m.executions[exec.JobName] = append(list, exec)
	return nil
}

func (m *MemoryStore) ListExecutions(_ context.Context, jobName string, paging Paging) ([]*Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return paginate(append([]*Execution(nil), m.executions[jobName]...), paging), nil
}

func (m *MemoryStore) RegisterWorkflow(_ context.Context, wf *Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflows[wf.Name] = wf
	return nil
}

func (m *MemoryStore) GetWorkflow(_ context.Context, name string) (*Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[name]
	if !ok {
		return nil, ErrWorkflowNotFound
	}
	return wf, nil
}

func (m *MemoryStore) ListWorkflows(_ context.Context) ([]*Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Workflow, 0, len(m.workflows))
	for _, wf := range m.workflows {
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) DeleteWorkflow(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workflows[name]; !ok {
		return ErrWorkflowNotFound
	}
	delete(m.workflows, name)
	return nil
}

func (m *MemoryStore) RecordWorkflowStart(_ context.Context, exec *WorkflowExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wfExecs[exec.WorkflowName] = append(m.wfExecs[exec.WorkflowName], exec)
	return nil
}

func (m *MemoryStore) RecordWorkflowUpdate(_ context.Context, exec *WorkflowExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.wfExecs[exec.WorkflowName]
	for i, e := range list {
		if e.ID == exec.ID {
			list[i] = exec
			return nil
		}
	}
	m.wfExecs[exec.WorkflowName] = append(list, exec)
	return nil
}

func (m *MemoryStore) ListRunningWorkflowExecutions(_ context.Context, name string, limit int) ([]*WorkflowExecutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*WorkflowExecutionRecord
	for _, e := range m.wfExecs[name] {
		if e.State == WorkflowRunning || e.State == WorkflowPaused {
			out = append(out, e)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) InsertDLQ(_ context.Context, entry *DeadLetterEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dlq[entry.ID] = entry
	m.dlqOrder = append(m.dlqOrder, entry.ID)
	return nil
}

// DLQFilters narrows ListDLQ results.
type DLQFilters struct {
	JobName string
	Queue   string
	Class   ErrorClass
}

func (m *MemoryStore) ListDLQ(_ context.Context, filters DLQFilters) ([]*DeadLetterEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*DeadLetterEntry
	for _, id := range m.dlqOrder {
		entry, ok := m.dlq[id]
		if !ok {
			continue
		}
		if filters.JobName != "" && entry.JobName != filters.JobName {
			continue
		}
		if filters.Queue != "" && entry.Queue != filters.Queue {
			continue
		}
		if filters.Class != "" && entry.ErrorClass != filters.Class {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (m *MemoryStore) GetDLQ(_ context.Context, id string) (*DeadLetterEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.dlq[id]
	if !ok {
		return nil, ErrDeadLetterNotFound
	}
	return entry, nil
}

func (m *MemoryStore) DeleteDLQ(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dlq[id]; !ok {
		return ErrDeadLetterNotFound
	}
	delete(m.dlq, id)
	for i, oid := range m.dlqOrder {
		if oid == id {
			m.dlqOrder = append(m.dlqOrder[:i], m.dlqOrder[i+1:]...)
			break
		}
	}
	return nil
}

// PruneDLQ deletes entries older than before, then trims to maxEntries if
// still over, keeping the most recent. Whichever bound is reached first
// is honored, per spec §4.4.
func (m *MemoryStore) PruneDLQ(_ context.Context, before time.Time, maxEntries int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	var kept []string
	for _, id := range m.dlqOrder {
		entry := m.dlq[id]
		if !before.IsZero() && entry.LastFailedAt.Before(before) {
			delete(m.dlq, id)
			pruned++
			continue
		}
		kept = append(kept, id)
	}

	if maxEntries > 0 && len(kept) > maxEntries {
		excess := len(kept) - maxEntries
		for _, id := range kept[:excess] {
			delete(m.dlq, id)
			pruned++
		}
		kept = kept[excess:]
	}

	m.dlqOrder = kept
	return pruned, nil
}
