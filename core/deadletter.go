package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeadLetterEntry is a job or workflow-step attempt that exhausted its
// retries, classified for operator triage (spec §4.4).
type DeadLetterEntry struct {
	ID           string
	JobName      string
	Queue        string
	Payload      any
	ErrorClass   ErrorClass
	LastError    string
	Attempts     int
	FirstFailedAt time.Time
	LastFailedAt time.Time
}

// DeadLetterPipeline records exhausted attempts and lets an operator
// inspect, retry, or drop them. Built on the same CircuitBreaker the
// Queue Dispatcher uses so a queue whose jobs keep landing here can be
// tripped independently of the retry policy that fed it.
type DeadLetterPipeline struct {
	store    Store
	breakers map[string]*CircuitBreaker
}

// NewDeadLetterPipeline creates a pipeline backed by store.
func NewDeadLetterPipeline(store Store) *DeadLetterPipeline {
	return &DeadLetterPipeline{
		store:    store,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Land records a terminally failed attempt. err is classified via
// ClassifyError so operators can filter the dead-letter queue by the §7
// taxonomy without re-parsing error strings.
func (p *DeadLetterPipeline) Land(ctx context.Context, jobName, queue string, payload any, attempts int, err error) error {
	now := time.Now()
	entry := &DeadLetterEntry{
		ID:            uuid.NewString(),
		JobName:       jobName,
		Queue:         queue,
		Payload:       payload,
		ErrorClass:    ClassifyError(err),
		Attempts:      attempts,
		FirstFailedAt: now,
		LastFailedAt:  now,
	}
	if err != nil {
		entry.LastError = err.Error()
	}
	if cerr := p.store.InsertDLQ(ctx, entry); cerr != nil {
		return WrapDispatchError("dead-letter", queue, cerr)
	}
	return nil
}

// List returns dead-letter entries matching filters.
func (p *DeadLetterPipeline) List(ctx context.Context, filters DLQFilters) ([]*DeadLetterEntry, error) {
	return p.store.ListDLQ(ctx, filters)
}

// Get fetches a single entry by id.
func (p *DeadLetterPipeline) Get(ctx context.Context, id string) (*DeadLetterEntry, error) {
	return p.store.GetDLQ(ctx, id)
}

// Retry hands entry id back to submit for redispatch, then deletes it on
// successful resubmission. submit is the Dispatcher's Submit method;
// injected rather than imported to avoid a cyclic dependency between the
// dead-letter pipeline and the dispatcher it feeds back into.
func (p *DeadLetterPipeline) Retry(ctx context.Context, id string, submit func(ctx context.Context, jobName, queue string, payload any) error) error {
	entry, err := p.store.GetDLQ(ctx, id)
	if err != nil {
		return err
	}
	if err := submit(ctx, entry.JobName, entry.Queue, entry.Payload); err != nil {
		return err
	}
	return p.store.DeleteDLQ(ctx, id)
}

// RetryAll retries every entry currently matching filters, returning the
// ids that failed to resubmit (still dead-lettered).
func (p *DeadLetterPipeline) RetryAll(ctx context.Context, filters DLQFilters, submit func(ctx context.Context, jobName, queue string, payload any) error) ([]string, error) {
	entries, err := p.store.ListDLQ(ctx, filters)
	if err != nil {
		return nil, err
	}
	var failed []string
	for _, entry := range entries {
		if rerr := p.Retry(ctx, entry.ID, submit); rerr != nil {
			failed = append(failed, entry.ID)
		}
	}
	return failed, nil
}

// Delete drops an entry without retrying it.
func (p *DeadLetterPipeline) Delete(ctx context.Context, id string) error {
	return p.store.DeleteDLQ(ctx, id)
}

// Prune removes entries older than maxAge or beyond maxEntries,
// whichever bound is reached first (spec §4.4).
func (p *DeadLetterPipeline) Prune(ctx context.Context, maxAge time.Duration, maxEntries int) (int, error) {
	var before time.Time
	if maxAge > 0 {
		before = time.Now().Add(-maxAge)
	}
	return p.store.PruneDLQ(ctx, before, maxEntries)
}

// QueueBreaker returns (creating if absent) the circuit breaker tracking
// how often queue's jobs land in the dead-letter queue.
func (p *DeadLetterPipeline) QueueBreaker(queue string, maxFailures uint32, resetTimeout time.Duration) *CircuitBreaker {
	if cb, ok := p.breakers[queue]; ok {
		return cb
	}
	cb := NewCircuitBreaker(queue, maxFailures, resetTimeout)
	p.breakers[queue] = cb
	return cb
}
