package core

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// dispatchItem is one admitted unit of work waiting for a free worker
// slot on its queue.
type dispatchItem struct {
	priority   int
	seq        int64 // insertion order, lower runs first within equal priority
	fn         func(ctx context.Context) error
	onComplete func(error)
}

// priorityHeap is a container/heap.Interface over dispatchItem, lowest
// Priority value (and, as a tiebreak, earliest seq) popped first. This is
// the one deliberate stdlib data structure in the package: no repo in the
// retrieval pack ships a generic priority queue library, and ordering a
// bounded wait list by priority is exactly what container/heap exists for.
type priorityHeap []*dispatchItem

func (h priorityHeap) Len() int { return len(h) }
func (h priorityHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h priorityHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *priorityHeap) Push(x any)   { *h = append(*h, x.(*dispatchItem)) }
func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// queueState is one named queue's worker pool and wait list.
type queueState struct {
	name     string
	mu       sync.Mutex
	paused   bool
	capacity int
	running  int
	waiting  priorityHeap
	limiter  *rate.Limiter
	seq      int64
}

// Dispatcher is the Queue Dispatcher: named queues, each a bounded
// worker pool with a priority-ordered wait list and optional admission
// rate limit (spec §4.5).
type Dispatcher struct {
	mu     sync.Mutex
	logger Logger
	queues map[string]*queueState

	defaultCapacity int
}

// NewDispatcher creates a Dispatcher. defaultCapacity bounds concurrency
// for queues that have not been explicitly configured via Configure.
func NewDispatcher(logger Logger, defaultCapacity int) *Dispatcher {
	if defaultCapacity <= 0 {
		defaultCapacity = 1
	}
	return &Dispatcher{
		logger:          logger,
		queues:          make(map[string]*queueState),
		defaultCapacity: defaultCapacity,
	}
}

func (d *Dispatcher) queue(name string) *queueState {
	d.mu.Lock()
	defer d.mu.Unlock()
	q, ok := d.queues[name]
	if !ok {
		q = &queueState{name: name, capacity: d.defaultCapacity}
		d.queues[name] = q
	}
	return q
}

// Configure sets a queue's worker capacity and, if ratePerSecond > 0, a
// token-bucket admission limit ahead of the worker pool itself.
func (d *Dispatcher) Configure(name string, capacity int, ratePerSecond float64, burst int) {
	q := d.queue(name)
	q.mu.Lock()
	defer q.mu.Unlock()
	if capacity > 0 {
		q.capacity = capacity
	}
	if ratePerSecond > 0 {
		q.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
	}
}

// Submit admits fn onto queue at priority (lower runs first). onComplete
// runs, exactly once, with fn's error once fn returns — on the worker
// goroutine, so it must not block. Submit returns ErrQueuePaused if the
// queue is paused and ErrQueueFull if admission is rate-limited and
// non-blocking capacity is exhausted.
func (d *Dispatcher) Submit(ctx context.Context, queueName string, priority int, fn func(ctx context.Context) error, onComplete func(error)) error {
	q := d.queue(queueName)

	if q.limiter != nil && !q.limiter.Allow() {
		return WrapDispatchError("submit", queueName, ErrQueueFull)
	}

	q.mu.Lock()
	if q.paused {
		q.mu.Unlock()
		return WrapDispatchError("submit", queueName, ErrQueuePaused)
	}
	q.seq++
	item := &dispatchItem{priority: priority, seq: q.seq, fn: fn, onComplete: onComplete}

	if q.running < q.capacity {
		q.running++
		q.mu.Unlock()
		go d.run(ctx, q, item)
		return nil
	}

	heap.Push(&q.waiting, item)
	q.mu.Unlock()
	return nil
}

func (d *Dispatcher) run(ctx context.Context, q *queueState, item *dispatchItem) {
	err := item.fn(ctx)
	if item.onComplete != nil {
		item.onComplete(err)
	}

	q.mu.Lock()
	var next *dispatchItem
	if !q.paused && q.running <= q.capacity && q.waiting.Len() > 0 {
		next = heap.Pop(&q.waiting).(*dispatchItem)
	} else {
		q.running--
	}
	q.mu.Unlock()

	if next != nil {
		d.run(ctx, q, next)
	}
}

// Pause stops a queue from starting new workers; already-running work
// finishes and submissions keep queuing until Resume.
func (d *Dispatcher) Pause(queueName string) {
	q := d.queue(queueName)
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

// Resume re-admits waiting work up to the queue's capacity.
func (d *Dispatcher) Resume(ctx context.Context, queueName string) {
	q := d.queue(queueName)
	q.mu.Lock()
	q.paused = false
	var toStart []*dispatchItem
	for q.running < q.capacity && q.waiting.Len() > 0 {
		toStart = append(toStart, heap.Pop(&q.waiting).(*dispatchItem))
		q.running++
	}
	q.mu.Unlock()

	for _, item := range toStart {
		go d.run(ctx, q, item)
	}
}

// Scale changes a queue's worker capacity, admitting queued work
// immediately if capacity grew.
func (d *Dispatcher) Scale(ctx context.Context, queueName string, capacity int) {
	if capacity <= 0 {
		capacity = 1
	}
	q := d.queue(queueName)
	q.mu.Lock()
	q.capacity = capacity
	var toStart []*dispatchItem
	for !q.paused && q.running < q.capacity && q.waiting.Len() > 0 {
		toStart = append(toStart, heap.Pop(&q.waiting).(*dispatchItem))
		q.running++
	}
	q.mu.Unlock()

	for _, item := range toStart {
		go d.run(ctx, q, item)
	}
}

// Depth reports a queue's current wait-list length, the value the
// metrics collector's SetQueueDepth gauge exports.
func (d *Dispatcher) Depth(queueName string) int {
	q := d.queue(queueName)
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiting.Len()
}

// Drain blocks until queueName has no running or waiting work, or ctx is
// done, for graceful shutdown (spec §4.8).
func (d *Dispatcher) Drain(ctx context.Context, queueName string) error {
	q := d.queue(queueName)
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()
	for {
		q.mu.Lock()
		idle := q.running == 0 && q.waiting.Len() == 0
		q.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// QueueNames returns the names of every queue that has handled a Submit
// or Configure call, for callers (like the Supervisor's shutdown hook)
// that need to address every live queue without the caller tracking its
// own registry of names.
func (d *Dispatcher) QueueNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.queues))
	for name := range d.queues {
		names = append(names, name)
	}
	return names
}

// Ready reports the number of live queues, satisfying web.StatusProvider
// structurally. A Dispatcher is always ready to accept Submit calls; it
// never blocks admission on startup state.
func (d *Dispatcher) Ready() (bool, string) {
	d.mu.Lock()
	n := len(d.queues)
	d.mu.Unlock()
	return true, fmt.Sprintf("%d queues active", n)
}
