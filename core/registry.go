package core

import (
	"context"
	"fmt"
	"sync"
)

// Target is an invokable unit a JobRecord or Step refers to by string id
// ("module-name.entry-symbol", spec §9). Invoke receives the job's Args
// and returns a result merged into the Execution/step outcome.
type Target func(ctx context.Context, args any) (any, error)

// Registry resolves target ids to invokable Targets, populated at
// process startup from whatever adapters (Docker, HTTP, local exec,
// Lambda, ...) the deployment wires in. A JobRecord or Step whose Target
// id has no registered entry fails fast with ErrTargetNotRegistered
// rather than at dispatch time deep in a worker goroutine.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]Target
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]Target)}
}

// Register adds or replaces the Target bound to id.
func (r *Registry) Register(id string, target Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[id] = target
}

// Resolve looks up id, returning ErrTargetNotRegistered if absent.
func (r *Registry) Resolve(id string) (Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	target, ok := r.targets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotRegistered, id)
	}
	return target, nil
}

// Invoke resolves id and calls it with args in one step, the shape the
// Job Scheduler and Workflow Engine both use to turn a string reference
// into a running attempt.
func (r *Registry) Invoke(ctx context.Context, id string, args any) (any, error) {
	target, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}
	return target(ctx, args)
}

// Names returns every registered target id, for diagnostics/listing.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.targets))
	for name := range r.targets {
		names = append(names, name)
	}
	return names
}
