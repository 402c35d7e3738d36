package core

import (
	"context"
	"sync"
	"time"
)

// leaderLockKey is the well-known UniqueLock key distributed coordinators
// contend for to decide which node's Scheduler is allowed to poll.
const leaderLockKey = "__orbit_leader__"

// ClusterCoordinator provides leader election and unique-key locking with
// TTL so that at most one node dispatches a given due job (spec §4.2).
// try_acquire/release/leader? map directly onto TryAcquire/Release/
// IsLeader; Renew is the additive cooperative-extension hook from
// SPEC_FULL §C.1, never called automatically by the Scheduler.
type ClusterCoordinator interface {
	TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
	Renew(key, owner string, ttl time.Duration) error
	IsLeader(ctx context.Context) (bool, error)
}

// SingleNodeCoordinator is trivially the leader and holds locks purely
// in memory. Grounded on the same mutex-protected-map shape the teacher
// uses for CircuitBreaker state in core/resilience.go.
type SingleNodeCoordinator struct {
	mu    sync.Mutex
	locks map[string]UniqueLock
	clock Clock
}

// NewSingleNodeCoordinator creates a coordinator for single-process
// deployments: every acquisition succeeds unless another still-live
// owner holds the key.
func NewSingleNodeCoordinator(clock Clock) *SingleNodeCoordinator {
	if clock == nil {
		clock = NewRealClock()
	}
	return &SingleNodeCoordinator{
		locks: make(map[string]UniqueLock),
		clock: clock,
	}
}

func (c *SingleNodeCoordinator) TryAcquire(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrInvalidLockTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if existing, ok := c.locks[key]; ok && existing.Owner != owner && !existing.Expired(now) {
		return false, nil
	}
	c.locks[key] = UniqueLock{Key: key, Owner: owner, Expiry: now.Add(ttl)}
	return true, nil
}

func (c *SingleNodeCoordinator) Release(_ context.Context, key, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.locks[key]; ok && existing.Owner == owner {
		delete(c.locks, key)
	}
	return nil
}

func (c *SingleNodeCoordinator) Renew(key, owner string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidLockTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.locks[key]
	if !ok || existing.Owner != owner {
		return ErrLockNotHeld
	}
	existing.Expiry = c.clock.Now().Add(ttl)
	c.locks[key] = existing
	return nil
}

func (c *SingleNodeCoordinator) IsLeader(_ context.Context) (bool, error) {
	return true, nil
}

// StoreCoordinator is the distributed implementation: locks and
// leadership live in the same Store backend, acquisition performed by
// conditional insert ("insert row iff no row exists OR existing row
// expired"), matching the rezkam-mono GenerationCoordinator's
// TryAcquireExclusiveRun/lease pattern.
type StoreCoordinator struct {
	store Store
	owner string
}

// NewStoreCoordinator creates a distributed coordinator. owner is this
// node's identity, used both for job locks and the leader-election lock.
func NewStoreCoordinator(store Store, owner string) *StoreCoordinator {
	return &StoreCoordinator{store: store, owner: owner}
}

func (c *StoreCoordinator) TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, ErrInvalidLockTTL
	}
	ok, err := c.store.AcquireUniqueLock(ctx, key, owner, ttl)
	if err != nil {
		return false, WrapLockError("acquire", key, err)
	}
	return ok, nil
}

func (c *StoreCoordinator) Release(ctx context.Context, key, owner string) error {
	if err := c.store.ReleaseUniqueLock(ctx, key, owner); err != nil {
		return WrapLockError("release", key, err)
	}
	return nil
}

func (c *StoreCoordinator) Renew(key, owner string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidLockTTL
	}
	if err := c.store.RenewUniqueLock(context.Background(), key, owner, ttl); err != nil {
		return WrapLockError("renew", key, err)
	}
	return nil
}

// IsLeader attempts to (re-)acquire the well-known leader lock for this
// node. Failover safety relies on the lock's TTL: if the leader crashes,
// the lock expires and another node's next IsLeader call wins it.
func (c *StoreCoordinator) IsLeader(ctx context.Context) (bool, error) {
	const leaderTTL = 15 * time.Second
	acquired, err := c.store.AcquireUniqueLock(ctx, leaderLockKey, c.owner, leaderTTL)
	if err != nil {
		return false, WrapLockError("leader-acquire", leaderLockKey, err)
	}
	return acquired, nil
}
