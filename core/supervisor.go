package core

import (
	"context"
	"time"
)

// SupervisorConfig bundles the collaborators and tuning knobs a
// Supervisor wires together (spec §4.8).
type SupervisorConfig struct {
	Store       Store
	Coordinator ClusterCoordinator
	Registry    *Registry
	Dispatcher  *Dispatcher
	Engine      *WorkflowEngine
	Logger      Logger
	Clock       Clock

	NodeID          string
	PollInterval    time.Duration
	LockTTL         time.Duration
	SweepInterval   time.Duration
	DefaultTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Supervisor is the composition root: it starts the Store-backed
// PolledScheduler, the Sweeper, and the Workflow Engine in dependency
// order and tears them down through a ShutdownManager, the same
// priority-ordered-hooks mechanism GracefulScheduler already uses for
// the in-process cron.Cron.
type Supervisor struct {
	cfg       SupervisorConfig
	scheduler *PolledScheduler
	sweeper   *Sweeper
	shutdown  *ShutdownManager

	cancel context.CancelFunc
}

// NewSupervisor builds the PolledScheduler and Sweeper from cfg. Engine,
// Registry, and Dispatcher are expected to already be registered/
// configured by the caller before Start.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.Clock == nil {
		cfg.Clock = NewRealClock()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	scheduler := NewPolledScheduler(cfg.Store, cfg.Coordinator, cfg.Registry, cfg.Dispatcher, cfg.Logger, cfg.Clock, JobSchedulerOptions{
		PollInterval: cfg.PollInterval,
		LockTTL:      cfg.LockTTL,
		NodeID:       cfg.NodeID,
	})
	sweeper := NewSweeper(cfg.Store, cfg.Logger, cfg.Clock, cfg.DefaultTimeout)

	return &Supervisor{
		cfg:       cfg,
		scheduler: scheduler,
		sweeper:   sweeper,
		shutdown:  NewShutdownManager(cfg.Logger, cfg.ShutdownTimeout),
	}
}

// Start brings up the Job Scheduler's poll loop and the orphan sweeper.
// The Workflow Engine itself needs no background loop: it only runs
// while an execution is in flight, driven entirely by Start/Approve/
// Resume calls, so there is nothing for the Supervisor to start for it
// beyond what NewWorkflowEngine already set up.
func (s *Supervisor) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.scheduler.Start(runCtx)
	s.shutdown.RegisterHook(ShutdownHook{
		Name:     "job-scheduler",
		Priority: 10,
		Hook: func(context.Context) error {
			s.scheduler.Stop()
			return nil
		},
	})

	sweepInterval := s.cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	go s.sweeper.Run(runCtx, sweepInterval)

	if s.cfg.Dispatcher != nil {
		s.shutdown.RegisterHook(ShutdownHook{
			Name:     "dispatcher-drain",
			Priority: 20,
			Hook: func(ctx context.Context) error {
				queues := s.cfg.Dispatcher.QueueNames()
				for _, name := range queues {
					s.cfg.Dispatcher.Pause(name)
				}
				var firstErr error
				for _, name := range queues {
					if err := s.cfg.Dispatcher.Drain(ctx, name); err != nil && firstErr == nil {
						firstErr = err
					}
				}
				return firstErr
			},
		})
	}

	s.shutdown.ListenForShutdown()
}

// Shutdown runs every registered hook in priority order and cancels the
// context passed to Start, stopping the poll loop and sweeper.
func (s *Supervisor) Shutdown() error {
	err := s.shutdown.Shutdown()
	if s.cancel != nil {
		s.cancel()
	}
	return err
}

// Ready reports whether the poll loop has been started and not yet torn
// down. It satisfies web.StatusProvider structurally so a daemon can
// register a Supervisor directly with a HealthChecker without either
// package importing the other.
func (s *Supervisor) Ready() (bool, string) {
	if s.cancel == nil {
		return false, "supervisor not started"
	}
	return true, "job scheduler and sweeper running"
}
