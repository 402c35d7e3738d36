package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"time"

	"github.com/haligrid/orbit/core"
	"github.com/haligrid/orbit/middlewares"
	"github.com/haligrid/orbit/web"
)

// DaemonCommand daemon process
type DaemonCommand struct {
	ConfigFile           string         `long:"config" env:"ORBIT_CONFIG" description:"Config file path" default:"/etc/orbit/config.ini"`
	DockerFilters        []string       `short:"f" long:"docker-filter" env:"ORBIT_DOCKER_FILTER" description:"Docker container filter"`
	DockerPollInterval   *time.Duration `long:"docker-poll-interval" env:"ORBIT_POLL_INTERVAL" description:"Docker label poll interval"`
	DockerUseEvents      *bool          `long:"docker-events" env:"ORBIT_DOCKER_EVENTS" description:"Use Docker events for changes"`
	DockerNoPoll         *bool          `long:"docker-no-poll" env:"ORBIT_DOCKER_NO_POLL" description:"Disable Docker label polling"`
	DockerIncludeStopped *bool          `long:"docker-include-stopped" env:"ORBIT_DOCKER_INCLUDE_STOPPED" description:"Include stopped containers when reading Docker labels"` //nolint:revive
	LogLevel             string         `long:"log-level" env:"ORBIT_LOG_LEVEL" description:"Log level (trace,debug,info,warn,error)"`
	EnablePprof          bool           `long:"enable-pprof" env:"ORBIT_ENABLE_PPROF" description:"Enable pprof server"`
	PprofAddr            string         `long:"pprof-address" env:"ORBIT_PPROF_ADDRESS" description:"Pprof addr" default:"127.0.0.1:8080"`
	EnableWeb            bool           `long:"enable-web" env:"ORBIT_ENABLE_WEB" description:"Enable health endpoints"`
	WebAddr              string         `long:"web-address" env:"ORBIT_WEB_ADDRESS" description:"Health endpoint address" default:":8081"`

	scheduler       *core.Scheduler
	pprofServer     *http.Server
	healthServer    *http.Server
	dockerHandler   *DockerHandler
	config          *Config
	done            chan struct{}
	Logger          *slog.Logger
	LevelVar        *slog.LevelVar
	shutdownManager *core.ShutdownManager
	healthChecker   *web.HealthChecker
	supervisor      *core.Supervisor
}

// Execute runs the daemon
func (c *DaemonCommand) Execute(_ []string) error {
	if err := c.boot(); err != nil {
		return err
	}

	if err := c.start(); err != nil {
		return err
	}
	return c.shutdown()
}

func (c *DaemonCommand) boot() (err error) {
	// Initialize done channel for clean shutdown
	c.done = make(chan struct{})

	// Apply CLI log level before reading config
	if err := ApplyLogLevel(c.LogLevel, c.LevelVar); err != nil {
		c.Logger.Error(fmt.Sprintf("Failed to apply log level: %v", err))
		return fmt.Errorf("invalid log level configuration: %w", err)
	}

	// Initialize shutdown manager
	coreLogger := NewCoreLogger(c.Logger)
	c.shutdownManager = core.NewShutdownManager(coreLogger, 30*time.Second)

	// Always try to read the config file, as there are options such as globals or some tasks that can be specified there and not in docker
	config, err := BuildFromFile(c.ConfigFile, coreLogger)
	if err != nil {
		c.Logger.Warn(fmt.Sprintf("Could not load config file %q: %v", c.ConfigFile, err))
		// Create an empty config if loading failed
		config = NewConfig(coreLogger)
	}
	c.applyOptions(config)
	c.applyConfigDefaults(config)

	c.pprofServer = &http.Server{
		Addr:              c.PprofAddr,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if c.LogLevel == "" {
		if err := ApplyLogLevel(config.Global.LogLevel, c.LevelVar); err != nil {
			c.Logger.Warn(fmt.Sprintf("Failed to apply config log level (using default): %v", err))
		}
	}

	err = config.InitializeApp()
	if err != nil {
		c.Logger.Error(fmt.Sprintf("Can't start the app: %v", err))
	}
	// Re-apply CLI/environment options so they override Docker labels
	c.applyOptions(config)
	c.scheduler = config.sh

	// Restore job history from saved files if configured
	c.restoreJobHistory(config)
	c.dockerHandler = config.dockerHandler
	c.config = config

	// Create graceful scheduler with shutdown support
	gracefulScheduler := core.NewGracefulScheduler(c.scheduler, c.shutdownManager)
	c.scheduler = gracefulScheduler.Scheduler

	// The Store-backed Job Scheduler/Sweeper run alongside the in-process
	// cron.Cron: an in-memory Store is always available so Unique-locking
	// and the dead-letter pipeline work even without an external backend
	// configured. Registry starts empty; INI/label-loaded jobs register
	// their Target closures with it as they're built.
	store := core.NewMemoryStore(core.NewRealClock())
	registry := core.NewRegistry()
	dispatcher := core.NewDispatcher(coreLogger, 10)
	coordinator := core.NewSingleNodeCoordinator(core.NewRealClock())
	c.supervisor = core.NewSupervisor(core.SupervisorConfig{
		Store:           store,
		Coordinator:     coordinator,
		Registry:        registry,
		Dispatcher:      dispatcher,
		Logger:          coreLogger,
		Clock:           core.NewRealClock(),
		NodeID:          "daemon",
		PollInterval:    time.Second,
		SweepInterval:   time.Minute,
		ShutdownTimeout: 30 * time.Second,
	})

	c.healthChecker = web.NewHealthChecker("1.0.0")
	c.healthChecker.Register("cron-scheduler", c.scheduler)
	c.healthChecker.Register("job-scheduler", c.supervisor)
	c.healthChecker.Register("dispatcher", dispatcher)

	if c.EnableWeb {
		mux := http.NewServeMux()
		mux.Handle("/healthz", c.healthChecker.LivenessHandler())
		mux.Handle("/readyz", c.healthChecker.ReadinessHandler())
		handler := web.SecurityHeaders(web.RateLimit(120, time.Minute, mux))
		c.healthServer = &http.Server{
			Addr:              c.WebAddr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		core.NewGracefulServer(c.healthServer, c.shutdownManager, coreLogger)
	}

	return err
}

func (c *DaemonCommand) start() error {
	// Start listening for shutdown signals
	c.shutdownManager.ListenForShutdown()

	// Set up a goroutine to close done channel when shutdown completes
	go func() {
		<-c.shutdownManager.ShutdownChan()
		// Give some time for graceful shutdown to complete
		// The shutdown manager handles the actual shutdown process
		close(c.done)
	}()

	// Start scheduler with progress feedback
	c.Logger.Info("Starting scheduler...")

	if err := c.scheduler.Start(); err != nil {
		c.Logger.Error("Failed to start scheduler")
		//nolint:revive // Error message intentionally verbose for UX (actionable troubleshooting hints)
		return fmt.Errorf("failed to start scheduler: %w\n  → Check all job schedules are valid cron expressions\n  → Verify no duplicate job names exist\n  → Use 'orbit validate --config=%q' to check configuration\n  → Check Docker daemon is running if using Docker jobs\n  → Review logs above for specific job errors", err, c.ConfigFile)
	}

	jobCount := 0
	if c.config != nil {
		jobCount = len(c.config.RunJobs) + len(c.config.LocalJobs) +
			len(c.config.ExecJobs) + len(c.config.ServiceJobs) + len(c.config.ComposeJobs)
	}
	c.Logger.Info("Scheduler started", "jobCount", jobCount)

	go c.supervisor.Start(context.Background())

	if c.EnablePprof {
		c.Logger.Info(fmt.Sprintf("Starting pprof server on %s...", c.PprofAddr))
		pprofErrChan := make(chan error, 1)
		go func() {
			if err := c.pprofServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				c.Logger.Error(fmt.Sprintf("Error starting HTTP server: %v", err))
				pprofErrChan <- err
				close(c.done)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := waitForServerWithErrChan(ctx, c.PprofAddr, pprofErrChan); err != nil {
			c.Logger.Error(fmt.Sprintf("pprof server failed to start: %v", err))
			return fmt.Errorf("pprof server startup failed: %w", err)
		}
		c.Logger.Info(fmt.Sprintf("pprof server ready on %s", c.PprofAddr))
	} else {
		c.Logger.Info("pprof server disabled")
	}

	if c.EnableWeb {
		c.Logger.Info(fmt.Sprintf("Starting health endpoints on %s...", c.WebAddr))
		healthErrChan := make(chan error, 1)
		go func() {
			if err := c.healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				c.Logger.Error(fmt.Sprintf("Error starting health server: %v", err))
				healthErrChan <- err
				close(c.done)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := waitForServerWithErrChan(ctx, c.WebAddr, healthErrChan); err != nil {
			c.Logger.Error(fmt.Sprintf("health server failed to start: %v", err))
			return fmt.Errorf("health server startup failed: %w", err)
		}
		c.Logger.Info(fmt.Sprintf("Health endpoints ready at http://%s/healthz and /readyz", c.WebAddr))
	} else {
		c.Logger.Info("health endpoints disabled")
	}

	c.Logger.Info("Orbit is now running. Press Ctrl+C to stop.")

	return nil
}

func (c *DaemonCommand) shutdown() error {
	<-c.done
	// Shutdown manager handles everything through registered hooks
	return nil
}

func (c *DaemonCommand) applyOptions(config *Config) {
	if config == nil {
		return
	}
	if len(c.DockerFilters) > 0 {
		config.Docker.Filters = c.DockerFilters
	}
	if c.DockerPollInterval != nil {
		config.Docker.PollInterval = *c.DockerPollInterval
	}
	if c.DockerUseEvents != nil {
		config.Docker.UseEvents = *c.DockerUseEvents
	}
	if c.DockerNoPoll != nil {
		config.Docker.DisablePolling = *c.DockerNoPoll
	}
	if c.DockerIncludeStopped != nil {
		config.Docker.IncludeStopped = *c.DockerIncludeStopped
	}

	c.applyWebOptions(config)
	c.applyServerOptions(config)
}

func (c *DaemonCommand) applyWebOptions(config *Config) {
	if c.EnableWeb {
		config.Global.EnableWeb = true
	}
	if c.WebAddr != ":8081" {
		config.Global.WebAddr = c.WebAddr
	}
}

func (c *DaemonCommand) applyServerOptions(config *Config) {
	if c.EnablePprof {
		config.Global.EnablePprof = true
	}
	if c.PprofAddr != "127.0.0.1:8080" {
		config.Global.PprofAddr = c.PprofAddr
	}
	if c.LogLevel != "" {
		config.Global.LogLevel = c.LogLevel
	}
}

// Config returns the active configuration used by the daemon.
func (c *DaemonCommand) Config() *Config {
	return c.config
}

func (c *DaemonCommand) applyConfigDefaults(config *Config) {
	c.applyWebDefaults(config)
	c.applyServerDefaults(config)
}

func (c *DaemonCommand) applyWebDefaults(config *Config) {
	if !c.EnableWeb {
		c.EnableWeb = config.Global.EnableWeb
	}
	if c.WebAddr == ":8081" && config.Global.WebAddr != "" {
		c.WebAddr = config.Global.WebAddr
	}
}

func (c *DaemonCommand) applyServerDefaults(config *Config) {
	if !c.EnablePprof {
		c.EnablePprof = config.Global.EnablePprof
	}
	if c.PprofAddr == "127.0.0.1:8080" && config.Global.PprofAddr != "" {
		c.PprofAddr = config.Global.PprofAddr
	}
}

// restoreJobHistory restores job history from saved files if configured.
func (c *DaemonCommand) restoreJobHistory(config *Config) {
	if !config.Global.SaveConfig.RestoreHistoryEnabled() {
		return
	}
	saveFolder := config.Global.SaveConfig.SaveFolder
	maxAge := config.Global.SaveConfig.GetRestoreHistoryMaxAge()
	if err := middlewares.RestoreHistory(saveFolder, maxAge, c.scheduler.Jobs, NewCoreLogger(c.Logger)); err != nil {
		c.Logger.Warn(fmt.Sprintf("Failed to restore job history: %v", err))
	}
}

func waitForServerWithErrChan(ctx context.Context, addr string, errChan <-chan error) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for server: %w", ctx.Err())
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server failed to start: %w", err)
			}
		case <-ticker.C:
			conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
			if err == nil {
				_ = conn.Close()
				return nil
			}
		}
	}
}
