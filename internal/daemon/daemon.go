// Package daemon wires together the agent's process topology (§5): one
// scheduler actor, N upload workers, and — unless running standalone — an
// IPC listener, started and stopped as a unit.
package daemon

import (
	"context"
	"fmt"
	"sync"

	"github.com/kpcyrd/brchd/internal/httpclient"
	"github.com/kpcyrd/brchd/internal/ipc"
	"github.com/kpcyrd/brchd/internal/logging"
	"github.com/kpcyrd/brchd/internal/scheduler"
	"github.com/kpcyrd/brchd/internal/worker"
)

// Config holds everything the daemon needs to start its worker pool and,
// unless NoIPC is set, its IPC listener.
type Config struct {
	// Concurrency is the number of worker goroutines. Default 3 (§5).
	Concurrency int

	// SocketPath is the IPC socket path; empty uses internal/ipc's
	// default server-side search order. Unused when NoIPC is set.
	SocketPath string

	// NoIPC runs the scheduler and worker pool with no IPC listener, for
	// `brchd enqueue --standalone`/`brchd spider --standalone`: the
	// caller pushes tasks directly through Scheduler() in the same
	// process instead of over a socket to a separately running daemon.
	NoIPC bool

	Worker worker.Config
	HTTP   httpclient.Options
}

// Daemon owns the scheduler, the worker pool, and (unless running
// standalone) the IPC listener as a single startable/stoppable unit,
// grounded on the teacher's Start/Stop/sync.WaitGroup shutdown
// coordination shape (not its job-polling content).
type Daemon struct {
	cfg    Config
	logger *logging.Logger

	sched     *scheduler.Scheduler
	ipcServer *ipc.Server

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a daemon instance; it does not start anything yet.
func New(cfg Config, logger *logging.Logger) *Daemon {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	return &Daemon{cfg: cfg, logger: logger}
}

// Start launches the scheduler, the configured number of workers, and —
// unless cfg.NoIPC is set — the IPC listener, returning once the listener
// is bound. It returns an error satisfying brchderr's fatal-startup class
// on a bind failure.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()

	d.logger.Info().
		Int("concurrency", d.cfg.Concurrency).
		Str("destination", d.cfg.Worker.Destination).
		Bool("standalone", d.cfg.NoIPC).
		Msg("daemon starting")

	d.sched = scheduler.New(runCtx, d.cfg.Concurrency, d.logger)

	clients, err := httpclient.New(d.cfg.HTTP, d.logger)
	if err != nil {
		cancel()
		return fmt.Errorf("building http clients: %w", err)
	}

	d.startWorkers(runCtx, clients)

	if d.cfg.NoIPC {
		return nil
	}

	socketPath, err := ipc.ResolveServerPath(d.cfg.SocketPath)
	if err != nil {
		cancel()
		return fmt.Errorf("resolving ipc socket path: %w", err)
	}

	d.ipcServer = ipc.NewServer(d.sched, d.logger, socketPath)
	if err := d.ipcServer.Start(); err != nil {
		cancel()
		return fmt.Errorf("starting ipc listener: %w", err)
	}

	return nil
}

func (d *Daemon) startWorkers(ctx context.Context, clients *httpclient.Clients) {
	for i := 0; i < d.cfg.Concurrency; i++ {
		w := worker.New(i, d.sched, clients, d.cfg.Worker, d.logger)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			w.Run(ctx)
		}()
	}
}

// Stop requests a graceful shutdown: the scheduler drains its queue, every
// worker finishes its current task and exits, then the IPC listener (if
// running) is torn down.
func (d *Daemon) Stop(ctx context.Context) {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info().Msg("daemon stopping")

	d.sched.Shutdown(ctx)
	<-d.sched.Done()
	d.wg.Wait()

	if d.ipcServer != nil {
		d.ipcServer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
	}

	d.logger.Info().Msg("daemon stopped")
}

// IsRunning reports whether the daemon is currently started.
func (d *Daemon) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Scheduler exposes the running scheduler handle. Standalone mode
// (Config.NoIPC) enqueues directly through this handle rather than over
// IPC; it is also used by `brchd wait` style status subscriptions when
// running in the same process as the caller.
func (d *Daemon) Scheduler() *scheduler.Scheduler {
	return d.sched
}

// Wait blocks until the scheduler actor has exited, either from context
// cancellation or a completed graceful Stop.
func (d *Daemon) Wait() {
	<-d.sched.Done()
	d.wg.Wait()
}
