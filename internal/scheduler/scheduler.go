// Package scheduler implements the single-goroutine actor (C6) that owns
// all queue and subscriber state. It is modeled on the daemon's Server/
// Command loop: every mutation happens on one goroutine that serializes
// its inbox, so no locks guard scheduler state.
package scheduler

import (
	"context"
	"time"

	"github.com/kpcyrd/brchd/internal/logging"
	"github.com/kpcyrd/brchd/internal/status"
	"github.com/kpcyrd/brchd/internal/task"
)

const pingInterval = 60 * time.Second

// ProgressUpdate is one progress event from a worker, folded into
// status.Status.Progress by the scheduler.
type ProgressUpdate struct {
	ID        string
	Label     string
	Start     bool // UploadStart: create the slot
	End       bool // UploadEnd: remove the slot
	Total     int64
	BytesRead int64
	SpeedBps  float64
}

// command is the scheduler's single inbound message type. Exactly one field
// is populated per command, mirroring the Rust Command enum's variants.
type command struct {
	subscribeAck chan<- subscription

	popQueue chan<- task.Task // worker requesting a task

	pushQueue *task.Task // enqueue a task

	fetchQueue chan<- []task.Task // snapshot request

	progress *ProgressUpdate

	shutdown bool
}

// subscription is returned to a Subscribe caller: the channel on which
// status broadcasts will arrive, and a stop func to unsubscribe.
type subscription struct {
	Updates <-chan status.Status
}

// Scheduler is the client handle into the running actor. All methods are
// safe to call concurrently; they only ever send on cmds.
type Scheduler struct {
	cmds   chan command
	done   chan struct{}
	logger *logging.Logger
}

// New starts the scheduler actor with totalWorkers parked slots expected
// and returns a handle. The actor goroutine runs until ctx is cancelled or
// it drains and terminates after Shutdown.
func New(ctx context.Context, totalWorkers int, logger *logging.Logger) *Scheduler {
	s := &Scheduler{
		cmds:   make(chan command, 64),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.run(ctx, totalWorkers)
	return s
}

// Done returns a channel closed once the actor goroutine has exited, either
// from context cancellation or a drained graceful shutdown.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Subscribe registers a new status subscriber and returns the channel it
// will receive broadcasts on, already primed with the current status.
func (s *Scheduler) Subscribe(ctx context.Context) (<-chan status.Status, error) {
	ack := make(chan subscription, 1)
	select {
	case s.cmds <- command{subscribeAck: ack}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case sub := <-ack:
		return sub.Updates, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PopQueue is called by a worker looking for its next task. It blocks until
// a task is assigned or ctx is cancelled; a closed return channel with ok
// false signals the scheduler has shut down and this worker should exit.
func (s *Scheduler) PopQueue(ctx context.Context) (task.Task, bool) {
	resp := make(chan task.Task, 1)
	select {
	case s.cmds <- command{popQueue: resp}:
	case <-ctx.Done():
		return task.Task{}, false
	}
	select {
	case t, ok := <-resp:
		return t, ok
	case <-ctx.Done():
		return task.Task{}, false
	}
}

// PushQueue enqueues a task, or hands it directly to a parked worker.
func (s *Scheduler) PushQueue(ctx context.Context, t task.Task) {
	select {
	case s.cmds <- command{pushQueue: &t}:
	case <-ctx.Done():
	}
}

// FetchQueue snapshots the current queue contents.
func (s *Scheduler) FetchQueue(ctx context.Context) ([]task.Task, error) {
	resp := make(chan []task.Task, 1)
	select {
	case s.cmds <- command{fetchQueue: resp}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case tasks := <-resp:
		return tasks, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReportProgress forwards a worker's progress event.
func (s *Scheduler) ReportProgress(ctx context.Context, u ProgressUpdate) {
	select {
	case s.cmds <- command{progress: &u}:
	case <-ctx.Done():
	}
}

// Shutdown requests a graceful drain: queued tasks are still served to
// workers, but once the queue is empty and every worker has gone idle, the
// actor terminates and subsequent PopQueue calls return ok=false.
func (s *Scheduler) Shutdown(ctx context.Context) {
	select {
	case s.cmds <- command{shutdown: true}:
	case <-ctx.Done():
	}
}

// run is the actor loop: the only place scheduler state is touched.
func (s *Scheduler) run(ctx context.Context, totalWorkers int) {
	defer close(s.done)

	st := &state{
		totalWorkers: totalWorkers,
		status: status.Status{
			TotalWorkers: totalWorkers,
			Progress:     map[string]status.ProgressSlot{},
		},
	}

	timer := time.NewTimer(pingInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			st.broadcastPing()
			timer.Reset(pingInterval)
		case cmd := <-s.cmds:
			timer.Reset(pingInterval)
			s.handle(st, cmd)
			if st.shouldTerminate() {
				st.closeIdleWorkers()
				return
			}
		}
	}
}

func (s *Scheduler) handle(st *state, cmd command) {
	switch {
	case cmd.subscribeAck != nil:
		st.addSubscriber(cmd.subscribeAck)
	case cmd.popQueue != nil:
		st.popQueue(cmd.popQueue)
	case cmd.pushQueue != nil:
		st.pushQueue(*cmd.pushQueue)
	case cmd.fetchQueue != nil:
		st.fetchQueue(cmd.fetchQueue)
	case cmd.progress != nil:
		st.applyProgress(*cmd.progress)
	case cmd.shutdown:
		st.shutdownRequested = true
		st.broadcastStatus()
		if s.logger != nil {
			s.logger.Debug().Msg("shutdown requested, draining queue")
		}
	}
}
