package scheduler

import (
	"github.com/kpcyrd/brchd/internal/status"
	"github.com/kpcyrd/brchd/internal/task"
)

// state is the scheduler's private data, touched only from the actor
// goroutine in run().
type state struct {
	queue      []task.Task
	queueBytes int64

	totalWorkers int
	idleWorkers  []chan<- task.Task

	subscribers []chan status.Status

	status            status.Status
	shutdownRequested bool
}

func (st *state) addSubscriber(ack chan<- subscription) {
	ch := make(chan status.Status, 8)
	ch <- st.status.Clone()
	st.subscribers = append(st.subscribers, ch)
	ack <- subscription{Updates: ch}
}

// popQueue implements PopQueue: serve the head of the queue to the caller
// if one exists, else park resp as an idle worker.
func (st *state) popQueue(resp chan<- task.Task) {
	if len(st.queue) > 0 {
		t := st.queue[0]
		st.queue = st.queue[1:]
		st.queueBytes -= t.Size()
		resp <- t
	} else {
		st.idleWorkers = append(st.idleWorkers, resp)
	}
	st.updateStats()
}

// pushQueue implements PushQueue: hand directly to the oldest parked
// worker, or append to the queue.
func (st *state) pushQueue(t task.Task) {
	if len(st.idleWorkers) > 0 {
		w := st.idleWorkers[0]
		st.idleWorkers = st.idleWorkers[1:]
		w <- t
	} else {
		st.queue = append(st.queue, t)
		st.queueBytes += t.Size()
	}
	st.updateStats()
}

func (st *state) fetchQueue(resp chan<- []task.Task) {
	out := make([]task.Task, len(st.queue))
	copy(out, st.queue)
	resp <- out
}

func (st *state) applyProgress(u ProgressUpdate) {
	switch {
	case u.Start:
		st.status.Progress[u.ID] = status.ProgressSlot{Label: u.Label, TotalBytes: u.Total}
	case u.End:
		delete(st.status.Progress, u.ID)
	default:
		st.status.Progress[u.ID] = status.ProgressSlot{
			Label:      u.Label,
			TotalBytes: u.Total,
			BytesRead:  u.BytesRead,
			SpeedBps:   u.SpeedBps,
		}
	}
	st.broadcastStatus()
}

func (st *state) updateStats() {
	st.status.IdleWorkers = len(st.idleWorkers)
	st.status.TotalWorkers = st.totalWorkers
	st.status.QueueLength = len(st.queue)
	st.status.QueueBytes = st.queueBytes
	st.broadcastStatus()
}

// broadcastStatus fans the current status out to every subscriber, dropping
// any whose channel is full (a stalled or dead consumer) rather than
// blocking the scheduler goroutine on it.
func (st *state) broadcastStatus() {
	snapshot := st.status.Clone()
	live := st.subscribers[:0]
	for _, ch := range st.subscribers {
		select {
		case ch <- snapshot:
			live = append(live, ch)
		default:
			close(ch)
		}
	}
	st.subscribers = live
}

func (st *state) broadcastPing() {
	// Pings double as subscriber liveness pruning: resending the current
	// status is enough, there is no separate Ping payload at this layer.
	st.broadcastStatus()
}

// shouldTerminate implements the graceful shutdown predicate. It must only
// be evaluated here, immediately after a command is processed, never after
// the periodic ping tick.
func (st *state) shouldTerminate() bool {
	return st.shutdownRequested && len(st.queue) == 0 && len(st.idleWorkers) == st.totalWorkers
}

// closeIdleWorkers unblocks every parked PopQueue call with ok=false so
// workers exit their loop instead of waiting forever.
func (st *state) closeIdleWorkers() {
	for _, w := range st.idleWorkers {
		close(w)
	}
	st.idleWorkers = nil
}
