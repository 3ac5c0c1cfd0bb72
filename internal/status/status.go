// Package status holds the aggregated snapshot type broadcast from the
// scheduler to IPC subscribers and rendered by the CLI status writer (C10).
package status

// ProgressSlot is one active upload's progress, keyed by a random upload id
// in Status.Progress.
type ProgressSlot struct {
	Label      string  `json:"label"`
	BytesRead  int64   `json:"bytes_read"`
	TotalBytes int64   `json:"total_bytes"`
	SpeedBps   float64 `json:"speed_bps"`
}

// Status is the scheduler's full state snapshot. It is copied by value into
// every broadcast; callers must not retain the Progress map across calls
// without cloning it first.
type Status struct {
	IdleWorkers  int                     `json:"idle_workers"`
	TotalWorkers int                     `json:"total_workers"`
	QueueLength  int                     `json:"queue_length"`
	QueueBytes   int64                   `json:"queue_bytes"`
	Progress     map[string]ProgressSlot `json:"progress"`
}

// IsIdle reports whether the scheduler has no queued work and every worker
// is parked, the "become idle" edge the status writer always renders.
func (s Status) IsIdle() bool {
	return s.QueueLength == 0 && s.IdleWorkers == s.TotalWorkers
}

// Clone returns a deep copy safe to hand to a broadcast goroutine.
func (s Status) Clone() Status {
	out := s
	out.Progress = make(map[string]ProgressSlot, len(s.Progress))
	for k, v := range s.Progress {
		out.Progress[k] = v
	}
	return out
}
