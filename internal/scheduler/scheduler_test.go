package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpcyrd/brchd/internal/status"
	"github.com/kpcyrd/brchd/internal/task"
)

func waitStatus(t *testing.T, ch <-chan status.Status, pred func(s status.Status) bool, timeout time.Duration) status.Status {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case s := <-ch:
			if pred(s) {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for expected status")
		}
	}
}

func TestTwoSubscribersPushAndDrain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := New(ctx, 2, nil)

	subA, err := sched.Subscribe(ctx)
	require.NoError(t, err)

	// Park both workers before any work arrives.
	go func() { sched.PopQueue(ctx) }()
	go func() { sched.PopQueue(ctx) }()

	waitStatus(t, subA, func(s status.Status) bool { return s.IdleWorkers == 2 }, time.Second)

	t1 := task.NewLocalFile("a.txt", "/tmp/a.txt", 10)
	t2 := task.NewLocalFile("b.txt", "/tmp/b.txt", 20)
	sched.PushQueue(ctx, t1)
	sched.PushQueue(ctx, t2)

	waitStatus(t, subA, func(s status.Status) bool { return s.IdleWorkers == 2 && s.QueueLength == 0 }, time.Second)
}

func TestFIFOOrderingOfQueuedTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := New(ctx, 1, nil)

	first := task.NewLocalFile("first.txt", "/tmp/first.txt", 1)
	second := task.NewLocalFile("second.txt", "/tmp/second.txt", 1)
	sched.PushQueue(ctx, first)
	sched.PushQueue(ctx, second)

	got1, ok := sched.PopQueue(ctx)
	require.True(t, ok)
	assert.Equal(t, "first.txt", got1.DisplayPath())

	got2, ok := sched.PopQueue(ctx)
	require.True(t, ok)
	assert.Equal(t, "second.txt", got2.DisplayPath())
}

func TestGracefulShutdownWaitsForDrain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := New(ctx, 1, nil)

	sched.PushQueue(ctx, task.NewLocalFile("a.txt", "/tmp/a.txt", 1))
	sched.Shutdown(ctx)

	select {
	case <-sched.Done():
		t.Fatal("scheduler must not terminate while queue is non-empty")
	case <-time.After(100 * time.Millisecond):
	}

	got, ok := sched.PopQueue(ctx)
	require.True(t, ok)
	assert.Equal(t, "a.txt", got.DisplayPath())

	_, ok = sched.PopQueue(ctx)
	assert.False(t, ok, "after drain and shutdown, PopQueue must report scheduler termination")

	select {
	case <-sched.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not terminate after drain")
	}
}

func TestShutdownWithNoWorkTerminatesImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := New(ctx, 0, nil)
	sched.Shutdown(ctx)

	select {
	case <-sched.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler with zero workers and no queue must terminate on Shutdown")
	}
}
