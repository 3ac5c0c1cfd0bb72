package ipc

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpcyrd/brchd/internal/logging"
	"github.com/kpcyrd/brchd/internal/scheduler"
	"github.com/kpcyrd/brchd/internal/status"
	"github.com/kpcyrd/brchd/internal/task"
)

func startTestServer(t *testing.T) (*Server, string, *scheduler.Scheduler, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sched := scheduler.New(ctx, 1, logging.NewDefaultCLILogger())
	sock := filepath.Join(t.TempDir(), "brchd.sock")
	srv := NewServer(sched, logging.NewDefaultCLILogger(), sock)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)

	return srv, sock, sched, ctx
}

func TestPushAndFetchQueue(t *testing.T) {
	_, sock, _, ctx := startTestServer(t)
	client := NewClient(sock)

	require.NoError(t, client.PushQueue(ctx, task.NewLocalFile("a.txt", "/tmp/a.txt", 5)))

	var tasks []task.Task
	require.Eventually(t, func() bool {
		var err error
		tasks, err = client.FetchQueue(ctx)
		return err == nil && len(tasks) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, "a.txt", tasks[0].DisplayPath())
}

func TestSubscribeReceivesStatusOnPush(t *testing.T) {
	_, sock, _, ctx := startTestServer(t)
	client := NewClient(sock)

	updates, err := client.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, client.PushQueue(ctx, task.NewLocalFile("b.txt", "/tmp/b.txt", 1)))

	deadline := time.After(time.Second)
	for {
		select {
		case st := <-updates:
			if st.QueueLength == 1 || st.IdleWorkers == 0 {
				return
			}
		case <-deadline:
			t.Fatal("subscriber never observed the pushed task")
		}
	}
}

func TestUnexpectedMessageClosesConnection(t *testing.T) {
	_, sock, _, ctx := startTestServer(t)
	client := NewClient(sock)

	conn, err := client.dial(ctx)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, WriteMessage(conn, StatusResp(status.Status{})))

	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = conn.Read(buf)
	assert.Error(t, err, "server must close the connection on an unexpected message type")
}
