package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpcyrd/brchd/internal/ipc"
	"github.com/kpcyrd/brchd/internal/logging"
	"github.com/kpcyrd/brchd/internal/task"
	"github.com/kpcyrd/brchd/internal/worker"
)

func TestDaemonRunsEnqueueUploadToPathDestination(t *testing.T) {
	destRoot := t.TempDir()
	socketPath := filepath.Join(t.TempDir(), "brchd.sock")

	logger := logging.NewDefaultCLILogger()
	d := New(Config{
		Concurrency: 2,
		SocketPath:  socketPath,
		Worker: worker.Config{
			Destination:  destRoot,
			PathTemplate: "%f",
		},
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, d.Start(ctx))
	defer d.Stop(context.Background())

	srcPath := filepath.Join(t.TempDir(), "payload.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("daemon integration payload"), 0644))

	client := ipc.NewClient(socketPath)
	pushCtx, pushCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer pushCancel()

	info, err := os.Stat(srcPath)
	require.NoError(t, err)
	lf := task.NewLocalFile(srcPath, srcPath, info.Size())
	require.NoError(t, client.PushQueue(pushCtx, lf))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(filepath.Join(destRoot, "payload.txt")); err == nil {
			assert.Equal(t, "daemon integration payload", string(data))
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("timed out waiting for uploaded file to appear in destination")
}

func TestDaemonStartTwiceFails(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "brchd.sock")
	d := New(Config{SocketPath: socketPath, Worker: worker.Config{Destination: t.TempDir()}}, logging.NewDefaultCLILogger())

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))
	defer d.Stop(context.Background())

	assert.Error(t, d.Start(ctx))
}
