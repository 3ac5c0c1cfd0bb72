package worker

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpcyrd/brchd/internal/crypto"
	"github.com/kpcyrd/brchd/internal/httpclient"
	"github.com/kpcyrd/brchd/internal/logging"
	"github.com/kpcyrd/brchd/internal/scheduler"
	"github.com/kpcyrd/brchd/internal/task"
)

func testWorker(t *testing.T, cfg Config) (*Worker, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sched := scheduler.New(ctx, 1, logging.NewDefaultCLILogger())
	clients, err := httpclient.New(httpclient.Options{}, nil)
	require.NoError(t, err)
	return New(0, sched, clients, cfg, logging.NewDefaultCLILogger()), ctx
}

func TestSanitizeLabelStripsLeadingTraversal(t *testing.T) {
	assert.Equal(t, "etc/passwd", sanitizeLabel("../../etc/passwd"))
	assert.Equal(t, "a/../b", sanitizeLabel("a/../b"), "interior .. is left alone")
}

func TestProcessLocalUploadsToURLDestination(t *testing.T) {
	var gotFilename string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mr, err := r.MultipartReader()
		require.NoError(t, err)
		part, err := mr.NextPart()
		require.NoError(t, err)
		gotFilename = part.FileName()
		gotBody, err = io.ReadAll(part)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	src := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello world"), 0o644))

	w, ctx := testWorker(t, Config{Destination: srv.URL})
	err := w.processLocal(ctx, &task.LocalFile{DisplayPath: "report.txt", ResolvedPath: src, Size: 11})
	require.NoError(t, err)

	assert.Equal(t, "report.txt", gotFilename)
	assert.Equal(t, "hello world", string(gotBody))
}

func TestProcessLocalUploadsToPathDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	destRoot := t.TempDir()
	w, ctx := testWorker(t, Config{Destination: destRoot, PathTemplate: "%f"})
	err := w.processLocal(ctx, &task.LocalFile{DisplayPath: "src.txt", ResolvedPath: src, Size: 7})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(destRoot, "src.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestProcessRemoteFetchesThenUploads(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote content"))
	}))
	defer source.Close()

	var gotBody []byte
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mr, err := r.MultipartReader()
		require.NoError(t, err)
		part, err := mr.NextPart()
		require.NoError(t, err)
		gotBody, err = io.ReadAll(part)
		require.NoError(t, err)
	}))
	defer sink.Close()

	w, ctx := testWorker(t, Config{Destination: sink.URL})
	err := w.processRemote(ctx, &task.RemoteURL{Path: "dir/file.bin", URL: source.URL})
	require.NoError(t, err)

	assert.Equal(t, "remote content", string(gotBody))
}

func TestProcessLocalFailureIsNonFatal(t *testing.T) {
	w, ctx := testWorker(t, Config{Destination: t.TempDir(), PathTemplate: "%f"})
	err := w.processLocal(ctx, &task.LocalFile{DisplayPath: "missing.txt", ResolvedPath: "/nonexistent/missing.txt"})
	assert.Error(t, err)
}

func TestEncryptedUploadDecryptsBackToOriginal(t *testing.T) {
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)

	dir := t.TempDir()
	src := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(src, []byte("sensitive payload"), 0o644))

	destRoot := t.TempDir()
	w, ctx := testWorker(t, Config{
		Destination:        destRoot,
		PathTemplate:       "%f",
		RecipientPublicKey: &kp.Public,
	})
	require.NoError(t, w.processLocal(ctx, &task.LocalFile{DisplayPath: "secret.txt", ResolvedPath: src, Size: 18}))

	f, err := os.Open(filepath.Join(destRoot, "secret.txt"))
	require.NoError(t, err)
	defer f.Close()

	dec, err := crypto.NewDecryptor(f, kp.Secret, nil)
	require.NoError(t, err)
	plain, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, "sensitive payload", string(plain))
}
