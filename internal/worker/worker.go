// Package worker implements the upload workers (C7): each runs a PopQueue/
// process loop against the scheduler, uploading either to a URL
// destination (multipart POST) or a local path destination (C2+C3),
// optionally wrapping the source through the C1 container.
package worker

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/kpcyrd/brchd/internal/crypto"
	"github.com/kpcyrd/brchd/internal/destwriter"
	"github.com/kpcyrd/brchd/internal/httpclient"
	"github.com/kpcyrd/brchd/internal/logging"
	"github.com/kpcyrd/brchd/internal/pathtemplate"
	"github.com/kpcyrd/brchd/internal/scheduler"
	"github.com/kpcyrd/brchd/internal/task"
)

// progressNotifyInterval bounds how often a worker reports UploadProgress,
// per §4.6.
const progressNotifyInterval = 250 * time.Millisecond

const uploadIDChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Config holds everything a worker needs that does not come from a task:
// where uploads go and how they are optionally encrypted.
type Config struct {
	// Destination is either an http(s) URL (multipart POST) or a local
	// filesystem root (path-template + destwriter).
	Destination string
	// PathTemplate is only used for a local path destination.
	PathTemplate string
	// RecipientPublicKey, if set, wraps every upload through C1.
	RecipientPublicKey *[crypto.KeySize]byte
	// SenderSecretKey, if set, authenticates the container to the
	// recipient; if nil an ephemeral keypair is used per file.
	SenderSecretKey *[crypto.KeySize]byte
}

// Worker consumes tasks from the scheduler until it signals shutdown.
type Worker struct {
	id     int
	sched  *scheduler.Scheduler
	fetch  *http.Client
	upload *http.Client
	cfg    Config
	logger *logging.Logger

	destIsURL bool
}

// New builds a worker from the two clients in internal/httpclient.Clients:
// fetch retries (used for an idempotent RemoteUrl GET), upload does not
// (its request body streams live off an io.Pipe and cannot be replayed
// without buffering the whole upload in memory). A local path destination
// uses neither.
func New(id int, sched *scheduler.Scheduler, clients *httpclient.Clients, cfg Config, logger *logging.Logger) *Worker {
	destIsURL := false
	if u, err := url.Parse(cfg.Destination); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		destIsURL = true
	}
	w := &Worker{
		id:        id,
		sched:     sched,
		cfg:       cfg,
		logger:    logger,
		destIsURL: destIsURL,
	}
	if clients != nil {
		w.fetch = clients.Fetch
		w.upload = clients.Upload
	}
	return w
}

// Run pops and processes tasks until the scheduler closes the worker's
// channel, per §4.6's "a worker exits when the scheduler-side channel
// closes."
func (w *Worker) Run(ctx context.Context) {
	for {
		t, ok := w.sched.PopQueue(ctx)
		if !ok {
			return
		}

		if err := w.process(ctx, t); err != nil {
			w.logger.Error().Err(err).Str("path", t.DisplayPath()).Int("worker", w.id).
				Msg("upload failed")
		}
	}
}

func (w *Worker) process(ctx context.Context, t task.Task) error {
	switch {
	case t.Local != nil:
		return w.processLocal(ctx, t.Local)
	case t.Remote != nil:
		return w.processRemote(ctx, t.Remote)
	default:
		return fmt.Errorf("task has neither a local nor a remote payload")
	}
}

// processLocal implements §4.6's LocalFile steps 1-2: sanitize the display
// path and open the resolved file.
func (w *Worker) processLocal(ctx context.Context, lf *task.LocalFile) error {
	label := sanitizeLabel(lf.DisplayPath)

	f, err := openLocal(lf)
	if err != nil {
		return err
	}
	defer f.Close()

	total, err := statSize(f)
	if err != nil {
		return err
	}

	return w.upload(ctx, label, f, total)
}

// processRemote implements the same contract for a RemoteUrl task,
// fetching the URL as the input stream instead of opening a local file —
// the symmetric branch the upstream source left as a TODO (§9).
func (w *Worker) processRemote(ctx context.Context, ru *task.RemoteURL) error {
	label := sanitizeLabel(ru.Path)

	body, total, err := w.fetchRemote(ctx, ru.URL)
	if err != nil {
		return err
	}
	defer body.Close()

	return w.upload(ctx, label, body, total)
}

func (w *Worker) fetchRemote(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building request for %s: %w", rawURL, err)
	}

	resp, err := w.fetch.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("fetching %s: unexpected status %s", rawURL, resp.Status)
	}

	return resp.Body, resp.ContentLength, nil
}

// upload implements §4.6 steps 3-7: optional encryption, id allocation,
// start/end notifications, and dispatch by destination kind.
func (w *Worker) upload(ctx context.Context, label string, r io.Reader, total int64) error {
	id, err := randomUploadID()
	if err != nil {
		return fmt.Errorf("allocating upload id: %w", err)
	}

	var filename *string
	if w.cfg.RecipientPublicKey != nil {
		name := filepath.Base(label)
		filename = &name

		enc, err := crypto.NewEncryptor(r, *w.cfg.RecipientPublicKey, w.cfg.SenderSecretKey, filename)
		if err != nil {
			return fmt.Errorf("setting up container for %s: %w", label, err)
		}
		if total >= 0 {
			hdrLen, err := crypto.SealedHeaderLen(filename)
			if err != nil {
				return fmt.Errorf("computing container overhead for %s: %w", label, err)
			}
			total = crypto.TotalWithOverhead(total, hdrLen)
		}
		r = enc
	}

	pr := newProgressReader(ctx, w.sched, id, r)

	w.sched.ReportProgress(ctx, scheduler.ProgressUpdate{ID: id, Label: label, Start: true, Total: total})
	defer w.sched.ReportProgress(ctx, scheduler.ProgressUpdate{ID: id, End: true})

	if w.destIsURL {
		return w.uploadToURL(ctx, label, pr)
	}
	return w.uploadToPath(label, pr)
}

// uploadToURL streams the (possibly encrypted) body into a single-part
// multipart POST without buffering it in memory, via an io.Pipe feeding
// the request body as the multipart writer is driven from a goroutine.
// This goes out on w.upload, the non-retrying client: retryablehttp would
// otherwise read the whole *io.PipeReader body into memory up front (it
// can only replay an io.ReadSeeker/*bytes.Buffer/*bytes.Reader/
// *strings.Reader on retry) before a single byte reached the network,
// silently defeating the streaming path.
func (w *Worker) uploadToURL(ctx context.Context, label string, r io.Reader) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", label)
		if err != nil {
			pw.CloseWithError(fmt.Errorf("creating multipart field: %w", err))
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(fmt.Errorf("streaming upload body: %w", err))
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.Destination, pr)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", label, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.upload.Do(req)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", label, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("uploading %s: unexpected status %s", label, resp.Status)
	}
	return nil
}

// uploadToPath feeds the body through C2+C3 into the destination tree.
func (w *Worker) uploadToPath(label string, r io.Reader) error {
	tctx := pathtemplate.NewContext(w.cfg.PathTemplate, "local", filepath.Base(label), label, label)

	handle, err := destwriter.Open(w.cfg.Destination, tctx)
	if err != nil {
		return fmt.Errorf("opening destination for %s: %w", label, err)
	}
	if err := handle.Save(r); err != nil {
		return fmt.Errorf("saving %s: %w", label, err)
	}
	return nil
}

// sanitizeLabel strips leading "../" segments iteratively; any remaining
// ".." elsewhere in the path is left as-is (§9 open question, resolved in
// favor of the source's existing behavior here — destwriter separately
// rejects any interior ".." before it ever touches the filesystem).
func sanitizeLabel(path string) string {
	for strings.HasPrefix(path, "../") {
		path = path[3:]
	}
	return path
}

func randomUploadID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 12)
	for i, b := range buf {
		out[i] = uploadIDChars[int(b)%len(uploadIDChars)]
	}
	return string(out), nil
}
