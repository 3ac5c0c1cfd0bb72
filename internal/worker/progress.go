package worker

import (
	"context"
	"io"
	"time"

	"github.com/kpcyrd/brchd/internal/scheduler"
)

// progressReader wraps an upload's source reader, counting bytes and
// reporting UploadProgress to the scheduler no more often than every
// progressNotifyInterval, mirroring uploader.rs's Upload<R> wrapper.
type progressReader struct {
	ctx     context.Context
	sched   *scheduler.Scheduler
	id      string
	inner   io.Reader
	read    int64
	started time.Time
	last    time.Time
}

func newProgressReader(ctx context.Context, sched *scheduler.Scheduler, id string, inner io.Reader) *progressReader {
	now := time.Now()
	return &progressReader{ctx: ctx, sched: sched, id: id, inner: inner, started: now, last: now}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.inner.Read(buf)
	if n > 0 {
		p.read += int64(n)
		p.maybeNotify()
	}
	return n, err
}

func (p *progressReader) maybeNotify() {
	now := time.Now()
	if now.Sub(p.last) < progressNotifyInterval {
		return
	}
	p.last = now

	secs := int64(now.Sub(p.started).Seconds())
	if secs < 1 {
		secs = 1
	}
	speed := float64(p.read) / float64(secs)

	p.sched.ReportProgress(p.ctx, scheduler.ProgressUpdate{
		ID:        p.id,
		BytesRead: p.read,
		SpeedBps:  speed,
	})
}
