package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/kpcyrd/brchd/internal/config"
	"github.com/kpcyrd/brchd/internal/daemon"
	"github.com/kpcyrd/brchd/internal/logging"
	"github.com/kpcyrd/brchd/internal/statuswriter"
	"github.com/kpcyrd/brchd/internal/task"
)

// runStandalone implements `--standalone`: it starts a scheduler and
// worker pool in this process with no IPC listener (daemon.Config.NoIPC),
// runs enumerate against the in-process scheduler directly, then drains
// and shuts the pool down once enumeration has pushed everything it
// found. Used by both `enqueue --standalone` and `spider --standalone` so
// neither needs a separately running `brchd daemon`.
func runStandalone(ctx context.Context, cfg *config.Config, logger *logging.Logger, out io.Writer, enumerate func(push func(task.Task) error) error) error {
	dcfg, err := buildDaemonConfig(cfg)
	if err != nil {
		return err
	}
	dcfg.NoIPC = true

	d := daemon.New(dcfg, logger)
	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("starting standalone scheduler: %w", err)
	}

	statusCh, err := d.Scheduler().Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to standalone status: %w", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		sw := statuswriter.New(out)
		for st := range statusCh {
			sw.Render(st)
			if st.IsIdle() {
				return
			}
		}
	}()

	push := func(t task.Task) error {
		d.Scheduler().PushQueue(ctx, t)
		return nil
	}

	enumErr := enumerate(push)

	d.Stop(context.Background())
	<-done

	return enumErr
}
