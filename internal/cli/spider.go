package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/kpcyrd/brchd/internal/enumerate"
	"github.com/kpcyrd/brchd/internal/ipc"
	"github.com/kpcyrd/brchd/internal/task"
)

func newSpiderCmd() *cobra.Command {
	var standalone bool

	cmd := &cobra.Command{
		Use:   "spider <url>",
		Short: "crawl an HTTP directory listing and push every leaf file onto the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx := GetContext()
			crawl := func(push func(task.Task) error) error {
				return enumerate.Spider(ctx, http.DefaultClient, args[0], push)
			}

			if standalone {
				return runStandalone(ctx, cfg, GetLogger(), cmd.OutOrStdout(), crawl)
			}

			socketPath, err := ipc.ResolveClientPath(cfg.SocketPath)
			if err != nil {
				return fmt.Errorf("resolving ipc socket: %w", err)
			}
			client := ipc.NewClient(socketPath)

			push := func(t task.Task) error {
				if err := client.PushQueue(ctx, t); err != nil {
					return fmt.Errorf("pushing %s: %w", t.DisplayPath(), err)
				}
				fmt.Fprintf(os.Stdout, "queued %s\n", t.DisplayPath())
				return nil
			}

			return crawl(push)
		},
	}

	cmd.Flags().BoolVar(&standalone, "standalone", false, "run an in-process scheduler/worker pool instead of talking to a running daemon")
	return cmd
}
