package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kpcyrd/brchd/internal/enumerate"
	"github.com/kpcyrd/brchd/internal/ipc"
	"github.com/kpcyrd/brchd/internal/task"
)

func newEnqueueCmd() *cobra.Command {
	var standalone bool

	cmd := &cobra.Command{
		Use:   "enqueue <path>...",
		Short: "walk local paths and push every file onto the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			walkAll := func(push func(task.Task) error) error {
				for _, root := range args {
					if err := enumerate.WalkLocal(root, push); err != nil {
						return err
					}
				}
				return nil
			}

			if standalone {
				return runStandalone(GetContext(), cfg, GetLogger(), cmd.OutOrStdout(), walkAll)
			}

			socketPath, err := ipc.ResolveClientPath(cfg.SocketPath)
			if err != nil {
				return fmt.Errorf("resolving ipc socket: %w", err)
			}
			client := ipc.NewClient(socketPath)
			ctx := GetContext()

			push := func(t task.Task) error {
				if err := client.PushQueue(ctx, t); err != nil {
					return fmt.Errorf("pushing %s: %w", t.DisplayPath(), err)
				}
				fmt.Fprintf(os.Stdout, "queued %s\n", t.DisplayPath())
				return nil
			}

			return walkAll(push)
		},
	}

	cmd.Flags().BoolVar(&standalone, "standalone", false, "run an in-process scheduler/worker pool instead of talking to a running daemon")
	return cmd
}
