package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kpcyrd/brchd/internal/ipc"
	"github.com/kpcyrd/brchd/internal/statuswriter"
)

func newWaitCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "block until the daemon's queue and all workers are idle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			socketPath, err := ipc.ResolveClientPath(cfg.SocketPath)
			if err != nil {
				return fmt.Errorf("resolving ipc socket: %w", err)
			}

			ctx := GetContext()
			client := ipc.NewClient(socketPath)
			statusCh, err := client.Subscribe(ctx)
			if err != nil {
				return fmt.Errorf("subscribing to daemon status: %w", err)
			}

			var sw *statuswriter.Writer
			if !quiet {
				sw = statuswriter.New(cmd.OutOrStdout())
			}

			for st := range statusCh {
				if sw != nil {
					sw.Render(st)
				}
				if st.IsIdle() {
					return nil
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "don't print progress while waiting")
	return cmd
}
