package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kpcyrd/brchd/internal/daemon"
)

func newDaemonCmd() *cobra.Command {
	var background bool
	var logFile string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "run the upload agent daemon (scheduler, workers, IPC listener)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if background {
				return daemon.Daemonize(os.Args)
			}

			logger := daemon.NewLogger(daemon.LogConfig{LogFile: logFile, Console: true})

			dcfg, err := buildDaemonConfig(cfg)
			if err != nil {
				return err
			}
			d := daemon.New(dcfg, logger)

			fmt.Fprintf(os.Stderr, "======================================\n")
			fmt.Fprintf(os.Stderr, " brchd daemon starting\n")
			fmt.Fprintf(os.Stderr, " destination:  %s\n", cfg.Destination)
			fmt.Fprintf(os.Stderr, " concurrency:  %d\n", cfg.Concurrency)
			fmt.Fprintf(os.Stderr, "======================================\n")

			ctx := GetContext()
			if err := d.Start(ctx); err != nil {
				return fmt.Errorf("starting daemon: %w", err)
			}

			<-ctx.Done()
			d.Stop(context.Background())
			return nil
		},
	}

	cmd.Flags().BoolVar(&background, "background", false, "detach and run in the background")
	cmd.Flags().StringVar(&logFile, "log-file", "", "rotate daemon logs to this file in addition to stderr")

	return cmd
}
