package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kpcyrd/brchd/internal/intake"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the intake server, accepting uploads into a templated destination tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Destination == "" {
				return fmt.Errorf("no destination (root directory) configured")
			}
			if cfg.BindAddr == "" {
				return fmt.Errorf("no bind_addr configured")
			}

			logger := GetLogger()
			srv := intake.New(cfg.BindAddr, intake.Config{
				Root:         cfg.Destination,
				PathTemplate: cfg.PathTemplate,
			}, logger)

			ctx := GetContext()
			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", cfg.BindAddr).Msg("intake server listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("intake server: %w", err)
				}
				return nil
			}
		},
	}
	return cmd
}
