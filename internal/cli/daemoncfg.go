package cli

import (
	"fmt"

	"github.com/kpcyrd/brchd/internal/config"
	"github.com/kpcyrd/brchd/internal/crypto"
	"github.com/kpcyrd/brchd/internal/daemon"
	"github.com/kpcyrd/brchd/internal/httpclient"
	"github.com/kpcyrd/brchd/internal/worker"
)

// buildDaemonConfig translates a loaded Config into a daemon.Config,
// decoding the optional C1 keys shared by every command that starts a
// scheduler/worker pool (`daemon`, and standalone `enqueue`/`spider`).
func buildDaemonConfig(cfg *config.Config) (daemon.Config, error) {
	workerCfg := worker.Config{
		Destination:  cfg.Destination,
		PathTemplate: cfg.PathTemplate,
	}
	if cfg.PublicKey != "" {
		pk, err := crypto.DecodeKey(cfg.PublicKey)
		if err != nil {
			return daemon.Config{}, fmt.Errorf("decoding public_key: %w", err)
		}
		workerCfg.RecipientPublicKey = &pk
	}
	if cfg.SecretKey != "" {
		sk, err := crypto.DecodeKey(cfg.SecretKey)
		if err != nil {
			return daemon.Config{}, fmt.Errorf("decoding secret_key: %w", err)
		}
		workerCfg.SenderSecretKey = &sk
	}

	return daemon.Config{
		Concurrency: cfg.Concurrency,
		SocketPath:  cfg.SocketPath,
		Worker:      workerCfg,
		HTTP: httpclient.Options{
			ProxyURL:           cfg.ProxyURL,
			AcceptInvalidCerts: cfg.AcceptInvalidCerts,
		},
	}, nil
}
