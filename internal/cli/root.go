// Package cli provides the command-line interface for brchd.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kpcyrd/brchd/internal/config"
	"github.com/kpcyrd/brchd/internal/logging"
)

var (
	cfgFile            string
	destination        string
	bindAddr           string
	concurrency        int
	socketPath         string
	pathTemplate       string
	publicKey          string
	secretKey          string
	proxyURL           string
	acceptInvalidCerts bool
	verbose            bool

	logger *logging.Logger

	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// Version is set by main at build time.
var Version = "v0.0.0-dev"

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "brchd",
		Short: "brchd - a file-drop upload agent and intake server",
		Long: `brchd ` + Version + `

An upload agent (daemon plus enqueue client) that walks local paths or
spiders HTTP directory listings and streams files to a remote sink, and
an intake server that accepts multipart or raw-body uploads into a
templated destination tree. Payloads may be end-to-end encrypted with a
public-key authenticated streaming container.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (overrides BRCHD_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&destination, "destination", "", "upload destination: URL or local path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&bindAddr, "bind-addr", "", "intake server listen address (overrides config)")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 0, "worker concurrency, 0 = use config/default")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "IPC socket path (overrides BRCHD_SOCK)")
	rootCmd.PersistentFlags().StringVar(&pathTemplate, "path-template", "", "destination path template (overrides BRCHD_PATH_FORMAT)")
	rootCmd.PersistentFlags().StringVar(&publicKey, "public-key", "", "base64 recipient public key (overrides BRCHD_PUBKEY)")
	rootCmd.PersistentFlags().StringVar(&secretKey, "secret-key", "", "base64 secret key (overrides BRCHD_SECKEY)")
	rootCmd.PersistentFlags().StringVar(&proxyURL, "proxy-url", "", "HTTP proxy for outbound uploads")
	rootCmd.PersistentFlags().BoolVar(&acceptInvalidCerts, "accept-invalid-certs", false, "disable TLS certificate verification")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose (debug) logging")

	rootCmd.Version = Version
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(newCompletionCmd(rootCmd))

	return rootCmd
}

// Execute runs the CLI, returning once the command and any background
// work it started have finished.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nreceived signal %v, cancelling\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	if err != nil {
		printChainedError(os.Stderr, err)
	}

	return err
}

// printChainedError prints err's message, then each wrapped cause on its
// own line by walking errors.Unwrap, implementing the chained-cause
// error reporting this project's design requires.
func printChainedError(w *os.File, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(w, "  caused by: %v\n", cause)
	}
}

// AddCommands registers all subcommands on rootCmd.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newDaemonCmd())
	rootCmd.AddCommand(newEnqueueCmd())
	rootCmd.AddCommand(newSpiderCmd())
	rootCmd.AddCommand(newWaitCmd())
	rootCmd.AddCommand(newKeygenCmd())
	rootCmd.AddCommand(newEncryptCmd())
	rootCmd.AddCommand(newDecryptCmd())
	rootCmd.AddCommand(newServeCmd())
}

// GetLogger returns the global CLI logger, creating a default one if
// Execute has not run yet (e.g. under test).
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the signal-cancellable root context.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// loadConfig loads the effective Config: file, then §6.5 env vars, then
// any flags the user actually set (flag > env var > config file > default).
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.ConfigPathFromEnv()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyEnv()

	applyFlagOverrides(cmd, cfg)
	return cfg, nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("destination") {
		cfg.Destination = destination
	}
	if flags.Changed("bind-addr") {
		cfg.BindAddr = bindAddr
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = concurrency
	}
	if flags.Changed("socket") {
		cfg.SocketPath = socketPath
	}
	if flags.Changed("path-template") {
		cfg.PathTemplate = pathTemplate
	}
	if flags.Changed("public-key") {
		cfg.PublicKey = publicKey
	}
	if flags.Changed("secret-key") {
		cfg.SecretKey = secretKey
	}
	if flags.Changed("proxy-url") {
		cfg.ProxyURL = proxyURL
	}
	if flags.Changed("accept-invalid-certs") {
		cfg.AcceptInvalidCerts = acceptInvalidCerts
	}
}
