package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is brchd's unified configuration, loadable from a TOML file and
// overridable by environment variables and CLI flags (§6.5), applied in
// the order flag > env var > config file > default.
//
//	destination = "https://intake.example.com/"
//	bind_addr = "127.0.0.1:8080"
//	concurrency = 3
//	socket_path = ""
//	path_template = "%Y/%m/%d/%f"
//	public_key = ""
//	secret_key = ""
//	proxy_url = ""
//	accept_invalid_certs = false
type Config struct {
	// Destination is the upload sink: an http(s):// URL or a local
	// filesystem path.
	Destination string `toml:"destination"`

	// BindAddr is the intake server's listen address (host:port).
	BindAddr string `toml:"bind_addr"`

	// Concurrency is the number of worker goroutines. Default 3.
	Concurrency int `toml:"concurrency"`

	// SocketPath is the IPC stream socket path. Empty means the default
	// search order in internal/ipc applies.
	SocketPath string `toml:"socket_path"`

	// PathTemplate is the C2 destination path template.
	PathTemplate string `toml:"path_template"`

	// PublicKey is the base64-encoded recipient public key (worker side).
	PublicKey string `toml:"public_key"`

	// SecretKey is the base64-encoded sender or recipient secret key.
	SecretKey string `toml:"secret_key"`

	// ProxyURL is an optional HTTP proxy for the worker's outbound client.
	ProxyURL string `toml:"proxy_url"`

	// AcceptInvalidCerts disables TLS certificate verification.
	AcceptInvalidCerts bool `toml:"accept_invalid_certs"`
}

// DefaultConcurrency is used when neither config nor flag sets Concurrency.
const DefaultConcurrency = 3

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Concurrency:  DefaultConcurrency,
		PathTemplate: "%f",
	}
}

// Load reads a TOML config file at path into a default Config. If path is
// empty, DefaultConfigPath is used. A missing file is not an error: New's
// defaults are returned as-is, matching the daemon's own
// load-missing-means-defaults behavior.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overlays the environment variable overrides from §6.5 onto cfg.
// Each only takes effect when set and non-empty; flag values are applied
// separately by the CLI layer after this call, so that a flag always wins.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("BRCHD_SOCK"); v != "" {
		c.SocketPath = v
	}
	if v := os.Getenv("BRCHD_PATH_FORMAT"); v != "" {
		c.PathTemplate = v
	}
	if v := os.Getenv("BRCHD_PUBKEY"); v != "" {
		c.PublicKey = v
	}
	if v := os.Getenv("BRCHD_SECKEY"); v != "" {
		c.SecretKey = v
	}
}

// ConfigPathFromEnv returns the BRCHD_CONFIG override, or "" if unset. The
// caller resolves the final path (flag > this > DefaultConfigPath) before
// calling Load.
func ConfigPathFromEnv() string {
	return os.Getenv("BRCHD_CONFIG")
}
