package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewHasDefaults(t *testing.T) {
	cfg := New()
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", cfg.Concurrency, DefaultConcurrency)
	}
	if cfg.PathTemplate != "%f" {
		t.Errorf("PathTemplate = %q, want %q", cfg.PathTemplate, "%f")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want default %d", cfg.Concurrency, DefaultConcurrency)
	}
}

func TestLoadParsesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
destination = "https://intake.example.com/"
bind_addr = "0.0.0.0:9000"
concurrency = 7
path_template = "%Y/%m/%f"
accept_invalid_certs = true
`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Destination != "https://intake.example.com/" {
		t.Errorf("Destination = %q", cfg.Destination)
	}
	if cfg.BindAddr != "0.0.0.0:9000" {
		t.Errorf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.Concurrency != 7 {
		t.Errorf("Concurrency = %d, want 7", cfg.Concurrency)
	}
	if cfg.PathTemplate != "%Y/%m/%f" {
		t.Errorf("PathTemplate = %q", cfg.PathTemplate)
	}
	if !cfg.AcceptInvalidCerts {
		t.Error("AcceptInvalidCerts = false, want true")
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed TOML")
	}
}

func TestApplyEnvOverridesOnlySetVars(t *testing.T) {
	t.Setenv("BRCHD_SOCK", "/tmp/brchd.sock")
	t.Setenv("BRCHD_PATH_FORMAT", "%r")
	t.Setenv("BRCHD_PUBKEY", "")
	t.Setenv("BRCHD_SECKEY", "")

	cfg := New()
	cfg.PublicKey = "existing-pubkey"
	cfg.ApplyEnv()

	if cfg.SocketPath != "/tmp/brchd.sock" {
		t.Errorf("SocketPath = %q", cfg.SocketPath)
	}
	if cfg.PathTemplate != "%r" {
		t.Errorf("PathTemplate = %q", cfg.PathTemplate)
	}
	if cfg.PublicKey != "existing-pubkey" {
		t.Errorf("PublicKey was overwritten by an empty env var: %q", cfg.PublicKey)
	}
}

func TestConfigPathFromEnv(t *testing.T) {
	t.Setenv("BRCHD_CONFIG", "/etc/brchd/config.toml")
	if got := ConfigPathFromEnv(); got != "/etc/brchd/config.toml" {
		t.Errorf("ConfigPathFromEnv() = %q", got)
	}
}
