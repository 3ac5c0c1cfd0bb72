package ipc

import (
	"fmt"
	"os"
	"path/filepath"
)

// SystemSocketPath is the system-wide fallback socket location.
const SystemSocketPath = "/var/run/brchd/sock"

// UserSocketPath returns the per-user default socket path,
// <user config dir>/brchd/sock.
func UserSocketPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(dir, "brchd", "sock"), nil
}

// ResolveClientPath picks the socket path a client should dial: the
// explicit path if given, else the user path if it exists, else the
// system-wide path.
func ResolveClientPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	userPath, err := UserSocketPath()
	if err == nil {
		if _, statErr := os.Stat(userPath); statErr == nil {
			return userPath, nil
		}
	}

	if _, statErr := os.Stat(SystemSocketPath); statErr == nil {
		return SystemSocketPath, nil
	}

	if userPath != "" {
		return userPath, nil
	}
	return SystemSocketPath, nil
}

// ResolveServerPath picks the socket path a server should bind: the
// explicit path if given, else the user path.
func ResolveServerPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	return UserSocketPath()
}
