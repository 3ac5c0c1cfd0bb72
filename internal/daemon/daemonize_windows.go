//go:build windows

package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/windows"
)

// PIDFilePath returns the path to the daemon's PID file.
func PIDFilePath() string {
	appData := os.Getenv("APPDATA")
	if appData == "" {
		return filepath.Join(os.TempDir(), "brchd.pid")
	}
	return filepath.Join(appData, "brchd", "daemon.pid")
}

// WritePIDFile writes the current process's PID to the PID file.
func WritePIDFile() error {
	pidPath := PIDFilePath()
	if err := os.MkdirAll(filepath.Dir(pidPath), 0700); err != nil {
		return fmt.Errorf("creating pid file directory: %w", err)
	}
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		return fmt.Errorf("writing pid file: %w", err)
	}
	return nil
}

// RemovePIDFile removes the PID file.
func RemovePIDFile() {
	os.Remove(PIDFilePath())
}

// ReadPIDFile reads the PID from the PID file, or 0 if absent or invalid.
func ReadPIDFile() int {
	data, err := os.ReadFile(PIDFilePath())
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0
	}
	return pid
}

// IsDaemonRunning returns the PID of a running daemon, or 0 if none.
// os.FindProcess always succeeds on Windows even for dead PIDs, so the
// actual check opens a handle via the Windows API.
func IsDaemonRunning() int {
	pid := ReadPIDFile()
	if pid == 0 {
		return 0
	}

	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		RemovePIDFile()
		return 0
	}
	windows.CloseHandle(handle)
	return pid
}

// Daemonize is unsupported on Windows: there is no fork/setsid equivalent,
// and the daemon command is expected to run under a Windows Service
// wrapper instead.
func Daemonize(args []string) error {
	return fmt.Errorf("daemonization is not supported on windows, run under a service manager instead")
}

// IsDaemonChild reports whether this process is the detached daemon child.
// Always false on Windows, since Daemonize never forks.
func IsDaemonChild() bool {
	return false
}
