package daemon

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kpcyrd/brchd/internal/logging"
)

// LogConfig configures where the daemon's structured logs go.
type LogConfig struct {
	// LogFile is the path to write rotated logs to. Empty disables file
	// logging.
	LogFile string

	// Console enables writing to stderr in addition to LogFile. Disabled
	// once Daemonize has detached from the controlling terminal.
	Console bool
}

// NewLogger builds a logging.Logger for daemon mode, writing to a rotating
// file (via lumberjack), to the console, or both, per cfg.
func NewLogger(cfg LogConfig) *logging.Logger {
	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, os.Stderr)
	}

	if cfg.LogFile != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	return logging.NewLogger("daemon", io.MultiWriter(writers...))
}
