// Package logging opens the file logger. The terminal belongs to the TUI, so
// nothing is ever logged to stdout or stderr while it runs.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// Disabled is the log path that turns logging off.
const Disabled = "-"

// Open creates a logger appending to path. The returned close function
// flushes and closes the file; it is safe to call when logging is disabled.
func Open(path string, level log.Level) (*log.Logger, func() error, error) {
	if path == "" || path == Disabled {
		return Discard(), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := New(f, level)
	logger.Info("conch started", "pid", os.Getpid())
	return logger, func() error {
		logger.Info("conch shutting down")
		return f.Close()
	}, nil
}

// New builds a logger writing to w.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// DefaultPath is $XDG_STATE_HOME/conch/conch.log, falling back to
// ~/.local/state.
func DefaultPath() string {
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		return filepath.Join(state, "conch", "conch.log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "conch.log")
	}
	return filepath.Join(home, ".local", "state", "conch", "conch.log")
}

// ParseLevel maps a level name to a log level, defaulting to info.
func ParseLevel(name string) log.Level {
	level, err := log.ParseLevel(name)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
