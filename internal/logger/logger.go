// Package logger builds the structured slog logger used across the service.
// All logs are written in JSON format to stderr and, when a log directory is
// configured, to a size-rotated file:
//
//	<logDir>/system.log
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxSizeMB  = 50
	maxBackups = 5
	maxAgeDays = 30
)

// New creates a JSON slog.Logger writing to w and, if logDir is non-empty,
// to <logDir>/system.log. The returned Closer releases the log file and is
// safe to call when no file is open.
func New(w io.Writer, logDir string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if w == nil {
		w = os.Stderr
	}
	if logDir == "" {
		return newJSON(w, level), nopCloser{}, nil
	}

	rotator, err := NewRotatingFile(logDir, "system.log")
	if err != nil {
		return nil, nil, err
	}
	return newJSON(io.MultiWriter(w, rotator), level), rotator, nil
}

// NewRotatingFile returns a lumberjack writer for <logDir>/<name>.
// The directory is created if it does not exist.
func NewRotatingFile(logDir, name string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return nil, fmt.Errorf("creating log directory %q: %w", logDir, err)
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(logDir, name),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}, nil
}

func newJSON(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
