// Package logging provides structured logging with file output support.
// It uses environment variables for configuration and supports file cleanup.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/xyproto/env/v2"
)

// LoggerCloser wraps a logger and provides a Close method for cleanup
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close closes the underlying writer if it's closeable
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// ParseLevel maps a level name onto a charmbracelet level, defaulting to
// info.
func ParseLevel(name string) log.Level {
	switch name {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	}
	return log.InfoLevel
}

// NewLoggerWithWriter creates a new logger with the provided writer
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	lg.SetLevel(ParseLevel(env.Str("SIGTOOL_LOG_LEVEL")))

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr && w != os.Stdout {
		closer = c
	}

	return &LoggerCloser{
		Logger: lg.WithPrefix(env.Str("SIGTOOL_LOG_PREFIX", "sigtool")),
		closer: closer,
	}
}

// NewLogger creates a logger writing to logFile, or to stderr when logFile
// is empty. Environment variables:
// SIGTOOL_LOG_LEVEL: debug, info, warn, error (default: info)
// SIGTOOL_LOG_PREFIX: prefix for log messages (default: "sigtool")
// SIGTOOL_LOG_TO_FILE: when set to "1" and no file is given, logs to a
// timestamped file in the working directory
func NewLogger(logFile string) (*LoggerCloser, error) {
	if logFile == "" && env.Str("SIGTOOL_LOG_TO_FILE") == "1" {
		logFile = fmt.Sprintf("sigtool-%s-debug.log", time.Now().Format("20060102-150405"))
	}
	if logFile == "" {
		return NewLoggerWithWriter(os.Stderr), nil
	}

	f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return NewLoggerWithWriter(f), nil
}

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return env.Str("SIGTOOL_LOG_LEVEL") == "debug"
}
