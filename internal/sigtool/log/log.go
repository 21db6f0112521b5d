// Package log wires the process-wide slog default to the charm logger and
// guards goroutines against panics.
package log

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	charmlog "github.com/charmbracelet/log"

	"sigtool/internal/logging"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
)

// Setup routes slog through lg. Only the first call has an effect.
func Setup(lg *charmlog.Logger, debug bool) {
	initOnce.Do(func() {
		if debug {
			lg.SetLevel(charmlog.DebugLevel)
			lg.SetReportCaller(true)
		}
		slog.SetDefault(slog.New(lg))
		initialized.Store(true)
	})
}

// SetupDefault builds the logger from the environment, or from logFile when
// given, and installs it.
func SetupDefault(logFile string, debug bool) (*logging.LoggerCloser, error) {
	lg, err := logging.NewLogger(logFile)
	if err != nil {
		return nil, err
	}
	Setup(lg.Logger, debug || logging.IsDebug())
	return lg, nil
}

func Initialized() bool {
	return initialized.Load()
}

func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		if Initialized() {
			slog.Error(fmt.Sprintf("Panic in %s", name),
				"panic", r,
				"stack", string(debug.Stack()))
		}
		if cleanup != nil {
			cleanup()
		}
	}
}
