// Package logging holds the process-wide logger shared by the modelling
// packages. By default nothing is logged; embedders install a logger with
// SetLogger.
package logging

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// loggerPtr stores the active logger. Accessed atomically so SetLogger can
// race with logging from any goroutine.
var loggerPtr atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.Nop()
	loggerPtr.Store(&l)
}

// SetLogger configures the logger used by all modeller packages.
// Pass nil to restore the default silent logger.
//
// Levels in use:
//   - Debug: solver iteration summaries, feature tree recalculation walks
//   - Warn: non-fatal conditions (boolean fallback, unresolved variables)
//   - Info: CLI lifecycle events
func SetLogger(l *zerolog.Logger) {
	if l == nil {
		nop := zerolog.Nop()
		l = &nop
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger.
func Logger() *zerolog.Logger {
	return loggerPtr.Load()
}
