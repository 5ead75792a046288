// logging.go - structured logging integration via logiface.
//
// Channels log through a *logiface.Logger[logiface.Event], injectable per
// channel via WithLogger. The package default writes JSON to stderr at
// warning level (stumpy backend) so that unhandled pipeline exceptions are
// reported somewhere even with zero configuration.

package netpipe

import (
	"os"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

var packageLogger atomic.Pointer[logiface.Logger[logiface.Event]]

func init() {
	packageLogger.Store(newStderrLogger())
}

// SetDefaultLogger replaces the package default logger used by channels
// constructed without [WithLogger]. A nil logger disables default
// logging; channels already constructed are unaffected.
func SetDefaultLogger(logger *logiface.Logger[logiface.Event]) {
	packageLogger.Store(logger)
}

// defaultLogger returns the current package default logger, possibly nil.
func defaultLogger() *logiface.Logger[logiface.Event] {
	return packageLogger.Load()
}

// newStderrLogger builds the zero-configuration sink: stumpy JSON to
// stderr, warning level and above.
func newStderrLogger() *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(os.Stderr)),
		stumpy.L.WithLevel(logiface.LevelWarning),
	).Logger()
}
