// internal/recovery/recovery.go
package recovery

import (
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

// HandlePanic should be deferred at the top of main(). A panic anywhere in
// the codec indicates a programming defect, not a recoverable condition, so
// it is reported through the global logger with a stack trace and the
// process exits.
func HandlePanic() {
	if r := recover(); r != nil {
		report(r)
		os.Exit(1)
	}
}

// HandlePanicFunc is HandlePanic with a cleanup hook, for goroutines that
// hold resources (an open line, a playback device) that must be released
// before exiting.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		report(r)
		if cleanup != nil {
			cleanup()
		}
		os.Exit(1)
	}
}

func report(r any) {
	log.Error().
		Interface("panic", r).
		Str("stack", string(debug.Stack())).
		Msg("fatal panic")
}
