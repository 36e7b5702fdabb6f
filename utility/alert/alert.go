package alert

import (
	"time"

	"crypto-collector/utility/logger"

	"github.com/getsentry/sentry-go"
)

var enabled bool

// Init configures error reporting; an empty dsn leaves reporting disabled
func Init(dsn, environment, serviceName string) {
	if dsn == "" {
		return
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		ServerName:  serviceName,
	}); err != nil {
		logger.Error("Could not initialise sentry : %s", err)
		return
	}
	enabled = true
}

// Capture reports an error swallowed by a background routine
func Capture(err error, tags map[string]string) {
	if !enabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}

// Flush waits for buffered events before shutdown
func Flush() {
	if enabled {
		sentry.Flush(2 * time.Second)
	}
}
