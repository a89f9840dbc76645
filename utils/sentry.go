package utils

import (
	"time"

	"github.com/getsentry/sentry-go"
)

var sentryEnabled bool

// InitSentry enables error capture when a DSN is configured.
func InitSentry(dsn, environment string) {
	if dsn == "" {
		Logger.Info("SENTRY_DSN not set, Sentry disabled")
		return
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		Logger.Warnf("Sentry initialization failed: %v", err)
		return
	}

	sentryEnabled = true
	Logger.Info("Sentry initialized successfully")
}

// CaptureError reports err to Sentry with optional tags.
func CaptureError(err error, tags map[string]string) {
	if !sentryEnabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// FlushSentry waits for buffered events before shutdown.
func FlushSentry(timeout time.Duration) {
	if !sentryEnabled {
		return
	}
	sentry.Flush(timeout)
}
