package errors

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryConfig holds configuration for Sentry integration.
type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	ServerName       string
	Debug            bool
	AttachStacktrace bool
}

// DefaultSentryConfig returns a Sentry configuration from the environment.
func DefaultSentryConfig() *SentryConfig {
	return &SentryConfig{
		DSN:              os.Getenv("SENTRY_DSN"),
		Environment:      os.Getenv("ENVIRONMENT"),
		Release:          os.Getenv("SENTRY_RELEASE"),
		ServerName:       os.Getenv("SERVICE_NAME"),
		Debug:            os.Getenv("SENTRY_DEBUG") == "true",
		AttachStacktrace: true,
	}
}

// InitSentry initializes the Sentry SDK with the given configuration.
func InitSentry(config *SentryConfig) error {
	if config.DSN == "" {
		return fmt.Errorf("sentry DSN is not configured")
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              config.DSN,
		Environment:      config.Environment,
		Release:          config.Release,
		ServerName:       config.ServerName,
		Debug:            config.Debug,
		AttachStacktrace: config.AttachStacktrace,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			// Validation failures and lease contention are expected traffic.
			if event.Level == sentry.LevelInfo || event.Level == sentry.LevelDebug {
				return nil
			}
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return nil
}

// CaptureError reports an error to Sentry with optional tags.
func CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush flushes the Sentry buffer.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}
