package bugsink

import (
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
)

var (
	initialized bool
	enabled     bool
)

// Config carries the error tracking settings.
type Config struct {
	Enabled     bool
	DSN         string
	Environment string
	Release     string
}

// Init sets up BugSink error tracking. Disabled or DSN-less configs are not
// an error, tracking is just off.
func Init(cfg Config) error {
	if !cfg.Enabled {
		log.Println("[BugSink] Error tracking is disabled")
		enabled = false
		return nil
	}

	if cfg.DSN == "" {
		log.Println("[BugSink] DSN not provided, disabling error tracking")
		enabled = false
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Debug:            cfg.Environment == "development",
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		AttachStacktrace: true,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if event.Tags == nil {
				event.Tags = make(map[string]string)
			}
			event.Tags["service"] = "cpgram-backend"
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize BugSink: %w", err)
	}

	initialized = true
	enabled = true
	log.Println("[BugSink] Error tracking initialized")
	return nil
}

// IsEnabled reports whether tracking is active.
func IsEnabled() bool {
	return enabled && initialized
}

// CaptureError reports an error with additional context.
func CaptureError(err error, context map[string]interface{}) {
	if !IsEnabled() {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		for key, value := range context {
			scope.SetContext(key, map[string]interface{}{key: value})
		}
		scope.SetLevel(sentry.LevelError)
		sentry.CaptureException(err)
	})
}

// Recover captures a panic without re-panicking. Used in scheduler sweeps.
func Recover() {
	if err := recover(); err != nil {
		if IsEnabled() {
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetLevel(sentry.LevelFatal)
				scope.SetContext("panic", map[string]interface{}{
					"recovered_value": fmt.Sprintf("%v", err),
				})
				sentry.CaptureException(fmt.Errorf("panic recovered: %v", err))
			})
		}

		log.Printf("[BugSink] Panic recovered and reported: %v", err)
	}
}

// SetUser attaches user context to subsequent reports.
func SetUser(userID int64, username string) {
	if !IsEnabled() {
		return
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{
			ID:       fmt.Sprintf("%d", userID),
			Username: username,
		})
	})
}

// Flush drains pending events, returning false on timeout.
func Flush(timeout time.Duration) bool {
	if !IsEnabled() {
		return true
	}
	return sentry.Flush(timeout)
}

// Close flushes and shuts down tracking.
func Close() {
	if !IsEnabled() {
		return
	}
	Flush(2 * time.Second)
}
