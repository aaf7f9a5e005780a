package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

// Headers that carry credentials or gateway signatures. They are stripped
// from every event before it leaves the process.
var scrubbedHeaders = []string{"Authorization", "Cookie", "X-Razorpay-Signature", "Stripe-Signature"}

var enabled atomic.Bool

// SentryOptions configures error reporting. Reporting is off unless
// Enabled is set and DSN is non-empty.
type SentryOptions struct {
	DSN              string
	Enabled          bool
	Environment      string
	Release          string
	SampleRate       float64 // 0 means 1.0
	TracesSampleRate float64
	Debug            bool
}

// InitSentry configures the global Sentry client. The returned func flushes
// buffered events and belongs in a defer in main.
func InitSentry(opts SentryOptions, logger *slog.Logger) (flush func(), err error) {
	noop := func() {}
	if !opts.Enabled || opts.DSN == "" {
		enabled.Store(false)
		logger.Info("error reporting disabled")
		return noop, nil
	}

	if opts.SampleRate == 0 {
		opts.SampleRate = 1.0
	}
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		SampleRate:       opts.SampleRate,
		TracesSampleRate: opts.TracesSampleRate,
		Debug:            opts.Debug,
		BeforeSend:       scrub,
	})
	if err != nil {
		return noop, fmt.Errorf("init sentry: %w", err)
	}
	enabled.Store(true)

	logger.Info("error reporting enabled",
		"environment", opts.Environment,
		"release", opts.Release,
		"sample_rate", opts.SampleRate,
	)
	return func() { sentry.Flush(flushTimeout) }, nil
}

func scrub(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		for _, h := range scrubbedHeaders {
			delete(event.Request.Headers, h)
		}
	}
	return event
}

// IsEnabled reports whether InitSentry turned reporting on.
func IsEnabled() bool {
	return enabled.Load()
}

// CaptureError reports err on the global hub with extras attached. It is a
// no-op when reporting is off.
func CaptureError(err error, extras map[string]interface{}) {
	CaptureErrorFromContext(context.Background(), err, extras)
}

// CaptureErrorFromContext reports err on the request's hub, so the caller
// and route set by SentryContextMiddleware travel with it.
func CaptureErrorFromContext(ctx context.Context, err error, extras map[string]interface{}) {
	capture(ctx, err, nil, extras)
}

// CaptureErrorWithOrder reports a failure concerning a single order, tagged
// with its ID so every report for that order can be pulled up together.
func CaptureErrorWithOrder(err error, orderID string, extras map[string]interface{}) {
	capture(context.Background(), err, map[string]string{"order_id": orderID}, extras)
}

func capture(ctx context.Context, err error, tags map[string]string, extras map[string]interface{}) {
	if err == nil || !IsEnabled() {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		hub.CaptureException(err)
	})
}

// AddBreadcrumb records a step that will be attached to the next report.
func AddBreadcrumb(category, message string, data map[string]interface{}) {
	if !IsEnabled() {
		return
	}
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category: category,
		Message:  message,
		Data:     data,
		Level:    sentry.LevelInfo,
	})
}

// RecoverWithSentry reports a panic and re-panics. Deferred at the top of
// background goroutines that have no HTTP recovery around them.
func RecoverWithSentry() {
	if r := recover(); r != nil {
		if IsEnabled() {
			sentry.CurrentHub().Recover(r)
			sentry.Flush(flushTimeout)
		}
		panic(r)
	}
}
