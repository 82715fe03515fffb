// Package telemetry reports errors to Sentry and records business metrics.
// Every Sentry helper is a no-op until InitSentry succeeds with a DSN.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

// SentryConfig configures error reporting. SampleRate 0 means 1.
type SentryConfig struct {
	DSN              string
	Enabled          bool
	Environment      string
	Release          string
	SampleRate       float64
	TracesSampleRate float64
	Debug            bool
}

var enabled atomic.Bool

// InitSentry starts the Sentry client and returns a flush function for
// shutdown. With Enabled false or no DSN it logs why and returns a no-op.
func InitSentry(cfg SentryConfig, logger *slog.Logger) (func(), error) {
	enabled.Store(false)
	noop := func() {}

	switch {
	case !cfg.Enabled:
		logger.Info("sentry disabled")
		return noop, nil
	case cfg.DSN == "":
		logger.Warn("sentry enabled without a DSN, error reporting is off")
		return noop, nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
		EnableTracing:    cfg.TracesSampleRate > 0,
		Debug:            cfg.Debug,
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	enabled.Store(true)

	logger.Info("sentry initialized",
		"environment", cfg.Environment,
		"release", cfg.Release,
		"sample_rate", sampleRate,
	)
	return func() { sentry.Flush(flushTimeout) }, nil
}

// scrubEvent drops request bodies and auth headers. Webhook payloads and
// bulk uploads carry customer contact details.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		event.Request.Data = ""
		event.Request.Cookies = ""
		delete(event.Request.Headers, "Authorization")
		delete(event.Request.Headers, "X-Razorpay-Signature")
	}
	return event
}

// IsEnabled reports whether events are being sent.
func IsEnabled() bool {
	return enabled.Load()
}

// hubFrom returns the request hub, or the global one outside a request.
func hubFrom(ctx context.Context) *sentry.Hub {
	if ctx != nil {
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			return hub
		}
	}
	return sentry.CurrentHub()
}

func capture(hub *sentry.Hub, configure func(*sentry.Scope), send func(*sentry.Hub)) {
	if !IsEnabled() {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		configure(scope)
		send(hub)
	})
}

func setExtras(scope *sentry.Scope, extras map[string]interface{}) {
	for key, value := range extras {
		scope.SetExtra(key, value)
	}
}

// CaptureError reports err from code that has no request, such as the
// overdue sweeper.
func CaptureError(err error, extras ...map[string]interface{}) {
	if err == nil {
		return
	}
	capture(sentry.CurrentHub(), func(scope *sentry.Scope) {
		for _, e := range extras {
			setExtras(scope, e)
		}
	}, func(hub *sentry.Hub) { hub.CaptureException(err) })
}

// CaptureErrorWithOwner reports err tagged with the owning account.
func CaptureErrorWithOwner(err error, ownerID string, extras map[string]interface{}) {
	if err == nil {
		return
	}
	capture(sentry.CurrentHub(), func(scope *sentry.Scope) {
		if ownerID != "" {
			scope.SetTag("owner_id", ownerID)
		}
		setExtras(scope, extras)
	}, func(hub *sentry.Hub) { hub.CaptureException(err) })
}

// CaptureErrorFromContext reports err through the request hub, picking up
// the user set by SentryContextMiddleware.
func CaptureErrorFromContext(ctx context.Context, err error, extras map[string]interface{}) {
	if err == nil {
		return
	}
	capture(hubFrom(ctx), func(scope *sentry.Scope) {
		setExtras(scope, extras)
	}, func(hub *sentry.Hub) { hub.CaptureException(err) })
}

// CaptureMessage reports a non-error event at level.
func CaptureMessage(message string, level sentry.Level, extras ...map[string]interface{}) {
	capture(sentry.CurrentHub(), func(scope *sentry.Scope) {
		scope.SetLevel(level)
		for _, e := range extras {
			setExtras(scope, e)
		}
	}, func(hub *sentry.Hub) { hub.CaptureMessage(message) })
}

// RecoverFromContext reports a recovered panic through the request hub.
// The caller still owns the response.
func RecoverFromContext(ctx context.Context, recovered interface{}) {
	if !IsEnabled() {
		return
	}
	hubFrom(ctx).RecoverWithContext(ctx, recovered)
}

// AddBreadcrumb records a breadcrumb on the global scope.
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

// SentryMiddleware gives each request its own hub carrying the request
// and an http.server transaction when tracing is on.
func SentryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsEnabled() {
				next.ServeHTTP(w, r)
				return
			}

			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetRequest(r)
			ctx := sentry.SetHubOnContext(r.Context(), hub)

			tx := sentry.StartTransaction(ctx, r.Method+" "+r.URL.Path,
				sentry.WithOpName("http.server"),
				sentry.ContinueFromRequest(r),
			)
			defer tx.Finish()

			next.ServeHTTP(w, r.WithContext(tx.Context()))
		})
	}
}

// UserInfo is the account attached to events.
type UserInfo struct {
	ID    string
	Email string
}

// UserContextExtractor returns the authenticated user, or nil.
type UserContextExtractor func(ctx context.Context) *UserInfo

// SentryContextMiddleware sets the authenticated user on the request hub.
// It runs after RequireAuth.
func SentryContextMiddleware(userExtractor UserContextExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsEnabled() || userExtractor == nil {
				next.ServeHTTP(w, r)
				return
			}

			if user := userExtractor(r.Context()); user != nil {
				hubFrom(r.Context()).ConfigureScope(func(scope *sentry.Scope) {
					scope.SetUser(sentry.User{ID: user.ID, Email: user.Email})
					scope.SetTag("owner_id", user.ID)
				})
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HTTPTransport records outbound calls as spans, e.g. Postmark requests.
type HTTPTransport struct {
	Transport http.RoundTripper
}

func (t *HTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !IsEnabled() {
		return t.Transport.RoundTrip(req)
	}

	span := sentry.StartSpan(req.Context(), "http.client")
	span.Description = req.Method + " " + req.URL.Host
	defer span.Finish()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
	} else {
		span.SetData("http.status_code", resp.StatusCode)
	}
	return resp, err
}
