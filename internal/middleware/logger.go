package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/papertrail/internal/domain"
)

const loggerContextKey contextKey = "logger"

// WithRequestLogger stores a request-scoped logger in the context.
//
// The first application builds it from base with method, path and
// request_id. Applied again behind RequireAuth it extends the existing
// logger with owner_id instead of rebuilding it, so the router-level and
// group-level loggers share the same attributes.
func WithRequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			logger, scoped := ctx.Value(loggerContextKey).(*slog.Logger)
			if !scoped {
				attrs := []any{
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				}
				if id := GetRequestID(ctx); id != "" {
					attrs = append(attrs, slog.String("request_id", id))
				}
				logger = base.With(attrs...)
			}

			if owner := domain.OwnerFromContext(ctx); owner != nil {
				logger = logger.With(slog.String("owner_id", owner.ID.String()))
			} else if scoped {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, loggerContextKey, logger)))
		})
	}
}

// GetLogger returns the request-scoped logger, then fallback, then
// slog.Default.
func GetLogger(ctx context.Context, fallback ...*slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	if len(fallback) > 0 && fallback[0] != nil {
		return fallback[0]
	}
	return slog.Default()
}
