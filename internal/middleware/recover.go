package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/dukerupert/papertrail/internal/telemetry"
)

// Recover turns a handler panic into a 500 with the standard error body
// and reports it to Sentry through the request hub. http.ErrAbortHandler is
// re-raised for net/http to handle.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			GetLogger(r.Context()).Error("panic recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			telemetry.RecoverFromContext(r.Context(), rec)
			respondInternalError(w, r, fmt.Errorf("panic: %v", rec))
		}()
		next.ServeHTTP(w, r)
	})
}
