package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dukerupert/papertrail/internal/handler"
)

// Pinger reports whether a dependency is reachable. pgxpool.Pool
// implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health handles GET /api/health. A nil db skips the database check.
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}

		handler.JSON(w, code, map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
