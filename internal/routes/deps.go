package routes

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/papertrail/internal/handler/api"
	"github.com/dukerupert/papertrail/internal/handler/webhook"
	"github.com/dukerupert/papertrail/internal/middleware"
)

// APIDeps contains dependencies for the JSON API routes
type APIDeps struct {
	Logger *slog.Logger
	Tokens middleware.TokenValidator

	// Public
	AuthHandler *api.AuthHandler
	Health      http.HandlerFunc

	// Authenticated
	ClientHandler    *api.ClientHandler
	InvoiceHandler   *api.InvoiceHandler
	DashboardHandler *api.DashboardHandler
	SettingsHandler  *api.SettingsHandler

	// Metrics exposes Prometheus metrics. Nil skips the route.
	Metrics http.Handler
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	RazorpayHandler *webhook.RazorpayHandler
}
