package routes

import (
	"context"

	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/middleware"
	"github.com/dukerupert/papertrail/internal/router"
	"github.com/dukerupert/papertrail/internal/telemetry"
)

// RegisterAPIRoutes registers the JSON API. Auth endpoints are public and
// rate limited; everything else requires a bearer token.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	r.Get("/api/health", deps.Health)
	if deps.Metrics != nil {
		r.Handle("GET", "/metrics", deps.Metrics)
	}

	public := r.Group(middleware.RateLimit(middleware.StrictRateLimiterConfig()))
	public.Post("/api/auth/register", deps.AuthHandler.Register)
	public.Post("/api/auth/login", deps.AuthHandler.Login)

	authed := r.Group(
		middleware.RequireAuth(deps.Tokens),
		middleware.WithRequestLogger(deps.Logger),
		telemetry.SentryContextMiddleware(sentryUser),
	)

	authed.Get("/api/auth/me", deps.AuthHandler.Me)

	// Clients
	authed.Get("/api/clients", deps.ClientHandler.List)
	authed.Post("/api/clients", deps.ClientHandler.Create)
	authed.Get("/api/clients/{id}", deps.ClientHandler.Get)
	authed.Put("/api/clients/{id}", deps.ClientHandler.Update)
	authed.Delete("/api/clients/{id}", deps.ClientHandler.Delete)

	// Invoices
	authed.Get("/api/invoices", deps.InvoiceHandler.List)
	authed.Post("/api/invoices", deps.InvoiceHandler.Create)
	authed.Post("/api/invoices/bulk-upload", deps.InvoiceHandler.BulkUpload)
	authed.Get("/api/invoices/{id}", deps.InvoiceHandler.Get)
	authed.Put("/api/invoices/{id}", deps.InvoiceHandler.Update)
	authed.Delete("/api/invoices/{id}", deps.InvoiceHandler.Delete)
	authed.Get("/api/invoices/{id}/pdf", deps.InvoiceHandler.PDF)
	authed.Post("/api/invoices/{id}/send-email", deps.InvoiceHandler.SendEmail)

	// Dashboard
	authed.Get("/api/dashboard/stats", deps.DashboardHandler.Stats)
	authed.Get("/api/dashboard/activity", deps.DashboardHandler.Activity)
	authed.Get("/api/dashboard/analytics", deps.DashboardHandler.Analytics)

	// Settings
	authed.Get("/api/settings", deps.SettingsHandler.Get)
	authed.Put("/api/settings/business", deps.SettingsHandler.UpdateBusiness)
	authed.Put("/api/settings/tax", deps.SettingsHandler.UpdateTax)
	authed.Put("/api/settings/notifications", deps.SettingsHandler.UpdateNotifications)
}

func sentryUser(ctx context.Context) *telemetry.UserInfo {
	owner := domain.OwnerFromContext(ctx)
	if owner == nil {
		return nil
	}
	return &telemetry.UserInfo{ID: owner.ID.String(), Email: owner.Email}
}
