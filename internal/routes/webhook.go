package routes

import (
	"github.com/dukerupert/papertrail/internal/router"
)

// RegisterWebhookRoutes registers all webhook routes.
//
// Webhook routes have no authentication middleware. Each handler verifies
// the request signature itself.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	r.Post("/api/invoices/payment-webhook", deps.RazorpayHandler.HandleWebhook)
}
