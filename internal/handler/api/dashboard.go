package api

import (
	"net/http"

	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/handler"
)

// DashboardHandler serves /api/dashboard.
type DashboardHandler struct {
	dashboard domain.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard domain.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Stats handles GET /api/dashboard/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context(), domain.RequireOwnerID(r.Context()))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, stats)
}

// Activity handles GET /api/dashboard/activity
func (h *DashboardHandler) Activity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.dashboard.Activity(r.Context(), domain.RequireOwnerID(r.Context()))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, activity)
}

// Analytics handles GET /api/dashboard/analytics?period=week|month|year.
// Unknown periods fall back to a month.
func (h *DashboardHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	period := domain.AnalyticsPeriod(r.URL.Query().Get("period"))

	points, err := h.dashboard.Analytics(r.Context(), domain.RequireOwnerID(r.Context()), period)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, points)
}
