package webhook

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/handler"
	"github.com/dukerupert/papertrail/internal/middleware"
	"github.com/dukerupert/papertrail/internal/service"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Razorpay-Signature"

// MaxPayloadBytes bounds a webhook body. Razorpay events are a few KB.
const MaxPayloadBytes = 1 << 20

// RazorpayHandler receives payment link webhooks.
type RazorpayHandler struct {
	payments domain.PaymentService
}

// NewRazorpayHandler creates a new Razorpay webhook handler
func NewRazorpayHandler(payments domain.PaymentService) *RazorpayHandler {
	return &RazorpayHandler{payments: payments}
}

// HandleWebhook handles POST /api/invoices/payment-webhook.
//
// The signature is computed over the raw body. Invalid signatures get 400.
func (h *RazorpayHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context(), slog.Default())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPayloadBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handler.ErrorResponse(w, r, domain.Errorf(domain.ETOOLARGE, "webhook.razorpay", "Payload too large"))
			return
		}
		handler.ErrorResponse(w, r, domain.WrapError(err, domain.EINVALID, "webhook.razorpay", "Could not read payload"))
		return
	}

	err = h.payments.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader))
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		logger.Warn("webhook signature rejected", "remote_addr", middleware.GetClientIP(r))
		handler.ErrorResponseWithStatus(w, r, http.StatusBadRequest, err)
		return
	case err != nil:
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, map[string]bool{"received": true})
}
