package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAPIKey is returned when Razorpay credentials are missing.
	ErrInvalidAPIKey = errors.New("billing: invalid or missing API key")

	// ErrInvalidWebhookSignature is returned when webhook signature verification fails.
	ErrInvalidWebhookSignature = errors.New("billing: invalid webhook signature")

	// ErrWebhookSecretMissing is returned when no webhook secret is configured.
	ErrWebhookSecretMissing = errors.New("billing: webhook secret not configured")

	// ErrAmountTooSmall is returned when the amount is below the provider minimum of 1 INR.
	ErrAmountTooSmall = errors.New("billing: amount too small (minimum 100 paise)")

	// ErrMalformedResponse is returned when the provider answers without an id or url.
	ErrMalformedResponse = errors.New("billing: malformed provider response")

	// ErrMalformedWebhook is returned when a verified delivery cannot be decoded.
	ErrMalformedWebhook = errors.New("billing: malformed webhook payload")
)

// ProviderError wraps an error returned by the Razorpay API.
type ProviderError struct {
	Op            string
	Message       string
	OriginalError error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("razorpay: %s: %s", e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.OriginalError
}
