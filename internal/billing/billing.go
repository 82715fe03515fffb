// Package billing creates hosted payment links and verifies the webhooks the
// payment provider sends back.
package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Provider defines the interface for payment-link collection.
// Implementations: RazorpayProvider, MockProvider.
type Provider interface {
	// CreatePaymentLink creates a hosted payment page for an invoice.
	// Notes are echoed back in webhook payloads.
	CreatePaymentLink(ctx context.Context, params CreatePaymentLinkParams) (*PaymentLink, error)

	// VerifyWebhookSignature checks the provider signature over the raw body.
	VerifyWebhookSignature(payload []byte, signature string, secret string) error
}

// Customer is the payer shown on the hosted page.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// CreatePaymentLinkParams contains parameters for creating a payment link.
type CreatePaymentLinkParams struct {
	// AmountMinor is the amount in the smallest currency unit (paise).
	AmountMinor int64
	Currency    string
	Description string
	Customer    Customer

	// ReferenceID must be unique per link; retries with the same value are
	// rejected by the provider instead of creating a second link.
	ReferenceID string

	Notes       map[string]string
	CallbackURL string
}

// PaymentLink is a created payment link.
type PaymentLink struct {
	ID        string
	ShortURL  string
	Status    string
	CreatedAt time.Time
}

// Note keys attached to every link so the webhook can find the invoice.
const (
	NoteInvoiceID     = "invoice_id"
	NoteInvoiceNumber = "invoice_number"
)

// VerifySignature checks a hex HMAC-SHA256 of payload against signature in
// constant time.
func VerifySignature(payload []byte, signature, secret string) error {
	if secret == "" {
		return ErrWebhookSecretMissing
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrInvalidWebhookSignature
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrInvalidWebhookSignature
	}

	if !hmac.Equal(got, Sign(payload, secret)) {
		return ErrInvalidWebhookSignature
	}
	return nil
}

// Sign returns the raw HMAC-SHA256 of payload.
func Sign(payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignHex returns the hex signature the provider would send.
func SignHex(payload []byte, secret string) string {
	return hex.EncodeToString(Sign(payload, secret))
}
