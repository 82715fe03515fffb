package billing

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventPaymentLinkPaid is sent once a payment link has been paid in full.
const EventPaymentLinkPaid = "payment_link.paid"

// WebhookEvent is the envelope of a Razorpay webhook delivery.
type WebhookEvent struct {
	Entity    string         `json:"entity"`
	AccountID string         `json:"account_id"`
	Event     string         `json:"event"`
	Contains  []string       `json:"contains"`
	Payload   WebhookPayload `json:"payload"`
	CreatedAt int64          `json:"created_at"`
}

// WebhookPayload holds the entities an event carries. Either may be absent.
type WebhookPayload struct {
	PaymentLink *struct {
		Entity PaymentLinkEntity `json:"entity"`
	} `json:"payment_link,omitempty"`
	Payment *struct {
		Entity PaymentEntity `json:"entity"`
	} `json:"payment,omitempty"`
}

// PaymentLinkEntity is the payment link as echoed back by Razorpay.
type PaymentLinkEntity struct {
	ID          string        `json:"id"`
	Amount      int64         `json:"amount"`
	AmountPaid  int64         `json:"amount_paid"`
	Currency    string        `json:"currency"`
	ReferenceID string        `json:"reference_id"`
	Status      string        `json:"status"`
	ShortURL    string        `json:"short_url"`
	Notes       FlexibleNotes `json:"notes"`
}

// PaymentEntity is a captured payment.
type PaymentEntity struct {
	ID        string        `json:"id"`
	Amount    int64         `json:"amount"` // paise
	Currency  string        `json:"currency"`
	Status    string        `json:"status"`
	Method    string        `json:"method"`
	Email     string        `json:"email"`
	Contact   string        `json:"contact"`
	Notes     FlexibleNotes `json:"notes"`
	CreatedAt int64         `json:"created_at"`
}

// FlexibleNotes accepts notes sent as an object or as an empty array,
// which Razorpay uses when no notes were set.
type FlexibleNotes map[string]interface{}

// UnmarshalJSON implements json.Unmarshaler.
func (fn *FlexibleNotes) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err == nil {
		*fn = m
		return nil
	}

	var arr []interface{}
	if err := json.Unmarshal(data, &arr); err == nil {
		*fn = make(map[string]interface{})
		return nil
	}

	return fmt.Errorf("notes must be either object or array")
}

// String returns the note under key, or "" when absent or not a string.
func (fn FlexibleNotes) String(key string) string {
	s, _ := fn[key].(string)
	return s
}

// ParseWebhookEvent decodes a delivery. Verify the signature first.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if event.Event == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedWebhook)
	}
	return &event, nil
}

// PaidAt returns when the payment was created, falling back to fallback.
func (p PaymentEntity) PaidAt(fallback time.Time) time.Time {
	if p.CreatedAt > 0 {
		return time.Unix(p.CreatedAt, 0).UTC()
	}
	return fallback
}
