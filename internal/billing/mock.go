package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockProvider is a mock billing provider for testing.
// Simulates payment link creation without calling Razorpay.
type MockProvider struct {
	// CreatePaymentLinkFunc allows customizing payment link creation behavior
	CreatePaymentLinkFunc func(ctx context.Context, params CreatePaymentLinkParams) (*PaymentLink, error)

	// VerifyWebhookSignatureFunc allows customizing webhook verification behavior.
	// When nil, the real HMAC check is used.
	VerifyWebhookSignatureFunc func(payload []byte, signature string, secret string) error

	// Links stores created payment links keyed by ID
	Links map[string]*PaymentLink

	// Requests records every create call in order
	Requests []CreatePaymentLinkParams

	// CallLog tracks method calls for test assertions
	CallLog []string

	mu sync.Mutex
}

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Links:   make(map[string]*PaymentLink),
		CallLog: []string{},
	}
}

// CreatePaymentLink creates a mock payment link. Safe for concurrent use.
func (m *MockProvider) CreatePaymentLink(ctx context.Context, params CreatePaymentLinkParams) (*PaymentLink, error) {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreatePaymentLink(%d, %s)", params.AmountMinor, params.ReferenceID))
	m.Requests = append(m.Requests, params)
	fn := m.CreatePaymentLinkFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, params)
	}

	id := "plink_" + uuid.New().String()[:14]
	link := &PaymentLink{
		ID:        id,
		ShortURL:  "https://rzp.io/i/" + id[6:14],
		Status:    "created",
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.Links[id] = link
	m.mu.Unlock()
	return link, nil
}

// VerifyWebhookSignature verifies a webhook signature.
func (m *MockProvider) VerifyWebhookSignature(payload []byte, signature string, secret string) error {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, "VerifyWebhookSignature")
	m.mu.Unlock()

	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature, secret)
	}
	return VerifySignature(payload, signature, secret)
}

// Calls returns a copy of the call log.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.CallLog...)
}
