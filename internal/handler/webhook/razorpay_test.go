package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/service"
)

type recordingPayments struct {
	body      []byte
	signature string
	err       error
}

func (p *recordingPayments) HandleWebhook(_ context.Context, body []byte, signature string) error {
	p.body = body
	p.signature = signature
	return p.err
}

func post(h *RazorpayHandler, body, signature string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/api/invoices/payment-webhook", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if signature != "" {
		r.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.HandleWebhook(rec, r)
	return rec
}

func TestHandleWebhook_PassesRawBody(t *testing.T) {
	payments := &recordingPayments{}
	h := NewRazorpayHandler(payments)

	body := `{"event":"payment_link.paid",  "payload":{}}`
	rec := post(h, body, "abc123")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, string(payments.body), "body must reach the verifier byte for byte")
	assert.Equal(t, "abc123", payments.signature)

	var out map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out["received"])
}

func TestHandleWebhook_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "invalid signature",
			err:        service.ErrInvalidSignature,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed payload",
			err:        domain.Invalid("payment.webhook", "Malformed webhook payload"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "storage failure",
			err:        domain.Internal(assert.AnError, "payment.webhook", "Failed to record payment"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRazorpayHandler(&recordingPayments{err: tt.err})
			rec := post(h, `{}`, "sig")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestHandleWebhook_PayloadTooLarge(t *testing.T) {
	payments := &recordingPayments{}
	h := NewRazorpayHandler(payments)

	rec := post(h, strings.Repeat("x", MaxPayloadBytes+1), "sig")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, payments.body)
}
