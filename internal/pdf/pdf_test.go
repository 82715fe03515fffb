package pdf

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/papertrail/internal/domain"
)

func sampleInvoice(templateID int) *domain.Invoice {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-0001",
		TemplateID:    templateID,
		Items: []domain.LineItem{
			{Description: "Logo design", Quantity: 2, UnitPrice: decimal.NewFromInt(100), Total: decimal.NewFromInt(200)},
			{Description: strings.Repeat("Very long description ", 10), Quantity: 1, UnitPrice: decimal.NewFromInt(50), Discount: decimal.NewFromInt(10), Total: decimal.NewFromInt(40)},
		},
		Subtotal:    decimal.NewFromInt(240),
		TaxRate:     decimal.NewFromInt(18),
		TaxAmount:   decimal.RequireFromString("43.20"),
		Total:       decimal.RequireFromString("283.20"),
		Status:      domain.InvoiceStatusPending,
		DueDate:     now.AddDate(0, 0, 30),
		Notes:       "Thanks for your business. Café orders ship Monday.",
		PaymentLink: &domain.PaymentLink{ID: "plink_1", URL: "https://rzp.io/i/abc"},
		CreatedAt:   now,
		Client: &domain.Client{
			Name:    "Asha Traders",
			Email:   "asha@example.com",
			Address: domain.Address{City: "Bengaluru", State: "KA", Country: "India"},
		},
	}
}

func sampleOwner() *domain.User {
	return &domain.User{
		BusinessName: "Ravi Designs",
		Email:        "ravi@example.com",
		GSTIN:        "29ABCDE1234F1Z5",
		Address:      domain.Address{Street: "1 MG Road", City: "Bengaluru", Country: "India"},
	}
}

func TestRender_AllTemplates(t *testing.T) {
	r := NewRenderer()
	for id := 1; id <= domain.TemplateCount; id++ {
		t.Run(LayoutName(id), func(t *testing.T) {
			out, err := r.Render(sampleInvoice(id), sampleOwner())
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
		})
	}
}

func TestRender_UnknownTemplateFallsBack(t *testing.T) {
	assert.Equal(t, "Classic", LayoutName(0))
	assert.Equal(t, "Classic", LayoutName(9))

	out, err := NewRenderer().Render(sampleInvoice(9), sampleOwner())
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRender_PaidWithoutClient(t *testing.T) {
	inv := sampleInvoice(2)
	inv.Client = nil
	inv.Status = domain.InvoiceStatusPaid
	inv.Payment = &domain.PaymentDetails{
		PaymentID: "pay_1",
		Amount:    inv.Total,
		Method:    "upi",
		PaidAt:    inv.CreatedAt.Add(time.Hour),
	}

	out, err := NewRenderer().Render(inv, sampleOwner())
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRender_RequiresInputs(t *testing.T) {
	_, err := NewRenderer().Render(nil, sampleOwner())
	assert.Error(t, err)
	_, err = NewRenderer().Render(sampleInvoice(1), nil)
	assert.Error(t, err)
}
