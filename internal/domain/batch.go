package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchError describes one problem inside a bulk upload. Row-level parse
// problems carry Row (1-based, header is row 1); per-client failures carry
// Email.
type BatchError struct {
	Row     int    `json:"row,omitempty"`
	Email   string `json:"email,omitempty"`
	Message string `json:"message"`
}

// BatchResult is the outcome of a bulk upload. Partial success is a normal
// terminal state; nothing is rolled back.
type BatchResult struct {
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	NewClients int          `json:"newClients"`
	Errors     []BatchError `json:"errors"`
	Invoices   []Invoice    `json:"invoices"`
}

// InvoiceDraft is one client's worth of CSV rows, ready for the orchestrator.
type InvoiceDraft struct {
	Client  ClientParams
	DueDate string // raw; unparsable values fall back to the default term
	Notes   string
	Items   []LineItemInput
}

// DraftLineItems converts the draft's inputs into line items awaiting totals.
func (d InvoiceDraft) DraftLineItems() []LineItem {
	items := make([]LineItem, len(d.Items))
	for i, in := range d.Items {
		items[i] = LineItem{
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Discount:    in.Discount,
		}
	}
	return items
}

// BulkUploadService turns grouped CSV drafts into clients and invoices.
type BulkUploadService interface {
	Process(ctx context.Context, ownerID uuid.UUID, templateID int, drafts []InvoiceDraft) (*BatchResult, error)
}

// PaymentService reconciles payment provider webhooks with invoices.
type PaymentService interface {
	// HandleWebhook verifies the signature over body before parsing it.
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

// MinorUnits converts a major currency amount to paise, rounding half-up.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// MajorUnits converts paise to rupees.
func MajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
