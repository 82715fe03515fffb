package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice errors.
var (
	ErrInvoiceNotFound     = &Error{Code: ENOTFOUND, Message: "Invoice not found"}
	ErrInvoiceNumberTaken  = &Error{Code: ECONFLICT, Message: "Invoice number already exists"}
	ErrNoLineItems         = &Error{Code: EINVALID, Message: "At least one line item is required"}
	ErrInvalidStatus       = &Error{Code: EINVALID, Message: "Status must be one of draft, pending, paid, overdue"}
	ErrInvalidTemplate     = &Error{Code: EINVALID, Message: "Template must be between 1 and 5"}
	ErrInvalidTaxRate      = &Error{Code: EINVALID, Message: "Tax rate must be between 0 and 100"}
	ErrNegativeLineTotal   = &Error{Code: EINVALID, Message: "Discount cannot exceed quantity times unit price"}
	ErrPaymentLinkDisabled = &Error{Code: EEXTERNAL, Message: "Payment links are not configured"}
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

const (
	// DefaultTemplateID is used when the caller does not pick a template.
	DefaultTemplateID = 1
	// TemplateCount is the number of PDF layouts available.
	TemplateCount = 5
)

// DefaultTaxRate is 18% GST. Bulk uploads always use it.
var DefaultTaxRate = decimal.NewFromInt(18)

// LineItem is a single billed line. Total is computed and snapshotted at
// calculation time; it is never recomputed on read.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

// PaymentLink is a hosted checkout created with the payment provider.
type PaymentLink struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// PaymentDetails records a confirmed payment.
type PaymentDetails struct {
	PaymentID     string          `json:"paymentId"`
	PaymentLinkID string          `json:"paymentLinkId"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	PaidAt        time.Time       `json:"paidAt"`
}

// Invoice is owned by exactly one account and references one client.
type Invoice struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       uuid.UUID       `json:"ownerId"`
	ClientID      uuid.UUID       `json:"clientId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	TemplateID    int             `json:"templateId"`
	Items         []LineItem      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxRate       decimal.Decimal `json:"taxRate"`
	TaxAmount     decimal.Decimal `json:"taxAmount"`
	Total         decimal.Decimal `json:"total"`
	Status        InvoiceStatus   `json:"status"`
	DueDate       time.Time       `json:"dueDate"`
	Notes         string          `json:"notes"`
	PaymentLink   *PaymentLink    `json:"paymentLink,omitempty"`
	Payment       *PaymentDetails `json:"payment,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	// Client is populated on reads that join the client row.
	Client *Client `json:"client,omitempty"`
}

// IsOverdue reports whether a pending invoice is past its due date.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	if inv.Status == InvoiceStatusOverdue {
		return true
	}
	return inv.Status == InvoiceStatusPending && inv.DueDate.Before(now)
}

// LineItemInput is a line item as submitted by a caller.
type LineItemInput struct {
	Description string          `json:"description" validate:"required"`
	Quantity    int             `json:"quantity" validate:"min=1"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Discount    decimal.Decimal `json:"discount"`
}

// CreateInvoiceParams contains parameters for creating a single invoice.
type CreateInvoiceParams struct {
	ClientID      uuid.UUID        `json:"clientId" validate:"required"`
	InvoiceNumber string           `json:"invoiceNumber"`
	Items         []LineItemInput  `json:"items" validate:"required,min=1,dive"`
	TaxRate       *decimal.Decimal `json:"taxRate"`
	DueDate       time.Time        `json:"dueDate" validate:"required"`
	Notes         string           `json:"notes"`
	TemplateID    int              `json:"templateId"`
	Status        InvoiceStatus    `json:"status"`
}

// UpdateInvoiceParams contains parameters for updating an invoice.
// Nil fields are left unchanged. Totals are recomputed whenever items or
// the tax rate change.
type UpdateInvoiceParams struct {
	ClientID   *uuid.UUID       `json:"clientId"`
	Items      []LineItemInput  `json:"items" validate:"omitempty,dive"`
	TaxRate    *decimal.Decimal `json:"taxRate"`
	DueDate    *time.Time       `json:"dueDate"`
	Notes      *string          `json:"notes"`
	TemplateID *int             `json:"templateId"`
	Status     *InvoiceStatus   `json:"status"`
}

// InvoiceFilter narrows an invoice listing.
type InvoiceFilter struct {
	Status InvoiceStatus
	Search string // matches invoice number or client name
	Page   int
	Limit  int
}

// Normalize clamps paging values to sane defaults.
func (f InvoiceFilter) Normalize() InvoiceFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f
}

// Offset returns the row offset for the current page.
func (f InvoiceFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// InvoicePage is one page of an invoice listing.
type InvoicePage struct {
	Invoices   []Invoice `json:"invoices"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	TotalPages int       `json:"totalPages"`
}

// SendInvoiceParams controls an outbound invoice email.
type SendInvoiceParams struct {
	RecipientEmail string `json:"recipientEmail" validate:"omitempty,email"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
}

// InvoiceRepository persists invoices. Owner-scoped reads return
// ErrInvoiceNotFound for invoices that belong to another owner.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*Invoice, error)
	List(ctx context.Context, ownerID uuid.UUID, filter InvoiceFilter) ([]Invoice, int, error)
	Update(ctx context.Context, inv *Invoice) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	CountByClient(ctx context.Context, ownerID, clientID uuid.UUID) (int, error)
	SetPaymentLink(ctx context.Context, id uuid.UUID, link PaymentLink) error

	// FindByID looks an invoice up without owner scoping. Only the payment
	// webhook uses it; the provider has no notion of owners.
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// MarkPaid sets status=paid and records payment details. It is an
	// absolute write, so repeating it with the same details is a no-op.
	MarkPaid(ctx context.Context, id uuid.UUID, payment PaymentDetails) error

	// MarkOverdue flips pending invoices due before cutoff to overdue and
	// returns how many changed.
	MarkOverdue(ctx context.Context, cutoff time.Time) (int, error)
}

// InvoiceService manages single-record invoice operations.
type InvoiceService interface {
	List(ctx context.Context, ownerID uuid.UUID, filter InvoiceFilter) (*InvoicePage, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*Invoice, error)

	// Create computes totals, assigns a sequential number and persists the
	// invoice. A payment link is attempted afterwards; its failure never
	// fails the create.
	Create(ctx context.Context, ownerID uuid.UUID, params CreateInvoiceParams) (*Invoice, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, params UpdateInvoiceParams) (*Invoice, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error

	// RenderPDF returns the invoice drawn with its template.
	RenderPDF(ctx context.Context, ownerID, id uuid.UUID) (*Invoice, []byte, error)

	// Send emails the invoice PDF and pay link to the client.
	Send(ctx context.Context, ownerID, id uuid.UUID, params SendInvoiceParams) error
}
