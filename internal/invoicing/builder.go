// Package invoicing assembles invoice records from computed totals.
// Nothing here performs I/O.
package invoicing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/tax"
)

// DefaultTerm is the due date offset used when none can be parsed.
const DefaultTerm = 30 * 24 * time.Hour

// BuildParams carries everything needed to build an invoice.
type BuildParams struct {
	OwnerID       uuid.UUID
	ClientID      uuid.UUID
	InvoiceNumber string
	Items         []domain.LineItem
	TaxRate       decimal.Decimal
	DueDate       time.Time
	Notes         string
	TemplateID    int
	Status        domain.InvoiceStatus

	// Number is used when InvoiceNumber is empty.
	Number NumberFunc

	Now time.Time
}

// Build computes totals and returns an invoice ready for persistence.
// Status defaults to pending; a template of 0 means the default layout.
func Build(p BuildParams) (*domain.Invoice, error) {
	const op = "invoicing.build"

	status := p.Status
	if status == "" {
		status = domain.InvoiceStatusPending
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	templateID := p.TemplateID
	if templateID == 0 {
		templateID = domain.DefaultTemplateID
	}
	if templateID < 1 || templateID > domain.TemplateCount {
		return nil, domain.ErrInvalidTemplate
	}

	if p.DueDate.IsZero() {
		return nil, domain.Invalid(op, "Due date is required")
	}

	totals, err := tax.Calculate(p.Items, p.TaxRate)
	if err != nil {
		return nil, err
	}

	number := p.InvoiceNumber
	if number == "" {
		if p.Number == nil {
			return nil, domain.Errorf(domain.EINTERNAL, op, "no invoice number strategy")
		}
		number = p.Number(p.Now)
	}

	return &domain.Invoice{
		ID:            uuid.New(),
		OwnerID:       p.OwnerID,
		ClientID:      p.ClientID,
		InvoiceNumber: number,
		TemplateID:    templateID,
		Items:         totals.Items,
		Subtotal:      totals.Subtotal,
		TaxRate:       p.TaxRate,
		TaxAmount:     totals.TaxAmount,
		Total:         totals.Total,
		Status:        status,
		DueDate:       p.DueDate,
		Notes:         p.Notes,
		CreatedAt:     p.Now,
		UpdatedAt:     p.Now,
	}, nil
}

// Recalculate refreshes the totals of an existing invoice in place.
func Recalculate(inv *domain.Invoice) error {
	totals, err := tax.Calculate(inv.Items, inv.TaxRate)
	if err != nil {
		return err
	}
	inv.Items = totals.Items
	inv.Subtotal = totals.Subtotal
	inv.TaxAmount = totals.TaxAmount
	inv.Total = totals.Total
	return nil
}

var dueDateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
}

// ParseDueDate parses raw as a date. Blank or unparsable input falls back
// to now + DefaultTerm, and the second return value reports the fallback.
func ParseDueDate(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, false
		}
	}
	return now.Add(DefaultTerm), true
}
