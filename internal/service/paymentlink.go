package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/papertrail/internal/billing"
	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/telemetry"
)

// DefaultPaymentLinkTimeout bounds one payment link call, retries included.
const DefaultPaymentLinkTimeout = 10 * time.Second

// PaymentLinker creates hosted payment links for invoices.
// A nil *PaymentLinker, or one without a provider, reports
// ErrPaymentLinkDisabled.
type PaymentLinker struct {
	provider    billing.Provider
	frontendURL string
	timeout     time.Duration
	logger      *slog.Logger
}

// NewPaymentLinker creates a PaymentLinker. frontendURL is the SPA origin
// the provider redirects to after checkout.
func NewPaymentLinker(provider billing.Provider, frontendURL string, timeout time.Duration, logger *slog.Logger) *PaymentLinker {
	if timeout <= 0 {
		timeout = DefaultPaymentLinkTimeout
	}
	return &PaymentLinker{
		provider:    provider,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		timeout:     timeout,
		logger:      logger,
	}
}

// Create asks the provider for a link covering the invoice total.
func (l *PaymentLinker) Create(ctx context.Context, inv *domain.Invoice, client *domain.Client) (*domain.PaymentLink, error) {
	const op = "invoice.payment_link"

	if l == nil || l.provider == nil {
		return nil, domain.ErrPaymentLinkDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	params := billing.CreatePaymentLinkParams{
		AmountMinor: domain.MinorUnits(inv.Total),
		Currency:    "INR",
		Description: fmt.Sprintf("Payment for Invoice %s", inv.InvoiceNumber),
		ReferenceID: inv.InvoiceNumber,
		Notes: map[string]string{
			billing.NoteInvoiceID:     inv.ID.String(),
			billing.NoteInvoiceNumber: inv.InvoiceNumber,
		},
	}
	if client != nil {
		params.Customer = billing.Customer{Name: client.Name, Email: client.Email, Phone: client.Phone}
	}
	if l.frontendURL != "" {
		params.CallbackURL = fmt.Sprintf("%s/invoices/%s/payment-success", l.frontendURL, inv.ID)
	}

	started := time.Now()
	link, err := l.provider.CreatePaymentLink(ctx, params)
	telemetry.Business.RecordPaymentLink(started, err)
	if err != nil {
		return nil, domain.External(err, op, "Failed to create payment link")
	}

	return &domain.PaymentLink{ID: link.ID, URL: link.ShortURL}, nil
}
