package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/dukerupert/papertrail/internal/billing"
	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/telemetry"
)

type paymentService struct {
	provider      billing.Provider
	webhookSecret string
	invoices      domain.InvoiceRepository
	stats         StatsInvalidator
	logger        *slog.Logger
	now           func() time.Time
}

// NewPaymentService creates a new PaymentService instance. stats may be nil.
func NewPaymentService(
	provider billing.Provider,
	webhookSecret string,
	invoices domain.InvoiceRepository,
	stats StatsInvalidator,
	logger *slog.Logger,
) domain.PaymentService {
	return &paymentService{
		provider:      provider,
		webhookSecret: webhookSecret,
		invoices:      invoices,
		stats:         stats,
		logger:        logger,
		now:           time.Now,
	}
}

// HandleWebhook verifies and applies one provider delivery.
//
// Nothing in body is read until the signature over the raw bytes checks
// out. Only payment_link.paid changes state; every other event, and any
// paid event whose invoice no longer exists, is acknowledged as a no-op so
// the provider stops retrying. Marking paid is an absolute write, so
// replays leave the invoice as the first delivery did.
func (s *paymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	const op = "payment.webhook"
	started := s.now()

	if err := s.verify(body, signature); err != nil {
		if errors.Is(err, billing.ErrWebhookSecretMissing) {
			return domain.Internal(err, op, "webhook secret not configured")
		}
		telemetry.Business.RecordWebhookFailure("signature")
		telemetry.CaptureMessage("rejected webhook with invalid signature", sentry.LevelWarning)
		s.logger.Warn("webhook signature rejected", "body_bytes", len(body))
		return ErrInvalidSignature
	}

	event, err := billing.ParseWebhookEvent(body)
	if err != nil {
		telemetry.Business.RecordWebhookFailure("payload")
		return domain.WrapError(err, domain.EINVALID, op, "Malformed webhook payload")
	}

	defer telemetry.Business.RecordWebhook(event.Event, started)

	if event.Event != billing.EventPaymentLinkPaid {
		s.logger.Debug("webhook event ignored", "event", event.Event)
		return nil
	}

	return s.markPaid(ctx, event)
}

func (s *paymentService) verify(body []byte, signature string) error {
	if s.provider != nil {
		return s.provider.VerifyWebhookSignature(body, signature, s.webhookSecret)
	}
	return billing.VerifySignature(body, signature, s.webhookSecret)
}

func (s *paymentService) markPaid(ctx context.Context, event *billing.WebhookEvent) error {
	const op = "payment.mark_paid"

	if event.Payload.PaymentLink == nil {
		s.logger.Warn("paid event without payment link entity")
		return nil
	}
	link := event.Payload.PaymentLink.Entity

	rawID := link.Notes.String(billing.NoteInvoiceID)
	invoiceID, err := uuid.Parse(rawID)
	if err != nil {
		s.logger.Warn("paid event with unusable invoice reference",
			"payment_link_id", link.ID,
			"invoice_id", rawID,
		)
		return nil
	}

	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if errors.Is(err, domain.ErrInvoiceNotFound) {
		s.logger.Info("paid event for unknown invoice", "invoice_id", invoiceID, "payment_link_id", link.ID)
		return nil
	}
	if err != nil {
		telemetry.Business.RecordWebhookFailure("storage")
		return domain.Internal(err, op, "failed to load invoice")
	}

	details := domain.PaymentDetails{
		PaymentLinkID: link.ID,
		Amount:        domain.MajorUnits(link.AmountPaid),
		PaidAt:        s.now().UTC(),
	}
	if p := event.Payload.Payment; p != nil {
		details.PaymentID = p.Entity.ID
		details.Method = p.Entity.Method
		details.Amount = domain.MajorUnits(p.Entity.Amount)
		details.PaidAt = p.Entity.PaidAt(details.PaidAt)
	}

	if inv.Status == domain.InvoiceStatusPaid && inv.Payment != nil && inv.Payment.PaymentID == details.PaymentID {
		s.logger.Debug("paid event already applied", "invoice_id", inv.ID, "payment_id", details.PaymentID)
		return nil
	}

	err = s.invoices.MarkPaid(ctx, inv.ID, details)
	if errors.Is(err, domain.ErrInvoiceNotFound) {
		s.logger.Info("invoice deleted before paid event applied", "invoice_id", inv.ID, "payment_link_id", link.ID)
		return nil
	}
	if err != nil {
		telemetry.Business.RecordWebhookFailure("storage")
		telemetry.CaptureErrorWithOwner(err, inv.OwnerID.String(), map[string]interface{}{
			"invoice_id":      inv.ID.String(),
			"payment_link_id": link.ID,
		})
		return domain.Internal(err, op, "failed to mark invoice paid")
	}

	telemetry.Business.RecordInvoicePaid()
	if s.stats != nil {
		s.stats.Invalidate(ctx, inv.OwnerID)
	}

	s.logger.Info("invoice marked paid",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"payment_id", details.PaymentID,
		"amount", details.Amount.StringFixed(2),
	)
	return nil
}
