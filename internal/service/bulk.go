package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/invoicing"
	"github.com/dukerupert/papertrail/internal/telemetry"
)

// DefaultLinkConcurrency caps parallel payment link calls per upload.
const DefaultLinkConcurrency = 4

// BulkDeps wires the bulk upload service. Links and Stats are optional.
type BulkDeps struct {
	Invoices domain.InvoiceRepository
	Clients  domain.ClientService
	Links    *PaymentLinker
	Stats    StatsInvalidator
	Logger   *slog.Logger

	// LinkConcurrency bounds the payment link pool. Zero means
	// DefaultLinkConcurrency.
	LinkConcurrency int

	// Entropy feeds invoice number suffixes. Nil uses the shared
	// monotonic source.
	Entropy io.Reader
}

type bulkUploadService struct {
	BulkDeps
	now func() time.Time
}

// NewBulkUploadService creates a new BulkUploadService instance.
func NewBulkUploadService(deps BulkDeps) domain.BulkUploadService {
	if deps.LinkConcurrency <= 0 {
		deps.LinkConcurrency = DefaultLinkConcurrency
	}
	return &bulkUploadService{BulkDeps: deps, now: time.Now}
}

// built is an invoice stored by the fold, waiting for its payment link.
type built struct {
	group   int
	invoice *domain.Invoice
	client  *domain.Client
}

// Process creates one invoice per draft.
//
// Drafts are folded strictly in order: resolve the client, compute totals at
// the fixed GST rate, build and persist. A failing draft is recorded against
// its email and never stops the batch. Payment links for the stored invoices
// are then requested through a bounded pool; a link failure adds an error
// entry but the invoice still counts as successful. Nothing is rolled back.
func (s *bulkUploadService) Process(ctx context.Context, ownerID uuid.UUID, templateID int, drafts []domain.InvoiceDraft) (*domain.BatchResult, error) {
	if templateID == 0 {
		templateID = domain.DefaultTemplateID
	}
	if templateID < 1 || templateID > domain.TemplateCount {
		return nil, domain.ErrInvalidTemplate
	}

	now := s.now()
	number := invoicing.Bulk(s.Entropy)

	result := &domain.BatchResult{
		Errors:   []domain.BatchError{},
		Invoices: []domain.Invoice{},
	}
	groupErrs := make([][]domain.BatchError, len(drafts))
	var stored []built
	rows := 0

	for i, draft := range drafts {
		rows += len(draft.Items)
		email := NormalizeEmail(draft.Client.Email)

		if err := ctx.Err(); err != nil {
			result.Failed++
			groupErrs[i] = append(groupErrs[i], domain.BatchError{Email: email, Message: "Upload cancelled"})
			continue
		}

		inv, client, created, err := s.fold(ctx, ownerID, templateID, draft, number, now)
		if created {
			result.NewClients++
		}
		if err != nil {
			result.Failed++
			groupErrs[i] = append(groupErrs[i], domain.BatchError{Email: email, Message: domain.ErrorMessage(err)})
			s.Logger.Warn("bulk invoice failed", "owner_id", ownerID, "email", email, "error", err)
			continue
		}

		result.Successful++
		stored = append(stored, built{group: i, invoice: inv, client: client})
		telemetry.Business.RecordInvoiceCreated("bulk", inv.Total.InexactFloat64())
	}

	for i, err := range s.attachLinks(ctx, stored) {
		if err == nil {
			continue
		}
		b := stored[i]
		groupErrs[b.group] = append(groupErrs[b.group], domain.BatchError{
			Email:   b.client.Email,
			Message: "Payment link error: " + causeMessage(err),
		})
	}

	for _, b := range stored {
		result.Invoices = append(result.Invoices, *b.invoice)
	}
	for _, errs := range groupErrs {
		result.Errors = append(result.Errors, errs...)
	}

	if result.Successful > 0 && s.Stats != nil {
		s.Stats.Invalidate(ctx, ownerID)
	}

	telemetry.Business.RecordBulkUpload(rows, result.Successful, result.Failed, result.NewClients)
	telemetry.AddBreadcrumb("bulk_upload", "processed upload", map[string]interface{}{
		"owner_id":    ownerID.String(),
		"groups":      len(drafts),
		"successful":  result.Successful,
		"failed":      result.Failed,
		"new_clients": result.NewClients,
	})
	s.Logger.Info("bulk upload processed",
		"owner_id", ownerID,
		"groups", len(drafts),
		"successful", result.Successful,
		"failed", result.Failed,
		"new_clients", result.NewClients,
	)

	return result, nil
}

// fold resolves the client and stores one invoice. The created flag is
// reported even when a later step fails, since the client row stays.
func (s *bulkUploadService) fold(
	ctx context.Context,
	ownerID uuid.UUID,
	templateID int,
	draft domain.InvoiceDraft,
	number invoicing.NumberFunc,
	now time.Time,
) (*domain.Invoice, *domain.Client, bool, error) {
	client, created, err := s.Clients.Resolve(ctx, ownerID, draft.Client)
	if err != nil {
		return nil, nil, false, err
	}

	due, _ := invoicing.ParseDueDate(draft.DueDate, now)

	inv, err := invoicing.Build(invoicing.BuildParams{
		OwnerID:    ownerID,
		ClientID:   client.ID,
		Items:      draft.DraftLineItems(),
		TaxRate:    domain.DefaultTaxRate,
		DueDate:    due,
		Notes:      draft.Notes,
		TemplateID: templateID,
		Status:     domain.InvoiceStatusPending,
		Number:     number,
		Now:        now,
	})
	if err != nil {
		return nil, client, created, err
	}

	if err := s.Invoices.Create(ctx, inv); err != nil {
		return nil, client, created, err
	}
	inv.Client = client
	return inv, client, created, nil
}

// attachLinks requests payment links in parallel and stores them in input
// order. The returned slice lines up with stored.
func (s *bulkUploadService) attachLinks(ctx context.Context, stored []built) []error {
	errs := make([]error, len(stored))
	if s.Links == nil || len(stored) == 0 {
		return errs
	}

	links := make([]*domain.PaymentLink, len(stored))
	p := pool.New().WithMaxGoroutines(s.LinkConcurrency)
	for i, b := range stored {
		p.Go(func() {
			links[i], errs[i] = s.Links.Create(ctx, b.invoice, b.client)
		})
	}
	p.Wait()

	for i, link := range links {
		if errs[i] != nil {
			s.Logger.Warn("bulk payment link failed",
				"invoice_id", stored[i].invoice.ID,
				"invoice_number", stored[i].invoice.InvoiceNumber,
				"error", errs[i],
			)
			continue
		}
		if err := s.Invoices.SetPaymentLink(ctx, stored[i].invoice.ID, *link); err != nil {
			errs[i] = err
			continue
		}
		stored[i].invoice.PaymentLink = link
	}
	return errs
}

// causeMessage returns the provider's own message where there is one.
func causeMessage(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Err != nil {
		return de.Err.Error()
	}
	return err.Error()
}
