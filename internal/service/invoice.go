package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/email"
	"github.com/dukerupert/papertrail/internal/invoicing"
	"github.com/dukerupert/papertrail/internal/tax"
	"github.com/dukerupert/papertrail/internal/telemetry"
)

// PDFRenderer draws an invoice document.
type PDFRenderer interface {
	Render(inv *domain.Invoice, owner *domain.User) ([]byte, error)
}

// InvoiceMailer delivers invoice emails.
type InvoiceMailer interface {
	SendInvoice(ctx context.Context, data email.InvoiceEmail) error
}

// StatsInvalidator drops cached dashboard figures for an owner.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, ownerID uuid.UUID)
}

// InvoiceDeps wires the invoice service. Links, Renderer, Mailer and Stats
// are optional.
type InvoiceDeps struct {
	Invoices domain.InvoiceRepository
	Clients  domain.ClientRepository
	Users    domain.UserRepository
	Links    *PaymentLinker
	Renderer PDFRenderer
	Mailer   InvoiceMailer
	Stats    StatsInvalidator
	Logger   *slog.Logger
}

type invoiceService struct {
	InvoiceDeps
	now func() time.Time
}

// NewInvoiceService creates a new InvoiceService instance.
func NewInvoiceService(deps InvoiceDeps) domain.InvoiceService {
	return &invoiceService{InvoiceDeps: deps, now: time.Now}
}

// LineItems converts submitted items into line items awaiting totals.
func LineItems(inputs []domain.LineItemInput) []domain.LineItem {
	return lo.Map(inputs, func(in domain.LineItemInput, _ int) domain.LineItem {
		return domain.LineItem{
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Discount:    in.Discount,
		}
	})
}

func (s *invoiceService) List(ctx context.Context, ownerID uuid.UUID, filter domain.InvoiceFilter) (*domain.InvoicePage, error) {
	filter = filter.Normalize()
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	invoices, total, err := s.Invoices.List(ctx, ownerID, filter)
	if err != nil {
		return nil, domain.Internal(err, "invoice.list", "failed to list invoices")
	}

	return &domain.InvoicePage{
		Invoices:   invoices,
		Total:      total,
		Page:       filter.Page,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

func (s *invoiceService) Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Invoice, error) {
	return s.Invoices.Get(ctx, ownerID, id)
}

// Create computes totals, numbers and stores the invoice, then tries to
// attach a payment link.
func (s *invoiceService) Create(ctx context.Context, ownerID uuid.UUID, params domain.CreateInvoiceParams) (*domain.Invoice, error) {
	const op = "invoice.create"

	client, err := s.Clients.Get(ctx, ownerID, params.ClientID)
	if err != nil {
		return nil, err
	}

	owner, err := s.Users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	rate := owner.DefaultTaxRate
	if params.TaxRate != nil {
		rate = *params.TaxRate
	}

	items := LineItems(params.Items)

	// Reject bad input before a sequence number is consumed.
	if _, err := tax.Calculate(items, rate); err != nil {
		return nil, err
	}

	now := s.now()
	build := invoicing.BuildParams{
		OwnerID:       ownerID,
		ClientID:      client.ID,
		InvoiceNumber: strings.TrimSpace(params.InvoiceNumber),
		Items:         items,
		TaxRate:       rate,
		DueDate:       params.DueDate,
		Notes:         params.Notes,
		TemplateID:    params.TemplateID,
		Status:        params.Status,
		Now:           now,
	}
	if build.InvoiceNumber == "" {
		seq, err := s.Users.NextInvoiceSequence(ctx, ownerID)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to allocate invoice number")
		}
		build.Number = invoicing.Sequential(seq)
	}

	inv, err := invoicing.Build(build)
	if err != nil {
		return nil, err
	}

	if err := s.Invoices.Create(ctx, inv); err != nil {
		return nil, err
	}
	inv.Client = client

	telemetry.Business.RecordInvoiceCreated("single", inv.Total.InexactFloat64())
	s.invalidate(ctx, ownerID)

	s.Logger.Info("invoice created",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"owner_id", ownerID,
		"total", inv.Total.StringFixed(tax.Places),
	)

	s.attachPaymentLink(ctx, inv, client)
	return inv, nil
}

// attachPaymentLink never fails the caller; the invoice is already stored.
func (s *invoiceService) attachPaymentLink(ctx context.Context, inv *domain.Invoice, client *domain.Client) {
	if s.Links == nil {
		return
	}

	link, err := s.Links.Create(ctx, inv, client)
	if err != nil {
		s.Logger.Warn("payment link creation failed",
			"invoice_id", inv.ID,
			"invoice_number", inv.InvoiceNumber,
			"error", err,
		)
		return
	}

	if err := s.Invoices.SetPaymentLink(ctx, inv.ID, *link); err != nil {
		s.Logger.Error("failed to store payment link",
			"invoice_id", inv.ID,
			"payment_link_id", link.ID,
			"error", err,
		)
		return
	}
	inv.PaymentLink = link
}

// Update applies the non-nil fields of params. Totals are recomputed when
// items or the tax rate change; the existing payment link is kept.
func (s *invoiceService) Update(ctx context.Context, ownerID, id uuid.UUID, params domain.UpdateInvoiceParams) (*domain.Invoice, error) {
	inv, err := s.Invoices.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if params.ClientID != nil && *params.ClientID != inv.ClientID {
		client, err := s.Clients.Get(ctx, ownerID, *params.ClientID)
		if err != nil {
			return nil, err
		}
		inv.ClientID = client.ID
		inv.Client = client
	}

	recalc := false
	if params.Items != nil {
		inv.Items = LineItems(params.Items)
		recalc = true
	}
	if params.TaxRate != nil && !params.TaxRate.Equal(inv.TaxRate) {
		inv.TaxRate = *params.TaxRate
		recalc = true
	}
	if recalc {
		if err := invoicing.Recalculate(inv); err != nil {
			return nil, err
		}
	}

	if params.DueDate != nil {
		inv.DueDate = *params.DueDate
	}
	if params.Notes != nil {
		inv.Notes = *params.Notes
	}
	if params.TemplateID != nil {
		if *params.TemplateID < 1 || *params.TemplateID > domain.TemplateCount {
			return nil, domain.ErrInvalidTemplate
		}
		inv.TemplateID = *params.TemplateID
	}
	if params.Status != nil {
		if !params.Status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		inv.Status = *params.Status
	}

	inv.UpdatedAt = s.now()
	if err := s.Invoices.Update(ctx, inv); err != nil {
		return nil, err
	}
	s.invalidate(ctx, ownerID)
	return inv, nil
}

func (s *invoiceService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.Invoices.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.invalidate(ctx, ownerID)
	return nil
}

// RenderPDF loads the invoice with its client and owner and draws it.
func (s *invoiceService) RenderPDF(ctx context.Context, ownerID, id uuid.UUID) (*domain.Invoice, []byte, error) {
	inv, owner, err := s.loadForDocument(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.render(inv, owner)
	if err != nil {
		return nil, nil, err
	}
	return inv, doc, nil
}

func (s *invoiceService) render(inv *domain.Invoice, owner *domain.User) ([]byte, error) {
	const op = "invoice.pdf"

	if s.Renderer == nil {
		return nil, domain.Errorf(domain.EEXTERNAL, op, "PDF rendering is not configured")
	}
	doc, err := s.Renderer.Render(inv, owner)
	if err != nil {
		return nil, domain.External(err, op, "Error generating PDF")
	}
	return doc, nil
}

// Send emails the invoice PDF and pay link. The recipient defaults to the
// client's address.
func (s *invoiceService) Send(ctx context.Context, ownerID, id uuid.UUID, params domain.SendInvoiceParams) error {
	const op = "invoice.send"

	if s.Mailer == nil {
		return ErrEmailNotConfigured
	}

	inv, owner, err := s.loadForDocument(ctx, ownerID, id)
	if err != nil {
		return err
	}
	doc, err := s.render(inv, owner)
	if err != nil {
		return err
	}

	to := NormalizeEmail(params.RecipientEmail)
	if to == "" && inv.Client != nil {
		to = inv.Client.Email
	}
	if to == "" {
		return ErrNoRecipient
	}

	msg := email.InvoiceEmail{
		To:            to,
		ReplyTo:       owner.Email,
		BusinessName:  owner.BusinessName,
		InvoiceNumber: inv.InvoiceNumber,
		Total:         "₹" + inv.Total.StringFixed(tax.Places),
		DueDate:       inv.DueDate.Format("02 Jan 2006"),
		Message:       strings.TrimSpace(params.Message),
		SubjectLine:   strings.TrimSpace(params.Subject),
		PDF:           doc,
	}
	if inv.Client != nil {
		msg.ClientName = inv.Client.Name
	}
	if inv.PaymentLink != nil && inv.Status != domain.InvoiceStatusPaid {
		msg.PaymentURL = inv.PaymentLink.URL
	}

	err = s.Mailer.SendInvoice(ctx, msg)
	telemetry.Business.RecordEmail(err)
	if err != nil {
		return domain.External(err, op, "Error sending email")
	}

	s.Logger.Info("invoice emailed",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"recipient", to,
	)
	return nil
}

func (s *invoiceService) loadForDocument(ctx context.Context, ownerID, id uuid.UUID) (*domain.Invoice, *domain.User, error) {
	inv, err := s.Invoices.Get(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	if inv.Client == nil {
		client, err := s.Clients.Get(ctx, ownerID, inv.ClientID)
		if err != nil {
			return nil, nil, err
		}
		inv.Client = client
	}

	owner, err := s.Users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	return inv, owner, nil
}

func (s *invoiceService) invalidate(ctx context.Context, ownerID uuid.UUID) {
	if s.Stats != nil {
		s.Stats.Invalidate(ctx, ownerID)
	}
}
