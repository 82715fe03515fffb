package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/papertrail/internal/domain"
)

// InvoiceRepository implements domain.InvoiceRepository.
type InvoiceRepository struct {
	db DB
}

var _ domain.InvoiceRepository = (*InvoiceRepository)(nil)

// NewInvoiceRepository creates a new InvoiceRepository.
func NewInvoiceRepository(db DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `i.id, i.owner_id, i.client_id, i.invoice_number, i.template_id, i.items,
	i.subtotal, i.tax_rate, i.tax_amount, i.total, i.status, i.due_date, i.notes,
	i.payment_link_id, i.payment_link_url, i.payment_id, i.payment_amount,
	i.payment_method, i.paid_at, i.created_at, i.updated_at`

const invoiceWithClientColumns = invoiceColumns + `,
	c.id, c.name, c.email, c.phone, c.address, c.gstin`

const invoiceFrom = ` FROM invoices i LEFT JOIN clients c ON c.id = i.client_id`

// paymentColumns holds the nullable provider columns.
type paymentColumns struct {
	linkID  pgtype.Text
	linkURL pgtype.Text
	id      pgtype.Text
	amount  decimal.NullDecimal
	method  pgtype.Text
	paidAt  pgtype.Timestamptz
}

func (p *paymentColumns) apply(inv *domain.Invoice) {
	if p.linkID.Valid && p.linkURL.Valid {
		inv.PaymentLink = &domain.PaymentLink{ID: p.linkID.String, URL: p.linkURL.String}
	}
	if p.id.Valid && p.paidAt.Valid {
		inv.Payment = &domain.PaymentDetails{
			PaymentID:     p.id.String,
			PaymentLinkID: p.linkID.String,
			Amount:        p.amount.Decimal,
			Method:        p.method.String,
			PaidAt:        p.paidAt.Time.UTC(),
		}
	}
}

func invoiceDest(inv *domain.Invoice, p *paymentColumns) []any {
	return []any{
		&inv.ID, &inv.OwnerID, &inv.ClientID, &inv.InvoiceNumber, &inv.TemplateID, &inv.Items,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.Total, &inv.Status, &inv.DueDate, &inv.Notes,
		&p.linkID, &p.linkURL, &p.id, &p.amount,
		&p.method, &p.paidAt, &inv.CreatedAt, &inv.UpdatedAt,
	}
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var (
		inv domain.Invoice
		p   paymentColumns
	)
	if err := row.Scan(invoiceDest(&inv, &p)...); err != nil {
		if isNoRows(err) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	p.apply(&inv)
	return &inv, nil
}

func scanInvoiceWithClient(row pgx.Row) (*domain.Invoice, error) {
	var (
		inv      domain.Invoice
		p        paymentColumns
		clientID pgtype.UUID
		name     pgtype.Text
		email    pgtype.Text
		phone    pgtype.Text
		address  domain.Address
		gstin    pgtype.Text
	)
	dest := append(invoiceDest(&inv, &p), &clientID, &name, &email, &phone, &address, &gstin)
	if err := row.Scan(dest...); err != nil {
		if isNoRows(err) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	p.apply(&inv)
	if clientID.Valid {
		inv.Client = &domain.Client{
			ID:      uuid.UUID(clientID.Bytes),
			OwnerID: inv.OwnerID,
			Name:    name.String,
			Email:   email.String,
			Phone:   phone.String,
			Address: address,
			GSTIN:   gstin.String,
		}
	}
	return &inv, nil
}

func linkArgs(link *domain.PaymentLink) (pgtype.Text, pgtype.Text) {
	if link == nil {
		return pgtype.Text{}, pgtype.Text{}
	}
	return pgtype.Text{String: link.ID, Valid: true}, pgtype.Text{String: link.URL, Valid: true}
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	linkID, linkURL := linkArgs(inv.PaymentLink)
	_, err := r.db.Exec(ctx,
		`INSERT INTO invoices (id, owner_id, client_id, invoice_number, template_id, items,
			subtotal, tax_rate, tax_amount, total, status, due_date, notes,
			payment_link_id, payment_link_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		inv.ID, inv.OwnerID, inv.ClientID, inv.InvoiceNumber, inv.TemplateID, inv.Items,
		inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total, inv.Status, inv.DueDate, inv.Notes,
		linkID, linkURL, inv.CreatedAt, inv.UpdatedAt,
	)
	if isUniqueViolation(err, constraintInvoiceNumber) {
		return domain.ErrInvoiceNumberTaken
	}
	if err != nil {
		return domain.Internal(err, "invoice.create", "failed to create invoice")
	}
	return nil
}

func (r *InvoiceRepository) Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Invoice, error) {
	return scanInvoiceWithClient(r.db.QueryRow(ctx,
		`SELECT `+invoiceWithClientColumns+invoiceFrom+` WHERE i.owner_id = $1 AND i.id = $2`,
		ownerID, id))
}

func (r *InvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	return scanInvoice(r.db.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices i WHERE i.id = $1`, id))
}

// listWhere builds the shared filter clause for List and its count.
func listWhere(ownerID uuid.UUID, filter domain.InvoiceFilter) (string, []any) {
	clauses := []string{"i.owner_id = $1"}
	args := []any{ownerID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("i.status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(i.invoice_number ILIKE $%d OR c.name ILIKE $%d)", n, n))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *InvoiceRepository) List(ctx context.Context, ownerID uuid.UUID, filter domain.InvoiceFilter) ([]domain.Invoice, int, error) {
	filter = filter.Normalize()
	where, args := listWhere(ownerID, filter)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*)`+invoiceFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, domain.Internal(err, "invoice.list", "failed to count invoices")
	}

	args = append(args, filter.Limit, filter.Offset())
	sql := fmt.Sprintf(`SELECT %s%s%s ORDER BY i.created_at DESC LIMIT $%d OFFSET $%d`,
		invoiceWithClientColumns, invoiceFrom, where, len(args)-1, len(args))

	invoices, err := r.query(ctx, sql, args...)
	if err != nil {
		return nil, 0, domain.Internal(err, "invoice.list", "failed to list invoices")
	}
	return invoices, total, nil
}

func (r *InvoiceRepository) query(ctx context.Context, sql string, args ...any) ([]domain.Invoice, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []domain.Invoice{}
	for rows.Next() {
		inv, err := scanInvoiceWithClient(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepository) Update(ctx context.Context, inv *domain.Invoice) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE invoices SET client_id = $3, template_id = $4, items = $5, subtotal = $6,
			tax_rate = $7, tax_amount = $8, total = $9, status = $10, due_date = $11,
			notes = $12, updated_at = $13
		 WHERE owner_id = $1 AND id = $2`,
		inv.OwnerID, inv.ID, inv.ClientID, inv.TemplateID, inv.Items, inv.Subtotal,
		inv.TaxRate, inv.TaxAmount, inv.Total, inv.Status, inv.DueDate,
		inv.Notes, inv.UpdatedAt,
	)
	if err != nil {
		return domain.Internal(err, "invoice.update", "failed to update invoice")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func (r *InvoiceRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return domain.Internal(err, "invoice.delete", "failed to delete invoice")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func (r *InvoiceRepository) CountByClient(ctx context.Context, ownerID, clientID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM invoices WHERE owner_id = $1 AND client_id = $2`,
		ownerID, clientID).Scan(&n)
	if err != nil {
		return 0, domain.Internal(err, "invoice.count_by_client", "failed to count invoices")
	}
	return n, nil
}

func (r *InvoiceRepository) SetPaymentLink(ctx context.Context, id uuid.UUID, link domain.PaymentLink) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE invoices SET payment_link_id = $2, payment_link_url = $3, updated_at = now() WHERE id = $1`,
		id, link.ID, link.URL)
	if err != nil {
		return domain.Internal(err, "invoice.set_payment_link", "failed to store payment link")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func (r *InvoiceRepository) MarkPaid(ctx context.Context, id uuid.UUID, payment domain.PaymentDetails) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE invoices SET status = 'paid', payment_id = $2,
			payment_link_id = COALESCE(NULLIF($3, ''), payment_link_id),
			payment_amount = $4, payment_method = $5, paid_at = $6, updated_at = now()
		 WHERE id = $1`,
		id, payment.PaymentID, payment.PaymentLinkID, payment.Amount, payment.Method, payment.PaidAt)
	if err != nil {
		return domain.Internal(err, "invoice.mark_paid", "failed to mark invoice paid")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func (r *InvoiceRepository) MarkOverdue(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE invoices SET status = 'overdue', updated_at = now()
		 WHERE status = 'pending' AND due_date < $1`,
		cutoff)
	if err != nil {
		return 0, domain.Internal(err, "invoice.mark_overdue", "failed to mark invoices overdue")
	}
	return int(tag.RowsAffected()), nil
}
