package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/papertrail/internal/domain"
)

// DashboardRepository implements domain.DashboardRepository.
type DashboardRepository struct {
	db       DB
	invoices *InvoiceRepository
}

var _ domain.DashboardRepository = (*DashboardRepository)(nil)

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(db DB) *DashboardRepository {
	return &DashboardRepository{db: db, invoices: NewInvoiceRepository(db)}
}

// Summaries returns the money and date columns of every invoice created at
// or after since. A zero since returns all invoices.
func (r *DashboardRepository) Summaries(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]domain.InvoiceSummary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT total, status, due_date, created_at FROM invoices
		 WHERE owner_id = $1 AND created_at >= $2
		 ORDER BY created_at`,
		ownerID, since)
	if err != nil {
		return nil, domain.Internal(err, "dashboard.summaries", "failed to load invoices")
	}
	defer rows.Close()

	var out []domain.InvoiceSummary
	for rows.Next() {
		var s domain.InvoiceSummary
		if err := rows.Scan(&s.Total, &s.Status, &s.DueDate, &s.CreatedAt); err != nil {
			return nil, domain.Internal(err, "dashboard.summaries", "failed to load invoices")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "dashboard.summaries", "failed to load invoices")
	}
	return out, nil
}

func (r *DashboardRepository) RecentInvoices(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.Invoice, error) {
	invoices, err := r.invoices.query(ctx,
		`SELECT `+invoiceWithClientColumns+invoiceFrom+`
		 WHERE i.owner_id = $1 ORDER BY i.created_at DESC LIMIT $2`,
		ownerID, limit)
	if err != nil {
		return nil, domain.Internal(err, "dashboard.recent_invoices", "failed to load invoices")
	}
	return invoices, nil
}
