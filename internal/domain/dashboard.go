package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DashboardStats summarizes an owner's book.
type DashboardStats struct {
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	PaidRevenue     decimal.Decimal `json:"paidRevenue"`
	UnpaidRevenue   decimal.Decimal `json:"unpaidRevenue"`
	TotalInvoices   int             `json:"totalInvoices"`
	TotalClients    int             `json:"totalClients"`
	PendingInvoices int             `json:"pendingInvoices"`
	OverdueInvoices int             `json:"overdueInvoices"`
}

// Activity lists the newest records.
type Activity struct {
	RecentInvoices []Invoice `json:"recentInvoices"`
	RecentClients  []Client  `json:"recentClients"`
}

// AnalyticsPeriod selects the analytics window.
type AnalyticsPeriod string

const (
	PeriodWeek  AnalyticsPeriod = "week"
	PeriodMonth AnalyticsPeriod = "month"
	PeriodYear  AnalyticsPeriod = "year"
)

// Days returns the window length. Unknown periods mean a month.
func (p AnalyticsPeriod) Days() int {
	switch p {
	case PeriodWeek:
		return 7
	case PeriodYear:
		return 365
	default:
		return 30
	}
}

// AnalyticsPoint is one calendar day of invoice activity. Paid and Pending
// split Revenue by status; anything not paid counts as pending.
type AnalyticsPoint struct {
	Date     string          `json:"date"`
	Revenue  decimal.Decimal `json:"revenue"`
	Invoices int             `json:"invoices"`
	Paid     decimal.Decimal `json:"paid"`
	Pending  decimal.Decimal `json:"pending"`
}

// InvoiceSummary is the projection dashboard aggregation needs.
type InvoiceSummary struct {
	Total     decimal.Decimal
	Status    InvoiceStatus
	DueDate   time.Time
	CreatedAt time.Time
}

// DashboardRepository reads aggregate data.
type DashboardRepository interface {
	Summaries(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]InvoiceSummary, error)
	RecentInvoices(ctx context.Context, ownerID uuid.UUID, limit int) ([]Invoice, error)
}

// DashboardService serves the dashboard endpoints.
type DashboardService interface {
	Stats(ctx context.Context, ownerID uuid.UUID) (*DashboardStats, error)
	Activity(ctx context.Context, ownerID uuid.UUID) (*Activity, error)
	Analytics(ctx context.Context, ownerID uuid.UUID, period AnalyticsPeriod) ([]AnalyticsPoint, error)

	// Invalidate drops cached stats after an invoice or client write.
	Invalidate(ctx context.Context, ownerID uuid.UUID)
}
