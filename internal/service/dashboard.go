package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/papertrail/internal/cache"
	"github.com/dukerupert/papertrail/internal/domain"
)

const (
	recentInvoiceLimit = 10
	recentClientLimit  = 5
)

type dashboardService struct {
	repo    domain.DashboardRepository
	clients domain.ClientRepository
	stats   *cache.StatsCache
	logger  *slog.Logger
	now     func() time.Time
}

// NewDashboardService creates a new DashboardService instance. stats may be
// nil to disable caching.
func NewDashboardService(repo domain.DashboardRepository, clients domain.ClientRepository, stats *cache.StatsCache, logger *slog.Logger) domain.DashboardService {
	return &dashboardService{
		repo:    repo,
		clients: clients,
		stats:   stats,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *dashboardService) Stats(ctx context.Context, ownerID uuid.UUID) (*domain.DashboardStats, error) {
	const op = "dashboard.stats"

	if s.stats != nil {
		if cached, ok := s.stats.Get(ctx, ownerID); ok {
			return cached, nil
		}
	}

	summaries, err := s.repo.Summaries(ctx, ownerID, time.Time{})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load invoices")
	}
	clients, err := s.clients.Count(ctx, ownerID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count clients")
	}

	stats := Summarize(summaries, s.now())
	stats.TotalClients = clients

	if s.stats != nil {
		s.stats.Put(ctx, ownerID, stats)
	}
	return stats, nil
}

// Summarize folds invoice summaries into dashboard totals. Overdue counts
// pending invoices past due as well as those already swept to overdue.
func Summarize(summaries []domain.InvoiceSummary, now time.Time) *domain.DashboardStats {
	paidOnly := lo.Filter(summaries, func(s domain.InvoiceSummary, _ int) bool {
		return s.Status == domain.InvoiceStatusPaid
	})

	total := sumTotals(summaries)
	paid := sumTotals(paidOnly)

	return &domain.DashboardStats{
		TotalRevenue:  total,
		PaidRevenue:   paid,
		UnpaidRevenue: total.Sub(paid),
		TotalInvoices: len(summaries),
		PendingInvoices: lo.CountBy(summaries, func(s domain.InvoiceSummary) bool {
			return s.Status == domain.InvoiceStatusPending
		}),
		OverdueInvoices: lo.CountBy(summaries, func(s domain.InvoiceSummary) bool {
			inv := domain.Invoice{Status: s.Status, DueDate: s.DueDate}
			return inv.IsOverdue(now)
		}),
	}
}

func sumTotals(summaries []domain.InvoiceSummary) decimal.Decimal {
	return lo.Reduce(summaries, func(acc decimal.Decimal, s domain.InvoiceSummary, _ int) decimal.Decimal {
		return acc.Add(s.Total)
	}, decimal.Zero)
}

func (s *dashboardService) Activity(ctx context.Context, ownerID uuid.UUID) (*domain.Activity, error) {
	const op = "dashboard.activity"

	invoices, err := s.repo.RecentInvoices(ctx, ownerID, recentInvoiceLimit)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load recent invoices")
	}
	clients, err := s.clients.Recent(ctx, ownerID, recentClientLimit)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load recent clients")
	}

	if invoices == nil {
		invoices = []domain.Invoice{}
	}
	if clients == nil {
		clients = []domain.Client{}
	}
	return &domain.Activity{RecentInvoices: invoices, RecentClients: clients}, nil
}

func (s *dashboardService) Analytics(ctx context.Context, ownerID uuid.UUID, period domain.AnalyticsPeriod) ([]domain.AnalyticsPoint, error) {
	since := s.now().AddDate(0, 0, -period.Days())

	summaries, err := s.repo.Summaries(ctx, ownerID, since)
	if err != nil {
		return nil, domain.Internal(err, "dashboard.analytics", "failed to load invoices")
	}
	return Bucket(summaries), nil
}

// Bucket groups summaries by UTC creation day, oldest first.
func Bucket(summaries []domain.InvoiceSummary) []domain.AnalyticsPoint {
	byDay := lo.GroupBy(summaries, func(s domain.InvoiceSummary) string {
		return s.CreatedAt.UTC().Format(time.DateOnly)
	})

	points := lo.MapToSlice(byDay, func(day string, group []domain.InvoiceSummary) domain.AnalyticsPoint {
		p := domain.AnalyticsPoint{
			Date:     day,
			Invoices: len(group),
			Revenue:  decimal.Zero,
			Paid:     decimal.Zero,
			Pending:  decimal.Zero,
		}
		for _, s := range group {
			p.Revenue = p.Revenue.Add(s.Total)
			if s.Status == domain.InvoiceStatusPaid {
				p.Paid = p.Paid.Add(s.Total)
			} else {
				p.Pending = p.Pending.Add(s.Total)
			}
		}
		return p
	})

	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

func (s *dashboardService) Invalidate(ctx context.Context, ownerID uuid.UUID) {
	if s.stats != nil {
		s.stats.Invalidate(ctx, ownerID)
	}
}
