package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/papertrail/internal/domain"
)

var testOwner = uuid.MustParse("6f1c2a0e-4b7d-4f7e-9a51-0c8d2f6b9e11")

func asOwner(r *http.Request) *http.Request {
	return r.WithContext(domain.NewContextWithOwner(r.Context(), &domain.Owner{ID: testOwner, Email: "owner@studio.in"}))
}

type fakeAccounts struct {
	user          *domain.User
	err           error
	business      domain.BusinessParams
	taxRate       decimal.Decimal
	notifications domain.NotificationSettings
}

func (f *fakeAccounts) Register(_ context.Context, p domain.RegisterParams) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.User{ID: testOwner, Email: p.Email, BusinessName: p.BusinessName}, nil
}

func (f *fakeAccounts) Authenticate(_ context.Context, _, _ string) (*domain.User, error) {
	return f.user, f.err
}

func (f *fakeAccounts) Get(_ context.Context, _ uuid.UUID) (*domain.User, error) {
	return f.user, f.err
}

func (f *fakeAccounts) UpdateBusiness(_ context.Context, _ uuid.UUID, p domain.BusinessParams) (*domain.User, error) {
	f.business = p
	return f.user, f.err
}

func (f *fakeAccounts) UpdateTaxRate(_ context.Context, _ uuid.UUID, rate decimal.Decimal) (*domain.User, error) {
	f.taxRate = rate
	return f.user, f.err
}

func (f *fakeAccounts) UpdateNotifications(_ context.Context, _ uuid.UUID, s domain.NotificationSettings) (*domain.User, error) {
	f.notifications = s
	return f.user, f.err
}

type fakeTokens struct{}

func (fakeTokens) Issue(u *domain.User) (string, error) { return "token-" + u.Email, nil }

type fakeClients struct {
	clients map[uuid.UUID]domain.Client
	deleted []uuid.UUID
	err     error
}

func newFakeClients(cs ...domain.Client) *fakeClients {
	f := &fakeClients{clients: make(map[uuid.UUID]domain.Client)}
	for _, c := range cs {
		f.clients[c.ID] = c
	}
	return f
}

func (f *fakeClients) List(_ context.Context, _ uuid.UUID) ([]domain.Client, error) {
	out := make([]domain.Client, 0, len(f.clients))
	for _, c := range f.clients {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeClients) Get(_ context.Context, _, id uuid.UUID) (*domain.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	return &c, nil
}

func (f *fakeClients) Create(_ context.Context, owner uuid.UUID, p domain.ClientParams) (*domain.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := domain.Client{ID: uuid.New(), OwnerID: owner, Name: p.Name, Email: p.Email}
	f.clients[c.ID] = c
	return &c, nil
}

func (f *fakeClients) Update(ctx context.Context, owner, id uuid.UUID, p domain.ClientParams) (*domain.Client, error) {
	c, err := f.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	c.Name, c.Email = p.Name, p.Email
	f.clients[id] = *c
	return c, nil
}

func (f *fakeClients) Delete(_ context.Context, _, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeClients) Resolve(context.Context, uuid.UUID, domain.ClientParams) (*domain.Client, bool, error) {
	panic("not used")
}

type fakeInvoices struct {
	invoice *domain.Invoice
	pdf     []byte
	filter  domain.InvoiceFilter
	created domain.CreateInvoiceParams
	sent    *domain.SendInvoiceParams
	err     error
}

func (f *fakeInvoices) List(_ context.Context, _ uuid.UUID, filter domain.InvoiceFilter) (*domain.InvoicePage, error) {
	f.filter = filter
	return &domain.InvoicePage{Invoices: []domain.Invoice{}}, f.err
}

func (f *fakeInvoices) Get(_ context.Context, _, _ uuid.UUID) (*domain.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.invoice, nil
}

func (f *fakeInvoices) Create(_ context.Context, _ uuid.UUID, p domain.CreateInvoiceParams) (*domain.Invoice, error) {
	f.created = p
	if f.err != nil {
		return nil, f.err
	}
	return f.invoice, nil
}

func (f *fakeInvoices) Update(_ context.Context, _, _ uuid.UUID, _ domain.UpdateInvoiceParams) (*domain.Invoice, error) {
	return f.invoice, f.err
}

func (f *fakeInvoices) Delete(_ context.Context, _, _ uuid.UUID) error { return f.err }

func (f *fakeInvoices) RenderPDF(_ context.Context, _, _ uuid.UUID) (*domain.Invoice, []byte, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.invoice, f.pdf, nil
}

func (f *fakeInvoices) Send(_ context.Context, _, _ uuid.UUID, p domain.SendInvoiceParams) error {
	f.sent = &p
	return f.err
}

type fakeBulk struct {
	templateID int
	drafts     []domain.InvoiceDraft
}

func (f *fakeBulk) Process(_ context.Context, _ uuid.UUID, templateID int, drafts []domain.InvoiceDraft) (*domain.BatchResult, error) {
	f.templateID = templateID
	f.drafts = drafts
	return &domain.BatchResult{Successful: len(drafts), Errors: []domain.BatchError{}, Invoices: []domain.Invoice{}}, nil
}

type fakeDashboard struct {
	period domain.AnalyticsPeriod
}

func (f *fakeDashboard) Stats(context.Context, uuid.UUID) (*domain.DashboardStats, error) {
	return &domain.DashboardStats{TotalInvoices: 3, TotalClients: 2}, nil
}

func (f *fakeDashboard) Activity(context.Context, uuid.UUID) (*domain.Activity, error) {
	return &domain.Activity{RecentInvoices: []domain.Invoice{}, RecentClients: []domain.Client{}}, nil
}

func (f *fakeDashboard) Analytics(_ context.Context, _ uuid.UUID, p domain.AnalyticsPeriod) ([]domain.AnalyticsPoint, error) {
	f.period = p
	return []domain.AnalyticsPoint{}, nil
}

func (f *fakeDashboard) Invalidate(context.Context, uuid.UUID) {}
