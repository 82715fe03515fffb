package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/papertrail/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memClients is an in-memory ClientRepository.
type memClients struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*domain.Client

	// createErr fails Create for the given email.
	createErr map[string]error
	// raced makes the first GetByEmail for an email miss even when the row
	// exists, as if another request inserted it concurrently.
	raced map[string]bool
}

func newMemClients() *memClients {
	return &memClients{
		clients:   make(map[uuid.UUID]*domain.Client),
		createErr: make(map[string]error),
		raced:     make(map[string]bool),
	}
}

func (m *memClients) put(c domain.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = &c
}

func (m *memClients) owned(ownerID uuid.UUID) []domain.Client {
	var out []domain.Client
	for _, c := range m.clients {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memClients) List(_ context.Context, ownerID uuid.UUID) ([]domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owned(ownerID), nil
}

func (m *memClients) Recent(_ context.Context, ownerID uuid.UUID, limit int) ([]domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.owned(ownerID)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memClients) Get(_ context.Context, ownerID, id uuid.UUID) (*domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.OwnerID != ownerID {
		return nil, domain.ErrClientNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memClients) GetByEmail(_ context.Context, ownerID uuid.UUID, email string) (*domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raced[email] {
		delete(m.raced, email)
		return nil, domain.ErrClientNotFound
	}
	for _, c := range m.clients {
		if c.OwnerID == ownerID && strings.EqualFold(c.Email, email) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrClientNotFound
}

func (m *memClients) Create(_ context.Context, c *domain.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.createErr[c.Email]; err != nil {
		return err
	}
	for _, existing := range m.clients {
		if existing.OwnerID == c.OwnerID && strings.EqualFold(existing.Email, c.Email) {
			return domain.ErrClientEmailTaken
		}
	}
	cp := *c
	m.clients[c.ID] = &cp
	return nil
}

func (m *memClients) Update(_ context.Context, c *domain.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.clients[c.ID] = &cp
	return nil
}

func (m *memClients) Delete(_ context.Context, ownerID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.OwnerID != ownerID {
		return domain.ErrClientNotFound
	}
	delete(m.clients, id)
	return nil
}

func (m *memClients) Count(_ context.Context, ownerID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.owned(ownerID)), nil
}

// memInvoices is an in-memory InvoiceRepository.
type memInvoices struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*domain.Invoice
	order    []uuid.UUID

	createErr   error
	markPaidErr error
	markPaid    int
}

func newMemInvoices() *memInvoices {
	return &memInvoices{invoices: make(map[uuid.UUID]*domain.Invoice)}
}

func (m *memInvoices) Create(_ context.Context, inv *domain.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.invoices {
		if existing.OwnerID == inv.OwnerID && existing.InvoiceNumber == inv.InvoiceNumber {
			return domain.ErrInvoiceNumberTaken
		}
	}
	cp := *inv
	cp.Client = nil
	m.invoices[inv.ID] = &cp
	m.order = append(m.order, inv.ID)
	return nil
}

func (m *memInvoices) Get(_ context.Context, ownerID, id uuid.UUID) (*domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.OwnerID != ownerID {
		return nil, domain.ErrInvoiceNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memInvoices) List(_ context.Context, ownerID uuid.UUID, filter domain.InvoiceFilter) ([]domain.Invoice, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Invoice
	for _, id := range m.order {
		inv, ok := m.invoices[id]
		if !ok || inv.OwnerID != ownerID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(inv.InvoiceNumber, filter.Search) {
			continue
		}
		all = append(all, *inv)
	}
	total := len(all)
	start := min(filter.Offset(), total)
	end := min(start+filter.Limit, total)
	return all[start:end], total, nil
}

func (m *memInvoices) Update(_ context.Context, inv *domain.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[inv.ID]; !ok {
		return domain.ErrInvoiceNotFound
	}
	cp := *inv
	cp.Client = nil
	m.invoices[inv.ID] = &cp
	return nil
}

func (m *memInvoices) Delete(_ context.Context, ownerID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.OwnerID != ownerID {
		return domain.ErrInvoiceNotFound
	}
	delete(m.invoices, id)
	return nil
}

func (m *memInvoices) CountByClient(_ context.Context, ownerID, clientID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, inv := range m.invoices {
		if inv.OwnerID == ownerID && inv.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

func (m *memInvoices) SetPaymentLink(_ context.Context, id uuid.UUID, link domain.PaymentLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return domain.ErrInvoiceNotFound
	}
	inv.PaymentLink = &link
	return nil
}

func (m *memInvoices) FindByID(_ context.Context, id uuid.UUID) (*domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *memInvoices) MarkPaid(_ context.Context, id uuid.UUID, payment domain.PaymentDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markPaidErr != nil {
		return m.markPaidErr
	}
	inv, ok := m.invoices[id]
	if !ok {
		return domain.ErrInvoiceNotFound
	}
	inv.Status = domain.InvoiceStatusPaid
	inv.Payment = &payment
	m.markPaid++
	return nil
}

func (m *memInvoices) MarkOverdue(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, inv := range m.invoices {
		if inv.Status == domain.InvoiceStatusPending && inv.DueDate.Before(cutoff) {
			inv.Status = domain.InvoiceStatusOverdue
			n++
		}
	}
	return n, nil
}

func (m *memInvoices) all() []domain.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Invoice, 0, len(m.order))
	for _, id := range m.order {
		if inv, ok := m.invoices[id]; ok {
			out = append(out, *inv)
		}
	}
	return out
}

// memUsers is an in-memory UserRepository.
type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
	seq   map[uuid.UUID]int64
}

func newMemUsers() *memUsers {
	return &memUsers{
		users: make(map[uuid.UUID]*domain.User),
		seq:   make(map[uuid.UUID]int64),
	}
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) Update(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) NextInvoiceSequence(_ context.Context, ownerID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq[ownerID]++
	return m.seq[ownerID], nil
}

// countingStats records invalidations.
type countingStats struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (c *countingStats) Invalidate(_ context.Context, ownerID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, ownerID)
}

func (c *countingStats) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}
