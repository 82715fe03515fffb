package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/papertrail/internal/domain"
)

type clientService struct {
	clients  domain.ClientRepository
	invoices domain.InvoiceRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewClientService creates a new ClientService instance.
func NewClientService(clients domain.ClientRepository, invoices domain.InvoiceRepository, logger *slog.Logger) domain.ClientService {
	return &clientService{
		clients:  clients,
		invoices: invoices,
		logger:   logger,
		now:      time.Now,
	}
}

// NormalizeEmail trims and lowercases an email so that per-owner uniqueness
// does not depend on how the address was typed.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateClientParams(params domain.ClientParams) (domain.ClientParams, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Email = NormalizeEmail(params.Email)
	params.Phone = strings.TrimSpace(params.Phone)
	params.GSTIN = strings.ToUpper(strings.TrimSpace(params.GSTIN))
	params.Address = params.Address.WithDefaults()

	if params.Email == "" {
		return params, domain.ErrClientEmailRequired
	}
	if params.Name == "" {
		return params, domain.ErrClientNameRequired
	}
	return params, nil
}

func (s *clientService) List(ctx context.Context, ownerID uuid.UUID) ([]domain.Client, error) {
	clients, err := s.clients.List(ctx, ownerID)
	if err != nil {
		return nil, domain.Internal(err, "client.list", "failed to list clients")
	}
	return clients, nil
}

func (s *clientService) Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Client, error) {
	return s.clients.Get(ctx, ownerID, id)
}

// Create adds a client. A duplicate (owner, email) is a conflict.
func (s *clientService) Create(ctx context.Context, ownerID uuid.UUID, params domain.ClientParams) (*domain.Client, error) {
	params, err := validateClientParams(params)
	if err != nil {
		return nil, err
	}

	c := s.newClient(ownerID, params)
	if err := s.clients.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("client created", "client_id", c.ID, "owner_id", ownerID)
	return c, nil
}

func (s *clientService) Update(ctx context.Context, ownerID, id uuid.UUID, params domain.ClientParams) (*domain.Client, error) {
	params, err := validateClientParams(params)
	if err != nil {
		return nil, err
	}

	c, err := s.clients.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	c.Name = params.Name
	c.Email = params.Email
	c.Phone = params.Phone
	c.Address = params.Address
	c.GSTIN = params.GSTIN
	c.UpdatedAt = s.now()

	if err := s.clients.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a client that no invoice references.
func (s *clientService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	const op = "client.delete"

	if _, err := s.clients.Get(ctx, ownerID, id); err != nil {
		return err
	}

	n, err := s.invoices.CountByClient(ctx, ownerID, id)
	if err != nil {
		return domain.Internal(err, op, "failed to count client invoices")
	}
	if n > 0 {
		return &domain.Error{
			Code:    domain.ECONFLICT,
			Op:      op,
			Message: fmt.Sprintf("Cannot delete client with %d existing invoice(s)", n),
			Err:     domain.ErrClientHasInvoices,
		}
	}

	return s.clients.Delete(ctx, ownerID, id)
}

// Resolve returns the client with the given email, creating it if needed.
//
// Two uploads racing on the same new email both miss the lookup; the loser
// gets a conflict from the unique index and re-reads the winner's row.
func (s *clientService) Resolve(ctx context.Context, ownerID uuid.UUID, params domain.ClientParams) (*domain.Client, bool, error) {
	params.Email = NormalizeEmail(params.Email)
	if params.Email == "" {
		return nil, false, domain.ErrClientEmailRequired
	}

	existing, err := s.clients.GetByEmail(ctx, ownerID, params.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrClientNotFound) {
		return nil, false, err
	}

	if strings.TrimSpace(params.Name) == "" {
		// The address is the only identity a CSV row is guaranteed to have.
		params.Name = params.Email
	}
	params, err = validateClientParams(params)
	if err != nil {
		return nil, false, err
	}

	c := s.newClient(ownerID, params)
	err = s.clients.Create(ctx, c)
	if err == nil {
		return c, true, nil
	}
	if !domain.IsCode(err, domain.ECONFLICT) {
		return nil, false, err
	}

	existing, err = s.clients.GetByEmail(ctx, ownerID, params.Email)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *clientService) newClient(ownerID uuid.UUID, params domain.ClientParams) *domain.Client {
	now := s.now()
	return &domain.Client{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      params.Name,
		Email:     params.Email,
		Phone:     params.Phone,
		Address:   params.Address,
		GSTIN:     params.GSTIN,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
