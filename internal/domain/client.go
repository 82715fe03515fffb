package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Client errors.
var (
	ErrClientNotFound      = &Error{Code: ENOTFOUND, Message: "Client not found"}
	ErrClientEmailTaken    = &Error{Code: ECONFLICT, Message: "Client with this email already exists"}
	ErrClientHasInvoices   = &Error{Code: ECONFLICT, Message: "Cannot delete client with existing invoices"}
	ErrClientEmailRequired = &Error{Code: EINVALID, Message: "Client email is required"}
	ErrClientNameRequired  = &Error{Code: EINVALID, Message: "Client name is required"}
)

// DefaultCountry is stamped on addresses that arrive without one.
const DefaultCountry = "India"

// Address is a postal address shared by users and clients.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
}

// WithDefaults fills the country when blank.
func (a Address) WithDefaults() Address {
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	return a
}

// Client is a customer of an owner. Email is unique per owner.
type Client struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   Address   `json:"address"`
	GSTIN     string    `json:"gstin,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClientParams carries the editable client fields.
type ClientParams struct {
	Name    string  `json:"name" validate:"required"`
	Email   string  `json:"email" validate:"required,email"`
	Phone   string  `json:"phone"`
	Address Address `json:"address"`
	GSTIN   string  `json:"gstin"`
}

// ClientRepository persists clients. Every query is scoped by owner.
// Create returns ErrClientEmailTaken when (owner, email) already exists.
type ClientRepository interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]Client, error)
	Recent(ctx context.Context, ownerID uuid.UUID, limit int) ([]Client, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*Client, error)
	GetByEmail(ctx context.Context, ownerID uuid.UUID, email string) (*Client, error)
	Create(ctx context.Context, c *Client) error
	Update(ctx context.Context, c *Client) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Count(ctx context.Context, ownerID uuid.UUID) (int, error)
}

// ClientService manages an owner's clients.
type ClientService interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]Client, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*Client, error)
	Create(ctx context.Context, ownerID uuid.UUID, params ClientParams) (*Client, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, params ClientParams) (*Client, error)

	// Delete fails with ErrClientHasInvoices while any invoice references the client.
	Delete(ctx context.Context, ownerID, id uuid.UUID) error

	// Resolve finds the client by (owner, email) or creates it from params.
	// The boolean reports whether a new client was created.
	Resolve(ctx context.Context, ownerID uuid.UUID, params ClientParams) (*Client, bool, error)
}
