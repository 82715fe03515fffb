package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/papertrail/internal/domain"
)

// ClientRepository implements domain.ClientRepository.
type ClientRepository struct {
	db DB
}

var _ domain.ClientRepository = (*ClientRepository)(nil)

// NewClientRepository creates a new ClientRepository.
func NewClientRepository(db DB) *ClientRepository {
	return &ClientRepository{db: db}
}

const clientColumns = `id, owner_id, name, email, phone, address, gstin, created_at, updated_at`

func scanClient(row pgx.Row) (*domain.Client, error) {
	var c domain.Client
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.GSTIN, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrClientNotFound
		}
		return nil, fmt.Errorf("scan client: %w", err)
	}
	return &c, nil
}

func (r *ClientRepository) query(ctx context.Context, sql string, args ...any) ([]domain.Client, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []domain.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

func (r *ClientRepository) List(ctx context.Context, ownerID uuid.UUID) ([]domain.Client, error) {
	return r.query(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE owner_id = $1 ORDER BY created_at DESC`,
		ownerID)
}

func (r *ClientRepository) Recent(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.Client, error) {
	return r.query(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2`,
		ownerID, limit)
}

func (r *ClientRepository) Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Client, error) {
	return scanClient(r.db.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE owner_id = $1 AND id = $2`,
		ownerID, id))
}

func (r *ClientRepository) GetByEmail(ctx context.Context, ownerID uuid.UUID, email string) (*domain.Client, error) {
	return scanClient(r.db.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE owner_id = $1 AND lower(email) = lower($2)`,
		ownerID, email))
}

func (r *ClientRepository) Create(ctx context.Context, c *domain.Client) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO clients (`+clientColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.OwnerID, c.Name, c.Email, c.Phone, c.Address, c.GSTIN, c.CreatedAt, c.UpdatedAt,
	)
	if isUniqueViolation(err, constraintClientEmail) {
		return domain.ErrClientEmailTaken
	}
	if err != nil {
		return domain.Internal(err, "client.create", "failed to create client")
	}
	return nil
}

func (r *ClientRepository) Update(ctx context.Context, c *domain.Client) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE clients SET name = $3, email = $4, phone = $5, address = $6, gstin = $7, updated_at = $8
		 WHERE owner_id = $1 AND id = $2`,
		c.OwnerID, c.ID, c.Name, c.Email, c.Phone, c.Address, c.GSTIN, c.UpdatedAt,
	)
	if isUniqueViolation(err, constraintClientEmail) {
		return domain.ErrClientEmailTaken
	}
	if err != nil {
		return domain.Internal(err, "client.update", "failed to update client")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

func (r *ClientRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return domain.Internal(err, "client.delete", "failed to delete client")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

func (r *ClientRepository) Count(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM clients WHERE owner_id = $1`, ownerID).Scan(&n)
	return n, err
}
