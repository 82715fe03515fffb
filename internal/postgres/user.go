package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/papertrail/internal/domain"
)

// UserRepository implements domain.UserRepository.
type UserRepository struct {
	db DB
}

var _ domain.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, business_name, phone, address, gstin,
	default_tax_rate, logo_url, logo_key, email_notifications, sms_notifications,
	reminder_days, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.BusinessName, &u.Phone, &u.Address, &u.GSTIN,
		&u.DefaultTaxRate, &u.LogoURL, &u.LogoKey,
		&u.Notifications.EmailNotifications, &u.Notifications.SMSNotifications,
		&u.Notifications.ReminderDays, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, business_name, phone, address, gstin,
			default_tax_rate, logo_url, logo_key, email_notifications, sms_notifications,
			reminder_days, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		u.ID, u.Email, u.PasswordHash, u.BusinessName, u.Phone, u.Address, u.GSTIN,
		u.DefaultTaxRate, u.LogoURL, u.LogoKey,
		u.Notifications.EmailNotifications, u.Notifications.SMSNotifications,
		u.Notifications.ReminderDays, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err, constraintUserEmail) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return domain.Internal(err, "user.create", "failed to create user")
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET business_name = $2, phone = $3, address = $4, gstin = $5,
			default_tax_rate = $6, logo_url = $7, logo_key = $8, email_notifications = $9,
			sms_notifications = $10, reminder_days = $11, updated_at = $12
		 WHERE id = $1`,
		u.ID, u.BusinessName, u.Phone, u.Address, u.GSTIN,
		u.DefaultTaxRate, u.LogoURL, u.LogoKey, u.Notifications.EmailNotifications,
		u.Notifications.SMSNotifications, u.Notifications.ReminderDays, u.UpdatedAt,
	)
	if err != nil {
		return domain.Internal(err, "user.update", "failed to update user")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// NextInvoiceSequence increments the owner's counter in a single statement,
// so concurrent creates never share a number.
func (r *UserRepository) NextInvoiceSequence(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var seq int64
	err := r.db.QueryRow(ctx,
		`UPDATE users SET invoice_seq = invoice_seq + 1 WHERE id = $1 RETURNING invoice_seq`,
		ownerID,
	).Scan(&seq)
	if isNoRows(err) {
		return 0, domain.ErrUserNotFound
	}
	if err != nil {
		return 0, domain.Internal(err, "user.next_invoice_sequence", "failed to allocate invoice number")
	}
	return seq, nil
}
