package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCOUNT DOMAIN TYPES
// =============================================================================

// Account errors.
var (
	ErrUserNotFound       = &Error{Code: ENOTFOUND, Message: "User not found"}
	ErrEmailTaken         = &Error{Code: ECONFLICT, Message: "User already exists"}
	ErrInvalidCredentials = &Error{Code: EUNAUTHORIZED, Message: "Invalid credentials"}
	ErrPasswordTooShort   = &Error{Code: EINVALID, Message: "Password must be at least 6 characters"}
	ErrPasswordTooLong    = &Error{Code: EINVALID, Message: "Password must be at most 72 bytes"}
	ErrLogoTooLarge       = &Error{Code: ETOOLARGE, Message: "Logo must be 5MB or smaller"}
	ErrLogoType           = &Error{Code: EINVALID, Message: "Only image files are allowed (jpeg, jpg, png, gif)"}
)

// DefaultReminderDays is the default reminder lead time for notifications.
const DefaultReminderDays = 7

// NotificationSettings are per-account notification preferences.
type NotificationSettings struct {
	EmailNotifications bool `json:"emailNotifications"`
	SMSNotifications   bool `json:"smsNotifications"`
	ReminderDays       int  `json:"reminderDays"`
}

// User is a business-owner account. Every client and invoice hangs off one.
type User struct {
	ID             uuid.UUID            `json:"id"`
	Email          string               `json:"email"`
	PasswordHash   string               `json:"-"`
	BusinessName   string               `json:"businessName"`
	Phone          string               `json:"phone"`
	Address        Address              `json:"address"`
	GSTIN          string               `json:"gstin,omitempty"`
	DefaultTaxRate decimal.Decimal      `json:"defaultTaxRate"`
	LogoURL        string               `json:"companyLogo,omitempty"`
	LogoKey        string               `json:"-"`
	Notifications  NotificationSettings `json:"notifications"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// RegisterParams contains parameters for creating an account.
type RegisterParams struct {
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=6"`
	BusinessName string  `json:"businessName" validate:"required"`
	Phone        string  `json:"phone"`
	Address      Address `json:"address"`
	GSTIN        string  `json:"gstin"`
}

// BusinessParams updates the business profile. Logo is optional.
type BusinessParams struct {
	BusinessName   string           `json:"businessName" validate:"required"`
	Phone          string           `json:"phone"`
	Address        Address          `json:"address"`
	GSTIN          string           `json:"gstin"`
	DefaultTaxRate *decimal.Decimal `json:"defaultTaxRate"`
	Logo           *Upload          `json:"-"`
}

// Upload is a file received from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     []byte
}

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error

	// NextInvoiceSequence atomically increments and returns the owner's
	// invoice display sequence.
	NextInvoiceSequence(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// AccountService handles registration, login and settings.
type AccountService interface {
	Register(ctx context.Context, params RegisterParams) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateBusiness(ctx context.Context, id uuid.UUID, params BusinessParams) (*User, error)
	UpdateTaxRate(ctx context.Context, id uuid.UUID, rate decimal.Decimal) (*User, error)
	UpdateNotifications(ctx context.Context, id uuid.UUID, settings NotificationSettings) (*User, error)
}
