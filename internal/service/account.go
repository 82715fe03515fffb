package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/papertrail/internal/auth"
	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/storage"
	"github.com/dukerupert/papertrail/internal/telemetry"
)

const (
	// MaxLogoSize is the largest accepted logo upload.
	MaxLogoSize = 5 << 20

	maxReminderDays = 60
)

var logoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

var logoExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

var hundred = decimal.NewFromInt(100)

type accountService struct {
	users  domain.UserRepository
	files  storage.Storage
	logger *slog.Logger
	now    func() time.Time
	hash   func(string) (string, error)
}

// NewAccountService creates a new AccountService instance. files may be nil,
// in which case logo uploads are refused.
func NewAccountService(users domain.UserRepository, files storage.Storage, logger *slog.Logger) domain.AccountService {
	return &accountService{
		users:  users,
		files:  files,
		logger: logger,
		now:    time.Now,
		hash:   auth.HashPassword,
	}
}

// Register creates a new account with default settings.
func (s *accountService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "account.register"

	email := NormalizeEmail(params.Email)
	if email == "" {
		return nil, domain.NewValidationError(op, "email", "Email is required")
	}
	if strings.TrimSpace(params.BusinessName) == "" {
		return nil, domain.NewValidationError(op, "businessName", "Business name is required")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.Internal(err, op, "failed to check existing user")
	}

	hash, err := s.hash(params.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &domain.User{
		ID:             uuid.New(),
		Email:          email,
		PasswordHash:   hash,
		BusinessName:   strings.TrimSpace(params.BusinessName),
		Phone:          strings.TrimSpace(params.Phone),
		Address:        params.Address.WithDefaults(),
		GSTIN:          strings.ToUpper(strings.TrimSpace(params.GSTIN)),
		DefaultTaxRate: domain.DefaultTaxRate,
		Notifications: domain.NotificationSettings{
			EmailNotifications: true,
			ReminderDays:       domain.DefaultReminderDays,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	telemetry.Business.RecordSignup()
	s.logger.Info("account registered", "user_id", user.ID)
	return user, nil
}

// Authenticate verifies email and password. Unknown emails and wrong
// passwords return the same error.
func (s *accountService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			telemetry.Business.RecordLogin(false)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.Internal(err, "account.authenticate", "failed to load user")
	}

	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		telemetry.Business.RecordLogin(false)
		return nil, domain.ErrInvalidCredentials
	}

	telemetry.Business.RecordLogin(true)
	return user, nil
}

func (s *accountService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateBusiness replaces the business profile and optionally the logo.
func (s *accountService) UpdateBusiness(ctx context.Context, id uuid.UUID, params domain.BusinessParams) (*domain.User, error) {
	const op = "account.update_business"

	if strings.TrimSpace(params.BusinessName) == "" {
		return nil, domain.NewValidationError(op, "businessName", "Business name is required")
	}
	if params.DefaultTaxRate != nil {
		if err := validateRate(*params.DefaultTaxRate); err != nil {
			return nil, err
		}
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldKey := user.LogoKey
	if params.Logo != nil {
		key, url, err := s.storeLogo(ctx, id, params.Logo)
		if err != nil {
			return nil, err
		}
		user.LogoKey = key
		user.LogoURL = url
	}

	user.BusinessName = strings.TrimSpace(params.BusinessName)
	user.Phone = strings.TrimSpace(params.Phone)
	user.Address = params.Address.WithDefaults()
	user.GSTIN = strings.ToUpper(strings.TrimSpace(params.GSTIN))
	if params.DefaultTaxRate != nil {
		user.DefaultTaxRate = *params.DefaultTaxRate
	}
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if params.Logo != nil && oldKey != "" && oldKey != user.LogoKey {
		if err := s.files.Delete(ctx, oldKey); err != nil {
			s.logger.Warn("failed to delete previous logo", "user_id", id, "key", oldKey, "error", err)
		}
	}
	return user, nil
}

func (s *accountService) storeLogo(ctx context.Context, ownerID uuid.UUID, logo *domain.Upload) (string, string, error) {
	const op = "account.logo"

	if s.files == nil {
		return "", "", ErrStorageNotConfigured
	}
	if logo.Size > MaxLogoSize || int64(len(logo.Content)) > MaxLogoSize {
		return "", "", domain.ErrLogoTooLarge
	}

	ext, ok := logoTypes[strings.ToLower(logo.ContentType)]
	if !ok || !logoExtensions[strings.ToLower(path.Ext(logo.Filename))] {
		return "", "", domain.ErrLogoType
	}

	key := fmt.Sprintf("logos/%s/%s%s", ownerID, uuid.New(), ext)
	url, err := s.files.Put(ctx, key, bytes.NewReader(logo.Content), logo.ContentType)
	if err != nil {
		return "", "", domain.External(err, op, "Failed to store logo")
	}
	return key, url, nil
}

// UpdateTaxRate sets the default rate used for new single invoices.
func (s *accountService) UpdateTaxRate(ctx context.Context, id uuid.UUID, rate decimal.Decimal) (*domain.User, error) {
	if err := validateRate(rate); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.DefaultTaxRate = rate
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateNotifications stores notification preferences. Zero reminder days
// means the default.
func (s *accountService) UpdateNotifications(ctx context.Context, id uuid.UUID, settings domain.NotificationSettings) (*domain.User, error) {
	if settings.ReminderDays == 0 {
		settings.ReminderDays = domain.DefaultReminderDays
	}
	if settings.ReminderDays < 1 || settings.ReminderDays > maxReminderDays {
		return nil, ErrInvalidSettings
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Notifications = settings
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func validateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return domain.ErrInvalidTaxRate
	}
	return nil
}
