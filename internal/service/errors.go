package service

import (
	"github.com/dukerupert/papertrail/internal/domain"
)

// Webhook errors
var (
	ErrInvalidSignature = domain.Errorf(domain.EUNAUTHORIZED, "", "Invalid webhook signature")
)

// Invoice errors
var (
	ErrNoRecipient        = domain.Errorf(domain.EINVALID, "", "Recipient email is required")
	ErrEmailNotConfigured = domain.Errorf(domain.EEXTERNAL, "", "Email delivery is not configured")
)

// Account errors
var (
	ErrStorageNotConfigured = domain.Errorf(domain.EINTERNAL, "", "Logo storage is not configured")
	ErrInvalidSettings      = domain.Errorf(domain.EINVALID, "", "Reminder days must be between 1 and 60")
)
