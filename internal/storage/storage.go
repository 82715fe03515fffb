// Package storage keeps uploaded files such as company logos.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Configuration errors surface at startup.
var (
	ErrR2AccountIDRequired = errors.New("storage: R2 account ID is required")
	ErrCredentialsRequired = errors.New("storage: bucket credentials are required")
	ErrBucketRequired      = errors.New("storage: bucket name is required")
	ErrUnknownProvider     = errors.New("storage: unknown provider")
)

// ErrInvalidKey is returned for keys that are empty or leave the root.
var ErrInvalidKey = errors.New("storage: invalid key")

// Storage defines the interface for file storage operations.
// Implementations: LocalStorage, S3Storage (S3 or Cloudflare R2).
type Storage interface {
	// Put stores a file and returns its public URL.
	// The key should be a unique identifier (e.g., "logos/<owner>/<uuid>.png").
	Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error)

	// Delete removes a file by its key.
	// Returns nil if the file doesn't exist (idempotent).
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for accessing a stored file.
	URL(key string) string
}

// Config selects and configures a backend.
type Config struct {
	Provider string // "local" or "r2"

	LocalPath string
	LocalURL  string

	R2AccountID   string
	R2AccessKeyID string
	R2SecretKey   string
	R2BucketName  string
	R2PublicURL   string
}

// New creates a Storage implementation based on configuration.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Provider {
	case "local", "":
		return NewLocalStorage(cfg.LocalPath, cfg.LocalURL)
	case "r2":
		return NewS3Storage(ctx, R2(cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretKey, cfg.R2BucketName, cfg.R2PublicURL))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// cleanKey normalizes a key and rejects anything that escapes the root.
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}
