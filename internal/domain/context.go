// Package domain provides core business types and context helpers for Papertrail.
//
// Every client and invoice belongs to exactly one owner account. Context
// helpers carry the authenticated owner through the request so that
// repository queries can always be scoped by owner_id.
package domain

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	ownerContextKey contextKey = iota
	requestIDContextKey
)

// Owner represents the authenticated account stored in context.
// The full User record can be loaded from the database when needed.
type Owner struct {
	ID    uuid.UUID
	Email string
}

// NewContextWithOwner returns a new context with the owner attached.
func NewContextWithOwner(ctx context.Context, owner *Owner) context.Context {
	return context.WithValue(ctx, ownerContextKey, owner)
}

// OwnerFromContext retrieves the owner from context.
// Returns nil if no owner is present.
func OwnerFromContext(ctx context.Context) *Owner {
	owner, _ := ctx.Value(ownerContextKey).(*Owner)
	return owner
}

// OwnerIDFromContext retrieves the owner ID from context.
// Returns uuid.Nil if no owner is present.
func OwnerIDFromContext(ctx context.Context) uuid.UUID {
	if owner := OwnerFromContext(ctx); owner != nil {
		return owner.ID
	}
	return uuid.Nil
}

// RequireOwnerID retrieves the owner ID from context, panicking if not present.
// Use this behind the auth middleware; the recovery middleware turns the
// panic into a 500.
func RequireOwnerID(ctx context.Context) uuid.UUID {
	id := OwnerIDFromContext(ctx)
	if id == uuid.Nil {
		panic("owner_id required in context but not found")
	}
	return id
}

// NewContextWithRequestID returns a new context with the request ID attached.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDContextKey).(string)
	return requestID
}

// IsAuthenticated returns true if there is an owner in context.
func IsAuthenticated(ctx context.Context) bool {
	return OwnerFromContext(ctx) != nil
}
