package domain

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Role represents the authorization role of a user
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole parses a role name case-insensitively
func ParseRole(s string) (Role, error) {
	switch role := Role(strings.ToUpper(strings.TrimSpace(s))); role {
	case RoleUser, RoleAdmin:
		return role, nil
	}
	return "", Errorf(KindInvalidArgument, "unknown role %q", s)
}

// User represents a user entity in the domain layer
type User struct {
	ID           uuid.UUID
	Name         string
	Role         Role
	PasswordHash string
}

// Principal is the resolved identity an operation acts on behalf of.
// Use cases perform their own ownership checks against it.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin reports whether the principal holds the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// AssertOwnerOrAdmin returns Forbidden unless p owns the card or is an admin
func AssertOwnerOrAdmin(p Principal, card *Card) error {
	if p.IsAdmin() {
		return nil
	}
	if p.UserID == uuid.Nil || card.OwnerID != p.UserID {
		return NewError(KindForbidden, "card not owned by acting user").
			With("card_id", card.ID.String()).
			With("user_id", p.UserID.String())
	}
	return nil
}

// AssertAdmin returns Forbidden unless p is an admin
func AssertAdmin(p Principal) error {
	if !p.IsAdmin() {
		return NewError(KindForbidden, "admin role required").With("user_id", p.UserID.String())
	}
	return nil
}

type principalKey struct{}

// ContextWithPrincipal returns a context carrying p
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal installed by the auth layer
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
