package authz

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Role mirrors users.role.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
)

// ParseRole accepts the stored role names case-insensitively. An empty value
// is a customer.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case "", RoleCustomer:
		return RoleCustomer, nil
	case RoleOwner:
		return RoleOwner, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Identity is the caller as resolved by the upstream auth layer.
type Identity struct {
	UserID int64
	Role   Role
}

// ParseIdentity builds an Identity from the raw user id and role header values.
func ParseIdentity(rawUserID, rawRole string) (*Identity, error) {
	userID, err := strconv.ParseInt(strings.TrimSpace(rawUserID), 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("invalid user id %q", rawUserID)
	}
	role, err := ParseRole(rawRole)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: userID, Role: role}, nil
}

type identityContextKey struct{}

func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext retrieves the Identity stored in ctx.
// It returns nil if ctx is nil or no identity is stored.
func IdentityFromContext(ctx context.Context) *Identity {
	if ctx == nil {
		return nil
	}

	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok {
		return nil
	}

	return identity
}

// RequireIdentity returns the caller or ErrUnauthenticated.
func RequireIdentity(ctx context.Context) (*Identity, error) {
	identity := IdentityFromContext(ctx)
	if identity == nil {
		return nil, ErrUnauthenticated
	}
	return identity, nil
}

// RequireRole returns the caller when it holds one of roles. Admins pass every
// role check.
func RequireRole(ctx context.Context, roles ...Role) (*Identity, error) {
	identity, err := RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if identity.Role == RoleAdmin {
		return identity, nil
	}
	for _, role := range roles {
		if identity.Role == role {
			return identity, nil
		}
	}
	return nil, ErrForbidden
}
