package authz

import (
	"context"
	"errors"
	"testing"
)

func TestRequireIdentityUnauthenticated(t *testing.T) {
	_, err := RequireIdentity(context.Background())
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name    string
		role    Role
		allowed []Role
		wantErr error
	}{
		{name: "owner allowed", role: RoleOwner, allowed: []Role{RoleOwner}},
		{name: "customer forbidden", role: RoleCustomer, allowed: []Role{RoleOwner}, wantErr: ErrForbidden},
		{name: "admin passes", role: RoleAdmin, allowed: []Role{RoleOwner}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := ContextWithIdentity(context.Background(), &Identity{UserID: 10, Role: tc.role})
			identity, err := RequireRole(ctx, tc.allowed...)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr == nil && identity.UserID != 10 {
				t.Fatalf("unexpected identity %+v", identity)
			}
		})
	}
}

func TestParseIdentity(t *testing.T) {
	identity, err := ParseIdentity(" 42 ", "Owner")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if identity.UserID != 42 || identity.Role != RoleOwner {
		t.Fatalf("unexpected identity %+v", identity)
	}

	identity, err = ParseIdentity("7", "")
	if err != nil || identity.Role != RoleCustomer {
		t.Fatalf("expected customer default, got %+v %v", identity, err)
	}

	for _, tc := range [][2]string{{"", "customer"}, {"-1", "customer"}, {"abc", ""}, {"5", "superuser"}} {
		if _, err := ParseIdentity(tc[0], tc[1]); err == nil {
			t.Fatalf("expected %q/%q to fail", tc[0], tc[1])
		}
	}
}
