package users_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codr1/courtside/internal/apperr"
	"github.com/codr1/courtside/internal/testutil"
	"github.com/codr1/courtside/internal/users"
)

func TestEnsureCanBook(t *testing.T) {
	database := testutil.NewTestDB(t)
	policy := users.NewPolicy(0)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	free := testutil.SeedUser(t, database, "Free")
	blocked := testutil.SeedBlockedUser(t, database, "Blocked", now.Add(time.Hour))
	expired := testutil.SeedBlockedUser(t, database, "Expired", now)

	if _, err := policy.EnsureCanBook(ctx, database.Queries, free, now); err != nil {
		t.Fatalf("free user: %v", err)
	}
	if _, err := policy.EnsureCanBook(ctx, database.Queries, blocked, now); !errors.Is(err, apperr.ErrUserBlocked) {
		t.Fatalf("expected ErrUserBlocked, got %v", err)
	}
	if _, err := policy.EnsureCanBook(ctx, database.Queries, 9999, now); !errors.Is(err, apperr.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	// A block ending exactly now has expired and is cleared on read.
	user, err := policy.EnsureCanBook(ctx, database.Queries, expired, now)
	if err != nil {
		t.Fatalf("expired block: %v", err)
	}
	if user.IsBlocked {
		t.Fatal("expected returned user to be unblocked")
	}
	stored, err := database.Queries.GetUser(ctx, expired)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.IsBlocked || stored.BlockEndDate.Valid {
		t.Fatalf("expected stored block to be cleared, got %+v", stored)
	}
}

func TestBlockForNoShow(t *testing.T) {
	database := testutil.NewTestDB(t)
	policy := users.NewPolicy(7 * 24 * time.Hour)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	userID := testutil.SeedUser(t, database, "Late")
	wrote, err := policy.BlockForNoShow(ctx, database.Queries, userID, now)
	if err != nil || !wrote {
		t.Fatalf("expected block to be written, got wrote=%v err=%v", wrote, err)
	}

	wrote, err = policy.BlockForNoShow(ctx, database.Queries, userID, now.Add(time.Hour))
	if err != nil || wrote {
		t.Fatalf("expected existing block to be kept, got wrote=%v err=%v", wrote, err)
	}

	user, err := database.Queries.GetUser(ctx, userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !user.BlockEndDate.Time.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Fatalf("unexpected block end %v", user.BlockEndDate.Time)
	}
	if !users.IsBlocked(user, now.Add(6*24*time.Hour)) {
		t.Fatal("expected user to be blocked after six days")
	}
	if users.IsBlocked(user, now.Add(7*24*time.Hour)) {
		t.Fatal("expected block to end at its end date")
	}
}

func TestNewPolicyDefaultsDuration(t *testing.T) {
	if got := users.NewPolicy(-time.Hour).BlockDuration(); got != users.DefaultBlockDuration {
		t.Fatalf("expected default duration, got %v", got)
	}
}
