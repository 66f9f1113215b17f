// Package users holds the block policy shared by booking creation and the
// no-show sweeper.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/apperr"
	"github.com/codr1/courtside/internal/db"
)

const DefaultBlockDuration = 30 * 24 * time.Hour

type Policy struct {
	blockDuration time.Duration
}

func NewPolicy(blockDuration time.Duration) *Policy {
	if blockDuration <= 0 {
		blockDuration = DefaultBlockDuration
	}
	return &Policy{blockDuration: blockDuration}
}

func (p *Policy) BlockDuration() time.Duration {
	return p.blockDuration
}

// IsBlocked reports whether u is blocked at now. A block without an end date,
// or whose end date is not after now, is expired.
func IsBlocked(u db.User, now time.Time) bool {
	return u.IsBlocked && u.BlockEndDate.Valid && u.BlockEndDate.Time.After(now)
}

// EnsureCanBook loads the user and rejects blocked users. A stale block flag
// is cleared as a side effect so the stored row is consistent after the read.
func (p *Policy) EnsureCanBook(ctx context.Context, repo db.UserRepository, userID int64, now time.Time) (db.User, error) {
	user, err := repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.User{}, apperr.ErrUserNotFound.Withf("user %d not found", userID)
		}
		return db.User{}, fmt.Errorf("load user %d: %w", userID, err)
	}

	if IsBlocked(user, now) {
		return db.User{}, apperr.ErrUserBlocked.Withf(
			"user is blocked until %s",
			user.BlockEndDate.Time.In(now.Location()).Format("2006-01-02 15:04"),
		)
	}

	if user.IsBlocked {
		if _, err := repo.ClearUserBlock(ctx, userID); err != nil {
			return db.User{}, fmt.Errorf("clear expired block for user %d: %w", userID, err)
		}
		log.Ctx(ctx).Info().
			Int64("user_id", userID).
			Str("decision", "block_expired").
			Msg("Cleared expired user block")
		user.IsBlocked = false
		user.BlockEndDate = sql.NullTime{}
	}

	return user, nil
}

// BlockForNoShow blocks the user for the policy's block duration. A user who is
// already blocked at now is left untouched; the returned bool reports whether
// a block was written.
func (p *Policy) BlockForNoShow(ctx context.Context, repo db.UserRepository, userID int64, now time.Time) (bool, error) {
	user, err := repo.GetUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load user %d: %w", userID, err)
	}
	if IsBlocked(user, now) {
		return false, nil
	}

	rows, err := repo.BlockUser(ctx, db.BlockUserParams{
		ID:           userID,
		BlockEndDate: now.Add(p.blockDuration),
	})
	if err != nil {
		return false, fmt.Errorf("block user %d: %w", userID, err)
	}
	if rows == 0 {
		return false, apperr.ErrPersistence.Withf("block for user %d was not applied", userID)
	}
	return true, nil
}
