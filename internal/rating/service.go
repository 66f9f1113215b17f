// Package rating records post-match peer ratings and keeps each player's
// skill level in step with the ratings they received.
package rating

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/apperr"
	"github.com/codr1/courtside/internal/clock"
	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/events"
	"github.com/codr1/courtside/internal/validation"
)

const (
	MinSkillLevel = 1
	MaxSkillLevel = 10
)

type Service struct {
	db        *db.DB
	clock     clock.Clock
	publisher events.Publisher
	validator *validation.Validator
}

func NewService(database *db.DB, clk clock.Clock, publisher events.Publisher) (*Service, error) {
	if database == nil {
		return nil, errors.New("rating service requires a database")
	}
	if clk == nil {
		clk = clock.New()
	}
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	return &Service{
		db:        database,
		clock:     clk,
		publisher: publisher,
		validator: validation.New(),
	}, nil
}

type RatePlayerInput struct {
	MatchID             int64  `validate:"gt=0"`
	RaterID             int64  `validate:"gt=0"`
	RatedID             int64  `validate:"gt=0"`
	SkillRating         int64  `validate:"min=1,max=5"`
	SportsmanshipRating int64  `validate:"min=1,max=5"`
	Comment             string `validate:"max=1000"`
}

// SkillLevel maps the average of 1-5 skill ratings onto the 1-10 scale,
// rounding half away from zero. No ratings yields MinSkillLevel.
func SkillLevel(ratings []int64) int64 {
	if len(ratings) == 0 {
		return MinSkillLevel
	}
	var sum int64
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	level := int64(math.Round(avg * 2))
	return min(max(level, MinSkillLevel), MaxSkillLevel)
}

// RatePlayer stores one rating for a completed match and recomputes the rated
// player's profile in the same transaction.
func (s *Service) RatePlayer(ctx context.Context, in RatePlayerInput) (ProfileView, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "rating_aggregator").
		Int64("match_id", in.MatchID).
		Int64("rater_id", in.RaterID).
		Int64("rated_id", in.RatedID).
		Logger()

	if err := s.validator.Struct(in); err != nil {
		return ProfileView{}, err
	}

	now := s.clock.Now()
	var profile db.PlayerProfile
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		m, err := q.GetMatch(ctx, in.MatchID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.ErrMatchNotFound.Withf("match %d not found", in.MatchID)
			}
			return fmt.Errorf("load match %d: %w", in.MatchID, err)
		}
		if m.Status != db.MatchStatusCompleted {
			return apperr.ErrMatchState.Withf("players can only be rated after the match is completed; match is %s", m.Status)
		}

		if in.RaterID == in.RatedID {
			return apperr.ErrSelfRating
		}
		for _, userID := range []int64{in.RaterID, in.RatedID} {
			if err := requireCheckedIn(ctx, q, in.MatchID, userID); err != nil {
				return err
			}
		}

		exists, err := q.RatingExists(ctx, in.MatchID, in.RaterID, in.RatedID)
		if err != nil {
			return fmt.Errorf("check existing rating: %w", err)
		}
		if exists {
			return apperr.ErrDuplicateRating.Withf("user %d already rated user %d for match %d", in.RaterID, in.RatedID, in.MatchID)
		}

		if _, err := q.CreatePlayerRating(ctx, db.CreatePlayerRatingParams{
			MatchID:             in.MatchID,
			RaterID:             in.RaterID,
			RatedID:             in.RatedID,
			SkillRating:         in.SkillRating,
			SportsmanshipRating: in.SportsmanshipRating,
			Comment:             in.Comment,
			CreatedAt:           now,
		}); err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return apperr.ErrDuplicateRating.Withf("user %d already rated user %d for match %d", in.RaterID, in.RatedID, in.MatchID)
			}
			return apperr.ErrPersistence.Withf("failed to record rating").Wrap(err)
		}

		profile, err = recomputeProfile(ctx, q, in.RatedID)
		return err
	})
	if err != nil {
		apperr.Event(&logger, err).Msg("Failed to rate player")
		return ProfileView{}, err
	}

	logger.Info().
		Int64("skill_level", profile.SkillLevel).
		Int64("matches_played", profile.MatchesPlayed).
		Str("decision", "rated").
		Msg("Recorded player rating")
	events.Emit(ctx, s.publisher, events.Event{
		Type:       events.RatingRecorded,
		ActorID:    in.RaterID,
		UserID:     in.RatedID,
		MatchID:    in.MatchID,
		OccurredAt: now,
		Data:       map[string]any{"skillLevel": profile.SkillLevel},
	})
	return newProfileView(profile), nil
}

func requireCheckedIn(ctx context.Context, q *db.Queries, matchID, userID int64) error {
	player, err := q.GetMatchPlayer(ctx, matchID, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load match player %d: %w", userID, err)
	}
	if err != nil || player.Status != db.PlayerStatusCheckedIn {
		return apperr.ErrNotParticipant.Withf("user %d did not check in to match %d", userID, matchID)
	}
	return nil
}

func recomputeProfile(ctx context.Context, q *db.Queries, userID int64) (db.PlayerProfile, error) {
	if err := q.EnsurePlayerProfile(ctx, userID); err != nil {
		return db.PlayerProfile{}, apperr.ErrPersistence.Withf("failed to create player profile").Wrap(err)
	}
	if err := requireUpdated(q.IncrementMatchesPlayed(ctx, userID)); err != nil {
		return db.PlayerProfile{}, err
	}

	ratings, err := q.ListSkillRatings(ctx, userID)
	if err != nil {
		return db.PlayerProfile{}, fmt.Errorf("list skill ratings for user %d: %w", userID, err)
	}
	if err := requireUpdated(q.UpdateSkillLevel(ctx, userID, SkillLevel(ratings))); err != nil {
		return db.PlayerProfile{}, err
	}

	profile, err := q.GetPlayerProfile(ctx, userID)
	if err != nil {
		return db.PlayerProfile{}, fmt.Errorf("reload player profile %d: %w", userID, err)
	}
	return profile, nil
}

func requireUpdated(rows int64, err error) error {
	if err != nil {
		return apperr.ErrPersistence.Withf("failed to update player profile").Wrap(err)
	}
	if rows == 0 {
		return apperr.ErrPersistence.Withf("player profile was not updated")
	}
	return nil
}

// HasUserRatedAllPlayers reports whether userID rated every other checked-in
// player of the match. It is true when there is nobody else to rate.
func (s *Service) HasUserRatedAllPlayers(ctx context.Context, matchID, userID int64) (bool, error) {
	unrated, err := s.db.Queries.CountUnratedPlayers(ctx, matchID, userID)
	if err != nil {
		return false, fmt.Errorf("count unrated players: %w", err)
	}
	return unrated == 0, nil
}

type ProfileView struct {
	UserID        int64           `json:"userId"`
	SkillLevel    int64           `json:"skillLevel"`
	MatchesPlayed int64           `json:"matchesPlayed"`
	MatchesWon    int64           `json:"matchesWon"`
	Preferences   json.RawMessage `json:"preferences"`
}

func newProfileView(p db.PlayerProfile) ProfileView {
	preferences := p.Preferences
	if len(preferences) == 0 {
		preferences = json.RawMessage("{}")
	}
	return ProfileView{
		UserID:        p.UserID,
		SkillLevel:    p.SkillLevel,
		MatchesPlayed: p.MatchesPlayed,
		MatchesWon:    p.MatchesWon,
		Preferences:   preferences,
	}
}

// GetPlayerProfile returns the stored profile, or the defaults for a user who
// has not been rated yet.
func (s *Service) GetPlayerProfile(ctx context.Context, userID int64) (ProfileView, error) {
	q := s.db.Queries
	profile, err := q.GetPlayerProfile(ctx, userID)
	if err == nil {
		return newProfileView(profile), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return ProfileView{}, fmt.Errorf("load player profile %d: %w", userID, err)
	}

	if _, err := q.GetUser(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProfileView{}, apperr.ErrUserNotFound.Withf("user %d not found", userID)
		}
		return ProfileView{}, fmt.Errorf("load user %d: %w", userID, err)
	}
	return newProfileView(db.PlayerProfile{UserID: userID, SkillLevel: MinSkillLevel}), nil
}

type RatingView struct {
	ID                  int64     `json:"id"`
	MatchID             int64     `json:"matchId"`
	RaterID             int64     `json:"raterId"`
	SkillRating         int64     `json:"skillRating"`
	SportsmanshipRating int64     `json:"sportsmanshipRating"`
	Comment             string    `json:"comment,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// GetRatingsForUser lists the ratings userID received, newest first.
func (s *Service) GetRatingsForUser(ctx context.Context, userID int64) ([]RatingView, error) {
	ratings, err := s.db.Queries.ListRatingsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list ratings for user %d: %w", userID, err)
	}
	views := make([]RatingView, 0, len(ratings))
	for _, r := range ratings {
		views = append(views, RatingView{
			ID:                  r.ID,
			MatchID:             r.MatchID,
			RaterID:             r.RaterID,
			SkillRating:         r.SkillRating,
			SportsmanshipRating: r.SportsmanshipRating,
			Comment:             r.Comment,
			CreatedAt:           r.CreatedAt,
		})
	}
	return views, nil
}
