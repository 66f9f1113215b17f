// Package match implements the match lifecycle layered on top of bookings.
//
// Match:  open -> in_progress -> completed, open -> cancelled.
// Player: invited -> accepted|declined, requested -> approved|rejected,
// accepted|approved -> checked_in. The creator starts checked_in on team A.
package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/apperr"
	"github.com/codr1/courtside/internal/clock"
	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/events"
	"github.com/codr1/courtside/internal/validation"
)

// Quorum is the number of checked-in players StartMatch requires.
const Quorum = 4

// MinPerSide is the number of checked-in players each team needs at start.
// Players without a team can fill either side.
const MinPerSide = 2

type Service struct {
	db        *db.DB
	clock     clock.Clock
	publisher events.Publisher
	validator *validation.Validator
}

func NewService(database *db.DB, clk clock.Clock, publisher events.Publisher) (*Service, error) {
	if database == nil {
		return nil, errors.New("match service requires a database")
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

type CreateMatchInput struct {
	CreatorID     int64  `validate:"gt=0"`
	BookingID     int64  `validate:"gt=0"`
	SportID       int64  `validate:"gt=0"`
	TeamSize      int64  `validate:"gt=0,lte=11"`
	Title         string `validate:"max=200"`
	Description   string `validate:"max=2000"`
	MinSkillLevel *int64 `validate:"omitempty,min=1,max=10"`
	MaxSkillLevel *int64 `validate:"omitempty,min=1,max=10"`
}

// CreateMatch opens a match on a booking owned by the creator and seats the
// creator as checked in on team A.
func (s *Service) CreateMatch(ctx context.Context, in CreateMatchInput) (db.Match, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "match_manager").
		Int64("user_id", in.CreatorID).
		Int64("booking_id", in.BookingID).
		Logger()

	if err := s.validator.Struct(in); err != nil {
		return db.Match{}, err
	}
	if in.MinSkillLevel != nil && in.MaxSkillLevel != nil && *in.MinSkillLevel > *in.MaxSkillLevel {
		return db.Match{}, apperr.ErrInvalidInput.Withf("minimum skill level %d is above maximum %d", *in.MinSkillLevel, *in.MaxSkillLevel)
	}

	now := s.clock.Now()
	var created db.Match
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		booking, err := q.GetBooking(ctx, in.BookingID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("load booking %d: %w", in.BookingID, err)
		}
		if err != nil || booking.UserID != in.CreatorID {
			return apperr.ErrBookingNotFound.Withf("booking %d not found for user %d", in.BookingID, in.CreatorID)
		}

		exists, err := q.MatchExistsForBooking(ctx, in.BookingID)
		if err != nil {
			return fmt.Errorf("check match for booking %d: %w", in.BookingID, err)
		}
		if exists {
			return apperr.ErrDuplicateMatch.Withf("booking %d already has a match", in.BookingID)
		}

		sportExists, err := q.SportExists(ctx, in.SportID)
		if err != nil {
			return fmt.Errorf("check sport %d: %w", in.SportID, err)
		}
		if !sportExists {
			return apperr.ErrSportNotFound.Withf("sport %d not found", in.SportID)
		}

		result, err := q.CreateMatch(ctx, db.CreateMatchParams{
			CreatorID:     in.CreatorID,
			BookingID:     in.BookingID,
			SportID:       in.SportID,
			Title:         in.Title,
			Description:   in.Description,
			TeamSize:      in.TeamSize,
			MinSkillLevel: nullInt(in.MinSkillLevel),
			MaxSkillLevel: nullInt(in.MaxSkillLevel),
			CreatedAt:     now,
		})
		if err != nil {
			if errors.Is(err, db.ErrDuplicate) {
				return apperr.ErrDuplicateMatch.Withf("booking %d already has a match", in.BookingID)
			}
			return apperr.ErrPersistence.Withf("failed to create match").Wrap(err)
		}
		matchID, err := insertedID(result)
		if err != nil {
			return err
		}

		result, err = q.CreateMatchPlayer(ctx, db.CreateMatchPlayerParams{
			MatchID:     matchID,
			UserID:      in.CreatorID,
			Status:      db.PlayerStatusCheckedIn,
			Team:        sql.NullString{String: TeamA, Valid: true},
			CheckedInAt: sql.NullTime{Time: now, Valid: true},
		})
		if err != nil {
			return apperr.ErrPersistence.Withf("failed to seat match creator").Wrap(err)
		}
		if _, err := insertedID(result); err != nil {
			return err
		}

		created, err = q.GetMatch(ctx, matchID)
		if err != nil {
			return fmt.Errorf("reload match %d: %w", matchID, err)
		}
		return nil
	})
	if err != nil {
		apperr.Event(&logger, err).Msg("Failed to create match")
		return db.Match{}, err
	}

	logger.Info().Int64("match_id", created.ID).Str("decision", "created").Msg("Created match")
	events.Emit(ctx, s.publisher, events.Event{
		Type:       events.MatchCreated,
		ActorID:    in.CreatorID,
		UserID:     in.CreatorID,
		BookingID:  in.BookingID,
		MatchID:    created.ID,
		OccurredAt: now,
		Data:       map[string]any{"sportId": in.SportID, "teamSize": in.TeamSize},
	})
	return created, nil
}

// StartMatch moves an open match to in progress once Quorum players have
// checked in and both sides can field MinPerSide of them. Only the creator
// may start it.
func (s *Service) StartMatch(ctx context.Context, matchID, userID int64) error {
	return s.transition(ctx, transitionRequest{
		matchID:     matchID,
		actorID:     userID,
		creatorOnly: true,
		from:        db.MatchStatusOpen,
		to:          db.MatchStatusInProgress,
		event:       events.MatchStarted,
		check: func(ctx context.Context, q *db.Queries, m db.Match) error {
			checkedIn, err := q.CountPlayersByStatus(ctx, m.ID, db.PlayerStatusCheckedIn)
			if err != nil {
				return fmt.Errorf("count checked-in players: %w", err)
			}
			if checkedIn < Quorum {
				return apperr.ErrMatchState.Withf("at least %d checked-in players are required to start, have %d", Quorum, checkedIn)
			}
			players, err := q.ListMatchPlayers(ctx, m.ID)
			if err != nil {
				return fmt.Errorf("list match players: %w", err)
			}
			return checkSides(players)
		},
	})
}

// CancelMatch cancels an open match. Only the creator may cancel it.
func (s *Service) CancelMatch(ctx context.Context, matchID, userID int64) error {
	return s.transition(ctx, transitionRequest{
		matchID:     matchID,
		actorID:     userID,
		creatorOnly: true,
		from:        db.MatchStatusOpen,
		to:          db.MatchStatusCancelled,
		event:       events.MatchCancelled,
	})
}

// CompleteMatch finishes an in-progress match and stamps its completion time.
func (s *Service) CompleteMatch(ctx context.Context, matchID int64) error {
	return s.transition(ctx, transitionRequest{
		matchID: matchID,
		from:    db.MatchStatusInProgress,
		to:      db.MatchStatusCompleted,
		event:   events.MatchCompleted,
	})
}

// checkSides fails when the checked-in players cannot be split into two
// teams of at least MinPerSide.
func checkSides(players []db.MatchPlayer) error {
	var teamA, teamB, unassigned int
	for _, p := range players {
		if p.Status != db.PlayerStatusCheckedIn {
			continue
		}
		switch {
		case !p.Team.Valid:
			unassigned++
		case p.Team.String == TeamA:
			teamA++
		case p.Team.String == TeamB:
			teamB++
		}
	}
	short := max(0, MinPerSide-teamA) + max(0, MinPerSide-teamB)
	if short > unassigned {
		return apperr.ErrMatchState.Withf("each side needs %d checked-in players, team A has %d, team B has %d, %d unassigned",
			MinPerSide, teamA, teamB, unassigned)
	}
	return nil
}

type transitionRequest struct {
	matchID     int64
	actorID     int64
	creatorOnly bool
	from        db.MatchStatus
	to          db.MatchStatus
	event       events.Type
	check       func(ctx context.Context, q *db.Queries, m db.Match) error
}

func (s *Service) transition(ctx context.Context, req transitionRequest) error {
	logger := log.Ctx(ctx).With().
		Str("component", "match_manager").
		Int64("match_id", req.matchID).
		Int64("user_id", req.actorID).
		Str("to_status", string(req.to)).
		Logger()

	now := s.clock.Now()
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		m, err := loadMatch(ctx, q, req.matchID)
		if err != nil {
			return err
		}
		if req.creatorOnly && m.CreatorID != req.actorID {
			return apperr.ErrNotCreator
		}
		if m.Status != req.from {
			return apperr.ErrMatchState.Withf("match is %s; must be %s", m.Status, req.from)
		}
		if req.check != nil {
			if err := req.check(ctx, q, m); err != nil {
				return err
			}
		}

		var completedAt sql.NullTime
		if req.to == db.MatchStatusCompleted {
			completedAt = sql.NullTime{Time: now, Valid: true}
		}
		rows, err := q.UpdateMatchStatus(ctx, db.UpdateMatchStatusParams{
			ID:          m.ID,
			FromStatus:  req.from,
			ToStatus:    req.to,
			CompletedAt: completedAt,
		})
		if err != nil {
			return apperr.ErrPersistence.Withf("failed to update match status").Wrap(err)
		}
		if rows == 0 {
			return apperr.ErrPersistence.Withf("match %d was not moved to %s", m.ID, req.to)
		}
		return nil
	})
	if err != nil {
		apperr.Event(&logger, err).Msg("Match transition rejected")
		return err
	}

	logger.Info().Str("decision", string(req.to)).Msg("Match status changed")
	events.Emit(ctx, s.publisher, events.Event{
		Type:       req.event,
		ActorID:    req.actorID,
		MatchID:    req.matchID,
		OccurredAt: now,
	})
	return nil
}

func loadMatch(ctx context.Context, q db.MatchRepository, matchID int64) (db.Match, error) {
	m, err := q.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.Match{}, apperr.ErrMatchNotFound.Withf("match %d not found", matchID)
		}
		return db.Match{}, fmt.Errorf("load match %d: %w", matchID, err)
	}
	return m, nil
}

func insertedID(result sql.Result) (int64, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, apperr.ErrPersistence.Withf("failed to read affected rows").Wrap(err)
	}
	if rows == 0 {
		return 0, apperr.ErrPersistence.Withf("write affected no rows")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, apperr.ErrPersistence.Withf("failed to read inserted id").Wrap(err)
	}
	return id, nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
