package match

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/apperr"
	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/events"
)

const (
	TeamA = "A"
	TeamB = "B"
)

// defaultSkillLevel applies to users who have no profile yet.
const defaultSkillLevel = 1

func (s *Service) playerLogger(ctx context.Context, matchID, userID int64) zerolog.Logger {
	return log.Ctx(ctx).With().
		Str("component", "match_manager").
		Int64("match_id", matchID).
		Int64("user_id", userID).
		Logger()
}

// InvitePlayer adds an invited row for invitedID. The inviter must be the
// creator or an active player of the match.
func (s *Service) InvitePlayer(ctx context.Context, matchID, invitedID, inviterID int64) error {
	logger := s.playerLogger(ctx, matchID, invitedID).With().Int64("inviter_id", inviterID).Logger()
	now := s.clock.Now()

	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		m, err := loadMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		if m.CreatorID != inviterID {
			inviter, err := q.GetMatchPlayer(ctx, matchID, inviterID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("load inviter: %w", err)
			}
			if err != nil || !isActive(inviter.Status) {
				return apperr.ErrNotInMatch
			}
		}
		if m.Status != db.MatchStatusOpen {
			return apperr.ErrMatchState.Withf("players can only be invited to an open match; match is %s", m.Status)
		}
		if _, err := q.GetUser(ctx, invitedID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.ErrUserNotFound.Withf("user %d not found", invitedID)
			}
			return fmt.Errorf("load user %d: %w", invitedID, err)
		}
		if err := ensureSeatAvailable(ctx, q, m, invitedID); err != nil {
			return err
		}
		return insertPlayer(ctx, q, db.CreateMatchPlayerParams{
			MatchID:   matchID,
			UserID:    invitedID,
			Status:    db.PlayerStatusInvited,
			InvitedAt: sql.NullTime{Time: now, Valid: true},
		})
	})
	if err != nil {
		apperr.Event(&logger, err).Msg("Failed to invite player")
		return err
	}

	logger.Info().Str("decision", string(db.PlayerStatusInvited)).Msg("Invited player")
	events.Emit(ctx, s.publisher, events.Event{
		Type:       events.MatchPlayerInvited,
		ActorID:    inviterID,
		UserID:     invitedID,
		MatchID:    matchID,
		OccurredAt: now,
	})
	return nil
}

// RespondToInvitation accepts or declines the user's pending invitation.
func (s *Service) RespondToInvitation(ctx context.Context, matchID, userID int64, accept bool) error {
	to := db.PlayerStatusDeclined
	if accept {
		to = db.PlayerStatusAccepted
	}
	return s.respond(ctx, respondRequest{
		matchID:  matchID,
		playerID: userID,
		actorID:  userID,
		from:     db.PlayerStatusInvited,
		to:       to,
		missing:  apperr.ErrInvitationNotFound,
		event:    events.MatchInvitationAnswered,
	})
}

// RespondToJoinRequest approves or rejects a join request. Only the creator
// may answer.
func (s *Service) RespondToJoinRequest(ctx context.Context, matchID, requesterID, responderID int64, approve bool) error {
	to := db.PlayerStatusRejected
	if approve {
		to = db.PlayerStatusApproved
	}
	return s.respond(ctx, respondRequest{
		matchID:     matchID,
		playerID:    requesterID,
		actorID:     responderID,
		creatorOnly: true,
		from:        db.PlayerStatusRequested,
		to:          to,
		missing:     apperr.ErrJoinRequestMissing,
		event:       events.MatchJoinAnswered,
	})
}

type respondRequest struct {
	matchID     int64
	playerID    int64
	actorID     int64
	creatorOnly bool
	from        db.PlayerStatus
	to          db.PlayerStatus
	missing     *apperr.Error
	event       events.Type
}

func (s *Service) respond(ctx context.Context, req respondRequest) error {
	logger := s.playerLogger(ctx, req.matchID, req.playerID).With().Int64("actor_id", req.actorID).Logger()
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
		if m.Status != db.MatchStatusOpen {
			return apperr.ErrMatchState.Withf("match is %s; must be open", m.Status)
		}

		player, err := q.GetMatchPlayer(ctx, req.matchID, req.playerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return req.missing
			}
			return fmt.Errorf("load match player: %w", err)
		}
		if player.Status != req.from {
			return apperr.ErrPlayerState.Withf("player is %s; must be %s", player.Status, req.from)
		}

		return updatePlayerStatus(ctx, q, db.UpdateMatchPlayerStatusParams{
			ID:          player.ID,
			FromStatus:  req.from,
			ToStatus:    req.to,
			RespondedAt: sql.NullTime{Time: now, Valid: true},
		})
	})
	if err != nil {
		apperr.Event(&logger, err).Msg("Failed to record response")
		return err
	}

	logger.Info().Str("decision", string(req.to)).Msg("Recorded response")
	events.Emit(ctx, s.publisher, events.Event{
		Type:       req.event,
		ActorID:    req.actorID,
		UserID:     req.playerID,
		MatchID:    req.matchID,
		OccurredAt: now,
		Data:       map[string]any{"status": string(req.to)},
	})
	return nil
}

// RequestToJoin adds a join request for userID, subject to capacity and the
// match's skill range.
func (s *Service) RequestToJoin(ctx context.Context, matchID, userID int64) error {
	logger := s.playerLogger(ctx, matchID, userID)
	now := s.clock.Now()

	var creatorID int64
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		m, err := loadMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		creatorID = m.CreatorID
		if m.Status != db.MatchStatusOpen {
			return apperr.ErrMatchState.Withf("only open matches accept join requests; match is %s", m.Status)
		}
		if err := ensureSeatAvailable(ctx, q, m, userID); err != nil {
			return err
		}
		if err := checkSkillRange(ctx, q, m, userID); err != nil {
			return err
		}
		return insertPlayer(ctx, q, db.CreateMatchPlayerParams{
			MatchID: matchID,
			UserID:  userID,
			Status:  db.PlayerStatusRequested,
		})
	})
	if err != nil {
		apperr.Event(&logger, err).Msg("Failed to request to join")
		return err
	}

	logger.Info().Str("decision", string(db.PlayerStatusRequested)).Msg("Requested to join match")
	events.Emit(ctx, s.publisher, events.Event{
		Type:       events.MatchJoinRequested,
		ActorID:    userID,
		UserID:     creatorID,
		MatchID:    matchID,
		OccurredAt: now,
	})
	return nil
}

// CheckInPlayer checks in an accepted or approved player. When no accepted or
// approved players remain afterwards, an open match moves to in progress.
func (s *Service) CheckInPlayer(ctx context.Context, matchID, userID int64) error {
	logger := s.playerLogger(ctx, matchID, userID)
	now := s.clock.Now()

	var started bool
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		m, err := loadMatch(ctx, q, matchID)
		if err != nil {
			return err
		}
		if m.Status != db.MatchStatusOpen && m.Status != db.MatchStatusInProgress {
			return apperr.ErrMatchState.Withf("cannot check in to a %s match", m.Status)
		}

		player, err := q.GetMatchPlayer(ctx, matchID, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.ErrPlayerNotFound
			}
			return fmt.Errorf("load match player: %w", err)
		}
		if player.Status != db.PlayerStatusAccepted && player.Status != db.PlayerStatusApproved {
			return apperr.ErrPlayerState.Withf("only accepted or approved players can check in; player is %s", player.Status)
		}

		if err := updatePlayerStatus(ctx, q, db.UpdateMatchPlayerStatusParams{
			ID:          player.ID,
			FromStatus:  player.Status,
			ToStatus:    db.PlayerStatusCheckedIn,
			CheckedInAt: sql.NullTime{Time: now, Valid: true},
		}); err != nil {
			return err
		}

		if m.Status != db.MatchStatusOpen {
			return nil
		}
		waiting, err := q.CountPlayersByStatus(ctx, matchID, db.PlayerStatusAccepted, db.PlayerStatusApproved)
		if err != nil {
			return fmt.Errorf("count players awaiting check-in: %w", err)
		}
		if waiting > 0 {
			return nil
		}
		rows, err := q.UpdateMatchStatus(ctx, db.UpdateMatchStatusParams{
			ID:         matchID,
			FromStatus: db.MatchStatusOpen,
			ToStatus:   db.MatchStatusInProgress,
		})
		if err != nil {
			return apperr.ErrPersistence.Withf("failed to start match").Wrap(err)
		}
		if rows == 0 {
			return apperr.ErrPersistence.Withf("match %d was not started", matchID)
		}
		started = true
		return nil
	})
	if err != nil {
		apperr.Event(&logger, err).Msg("Failed to check in player")
		return err
	}

	logger.Info().Str("decision", string(db.PlayerStatusCheckedIn)).Bool("match_started", started).Msg("Checked in player")
	events.Emit(ctx, s.publisher, events.Event{
		Type:       events.MatchPlayerCheckedIn,
		ActorID:    userID,
		UserID:     userID,
		MatchID:    matchID,
		OccurredAt: now,
	})
	if started {
		events.Emit(ctx, s.publisher, events.Event{
			Type:       events.MatchStarted,
			ActorID:    userID,
			MatchID:    matchID,
			OccurredAt: now,
			Data:       map[string]any{"automatic": true},
		})
	}
	return nil
}

// AssignTeam puts a player of the match on team "A" or "B".
func (s *Service) AssignTeam(ctx context.Context, matchID, playerID int64, team string) error {
	logger := s.playerLogger(ctx, matchID, playerID).With().Str("team", team).Logger()

	if team != TeamA && team != TeamB {
		err := apperr.ErrInvalidTeam.Withf("team must be %q or %q, got %q", TeamA, TeamB, team)
		apperr.Event(&logger, err).Msg("Rejected team assignment")
		return err
	}

	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		if _, err := loadMatch(ctx, q, matchID); err != nil {
			return err
		}
		if _, err := q.GetMatchPlayer(ctx, matchID, playerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.ErrPlayerNotFound
			}
			return fmt.Errorf("load match player: %w", err)
		}
		rows, err := q.UpdateMatchPlayerTeam(ctx, db.UpdateMatchPlayerTeamParams{
			MatchID: matchID,
			UserID:  playerID,
			Team:    team,
		})
		if err != nil {
			return apperr.ErrPersistence.Withf("failed to assign team").Wrap(err)
		}
		if rows == 0 {
			return apperr.ErrPersistence.Withf("team for player %d was not assigned", playerID)
		}
		return nil
	})
	if err != nil {
		apperr.Event(&logger, err).Msg("Failed to assign team")
		return err
	}

	logger.Info().Str("decision", "team_assigned").Msg("Assigned team")
	events.Emit(ctx, s.publisher, events.Event{
		Type:       events.MatchTeamAssigned,
		UserID:     playerID,
		MatchID:    matchID,
		OccurredAt: s.clock.Now(),
		Data:       map[string]any{"team": team},
	})
	return nil
}

func isActive(status db.PlayerStatus) bool {
	switch status {
	case db.PlayerStatusAccepted, db.PlayerStatusApproved, db.PlayerStatusCheckedIn:
		return true
	}
	return false
}

// ensureSeatAvailable rejects users that already have a row in the match and
// matches whose seated rows already fill both teams.
func ensureSeatAvailable(ctx context.Context, q *db.Queries, m db.Match, userID int64) error {
	_, err := q.GetMatchPlayer(ctx, m.ID, userID)
	switch {
	case err == nil:
		return apperr.ErrAlreadyInMatch.Withf("user %d is already part of match %d", userID, m.ID)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("load match player: %w", err)
	}

	seated, err := q.CountSeatedPlayers(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("count seated players: %w", err)
	}
	if capacity := m.TeamSize * 2; seated >= capacity {
		return apperr.ErrMatchFull.Withf("match %d is full (%d of %d players)", m.ID, seated, capacity)
	}
	return nil
}

func checkSkillRange(ctx context.Context, q *db.Queries, m db.Match, userID int64) error {
	if !m.MinSkillLevel.Valid && !m.MaxSkillLevel.Valid {
		return nil
	}

	level := int64(defaultSkillLevel)
	profile, err := q.GetPlayerProfile(ctx, userID)
	switch {
	case err == nil:
		level = profile.SkillLevel
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("load player profile %d: %w", userID, err)
	}

	if m.MinSkillLevel.Valid && level < m.MinSkillLevel.Int64 {
		return apperr.ErrSkillOutOfRange.Withf("skill level %d is below the match minimum of %d", level, m.MinSkillLevel.Int64)
	}
	if m.MaxSkillLevel.Valid && level > m.MaxSkillLevel.Int64 {
		return apperr.ErrSkillOutOfRange.Withf("skill level %d is above the match maximum of %d", level, m.MaxSkillLevel.Int64)
	}
	return nil
}

func insertPlayer(ctx context.Context, q *db.Queries, arg db.CreateMatchPlayerParams) error {
	result, err := q.CreateMatchPlayer(ctx, arg)
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return apperr.ErrAlreadyInMatch.Withf("user %d is already part of match %d", arg.UserID, arg.MatchID)
		}
		return apperr.ErrPersistence.Withf("failed to add player").Wrap(err)
	}
	_, err = insertedID(result)
	return err
}

func updatePlayerStatus(ctx context.Context, q *db.Queries, arg db.UpdateMatchPlayerStatusParams) error {
	rows, err := q.UpdateMatchPlayerStatus(ctx, arg)
	if err != nil {
		return apperr.ErrPersistence.Withf("failed to update player status").Wrap(err)
	}
	if rows == 0 {
		return apperr.ErrPersistence.Withf("player %d was not moved to %s", arg.ID, arg.ToStatus)
	}
	return nil
}
