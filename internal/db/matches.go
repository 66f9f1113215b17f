package db

import (
	"context"
	"database/sql"
	"strings"
)

const matchColumns = `m.id, m.creator_id, m.booking_id, m.sport_id, m.title, m.description, m.team_size, m.status, m.min_skill_level, m.max_skill_level, m.created_at, m.completed_at`

func scanMatch(row scanner, m *Match) error {
	return row.Scan(
		&m.ID,
		&m.CreatorID,
		&m.BookingID,
		&m.SportID,
		&m.Title,
		&m.Description,
		&m.TeamSize,
		&m.Status,
		&m.MinSkillLevel,
		&m.MaxSkillLevel,
		&m.CreatedAt,
		&m.CompletedAt,
	)
}

const getMatch = `
SELECT ` + matchColumns + `
FROM matches m
WHERE m.id = ?
`

func (q *Queries) GetMatch(ctx context.Context, id int64) (Match, error) {
	var m Match
	err := scanMatch(q.db.QueryRowContext(ctx, getMatch, id), &m)
	return m, err
}

const matchExistsForBooking = `
SELECT EXISTS (SELECT 1 FROM matches WHERE booking_id = ?)
`

func (q *Queries) MatchExistsForBooking(ctx context.Context, bookingID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, matchExistsForBooking, bookingID).Scan(&exists)
	return exists, err
}

const createMatch = `
INSERT INTO matches (creator_id, booking_id, sport_id, title, description, team_size, status, min_skill_level, max_skill_level, created_at)
VALUES (?, ?, ?, ?, ?, ?, 'open', ?, ?, ?)
`

func (q *Queries) CreateMatch(ctx context.Context, arg CreateMatchParams) (sql.Result, error) {
	result, err := q.db.ExecContext(ctx, createMatch,
		arg.CreatorID,
		arg.BookingID,
		arg.SportID,
		arg.Title,
		arg.Description,
		arg.TeamSize,
		arg.MinSkillLevel,
		arg.MaxSkillLevel,
		arg.CreatedAt,
	)
	return result, translateWriteError(err)
}

const updateMatchStatus = `
UPDATE matches
SET status = ?, completed_at = COALESCE(?, completed_at)
WHERE id = ? AND status = ?
`

func (q *Queries) UpdateMatchStatus(ctx context.Context, arg UpdateMatchStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateMatchStatus, arg.ToStatus, arg.CompletedAt, arg.ID, arg.FromStatus)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listUserMatches = `
SELECT ` + matchColumns + `
FROM matches m
WHERE m.creator_id = ?
   OR EXISTS (
        SELECT 1 FROM match_players mp
        WHERE mp.match_id = m.id
          AND mp.user_id = ?
          AND mp.status NOT IN ('declined', 'rejected')
   )
ORDER BY m.created_at DESC, m.id DESC
`

func (q *Queries) ListUserMatches(ctx context.Context, userID int64) ([]Match, error) {
	rows, err := q.db.QueryContext(ctx, listUserMatches, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Match
	for rows.Next() {
		var m Match
		if err := scanMatch(rows, &m); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const matchPlayerColumns = `id, match_id, user_id, status, team, invited_at, responded_at, checked_in_at`

func scanMatchPlayer(row scanner, p *MatchPlayer) error {
	return row.Scan(
		&p.ID,
		&p.MatchID,
		&p.UserID,
		&p.Status,
		&p.Team,
		&p.InvitedAt,
		&p.RespondedAt,
		&p.CheckedInAt,
	)
}

const getMatchPlayer = `
SELECT ` + matchPlayerColumns + `
FROM match_players
WHERE match_id = ? AND user_id = ?
`

func (q *Queries) GetMatchPlayer(ctx context.Context, matchID, userID int64) (MatchPlayer, error) {
	var p MatchPlayer
	err := scanMatchPlayer(q.db.QueryRowContext(ctx, getMatchPlayer, matchID, userID), &p)
	return p, err
}

const listMatchPlayers = `
SELECT ` + matchPlayerColumns + `
FROM match_players
WHERE match_id = ?
ORDER BY id
`

func (q *Queries) ListMatchPlayers(ctx context.Context, matchID int64) ([]MatchPlayer, error) {
	rows, err := q.db.QueryContext(ctx, listMatchPlayers, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MatchPlayer
	for rows.Next() {
		var p MatchPlayer
		if err := scanMatchPlayer(rows, &p); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createMatchPlayer = `
INSERT INTO match_players (match_id, user_id, status, team, invited_at, checked_in_at)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateMatchPlayer(ctx context.Context, arg CreateMatchPlayerParams) (sql.Result, error) {
	result, err := q.db.ExecContext(ctx, createMatchPlayer,
		arg.MatchID,
		arg.UserID,
		arg.Status,
		arg.Team,
		arg.InvitedAt,
		arg.CheckedInAt,
	)
	return result, translateWriteError(err)
}

const updateMatchPlayerStatus = `
UPDATE match_players
SET status = ?,
    responded_at = COALESCE(?, responded_at),
    checked_in_at = COALESCE(?, checked_in_at)
WHERE id = ? AND status = ?
`

func (q *Queries) UpdateMatchPlayerStatus(ctx context.Context, arg UpdateMatchPlayerStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateMatchPlayerStatus,
		arg.ToStatus,
		arg.RespondedAt,
		arg.CheckedInAt,
		arg.ID,
		arg.FromStatus,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateMatchPlayerTeam = `
UPDATE match_players
SET team = ?
WHERE match_id = ? AND user_id = ?
`

func (q *Queries) UpdateMatchPlayerTeam(ctx context.Context, arg UpdateMatchPlayerTeamParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateMatchPlayerTeam, arg.Team, arg.MatchID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countSeatedPlayers = `
SELECT COUNT(*)
FROM match_players
WHERE match_id = ? AND status NOT IN ('declined', 'rejected')
`

// CountSeatedPlayers counts every row that holds a seat: all statuses except
// declined and rejected.
func (q *Queries) CountSeatedPlayers(ctx context.Context, matchID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countSeatedPlayers, matchID).Scan(&count)
	return count, err
}

func (q *Queries) CountPlayersByStatus(ctx context.Context, matchID int64, statuses ...PlayerStatus) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	query := `SELECT COUNT(*) FROM match_players WHERE match_id = ? AND status IN (` + placeholders + `)`

	args := make([]any, 0, len(statuses)+1)
	args = append(args, matchID)
	for _, status := range statuses {
		args = append(args, status)
	}

	var count int64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}
