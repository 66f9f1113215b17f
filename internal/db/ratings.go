package db

import (
	"context"
	"database/sql"
)

const ratingExists = `
SELECT EXISTS (
    SELECT 1 FROM player_ratings
    WHERE match_id = ? AND rater_id = ? AND rated_id = ?
)
`

func (q *Queries) RatingExists(ctx context.Context, matchID, raterID, ratedID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, ratingExists, matchID, raterID, ratedID).Scan(&exists)
	return exists, err
}

const createPlayerRating = `
INSERT INTO player_ratings (match_id, rater_id, rated_id, skill_rating, sportsmanship_rating, comment, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreatePlayerRating(ctx context.Context, arg CreatePlayerRatingParams) (sql.Result, error) {
	result, err := q.db.ExecContext(ctx, createPlayerRating,
		arg.MatchID,
		arg.RaterID,
		arg.RatedID,
		arg.SkillRating,
		arg.SportsmanshipRating,
		arg.Comment,
		arg.CreatedAt,
	)
	return result, translateWriteError(err)
}

const listSkillRatings = `
SELECT skill_rating
FROM player_ratings
WHERE rated_id = ?
ORDER BY id
`

func (q *Queries) ListSkillRatings(ctx context.Context, ratedID int64) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, listSkillRatings, ratedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []int64
	for rows.Next() {
		var rating int64
		if err := rows.Scan(&rating); err != nil {
			return nil, err
		}
		items = append(items, rating)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRatingsForUser = `
SELECT id, match_id, rater_id, rated_id, skill_rating, sportsmanship_rating, comment, created_at
FROM player_ratings
WHERE rated_id = ?
ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListRatingsForUser(ctx context.Context, ratedID int64) ([]PlayerRating, error) {
	rows, err := q.db.QueryContext(ctx, listRatingsForUser, ratedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PlayerRating
	for rows.Next() {
		var r PlayerRating
		if err := rows.Scan(
			&r.ID,
			&r.MatchID,
			&r.RaterID,
			&r.RatedID,
			&r.SkillRating,
			&r.SportsmanshipRating,
			&r.Comment,
			&r.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countUnratedPlayers = `
SELECT COUNT(*)
FROM match_players mp
WHERE mp.match_id = ?
  AND mp.status = 'checked_in'
  AND mp.user_id <> ?
  AND NOT EXISTS (
        SELECT 1 FROM player_ratings r
        WHERE r.match_id = mp.match_id
          AND r.rater_id = ?
          AND r.rated_id = mp.user_id
  )
`

// CountUnratedPlayers counts the other checked-in players of a match that
// raterID has not rated yet.
func (q *Queries) CountUnratedPlayers(ctx context.Context, matchID, raterID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUnratedPlayers, matchID, raterID, raterID).Scan(&count)
	return count, err
}

const getPlayerProfile = `
SELECT user_id, skill_level, matches_played, matches_won, preferences
FROM player_profiles
WHERE user_id = ?
`

func (q *Queries) GetPlayerProfile(ctx context.Context, userID int64) (PlayerProfile, error) {
	var p PlayerProfile
	var preferences string
	err := q.db.QueryRowContext(ctx, getPlayerProfile, userID).Scan(
		&p.UserID,
		&p.SkillLevel,
		&p.MatchesPlayed,
		&p.MatchesWon,
		&preferences,
	)
	p.Preferences = []byte(preferences)
	return p, err
}

const ensurePlayerProfile = `
INSERT OR IGNORE INTO player_profiles (user_id) VALUES (?)
`

func (q *Queries) EnsurePlayerProfile(ctx context.Context, userID int64) error {
	_, err := q.db.ExecContext(ctx, ensurePlayerProfile, userID)
	return err
}

const incrementMatchesPlayed = `
UPDATE player_profiles
SET matches_played = matches_played + 1
WHERE user_id = ?
`

func (q *Queries) IncrementMatchesPlayed(ctx context.Context, userID int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, incrementMatchesPlayed, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateSkillLevel = `
UPDATE player_profiles
SET skill_level = ?
WHERE user_id = ?
`

func (q *Queries) UpdateSkillLevel(ctx context.Context, userID, skillLevel int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateSkillLevel, skillLevel, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
