package match

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/codr1/courtside/internal/db"
)

type PlayerView struct {
	UserID      int64           `json:"userId"`
	Status      db.PlayerStatus `json:"status"`
	Team        string          `json:"team,omitempty"`
	InvitedAt   *time.Time      `json:"invitedAt,omitempty"`
	RespondedAt *time.Time      `json:"respondedAt,omitempty"`
	CheckedInAt *time.Time      `json:"checkedInAt,omitempty"`
}

type MatchView struct {
	ID            int64          `json:"id"`
	CreatorID     int64          `json:"creatorId"`
	BookingID     int64          `json:"bookingId"`
	SportID       int64          `json:"sportId"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	TeamSize      int64          `json:"teamSize"`
	Status        db.MatchStatus `json:"status"`
	MinSkillLevel *int64         `json:"minSkillLevel,omitempty"`
	MaxSkillLevel *int64         `json:"maxSkillLevel,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	CompletedAt   *time.Time     `json:"completedAt,omitempty"`
	Players       []PlayerView   `json:"players"`
}

func newMatchView(m db.Match, players []db.MatchPlayer) MatchView {
	view := MatchView{
		ID:            m.ID,
		CreatorID:     m.CreatorID,
		BookingID:     m.BookingID,
		SportID:       m.SportID,
		Title:         m.Title,
		Description:   m.Description,
		TeamSize:      m.TeamSize,
		Status:        m.Status,
		MinSkillLevel: optionalInt(m.MinSkillLevel),
		MaxSkillLevel: optionalInt(m.MaxSkillLevel),
		CreatedAt:     m.CreatedAt,
		CompletedAt:   optionalTime(m.CompletedAt),
		Players:       make([]PlayerView, 0, len(players)),
	}
	for _, p := range players {
		view.Players = append(view.Players, PlayerView{
			UserID:      p.UserID,
			Status:      p.Status,
			Team:        p.Team.String,
			InvitedAt:   optionalTime(p.InvitedAt),
			RespondedAt: optionalTime(p.RespondedAt),
			CheckedInAt: optionalTime(p.CheckedInAt),
		})
	}
	return view
}

// GetMatch returns the match with every player row, including declined and
// rejected ones.
func (s *Service) GetMatch(ctx context.Context, matchID int64) (MatchView, error) {
	q := s.db.Queries
	m, err := loadMatch(ctx, q, matchID)
	if err != nil {
		return MatchView{}, err
	}
	players, err := q.ListMatchPlayers(ctx, matchID)
	if err != nil {
		return MatchView{}, fmt.Errorf("list players for match %d: %w", matchID, err)
	}
	return newMatchView(m, players), nil
}

// GetUserMatches lists the matches the user created or holds a seat in.
func (s *Service) GetUserMatches(ctx context.Context, userID int64) ([]MatchView, error) {
	q := s.db.Queries
	matches, err := q.ListUserMatches(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list matches for user %d: %w", userID, err)
	}

	views := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		players, err := q.ListMatchPlayers(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("list players for match %d: %w", m.ID, err)
		}
		views = append(views, newMatchView(m, players))
	}
	return views, nil
}

func optionalInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func optionalTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
