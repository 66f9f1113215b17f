package db

import (
	"database/sql"
	"encoding/json"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusNoShow    BookingStatus = "no_show"
)

type MatchStatus string

const (
	MatchStatusOpen       MatchStatus = "open"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCancelled  MatchStatus = "cancelled"
)

type PlayerStatus string

const (
	PlayerStatusInvited   PlayerStatus = "invited"
	PlayerStatusRequested PlayerStatus = "requested"
	PlayerStatusAccepted  PlayerStatus = "accepted"
	PlayerStatusApproved  PlayerStatus = "approved"
	PlayerStatusDeclined  PlayerStatus = "declined"
	PlayerStatusRejected  PlayerStatus = "rejected"
	PlayerStatusCheckedIn PlayerStatus = "checked_in"
)

// Counted reports whether a player row occupies a seat in the match.
func (s PlayerStatus) Counted() bool {
	return s != PlayerStatusDeclined && s != PlayerStatusRejected
}

type User struct {
	ID           int64
	Name         string
	Role         string
	IsBlocked    bool
	BlockEndDate sql.NullTime
	CreatedAt    time.Time
}

type Facility struct {
	ID      int64
	OwnerID int64
	Name    string
	City    string
}

type Court struct {
	ID                int64
	FacilityID        int64
	Name              string
	Capacity          int64
	PricePerHourCents int64
}

type Booking struct {
	ID          int64
	UserID      int64
	CourtID     int64
	BookingDate string
	StartTime   string
	EndTime     string
	Status      BookingStatus
	CheckedInAt sql.NullTime
	CreatedAt   time.Time
}

// BookingWithCourt is a booking joined with the court pricing and facility it
// belongs to. Court columns are null when the court row is missing.
type BookingWithCourt struct {
	Booking
	FacilityID        sql.NullInt64
	CourtName         sql.NullString
	PricePerHourCents sql.NullInt64
}

type Match struct {
	ID            int64
	CreatorID     int64
	BookingID     int64
	SportID       int64
	Title         string
	Description   string
	TeamSize      int64
	Status        MatchStatus
	MinSkillLevel sql.NullInt64
	MaxSkillLevel sql.NullInt64
	CreatedAt     time.Time
	CompletedAt   sql.NullTime
}

type MatchPlayer struct {
	ID          int64
	MatchID     int64
	UserID      int64
	Status      PlayerStatus
	Team        sql.NullString
	InvitedAt   sql.NullTime
	RespondedAt sql.NullTime
	CheckedInAt sql.NullTime
}

type PlayerRating struct {
	ID                  int64
	MatchID             int64
	RaterID             int64
	RatedID             int64
	SkillRating         int64
	SportsmanshipRating int64
	Comment             string
	CreatedAt           time.Time
}

type PlayerProfile struct {
	UserID        int64
	SkillLevel    int64
	MatchesPlayed int64
	MatchesWon    int64
	Preferences   json.RawMessage
}
