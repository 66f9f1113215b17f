package db

import (
	"context"
	"database/sql"
	"time"
)

// The interfaces below are the query shapes each aggregate needs. *Queries
// implements all of them; services depend on the narrow one they use.

type UserRepository interface {
	GetUser(ctx context.Context, id int64) (User, error)
	ClearUserBlock(ctx context.Context, id int64) (int64, error)
	BlockUser(ctx context.Context, arg BlockUserParams) (int64, error)
}

type CourtRepository interface {
	GetCourt(ctx context.Context, id int64) (Court, error)
	GetFacility(ctx context.Context, id int64) (Facility, error)
	SportExists(ctx context.Context, id int64) (bool, error)
}

type BookingRepository interface {
	GetBooking(ctx context.Context, id int64) (Booking, error)
	CountOverlappingBookings(ctx context.Context, arg SlotParams) (int64, error)
	CreateBooking(ctx context.Context, arg CreateBookingParams) (sql.Result, error)
	UpdateBookingStatus(ctx context.Context, arg UpdateBookingStatusParams) (int64, error)
	CheckInBooking(ctx context.Context, arg CheckInBookingParams) (int64, error)
	GetBookingWithCourt(ctx context.Context, id int64) (BookingWithCourt, error)
	ListCourtBookings(ctx context.Context, courtID int64, bookingDate string) ([]BookingWithCourt, error)
	ListFacilityBookings(ctx context.Context, facilityID int64, bookingDate string) ([]BookingWithCourt, error)
	ListUserBookings(ctx context.Context, userID int64) ([]BookingWithCourt, error)
	ListExpiredConfirmedBookings(ctx context.Context, arg ExpiredBookingsParams) ([]Booking, error)
}

type MatchRepository interface {
	GetMatch(ctx context.Context, id int64) (Match, error)
	MatchExistsForBooking(ctx context.Context, bookingID int64) (bool, error)
	CreateMatch(ctx context.Context, arg CreateMatchParams) (sql.Result, error)
	UpdateMatchStatus(ctx context.Context, arg UpdateMatchStatusParams) (int64, error)
	ListUserMatches(ctx context.Context, userID int64) ([]Match, error)
}

type MatchPlayerRepository interface {
	GetMatchPlayer(ctx context.Context, matchID, userID int64) (MatchPlayer, error)
	ListMatchPlayers(ctx context.Context, matchID int64) ([]MatchPlayer, error)
	CreateMatchPlayer(ctx context.Context, arg CreateMatchPlayerParams) (sql.Result, error)
	UpdateMatchPlayerStatus(ctx context.Context, arg UpdateMatchPlayerStatusParams) (int64, error)
	UpdateMatchPlayerTeam(ctx context.Context, arg UpdateMatchPlayerTeamParams) (int64, error)
	CountSeatedPlayers(ctx context.Context, matchID int64) (int64, error)
	CountPlayersByStatus(ctx context.Context, matchID int64, statuses ...PlayerStatus) (int64, error)
}

type RatingRepository interface {
	RatingExists(ctx context.Context, matchID, raterID, ratedID int64) (bool, error)
	CreatePlayerRating(ctx context.Context, arg CreatePlayerRatingParams) (sql.Result, error)
	ListSkillRatings(ctx context.Context, ratedID int64) ([]int64, error)
	ListRatingsForUser(ctx context.Context, ratedID int64) ([]PlayerRating, error)
	CountUnratedPlayers(ctx context.Context, matchID, raterID int64) (int64, error)
	GetPlayerProfile(ctx context.Context, userID int64) (PlayerProfile, error)
	EnsurePlayerProfile(ctx context.Context, userID int64) error
	IncrementMatchesPlayed(ctx context.Context, userID int64) (int64, error)
	UpdateSkillLevel(ctx context.Context, userID, skillLevel int64) (int64, error)
}

var (
	_ UserRepository        = (*Queries)(nil)
	_ CourtRepository       = (*Queries)(nil)
	_ BookingRepository     = (*Queries)(nil)
	_ MatchRepository       = (*Queries)(nil)
	_ MatchPlayerRepository = (*Queries)(nil)
	_ RatingRepository      = (*Queries)(nil)
)

type BlockUserParams struct {
	ID           int64
	BlockEndDate time.Time
}

type SlotParams struct {
	CourtID     int64
	BookingDate string
	StartTime   string
	EndTime     string
}

type CreateBookingParams struct {
	UserID      int64
	CourtID     int64
	BookingDate string
	StartTime   string
	EndTime     string
	Status      BookingStatus
	CreatedAt   time.Time
}

type UpdateBookingStatusParams struct {
	ID         int64
	FromStatus BookingStatus
	ToStatus   BookingStatus
}

type CheckInBookingParams struct {
	ID          int64
	CheckedInAt time.Time
}

type ExpiredBookingsParams struct {
	ComparisonDate string
	ComparisonTime string
}

type CreateMatchParams struct {
	CreatorID     int64
	BookingID     int64
	SportID       int64
	Title         string
	Description   string
	TeamSize      int64
	MinSkillLevel sql.NullInt64
	MaxSkillLevel sql.NullInt64
	CreatedAt     time.Time
}

type UpdateMatchStatusParams struct {
	ID          int64
	FromStatus  MatchStatus
	ToStatus    MatchStatus
	CompletedAt sql.NullTime
}

type CreateMatchPlayerParams struct {
	MatchID     int64
	UserID      int64
	Status      PlayerStatus
	Team        sql.NullString
	InvitedAt   sql.NullTime
	CheckedInAt sql.NullTime
}

type UpdateMatchPlayerStatusParams struct {
	ID          int64
	FromStatus  PlayerStatus
	ToStatus    PlayerStatus
	RespondedAt sql.NullTime
	CheckedInAt sql.NullTime
}

type UpdateMatchPlayerTeamParams struct {
	MatchID int64
	UserID  int64
	Team    string
}

type CreatePlayerRatingParams struct {
	MatchID             int64
	RaterID             int64
	RatedID             int64
	SkillRating         int64
	SportsmanshipRating int64
	Comment             string
	CreatedAt           time.Time
}
