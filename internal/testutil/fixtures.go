package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/codr1/courtside/internal/db"
)

func insert(t *testing.T, database *db.DB, query string, args ...any) int64 {
	t.Helper()

	result, err := database.ExecContext(context.Background(), query, args...)
	if err != nil {
		t.Fatalf("seed insert: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("seed insert id: %v", err)
	}
	return id
}

func SeedUser(t *testing.T, database *db.DB, name string) int64 {
	t.Helper()
	return insert(t, database, "INSERT INTO users (name, role) VALUES (?, 'customer')", name)
}

func SeedOwner(t *testing.T, database *db.DB, name string) int64 {
	t.Helper()
	return insert(t, database, "INSERT INTO users (name, role) VALUES (?, 'owner')", name)
}

// SeedBlockedUser creates a user whose block ends at blockEnd.
func SeedBlockedUser(t *testing.T, database *db.DB, name string, blockEnd time.Time) int64 {
	t.Helper()
	return insert(t, database,
		"INSERT INTO users (name, role, is_blocked, block_end_date) VALUES (?, 'customer', 1, ?)",
		name, blockEnd,
	)
}

func SeedFacility(t *testing.T, database *db.DB, ownerID int64) int64 {
	t.Helper()
	return insert(t, database, "INSERT INTO facilities (owner_id, name, city) VALUES (?, 'Test Facility', 'Testville')", ownerID)
}

func SeedCourt(t *testing.T, database *db.DB, facilityID, pricePerHourCents int64) int64 {
	t.Helper()
	return insert(t, database,
		"INSERT INTO courts (facility_id, name, capacity, price_per_hour_cents) VALUES (?, 'Court', 4, ?)",
		facilityID, pricePerHourCents,
	)
}

func SeedSport(t *testing.T, database *db.DB, name string) int64 {
	t.Helper()
	return insert(t, database, "INSERT INTO sports (name) VALUES (?)", name)
}

// SeedBooking inserts a booking directly, bypassing the lifecycle rules.
// date is YYYY-MM-DD and start/end are HH:MM:SS.
func SeedBooking(t *testing.T, database *db.DB, userID, courtID int64, date, start, end string, status db.BookingStatus) int64 {
	t.Helper()
	return insert(t, database,
		`INSERT INTO bookings (user_id, court_id, booking_date, start_time, end_time, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, courtID, date, start, end, status, time.Now(),
	)
}

func SeedMatch(t *testing.T, database *db.DB, creatorID, bookingID, sportID, teamSize int64, status db.MatchStatus) int64 {
	t.Helper()
	return insert(t, database,
		`INSERT INTO matches (creator_id, booking_id, sport_id, title, team_size, status, created_at)
		 VALUES (?, ?, ?, 'Test Match', ?, ?, ?)`,
		creatorID, bookingID, sportID, teamSize, status, time.Now(),
	)
}

func SeedMatchPlayer(t *testing.T, database *db.DB, matchID, userID int64, status db.PlayerStatus) int64 {
	t.Helper()
	var checkedInAt sql.NullTime
	if status == db.PlayerStatusCheckedIn {
		checkedInAt = sql.NullTime{Time: time.Now(), Valid: true}
	}
	return insert(t, database,
		"INSERT INTO match_players (match_id, user_id, status, checked_in_at) VALUES (?, ?, ?, ?)",
		matchID, userID, status, checkedInAt,
	)
}

func SeedPlayerProfile(t *testing.T, database *db.DB, userID, skillLevel int64) {
	t.Helper()
	insert(t, database, "INSERT INTO player_profiles (user_id, skill_level) VALUES (?, ?)", userID, skillLevel)
}
