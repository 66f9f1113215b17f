package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/events"
	"github.com/codr1/courtside/internal/testutil"
	"github.com/codr1/courtside/internal/users"
)

type sweeperFixture struct {
	db        *db.DB
	sweeper   *NoShowSweeper
	publisher *testutil.RecordingPublisher
	courtID   int64
}

func setupSweeperTest(t *testing.T, now time.Time) sweeperFixture {
	t.Helper()

	database := testutil.NewTestDB(t)
	publisher := &testutil.RecordingPublisher{}
	sweeper, err := NewNoShowSweeper(database, testutil.NewFakeClock(now), users.NewPolicy(users.DefaultBlockDuration), publisher, time.UTC)
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}

	ownerID := testutil.SeedOwner(t, database, "Owner")
	return sweeperFixture{
		db:        database,
		sweeper:   sweeper,
		publisher: publisher,
		courtID:   testutil.SeedCourt(t, database, testutil.SeedFacility(t, database, ownerID), 1500),
	}
}

type sweepSnapshot struct {
	statuses map[int64]db.BookingStatus
	blocks   map[int64]string
}

func snapshot(t *testing.T, database *db.DB) sweepSnapshot {
	t.Helper()
	ctx := context.Background()
	snap := sweepSnapshot{statuses: map[int64]db.BookingStatus{}, blocks: map[int64]string{}}

	rows, err := database.QueryContext(ctx, "SELECT id, status FROM bookings")
	if err != nil {
		t.Fatalf("query bookings: %v", err)
	}
	for rows.Next() {
		var id int64
		var status db.BookingStatus
		if err := rows.Scan(&id, &status); err != nil {
			t.Fatalf("scan booking: %v", err)
		}
		snap.statuses[id] = status
	}
	rows.Close()

	rows, err = database.QueryContext(ctx, "SELECT id, is_blocked, COALESCE(CAST(block_end_date AS TEXT), '') FROM users")
	if err != nil {
		t.Fatalf("query users: %v", err)
	}
	for rows.Next() {
		var id int64
		var blocked bool
		var end string
		if err := rows.Scan(&id, &blocked, &end); err != nil {
			t.Fatalf("scan user: %v", err)
		}
		if blocked {
			snap.blocks[id] = end
		}
	}
	rows.Close()
	return snap
}

func TestNoShowSweeperMarksExpiredBookings(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := setupSweeperTest(t, now)
	ctx := context.Background()

	noShowUser := testutil.SeedUser(t, f.db, "No Show")
	punctualUser := testutil.SeedUser(t, f.db, "Punctual")

	yesterday := testutil.SeedBooking(t, f.db, noShowUser, f.courtID, "2025-05-31", "18:00:00", "19:00:00", db.BookingStatusConfirmed)
	thisMorning := testutil.SeedBooking(t, f.db, noShowUser, f.courtID, "2025-06-01", "09:00:00", "10:00:00", db.BookingStatusConfirmed)
	endsNow := testutil.SeedBooking(t, f.db, punctualUser, f.courtID, "2025-06-01", "11:00:00", "12:00:00", db.BookingStatusConfirmed)
	later := testutil.SeedBooking(t, f.db, punctualUser, f.courtID, "2025-06-01", "13:00:00", "14:00:00", db.BookingStatusConfirmed)
	pending := testutil.SeedBooking(t, f.db, punctualUser, f.courtID, "2025-05-31", "08:00:00", "09:00:00", db.BookingStatusPending)
	completed := testutil.SeedBooking(t, f.db, punctualUser, f.courtID, "2025-05-31", "10:00:00", "11:00:00", db.BookingStatusCompleted)

	result, err := f.sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if result.MarkedNoShow != 2 || result.UsersBlocked != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	want := map[int64]db.BookingStatus{
		yesterday:   db.BookingStatusNoShow,
		thisMorning: db.BookingStatusNoShow,
		endsNow:     db.BookingStatusConfirmed,
		later:       db.BookingStatusConfirmed,
		pending:     db.BookingStatusPending,
		completed:   db.BookingStatusCompleted,
	}
	snap := snapshot(t, f.db)
	for id, status := range want {
		if snap.statuses[id] != status {
			t.Fatalf("booking %d: expected %s, got %s", id, status, snap.statuses[id])
		}
	}

	user, err := f.db.Queries.GetUser(ctx, noShowUser)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	wantEnd := now.Add(users.DefaultBlockDuration)
	if !user.IsBlocked || !user.BlockEndDate.Valid || !user.BlockEndDate.Time.Equal(wantEnd) {
		t.Fatalf("expected block until %v, got blocked=%v end=%v", wantEnd, user.IsBlocked, user.BlockEndDate)
	}
	if _, blocked := snap.blocks[punctualUser]; blocked {
		t.Fatal("punctual user should not be blocked")
	}

	counts := map[events.Type]int{}
	for _, typ := range f.publisher.Types() {
		counts[typ]++
	}
	if counts[events.BookingNoShow] != 2 || counts[events.UserBlocked] != 1 {
		t.Fatalf("unexpected events: %v", f.publisher.Types())
	}
}

func TestNoShowSweeperIsIdempotent(t *testing.T) {
	f := setupSweeperTest(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	userID := testutil.SeedUser(t, f.db, "No Show")
	testutil.SeedBooking(t, f.db, userID, f.courtID, "2025-05-30", "10:00:00", "11:00:00", db.BookingStatusConfirmed)
	testutil.SeedBooking(t, f.db, userID, f.courtID, "2025-05-31", "10:00:00", "11:00:00", db.BookingStatusConfirmed)

	first, err := f.sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.MarkedNoShow != 2 {
		t.Fatalf("expected two no-shows, got %+v", first)
	}
	// A user with two no-shows in one sweep is blocked once.
	if first.UsersBlocked != 1 {
		t.Fatalf("expected a single block, got %+v", first)
	}
	afterFirst := snapshot(t, f.db)

	second, err := f.sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Expired != 0 || second.MarkedNoShow != 0 || second.UsersBlocked != 0 {
		t.Fatalf("expected second run to find nothing, got %+v", second)
	}
	afterSecond := snapshot(t, f.db)

	for id, status := range afterFirst.statuses {
		if afterSecond.statuses[id] != status {
			t.Fatalf("booking %d changed on re-run: %s -> %s", id, status, afterSecond.statuses[id])
		}
	}
	for id, end := range afterFirst.blocks {
		if afterSecond.blocks[id] != end {
			t.Fatalf("user %d block changed on re-run: %s -> %s", id, end, afterSecond.blocks[id])
		}
	}
}

func TestNoShowSweeperKeepsExistingBlock(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := setupSweeperTest(t, now)
	ctx := context.Background()

	existingEnd := now.Add(5 * 24 * time.Hour)
	userID := testutil.SeedBlockedUser(t, f.db, "Already Blocked", existingEnd)
	bookingID := testutil.SeedBooking(t, f.db, userID, f.courtID, "2025-05-31", "10:00:00", "11:00:00", db.BookingStatusConfirmed)

	result, err := f.sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if result.MarkedNoShow != 1 || result.UsersBlocked != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := snapshot(t, f.db).statuses[bookingID]; got != db.BookingStatusNoShow {
		t.Fatalf("expected no_show, got %s", got)
	}
	user, err := f.db.Queries.GetUser(ctx, userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !user.BlockEndDate.Time.Equal(existingEnd) {
		t.Fatalf("expected existing block end %v to stay, got %v", existingEnd, user.BlockEndDate.Time)
	}
}

func TestNoShowSweeperStopsOnCancelledContext(t *testing.T) {
	f := setupSweeperTest(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	userID := testutil.SeedUser(t, f.db, "No Show")
	bookingID := testutil.SeedBooking(t, f.db, userID, f.courtID, "2025-05-31", "10:00:00", "11:00:00", db.BookingStatusConfirmed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.sweeper.RunOnce(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := snapshot(t, f.db).statuses[bookingID]; got != db.BookingStatusConfirmed {
		t.Fatalf("expected booking to stay confirmed, got %s", got)
	}
}
