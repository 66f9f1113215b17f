package booking

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/codr1/courtside/internal/apperr"
	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/testutil"
)

func TestTotalPriceCents(t *testing.T) {
	cases := []struct {
		name  string
		start string
		end   string
		price sql.NullInt64
		want  int64
	}{
		{name: "one hour", start: "10:00", end: "11:00", price: sql.NullInt64{Int64: 2000, Valid: true}, want: 2000},
		{name: "ninety minutes", start: "10:00", end: "11:30", price: sql.NullInt64{Int64: 2000, Valid: true}, want: 3000},
		{name: "twenty minutes rounds", start: "10:00", end: "10:20", price: sql.NullInt64{Int64: 1000, Valid: true}, want: 333},
		{name: "missing court", start: "10:00", end: "11:00", want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := TotalPriceCents(mustSlot(t, "2025-06-01", tc.start, tc.end), tc.price)
			if got != tc.want {
				t.Fatalf("TotalPriceCents = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestBookingViews(t *testing.T) {
	f := setupBookingTest(t, time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	secondCourt := testutil.SeedCourt(t, f.db, f.facilityID, 3000)
	active := testutil.SeedBooking(t, f.db, f.userID, f.courtID, "2025-06-01", "10:00:00", "11:30:00", db.BookingStatusConfirmed)
	testutil.SeedBooking(t, f.db, f.userID, f.courtID, "2025-06-01", "12:00:00", "13:00:00", db.BookingStatusCancelled)
	testutil.SeedBooking(t, f.db, f.userID, secondCourt, "2025-06-01", "08:00:00", "09:00:00", db.BookingStatusPending)
	testutil.SeedBooking(t, f.db, f.userID, f.courtID, "2025-06-02", "10:00:00", "11:00:00", db.BookingStatusPending)

	courtDay, err := f.svc.GetBookingsForCourt(ctx, f.courtID, "2025-06-01")
	if err != nil {
		t.Fatalf("court bookings: %v", err)
	}
	if len(courtDay) != 1 || courtDay[0].ID != active {
		t.Fatalf("expected only the active booking, got %+v", courtDay)
	}
	if courtDay[0].TotalPriceCents != 3000 {
		t.Fatalf("expected total price 3000, got %d", courtDay[0].TotalPriceCents)
	}

	facilityDay, err := f.svc.GetBookingsForFacility(ctx, f.facilityID, "2025-06-01")
	if err != nil {
		t.Fatalf("facility bookings: %v", err)
	}
	if len(facilityDay) != 2 {
		t.Fatalf("expected 2 facility bookings, got %d", len(facilityDay))
	}
	for _, view := range facilityDay {
		if view.Status == db.BookingStatusCancelled {
			t.Fatalf("facility view includes cancelled booking %d", view.ID)
		}
		if view.FacilityID != f.facilityID {
			t.Fatalf("expected facility %d, got %d", f.facilityID, view.FacilityID)
		}
	}

	mine, err := f.svc.GetUserBookings(ctx, f.userID)
	if err != nil {
		t.Fatalf("user bookings: %v", err)
	}
	if len(mine) != 4 {
		t.Fatalf("expected all 4 user bookings, got %d", len(mine))
	}
	if mine[0].Date != "2025-06-02" {
		t.Fatalf("expected newest booking first, got %s", mine[0].Date)
	}

	view, err := f.svc.GetBooking(ctx, active)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if view.CourtID != f.courtID || view.TotalPriceCents != 3000 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if _, err := f.svc.GetBooking(ctx, 9999); !errors.Is(err, apperr.ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
	if _, err := f.svc.GetBookingsForCourt(ctx, f.courtID, "June 1st"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad date, got %v", err)
	}
}
