package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codr1/courtside/internal/apperr"
	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/testutil"
)

func TestCheckAvailability(t *testing.T) {
	f := setupBookingTest(t, time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	testutil.SeedBooking(t, f.db, f.userID, f.courtID, "2025-06-01", "10:00:00", "11:00:00", db.BookingStatusConfirmed)
	testutil.SeedBooking(t, f.db, f.userID, f.courtID, "2025-06-01", "14:00:00", "15:00:00", db.BookingStatusCancelled)

	cases := []struct {
		name       string
		start, end string
		want       bool
	}{
		{name: "overlapping", start: "10:30", end: "11:30", want: false},
		{name: "touching end", start: "11:00", end: "12:00", want: true},
		{name: "cancelled ignored", start: "14:00", end: "15:00", want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.svc.CheckAvailability(ctx, f.courtID, mustSlot(t, "2025-06-01", tc.start, tc.end))
			if err != nil {
				t.Fatalf("check availability: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}

	if _, err := f.svc.CheckAvailability(ctx, 9999, mustSlot(t, "2025-06-01", "08:00", "09:00")); !errors.Is(err, apperr.ErrCourtNotFound) {
		t.Fatalf("expected ErrCourtNotFound, got %v", err)
	}
	if _, err := f.svc.CheckAvailability(ctx, f.courtID, mustSlot(t, "2025-06-01", "09:00", "08:00")); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
