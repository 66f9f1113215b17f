package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/codr1/courtside/internal/apperr"
	"github.com/codr1/courtside/internal/clock"
	"github.com/codr1/courtside/internal/db"
)

// IsSlotAvailable reports whether slot on courtID overlaps no non-cancelled
// booking. It only reads, so it can run inside the transaction that inserts
// the booking afterwards.
func IsSlotAvailable(ctx context.Context, repo db.BookingRepository, courtID int64, slot clock.Slot) (bool, error) {
	count, err := repo.CountOverlappingBookings(ctx, db.SlotParams{
		CourtID:     courtID,
		BookingDate: clock.FormatDate(slot.Date),
		StartTime:   clock.FormatTime(slot.Start),
		EndTime:     clock.FormatTime(slot.End),
	})
	if err != nil {
		return false, fmt.Errorf("availability check failed: %w", err)
	}
	return count == 0, nil
}

// CheckAvailability validates slot and reports whether it is free on an
// existing court.
func (s *Service) CheckAvailability(ctx context.Context, courtID int64, slot clock.Slot) (bool, error) {
	if err := slot.Validate(); err != nil {
		return false, apperr.ErrInvalidInput.Withf("%v", err)
	}
	if _, err := s.db.Queries.GetCourt(ctx, courtID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, apperr.ErrCourtNotFound.Withf("court %d not found", courtID)
		}
		return false, fmt.Errorf("load court %d: %w", courtID, err)
	}
	return IsSlotAvailable(ctx, s.db.Queries, courtID, slot)
}

type AvailabilityError struct {
	CourtID int64
	Slot    clock.Slot
}

func (e AvailabilityError) Error() string {
	return fmt.Sprintf("court %s is already booked on %s between %s and %s",
		strconv.FormatInt(e.CourtID, 10),
		clock.FormatDate(e.Slot.Date),
		clock.FormatTime(e.Slot.Start),
		clock.FormatTime(e.Slot.End),
	)
}
