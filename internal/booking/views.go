package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/codr1/courtside/internal/apperr"
	"github.com/codr1/courtside/internal/clock"
	"github.com/codr1/courtside/internal/db"
)

type BookingView struct {
	ID              int64            `json:"id"`
	UserID          int64            `json:"userId"`
	CourtID         int64            `json:"courtId"`
	CourtName       string           `json:"courtName,omitempty"`
	FacilityID      int64            `json:"facilityId,omitempty"`
	Date            string           `json:"date"`
	StartTime       string           `json:"startTime"`
	EndTime         string           `json:"endTime"`
	Status          db.BookingStatus `json:"status"`
	CheckedInAt     *time.Time       `json:"checkedInAt,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	TotalPriceCents int64            `json:"totalPriceCents"`
}

// TotalPriceCents is duration in hours times the hourly price, rounded to the
// nearest cent. It is zero when the court is unknown.
func TotalPriceCents(slot clock.Slot, pricePerHourCents sql.NullInt64) int64 {
	if !pricePerHourCents.Valid {
		return 0
	}
	hours := slot.Duration().Hours()
	return int64(math.Round(hours * float64(pricePerHourCents.Int64)))
}

func newBookingView(row db.BookingWithCourt) BookingView {
	view := BookingView{
		ID:         row.ID,
		UserID:     row.UserID,
		CourtID:    row.CourtID,
		CourtName:  row.CourtName.String,
		FacilityID: row.FacilityID.Int64,
		Date:       row.BookingDate,
		StartTime:  row.StartTime,
		EndTime:    row.EndTime,
		Status:     row.Status,
		CreatedAt:  row.CreatedAt,
	}
	if row.CheckedInAt.Valid {
		checkedIn := row.CheckedInAt.Time
		view.CheckedInAt = &checkedIn
	}
	if slot, err := clock.ParseSlot(row.BookingDate, row.StartTime, row.EndTime); err == nil {
		view.TotalPriceCents = TotalPriceCents(slot, row.PricePerHourCents)
	}
	return view
}

func newBookingViews(rows []db.BookingWithCourt) []BookingView {
	views := make([]BookingView, 0, len(rows))
	for _, row := range rows {
		views = append(views, newBookingView(row))
	}
	return views
}

func (s *Service) GetBooking(ctx context.Context, bookingID int64) (BookingView, error) {
	row, err := s.db.Queries.GetBookingWithCourt(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BookingView{}, apperr.ErrBookingNotFound.Withf("booking %d not found", bookingID)
		}
		return BookingView{}, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	return newBookingView(row), nil
}

// GetBookingsForCourt lists the non-cancelled bookings of one court day.
func (s *Service) GetBookingsForCourt(ctx context.Context, courtID int64, date string) ([]BookingView, error) {
	day, err := clock.ParseDate(date)
	if err != nil {
		return nil, apperr.ErrInvalidInput.Withf("invalid date %q", date)
	}
	rows, err := s.db.Queries.ListCourtBookings(ctx, courtID, clock.FormatDate(day))
	if err != nil {
		return nil, fmt.Errorf("list bookings for court %d: %w", courtID, err)
	}
	return newBookingViews(rows), nil
}

// GetBookingsForFacility lists the non-cancelled bookings across every court
// of the facility on one day.
func (s *Service) GetBookingsForFacility(ctx context.Context, facilityID int64, date string) ([]BookingView, error) {
	day, err := clock.ParseDate(date)
	if err != nil {
		return nil, apperr.ErrInvalidInput.Withf("invalid date %q", date)
	}
	rows, err := s.db.Queries.ListFacilityBookings(ctx, facilityID, clock.FormatDate(day))
	if err != nil {
		return nil, fmt.Errorf("list bookings for facility %d: %w", facilityID, err)
	}
	return newBookingViews(rows), nil
}

// GetUserBookings lists every booking of the user, newest first, cancelled
// ones included.
func (s *Service) GetUserBookings(ctx context.Context, userID int64) ([]BookingView, error) {
	rows, err := s.db.Queries.ListUserBookings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings for user %d: %w", userID, err)
	}
	return newBookingViews(rows), nil
}
