package db

import (
	"context"
	"database/sql"
)

const bookingColumns = `b.id, b.user_id, b.court_id, b.booking_date, b.start_time, b.end_time, b.status, b.checked_in_at, b.created_at`

func scanBooking(row scanner, b *Booking, extra ...any) error {
	dest := []any{
		&b.ID,
		&b.UserID,
		&b.CourtID,
		&b.BookingDate,
		&b.StartTime,
		&b.EndTime,
		&b.Status,
		&b.CheckedInAt,
		&b.CreatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

const getBooking = `
SELECT ` + bookingColumns + `
FROM bookings b
WHERE b.id = ?
`

func (q *Queries) GetBooking(ctx context.Context, id int64) (Booking, error) {
	var b Booking
	err := scanBooking(q.db.QueryRowContext(ctx, getBooking, id), &b)
	return b, err
}

// Half-open overlap: existing.start < requested.end AND existing.end > requested.start.
const countOverlappingBookings = `
SELECT COUNT(*)
FROM bookings
WHERE court_id = ?
  AND booking_date = ?
  AND status <> 'cancelled'
  AND start_time < ?
  AND end_time > ?
`

func (q *Queries) CountOverlappingBookings(ctx context.Context, arg SlotParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countOverlappingBookings,
		arg.CourtID,
		arg.BookingDate,
		arg.EndTime,
		arg.StartTime,
	).Scan(&count)
	return count, err
}

const createBooking = `
INSERT INTO bookings (user_id, court_id, booking_date, start_time, end_time, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateBooking(ctx context.Context, arg CreateBookingParams) (sql.Result, error) {
	result, err := q.db.ExecContext(ctx, createBooking,
		arg.UserID,
		arg.CourtID,
		arg.BookingDate,
		arg.StartTime,
		arg.EndTime,
		arg.Status,
		arg.CreatedAt,
	)
	return result, translateWriteError(err)
}

const updateBookingStatus = `
UPDATE bookings
SET status = ?
WHERE id = ? AND status = ?
`

// UpdateBookingStatus moves a booking from FromStatus to ToStatus. Zero rows
// affected means the booking was not in FromStatus any more.
func (q *Queries) UpdateBookingStatus(ctx context.Context, arg UpdateBookingStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateBookingStatus, arg.ToStatus, arg.ID, arg.FromStatus)
	if err != nil {
		return 0, translateWriteError(err)
	}
	return result.RowsAffected()
}

const checkInBooking = `
UPDATE bookings
SET status = 'completed', checked_in_at = ?
WHERE id = ? AND status = 'confirmed'
`

func (q *Queries) CheckInBooking(ctx context.Context, arg CheckInBookingParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, checkInBooking, arg.CheckedInAt, arg.ID)
	if err != nil {
		return 0, translateWriteError(err)
	}
	return result.RowsAffected()
}

const bookingWithCourtSelect = `
SELECT ` + bookingColumns + `, c.facility_id, c.name, c.price_per_hour_cents
FROM bookings b
LEFT JOIN courts c ON c.id = b.court_id
`

func (q *Queries) listBookingsWithCourt(ctx context.Context, query string, args ...any) ([]BookingWithCourt, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []BookingWithCourt
	for rows.Next() {
		var i BookingWithCourt
		if err := scanBooking(rows, &i.Booking, &i.FacilityID, &i.CourtName, &i.PricePerHourCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getBookingWithCourt = bookingWithCourtSelect + `
WHERE b.id = ?
`

func (q *Queries) GetBookingWithCourt(ctx context.Context, id int64) (BookingWithCourt, error) {
	var i BookingWithCourt
	err := scanBooking(q.db.QueryRowContext(ctx, getBookingWithCourt, id), &i.Booking, &i.FacilityID, &i.CourtName, &i.PricePerHourCents)
	return i, err
}

const listCourtBookings = bookingWithCourtSelect + `
WHERE b.court_id = ? AND b.booking_date = ? AND b.status <> 'cancelled'
ORDER BY b.start_time
`

func (q *Queries) ListCourtBookings(ctx context.Context, courtID int64, bookingDate string) ([]BookingWithCourt, error) {
	return q.listBookingsWithCourt(ctx, listCourtBookings, courtID, bookingDate)
}

const listFacilityBookings = bookingWithCourtSelect + `
WHERE c.facility_id = ? AND b.booking_date = ? AND b.status <> 'cancelled'
ORDER BY b.court_id, b.start_time
`

func (q *Queries) ListFacilityBookings(ctx context.Context, facilityID int64, bookingDate string) ([]BookingWithCourt, error) {
	return q.listBookingsWithCourt(ctx, listFacilityBookings, facilityID, bookingDate)
}

const listUserBookings = bookingWithCourtSelect + `
WHERE b.user_id = ?
ORDER BY b.booking_date DESC, b.start_time DESC
`

func (q *Queries) ListUserBookings(ctx context.Context, userID int64) ([]BookingWithCourt, error) {
	return q.listBookingsWithCourt(ctx, listUserBookings, userID)
}

// A confirmed booking has expired once its end instant is strictly before the
// comparison instant, expressed as local date and time-of-day.
const listExpiredConfirmedBookings = `
SELECT ` + bookingColumns + `
FROM bookings b
WHERE b.status = 'confirmed'
  AND (b.booking_date < ? OR (b.booking_date = ? AND b.end_time < ?))
ORDER BY b.booking_date, b.end_time, b.id
`

func (q *Queries) ListExpiredConfirmedBookings(ctx context.Context, arg ExpiredBookingsParams) ([]Booking, error) {
	rows, err := q.db.QueryContext(ctx, listExpiredConfirmedBookings,
		arg.ComparisonDate,
		arg.ComparisonDate,
		arg.ComparisonTime,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Booking
	for rows.Next() {
		var b Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
