// Package booking owns the court booking lifecycle:
// pending -> confirmed -> completed, pending|confirmed -> cancelled, and
// confirmed -> no_show (applied by the no-show sweeper).
package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/apperr"
	"github.com/codr1/courtside/internal/clock"
	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/events"
	"github.com/codr1/courtside/internal/users"
	"github.com/codr1/courtside/internal/validation"
)

type Config struct {
	CancellationCutoff time.Duration
	CheckInOpensBefore time.Duration
	CheckInClosesAfter time.Duration
	// Location is where booking dates and times of day are interpreted.
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{
		CancellationCutoff: 24 * time.Hour,
		CheckInOpensBefore: 15 * time.Minute,
		CheckInClosesAfter: 30 * time.Minute,
		Location:           time.Local,
	}
}

type Service struct {
	db        *db.DB
	clock     clock.Clock
	policy    *users.Policy
	publisher events.Publisher
	validator *validation.Validator
	cfg       Config
}

func NewService(database *db.DB, clk clock.Clock, policy *users.Policy, publisher events.Publisher, cfg Config) (*Service, error) {
	if database == nil {
		return nil, errors.New("booking service requires a database")
	}
	if clk == nil {
		clk = clock.New()
	}
	if policy == nil {
		policy = users.NewPolicy(users.DefaultBlockDuration)
	}
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		db:        database,
		clock:     clk,
		policy:    policy,
		publisher: publisher,
		validator: validation.New(),
		cfg:       cfg,
	}, nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().In(s.cfg.Location)
}

type CreateBookingInput struct {
	UserID  int64 `validate:"gt=0"`
	CourtID int64 `validate:"gt=0"`
	Slot    clock.Slot
}

// CreateBooking reserves a slot for the user. The court lookup, the overlap
// check and the insert run in one write transaction; the bookings trigger
// rejects any overlap that slips past the check.
func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput) (db.Booking, error) {
	logger := log.Ctx(ctx).With().
		Str("component", "booking_manager").
		Int64("user_id", in.UserID).
		Int64("court_id", in.CourtID).
		Str("booking_date", clock.FormatDate(in.Slot.Date)).
		Str("start_time", clock.FormatTime(in.Slot.Start)).
		Str("end_time", clock.FormatTime(in.Slot.End)).
		Logger()

	if err := s.validator.Struct(in); err != nil {
		return db.Booking{}, err
	}
	if err := in.Slot.Validate(); err != nil {
		return db.Booking{}, apperr.ErrInvalidInput.Withf("%v", err)
	}

	now := s.now()
	if _, err := s.policy.EnsureCanBook(ctx, s.db.Queries, in.UserID, now); err != nil {
		apperr.Event(&logger, err).Msg("Booking rejected by user policy")
		return db.Booking{}, err
	}

	var created db.Booking
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		if _, err := q.GetCourt(ctx, in.CourtID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.ErrCourtNotFound.Withf("court %d not found", in.CourtID)
			}
			return fmt.Errorf("load court %d: %w", in.CourtID, err)
		}

		available, err := IsSlotAvailable(ctx, q, in.CourtID, in.Slot)
		if err != nil {
			return err
		}
		if !available {
			return slotUnavailable(in.CourtID, in.Slot, nil)
		}

		result, err := q.CreateBooking(ctx, db.CreateBookingParams{
			UserID:      in.UserID,
			CourtID:     in.CourtID,
			BookingDate: clock.FormatDate(in.Slot.Date),
			StartTime:   clock.FormatTime(in.Slot.Start),
			EndTime:     clock.FormatTime(in.Slot.End),
			Status:      db.BookingStatusPending,
			CreatedAt:   now,
		})
		if err != nil {
			if errors.Is(err, db.ErrSlotOverlap) {
				return slotUnavailable(in.CourtID, in.Slot, err)
			}
			return apperr.ErrPersistence.Withf("failed to create booking").Wrap(err)
		}
		if err := requireRows(result); err != nil {
			return err
		}

		id, err := result.LastInsertId()
		if err != nil {
			return apperr.ErrPersistence.Withf("failed to read booking id").Wrap(err)
		}
		created, err = q.GetBooking(ctx, id)
		if err != nil {
			return fmt.Errorf("reload booking %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		apperr.Event(&logger, err).Msg("Failed to create booking")
		return db.Booking{}, err
	}

	logger.Info().Int64("booking_id", created.ID).Str("decision", "created").Msg("Created booking")
	events.Emit(ctx, s.publisher, events.Event{
		Type:       events.BookingCreated,
		ActorID:    in.UserID,
		UserID:     in.UserID,
		BookingID:  created.ID,
		OccurredAt: now,
		Data: map[string]any{
			"courtId":   in.CourtID,
			"date":      created.BookingDate,
			"startTime": created.StartTime,
			"endTime":   created.EndTime,
		},
	})
	return created, nil
}

// CancelBooking cancels a pending or confirmed booking owned by userID, as
// long as its start is at least the cancellation cutoff away.
func (s *Service) CancelBooking(ctx context.Context, bookingID, userID int64) error {
	logger := s.bookingLogger(ctx, bookingID, userID)
	now := s.now()

	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		b, err := loadOwnedBooking(ctx, q, bookingID, userID)
		if err != nil {
			return err
		}
		if b.Status != db.BookingStatusPending && b.Status != db.BookingStatusConfirmed {
			return apperr.ErrBookingState.Withf("a %s booking cannot be cancelled", b.Status)
		}

		slot, err := clock.ParseSlot(b.BookingDate, b.StartTime, b.EndTime)
		if err != nil {
			return err
		}
		start := slot.StartIn(s.cfg.Location)
		if start.Sub(now) < s.cfg.CancellationCutoff {
			return apperr.ErrCancellationCutoff.Withf(
				"bookings must be cancelled at least %s before they start (starts %s)",
				s.cfg.CancellationCutoff, start.Format("2006-01-02 15:04"),
			)
		}

		rows, err := q.UpdateBookingStatus(ctx, db.UpdateBookingStatusParams{
			ID:         b.ID,
			FromStatus: b.Status,
			ToStatus:   db.BookingStatusCancelled,
		})
		if err != nil {
			return apperr.ErrPersistence.Withf("failed to cancel booking").Wrap(err)
		}
		if rows == 0 {
			return apperr.ErrPersistence.Withf("booking %d was not cancelled", b.ID)
		}
		return nil
	})
	if err != nil {
		apperr.Event(&logger, err).Msg("Failed to cancel booking")
		return err
	}

	logger.Info().Str("decision", "cancelled").Msg("Cancelled booking")
	events.Emit(ctx, s.publisher, events.Event{
		Type:       events.BookingCancelled,
		ActorID:    userID,
		UserID:     userID,
		BookingID:  bookingID,
		OccurredAt: now,
	})
	return nil
}

// ConfirmBooking moves an owned booking from pending to confirmed.
func (s *Service) ConfirmBooking(ctx context.Context, bookingID, userID int64) error {
	logger := s.bookingLogger(ctx, bookingID, userID)
	now := s.now()

	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		b, err := loadOwnedBooking(ctx, q, bookingID, userID)
		if err != nil {
			return err
		}
		if b.Status != db.BookingStatusPending {
			return apperr.ErrBookingState.Withf("only pending bookings can be confirmed; booking is %s", b.Status)
		}

		rows, err := q.UpdateBookingStatus(ctx, db.UpdateBookingStatusParams{
			ID:         b.ID,
			FromStatus: db.BookingStatusPending,
			ToStatus:   db.BookingStatusConfirmed,
		})
		if err != nil {
			return apperr.ErrPersistence.Withf("failed to confirm booking").Wrap(err)
		}
		if rows == 0 {
			return apperr.ErrPersistence.Withf("booking %d was not confirmed", b.ID)
		}
		return nil
	})
	if err != nil {
		apperr.Event(&logger, err).Msg("Failed to confirm booking")
		return err
	}

	logger.Info().Str("decision", "confirmed").Msg("Confirmed booking")
	events.Emit(ctx, s.publisher, events.Event{
		Type:       events.BookingConfirmed,
		ActorID:    userID,
		UserID:     userID,
		BookingID:  bookingID,
		OccurredAt: now,
	})
	return nil
}

// CheckInBooking is performed by the owner of the facility the booked court
// belongs to. It is accepted from CheckInOpensBefore before the start through
// CheckInClosesAfter after it, both ends inclusive.
func (s *Service) CheckInBooking(ctx context.Context, bookingID, ownerID int64) error {
	logger := log.Ctx(ctx).With().
		Str("component", "booking_manager").
		Int64("booking_id", bookingID).
		Int64("owner_id", ownerID).
		Logger()
	now := s.now()

	var userID int64
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		q := txdb.Queries

		b, err := q.GetBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.ErrBookingNotFound.Withf("booking %d not found", bookingID)
			}
			return fmt.Errorf("load booking %d: %w", bookingID, err)
		}
		userID = b.UserID

		court, err := q.GetCourt(ctx, b.CourtID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.ErrCourtNotFound.Withf("court %d not found", b.CourtID)
			}
			return fmt.Errorf("load court %d: %w", b.CourtID, err)
		}
		facility, err := q.GetFacility(ctx, court.FacilityID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.ErrFacilityNotFound.Withf("facility %d not found", court.FacilityID)
			}
			return fmt.Errorf("load facility %d: %w", court.FacilityID, err)
		}
		if facility.OwnerID != ownerID {
			return apperr.ErrNotFacility
		}

		if b.Status != db.BookingStatusConfirmed {
			return apperr.ErrBookingState.Withf("only confirmed bookings can be checked in; booking is %s", b.Status)
		}

		slot, err := clock.ParseSlot(b.BookingDate, b.StartTime, b.EndTime)
		if err != nil {
			return err
		}
		start := slot.StartIn(s.cfg.Location)
		opens := start.Add(-s.cfg.CheckInOpensBefore)
		closes := start.Add(s.cfg.CheckInClosesAfter)
		if now.Before(opens) {
			return apperr.ErrCheckInTooEarly.Withf("check-in opens at %s", opens.Format("15:04"))
		}
		if now.After(closes) {
			return apperr.ErrCheckInTooLate.Withf("check-in closed at %s", closes.Format("15:04"))
		}

		rows, err := q.CheckInBooking(ctx, db.CheckInBookingParams{ID: b.ID, CheckedInAt: now})
		if err != nil {
			return apperr.ErrPersistence.Withf("failed to check in booking").Wrap(err)
		}
		if rows == 0 {
			return apperr.ErrPersistence.Withf("booking %d was not checked in", b.ID)
		}
		return nil
	})
	if err != nil {
		apperr.Event(&logger, err).Msg("Failed to check in booking")
		return err
	}

	logger.Info().Str("decision", "checked_in").Msg("Checked in booking")
	events.Emit(ctx, s.publisher, events.Event{
		Type:       events.BookingCheckedIn,
		ActorID:    ownerID,
		UserID:     userID,
		BookingID:  bookingID,
		OccurredAt: now,
	})
	return nil
}

func (s *Service) bookingLogger(ctx context.Context, bookingID, userID int64) zerolog.Logger {
	return log.Ctx(ctx).With().
		Str("component", "booking_manager").
		Int64("booking_id", bookingID).
		Int64("user_id", userID).
		Logger()
}

func loadOwnedBooking(ctx context.Context, q db.BookingRepository, bookingID, userID int64) (db.Booking, error) {
	b, err := q.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.Booking{}, apperr.ErrBookingNotFound.Withf("booking %d not found", bookingID)
		}
		return db.Booking{}, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	if b.UserID != userID {
		return db.Booking{}, apperr.ErrNotOwner.Withf("booking %d belongs to another user", bookingID)
	}
	return b, nil
}

func slotUnavailable(courtID int64, slot clock.Slot, cause error) error {
	availErr := AvailabilityError{CourtID: courtID, Slot: slot}
	var wrapped error = availErr
	if cause != nil {
		wrapped = errors.Join(availErr, cause)
	}
	return apperr.ErrSlotUnavailable.Withf("%s", availErr.Error()).Wrap(wrapped)
}

func requireRows(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperr.ErrPersistence.Withf("failed to read affected rows").Wrap(err)
	}
	if rows == 0 {
		return apperr.ErrPersistence.Withf("write affected no rows")
	}
	return nil
}
