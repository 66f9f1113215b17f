package scheduler

import (
	"context"
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
)

const (
	NoShowJobName           = "no_show_sweeper"
	defaultNoShowJobTimeout = 5 * time.Minute
)

// NoShowSweeper marks confirmed bookings whose end has passed as no-shows and
// blocks their owners. Each booking and its owner are updated in their own
// transaction, so a failure leaves earlier pairs committed and later pairs
// untouched.
type NoShowSweeper struct {
	db        *db.DB
	clock     clock.Clock
	policy    *users.Policy
	publisher events.Publisher
	location  *time.Location
}

type SweepResult struct {
	Expired      int
	MarkedNoShow int
	UsersBlocked int
	Failed       int
}

func NewNoShowSweeper(database *db.DB, clk clock.Clock, policy *users.Policy, publisher events.Publisher, loc *time.Location) (*NoShowSweeper, error) {
	if database == nil {
		return nil, errors.New("no-show sweeper requires database")
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
	if loc == nil {
		loc = time.Local
	}
	return &NoShowSweeper{
		db:        database,
		clock:     clk,
		policy:    policy,
		publisher: publisher,
		location:  loc,
	}, nil
}

// RunOnce performs one sweep. It only returns an error when the candidate
// bookings cannot be listed; per-booking failures are logged, counted and
// skipped.
func (s *NoShowSweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	logger := log.Ctx(ctx)
	now := s.clock.Now().In(s.location)
	comparisonDate, comparisonTime := clock.LocalDateTime(now, s.location)

	bookings, err := s.db.Queries.ListExpiredConfirmedBookings(ctx, db.ExpiredBookingsParams{
		ComparisonDate: comparisonDate,
		ComparisonTime: comparisonTime,
	})
	if err != nil {
		return SweepResult{}, fmt.Errorf("list expired confirmed bookings: %w", err)
	}

	result := SweepResult{Expired: len(bookings)}
	for _, booking := range bookings {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var blocked bool
		err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
			rows, err := txdb.Queries.UpdateBookingStatus(ctx, db.UpdateBookingStatusParams{
				ID:         booking.ID,
				FromStatus: db.BookingStatusConfirmed,
				ToStatus:   db.BookingStatusNoShow,
			})
			if err != nil {
				return fmt.Errorf("mark booking no-show: %w", err)
			}
			if rows == 0 {
				return apperr.ErrPersistence.Withf("booking %d was not marked no-show", booking.ID)
			}

			blocked, err = s.policy.BlockForNoShow(ctx, txdb.Queries, booking.UserID, now)
			return err
		})
		if err != nil {
			result.Failed++
			logger.Error().Err(err).
				Int64("booking_id", booking.ID).
				Int64("user_id", booking.UserID).
				Msg("Failed to process no-show booking")
			continue
		}

		result.MarkedNoShow++
		logger.Info().
			Int64("booking_id", booking.ID).
			Int64("user_id", booking.UserID).
			Str("decision", string(db.BookingStatusNoShow)).
			Bool("user_blocked", blocked).
			Msg("Marked booking as no-show")

		events.Emit(ctx, s.publisher, events.Event{
			Type:       events.BookingNoShow,
			UserID:     booking.UserID,
			BookingID:  booking.ID,
			OccurredAt: now,
		})
		if blocked {
			result.UsersBlocked++
			events.Emit(ctx, s.publisher, events.Event{
				Type:       events.UserBlocked,
				UserID:     booking.UserID,
				BookingID:  booking.ID,
				OccurredAt: now,
				Data:       map[string]any{"blockEndDate": now.Add(s.policy.BlockDuration())},
			})
		}
	}

	logger.Debug().
		Int("expired", result.Expired).
		Int("marked_no_show", result.MarkedNoShow).
		Int("users_blocked", result.UsersBlocked).
		Int("failed", result.Failed).
		Msg("No-show sweep finished")
	return result, nil
}

// RegisterNoShowJob schedules sweeper.RunOnce on cronExpr. Each run derives
// its timeout from ctx, so cancelling ctx stops a sweep in progress. A zero
// timeout uses the default.
func RegisterNoShowJob(ctx context.Context, svc *Service, sweeper *NoShowSweeper, cronExpr string, timeout time.Duration) error {
	if sweeper == nil {
		return fmt.Errorf("no-show job requires a sweeper")
	}
	if timeout <= 0 {
		timeout = defaultNoShowJobTimeout
	}

	jobLogger := log.With().
		Str("component", "no_show_sweeper_job").
		Str("job_name", NoShowJobName).
		Str("cron", cronExpr).
		Logger()

	_, err := svc.AddJob(NoShowJobName, cronExpr, noShowTask(ctx, sweeper, timeout, jobLogger))
	return err
}

func noShowTask(parent context.Context, sweeper *NoShowSweeper, timeout time.Duration, jobLogger zerolog.Logger) func() {
	return func() {
		if parent.Err() != nil {
			jobLogger.Info().Msg("Skipping no-show sweep during shutdown")
			return
		}
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		result, err := sweeper.RunOnce(ctx)
		if err != nil {
			jobLogger.Error().Err(err).Msg("No-show sweep failed")
			return
		}
		if result.MarkedNoShow > 0 || result.Failed > 0 {
			jobLogger.Info().
				Int("marked_no_show", result.MarkedNoShow).
				Int("users_blocked", result.UsersBlocked).
				Int("failed", result.Failed).
				Msg("No-show sweep processed bookings")
		}
	}
}
