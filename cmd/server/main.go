// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/courtside/internal/booking"
	"github.com/codr1/courtside/internal/clock"
	"github.com/codr1/courtside/internal/config"
	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/events"
	"github.com/codr1/courtside/internal/match"
	"github.com/codr1/courtside/internal/rating"
	"github.com/codr1/courtside/internal/ratelimit"
	"github.com/codr1/courtside/internal/scheduler"
	"github.com/codr1/courtside/internal/users"
)

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	zerolog.DefaultContextLogger = &log.Logger
}

// services bundles everything the HTTP layer and the scheduler share.
type services struct {
	bookings *booking.Service
	matches  *match.Service
	ratings  *rating.Service
	sweeper  *scheduler.NoShowSweeper
}

func newPublisher(cfg *config.Config) (events.Publisher, func() error, error) {
	if cfg.Events.AMQPURL == "" {
		log.Info().Msg("AMQP_URL not set; domain events are logged only")
		return events.LogPublisher{}, func() error { return nil }, nil
	}
	publisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("exchange", cfg.Events.Exchange).Msg("Publishing domain events to AMQP")
	return publisher, publisher.Close, nil
}

func newServices(cfg *config.Config, database *db.DB, clk clock.Clock, loc *time.Location, publisher events.Publisher) (*services, error) {
	policy := users.NewPolicy(cfg.Sweeper.BlockDuration)

	bookingSvc, err := booking.NewService(database, clk, policy, publisher, booking.Config{
		CancellationCutoff: cfg.Booking.CancellationCutoff,
		CheckInOpensBefore: cfg.Booking.CheckInOpensBefore,
		CheckInClosesAfter: cfg.Booking.CheckInClosesAfter,
		Location:           loc,
	})
	if err != nil {
		return nil, fmt.Errorf("booking service: %w", err)
	}
	matchSvc, err := match.NewService(database, clk, publisher)
	if err != nil {
		return nil, fmt.Errorf("match service: %w", err)
	}
	ratingSvc, err := rating.NewService(database, clk, publisher)
	if err != nil {
		return nil, fmt.Errorf("rating service: %w", err)
	}
	sweeper, err := scheduler.NewNoShowSweeper(database, clk, policy, publisher, loc)
	if err != nil {
		return nil, fmt.Errorf("no-show sweeper: %w", err)
	}

	return &services{
		bookings: bookingSvc,
		matches:  matchSvc,
		ratings:  ratingSvc,
		sweeper:  sweeper,
	}, nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	loc, err := clock.LoadLocation(cfg.App.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.App.Timezone).Msg("Failed to load timezone")
	}
	clk := clock.New()

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	publisher, closePublisher, err := newPublisher(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect event publisher")
	}
	defer func() {
		if err := closePublisher(); err != nil {
			log.Warn().Err(err).Msg("Failed to close event publisher")
		}
	}()

	svcs, err := newServices(cfg, database, clk, loc, publisher)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	// Setup graceful shutdown; running jobs observe this context too
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs, err := scheduler.New(clk, loc)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	if cfg.Sweeper.Enabled {
		if err := scheduler.RegisterNoShowJob(ctx, jobs, svcs.sweeper, cfg.Sweeper.Cron, cfg.Sweeper.JobTimeout); err != nil {
			log.Fatal().Err(err).Msg("Failed to register no-show sweeper")
		}
	}
	jobs.Start()

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(&ratelimit.Config{
			Window:           cfg.RateLimit.Window,
			MaxWritesPerUser: cfg.RateLimit.MaxWritesPerUser,
			MaxWritesPerIP:   cfg.RateLimit.MaxWritesPerIP,
			Clock:            clk,
		})
		defer limiter.Close()
	}

	// Create server instance
	server := newServer(cfg, svcs, database, limiter)

	g, gctx := errgroup.WithContext(ctx)

	// Run server
	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("timezone", loc.String()).Msg("Starting server")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-gctx.Done()
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := jobs.Stop(); err != nil {
			log.Warn().Err(err).Msg("Scheduler did not stop cleanly")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
