// cmd/server/server.go
package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/api"
	"github.com/codr1/courtside/internal/api/apiutil"
	"github.com/codr1/courtside/internal/api/bookings"
	"github.com/codr1/courtside/internal/api/matches"
	"github.com/codr1/courtside/internal/config"
	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/ratelimit"
)

const healthCheckTimeout = 2 * time.Second

// newServer builds the HTTP server. A nil limiter disables write throttling.
func newServer(cfg *config.Config, svcs *services, database *db.DB, limiter *ratelimit.Limiter) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain, innermost first
	var middleware []api.Middleware
	if limiter != nil {
		middleware = append(middleware, api.WithRateLimit(limiter, cfg.RateLimit.TrustProxy))
	}
	middleware = append(middleware,
		api.WithIdentity,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)
	handler := api.ChainMiddleware(router, middleware...)

	// Register routes
	registerRoutes(router, svcs, database)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, svcs *services, database *db.DB) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		if err := database.PingContext(ctx); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("Health check failed")
			status, code = "database unavailable", http.StatusServiceUnavailable
		}
		apiutil.Respond(w, log.Ctx(r.Context()), code, map[string]string{"status": status})
	})

	bookings.NewHandler(svcs.bookings).RegisterRoutes(mux)
	matches.NewHandler(svcs.matches, svcs.ratings).RegisterRoutes(mux)
}
