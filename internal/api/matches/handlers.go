// internal/api/matches/handlers.go
package matches

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/api/apiutil"
	"github.com/codr1/courtside/internal/match"
	"github.com/codr1/courtside/internal/rating"
)

const matchRequestTimeout = 10 * time.Second

type createMatchRequest struct {
	BookingID     int64  `json:"bookingId"`
	SportID       int64  `json:"sportId"`
	TeamSize      int64  `json:"teamSize"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	MinSkillLevel *int64 `json:"minSkillLevel"`
	MaxSkillLevel *int64 `json:"maxSkillLevel"`
}

type inviteRequest struct {
	UserID int64 `json:"userId"`
}

type answerRequest struct {
	Accept bool `json:"accept"`
}

type teamRequest struct {
	Team string `json:"team"`
}

type rateRequest struct {
	RatedID             int64  `json:"ratedId"`
	SkillRating         int64  `json:"skillRating"`
	SportsmanshipRating int64  `json:"sportsmanshipRating"`
	Comment             string `json:"comment"`
}

type matchListResponse struct {
	Matches []match.MatchView `json:"matches"`
}

type ratingStatusResponse struct {
	MatchID  int64 `json:"matchId"`
	RatedAll bool  `json:"ratedAll"`
}

type ratingListResponse struct {
	Ratings []rating.RatingView `json:"ratings"`
}

type Handler struct {
	matches *match.Service
	ratings *rating.Service
}

func NewHandler(matches *match.Service, ratings *rating.Service) *Handler {
	return &Handler{matches: matches, ratings: ratings}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/matches", h.HandleCreateMatch)
	mux.HandleFunc("GET /api/v1/matches", h.HandleUserMatches)
	mux.HandleFunc("GET /api/v1/matches/{id}", h.HandleGetMatch)
	mux.HandleFunc("POST /api/v1/matches/{id}/start", h.HandleStartMatch)
	mux.HandleFunc("POST /api/v1/matches/{id}/cancel", h.HandleCancelMatch)
	mux.HandleFunc("POST /api/v1/matches/{id}/complete", h.HandleCompleteMatch)
	mux.HandleFunc("POST /api/v1/matches/{id}/invitations", h.HandleInvitePlayer)
	mux.HandleFunc("POST /api/v1/matches/{id}/invitation", h.HandleRespondToInvitation)
	mux.HandleFunc("POST /api/v1/matches/{id}/join-requests", h.HandleRequestToJoin)
	mux.HandleFunc("POST /api/v1/matches/{id}/join-requests/{userId}", h.HandleRespondToJoinRequest)
	mux.HandleFunc("POST /api/v1/matches/{id}/check-in", h.HandleCheckInPlayer)
	mux.HandleFunc("PUT /api/v1/matches/{id}/players/{userId}/team", h.HandleAssignTeam)
	mux.HandleFunc("POST /api/v1/matches/{id}/ratings", h.HandleRatePlayer)
	mux.HandleFunc("GET /api/v1/matches/{id}/ratings/status", h.HandleRatingStatus)
	mux.HandleFunc("GET /api/v1/users/{id}/profile", h.HandlePlayerProfile)
	mux.HandleFunc("GET /api/v1/users/{id}/ratings", h.HandleUserRatings)
}

// POST /api/v1/matches
func (h *Handler) HandleCreateMatch(w http.ResponseWriter, r *http.Request) {
	identity := apiutil.RequireIdentity(w, r)
	if identity == nil {
		return
	}

	var req createMatchRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, r, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchRequestTimeout)
	defer cancel()

	created, err := h.matches.CreateMatch(ctx, match.CreateMatchInput{
		CreatorID:     identity.UserID,
		BookingID:     req.BookingID,
		SportID:       req.SportID,
		TeamSize:      req.TeamSize,
		Title:         req.Title,
		Description:   req.Description,
		MinSkillLevel: req.MinSkillLevel,
		MaxSkillLevel: req.MaxSkillLevel,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	h.respondWithMatch(ctx, w, r, created.ID, http.StatusCreated)
}

// GET /api/v1/matches
func (h *Handler) HandleUserMatches(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	identity := apiutil.RequireIdentity(w, r)
	if identity == nil {
		return
	}

	views, err := h.matches.GetUserMatches(r.Context(), identity.UserID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, logger, http.StatusOK, matchListResponse{Matches: views})
}

// GET /api/v1/matches/{id}
func (h *Handler) HandleGetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}
	h.respondWithMatch(r.Context(), w, r, matchID, http.StatusOK)
}

// POST /api/v1/matches/{id}/start
func (h *Handler) HandleStartMatch(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, matchID, userID int64) error {
		return h.matches.StartMatch(ctx, matchID, userID)
	})
}

// POST /api/v1/matches/{id}/cancel
func (h *Handler) HandleCancelMatch(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, matchID, userID int64) error {
		return h.matches.CancelMatch(ctx, matchID, userID)
	})
}

// POST /api/v1/matches/{id}/complete
func (h *Handler) HandleCompleteMatch(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, matchID, _ int64) error {
		return h.matches.CompleteMatch(ctx, matchID)
	})
}

// POST /api/v1/matches/{id}/invitations
func (h *Handler) HandleInvitePlayer(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, r, "Invalid request body")
		return
	}
	h.act(w, r, func(ctx context.Context, matchID, userID int64) error {
		return h.matches.InvitePlayer(ctx, matchID, req.UserID, userID)
	})
}

// POST /api/v1/matches/{id}/invitation
func (h *Handler) HandleRespondToInvitation(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, r, "Invalid request body")
		return
	}
	h.act(w, r, func(ctx context.Context, matchID, userID int64) error {
		return h.matches.RespondToInvitation(ctx, matchID, userID, req.Accept)
	})
}

// POST /api/v1/matches/{id}/join-requests
func (h *Handler) HandleRequestToJoin(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, matchID, userID int64) error {
		return h.matches.RequestToJoin(ctx, matchID, userID)
	})
}

// POST /api/v1/matches/{id}/join-requests/{userId}
func (h *Handler) HandleRespondToJoinRequest(w http.ResponseWriter, r *http.Request) {
	requesterID, err := apiutil.PathID(r, "userId")
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}
	var req answerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, r, "Invalid request body")
		return
	}
	h.act(w, r, func(ctx context.Context, matchID, userID int64) error {
		return h.matches.RespondToJoinRequest(ctx, matchID, requesterID, userID, req.Accept)
	})
}

// POST /api/v1/matches/{id}/check-in
func (h *Handler) HandleCheckInPlayer(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, matchID, userID int64) error {
		return h.matches.CheckInPlayer(ctx, matchID, userID)
	})
}

// PUT /api/v1/matches/{id}/players/{userId}/team
func (h *Handler) HandleAssignTeam(w http.ResponseWriter, r *http.Request) {
	playerID, err := apiutil.PathID(r, "userId")
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}
	var req teamRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, r, "Invalid request body")
		return
	}
	h.act(w, r, func(ctx context.Context, matchID, _ int64) error {
		return h.matches.AssignTeam(ctx, matchID, playerID, req.Team)
	})
}

// act runs a match operation for the caller and responds with the match.
func (h *Handler) act(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, matchID, userID int64) error) {
	identity := apiutil.RequireIdentity(w, r)
	if identity == nil {
		return
	}
	matchID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchRequestTimeout)
	defer cancel()

	if err := apply(ctx, matchID, identity.UserID); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	h.respondWithMatch(ctx, w, r, matchID, http.StatusOK)
}

func (h *Handler) respondWithMatch(ctx context.Context, w http.ResponseWriter, r *http.Request, matchID int64, status int) {
	view, err := h.matches.GetMatch(ctx, matchID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, log.Ctx(r.Context()), status, view)
}

// POST /api/v1/matches/{id}/ratings
func (h *Handler) HandleRatePlayer(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	identity := apiutil.RequireIdentity(w, r)
	if identity == nil {
		return
	}
	matchID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}
	var req rateRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, r, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), matchRequestTimeout)
	defer cancel()

	profile, err := h.ratings.RatePlayer(ctx, rating.RatePlayerInput{
		MatchID:             matchID,
		RaterID:             identity.UserID,
		RatedID:             req.RatedID,
		SkillRating:         req.SkillRating,
		SportsmanshipRating: req.SportsmanshipRating,
		Comment:             req.Comment,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, logger, http.StatusCreated, profile)
}

// GET /api/v1/matches/{id}/ratings/status
func (h *Handler) HandleRatingStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	identity := apiutil.RequireIdentity(w, r)
	if identity == nil {
		return
	}
	matchID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}

	done, err := h.ratings.HasUserRatedAllPlayers(r.Context(), matchID, identity.UserID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, logger, http.StatusOK, ratingStatusResponse{MatchID: matchID, RatedAll: done})
}

// GET /api/v1/users/{id}/profile
func (h *Handler) HandlePlayerProfile(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	userID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}

	profile, err := h.ratings.GetPlayerProfile(r.Context(), userID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, logger, http.StatusOK, profile)
}

// GET /api/v1/users/{id}/ratings
func (h *Handler) HandleUserRatings(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	userID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}

	ratings, err := h.ratings.GetRatingsForUser(r.Context(), userID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, logger, http.StatusOK, ratingListResponse{Ratings: ratings})
}
