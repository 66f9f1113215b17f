// internal/api/bookings/handlers.go
package bookings

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/api/apiutil"
	"github.com/codr1/courtside/internal/api/authz"
	"github.com/codr1/courtside/internal/booking"
	"github.com/codr1/courtside/internal/clock"
)

const bookingRequestTimeout = 10 * time.Second

type createBookingRequest struct {
	CourtID   int64  `json:"courtId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type availabilityResponse struct {
	CourtID   int64  `json:"courtId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Available bool   `json:"available"`
}

type bookingListResponse struct {
	Bookings []booking.BookingView `json:"bookings"`
}

type Handler struct {
	svc *booking.Service
}

func NewHandler(svc *booking.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/bookings", h.HandleCreateBooking)
	mux.HandleFunc("GET /api/v1/bookings", h.HandleUserBookings)
	mux.HandleFunc("GET /api/v1/bookings/{id}", h.HandleGetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", h.HandleCancelBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/confirm", h.HandleConfirmBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/check-in", h.HandleCheckInBooking)
	mux.HandleFunc("GET /api/v1/courts/{id}/availability", h.HandleAvailability)
	mux.HandleFunc("GET /api/v1/courts/{id}/bookings", h.HandleCourtBookings)
	mux.HandleFunc("GET /api/v1/facilities/{id}/bookings", h.HandleFacilityBookings)
}

// POST /api/v1/bookings
func (h *Handler) HandleCreateBooking(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	identity := apiutil.RequireIdentity(w, r)
	if identity == nil {
		return
	}

	var req createBookingRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteBadRequest(w, r, "Invalid request body")
		return
	}
	slot, err := clock.ParseSlot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingRequestTimeout)
	defer cancel()

	created, err := h.svc.CreateBooking(ctx, booking.CreateBookingInput{
		UserID:  identity.UserID,
		CourtID: req.CourtID,
		Slot:    slot,
	})
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	view, err := h.svc.GetBooking(ctx, created.ID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, logger, http.StatusCreated, view)
}

// GET /api/v1/bookings
func (h *Handler) HandleUserBookings(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	identity := apiutil.RequireIdentity(w, r)
	if identity == nil {
		return
	}

	views, err := h.svc.GetUserBookings(r.Context(), identity.UserID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, logger, http.StatusOK, bookingListResponse{Bookings: views})
}

// GET /api/v1/bookings/{id}
func (h *Handler) HandleGetBooking(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	identity := apiutil.RequireIdentity(w, r)
	if identity == nil {
		return
	}
	bookingID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}

	view, err := h.svc.GetBooking(r.Context(), bookingID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, logger, http.StatusOK, view)
}

// POST /api/v1/bookings/{id}/cancel
func (h *Handler) HandleCancelBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, nil, h.svc.CancelBooking)
}

// POST /api/v1/bookings/{id}/confirm
func (h *Handler) HandleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, nil, h.svc.ConfirmBooking)
}

// POST /api/v1/bookings/{id}/check-in
func (h *Handler) HandleCheckInBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, []authz.Role{authz.RoleOwner}, h.svc.CheckInBooking)
}

// transition runs a booking state change on behalf of the caller and responds
// with the updated booking.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, roles []authz.Role, apply func(context.Context, int64, int64) error) {
	logger := log.Ctx(r.Context())
	identity := apiutil.RequireIdentity(w, r, roles...)
	if identity == nil {
		return
	}
	bookingID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingRequestTimeout)
	defer cancel()

	if err := apply(ctx, bookingID, identity.UserID); err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	view, err := h.svc.GetBooking(ctx, bookingID)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, logger, http.StatusOK, view)
}

// GET /api/v1/courts/{id}/availability?date=&startTime=&endTime=
func (h *Handler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	courtID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}
	query := r.URL.Query()
	slot, err := clock.ParseSlot(query.Get("date"), query.Get("startTime"), query.Get("endTime"))
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}

	available, err := h.svc.CheckAvailability(r.Context(), courtID, slot)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, logger, http.StatusOK, availabilityResponse{
		CourtID:   courtID,
		Date:      clock.FormatDate(slot.Date),
		StartTime: clock.FormatTime(slot.Start),
		EndTime:   clock.FormatTime(slot.End),
		Available: available,
	})
}

// GET /api/v1/courts/{id}/bookings?date=
func (h *Handler) HandleCourtBookings(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	courtID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}
	date, err := apiutil.QueryDate(r)
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}

	views, err := h.svc.GetBookingsForCourt(r.Context(), courtID, date)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, logger, http.StatusOK, bookingListResponse{Bookings: views})
}

// GET /api/v1/facilities/{id}/bookings?date=
func (h *Handler) HandleFacilityBookings(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if apiutil.RequireIdentity(w, r, authz.RoleOwner) == nil {
		return
	}
	facilityID, err := apiutil.PathID(r, "id")
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}
	date, err := apiutil.QueryDate(r)
	if err != nil {
		apiutil.WriteBadRequest(w, r, err.Error())
		return
	}

	views, err := h.svc.GetBookingsForFacility(r.Context(), facilityID, date)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	apiutil.Respond(w, logger, http.StatusOK, bookingListResponse{Bookings: views})
}
