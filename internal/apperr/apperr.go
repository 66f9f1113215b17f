// Package apperr defines the typed failures returned by the booking and match
// core. Every failure carries a Kind, which the HTTP layer maps to a status,
// and a Code naming the specific rule that was violated.
package apperr

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindInvalidState Kind = "invalid_state"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation"
	KindTooEarly     Kind = "too_early"
	KindTooLate      Kind = "too_late"
	KindPersistence  Kind = "persistence"
	KindInternal     Kind = "internal"
)

type Error struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same Kind and, when the target sets one,
// the same Code. errors.Is(err, ErrSlotUnavailable) therefore matches any
// slot failure regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Withf returns a copy of e with a formatted message.
func (e *Error) Withf(format string, args ...any) *Error {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	clone := *e
	clone.Err = cause
	return &clone
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Kind-level sentinels; match any code of that kind.
var (
	ErrNotFound     = &Error{Kind: KindNotFound, Message: "not found"}
	ErrForbidden    = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrInvalidState = &Error{Kind: KindInvalidState, Message: "invalid state"}
	ErrConflict     = &Error{Kind: KindConflict, Message: "conflict"}
	ErrValidation   = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrTooEarly     = &Error{Kind: KindTooEarly, Message: "too early"}
	ErrTooLate      = &Error{Kind: KindTooLate, Message: "too late"}
	ErrPersistence  = &Error{Kind: KindPersistence, Code: "persistence_failure", Message: "change was not persisted"}
)

var (
	ErrUserNotFound       = New(KindNotFound, "user_not_found", "user not found")
	ErrCourtNotFound      = New(KindNotFound, "court_not_found", "court not found")
	ErrFacilityNotFound   = New(KindNotFound, "facility_not_found", "facility not found")
	ErrBookingNotFound    = New(KindNotFound, "booking_not_found", "booking not found")
	ErrMatchNotFound      = New(KindNotFound, "match_not_found", "match not found")
	ErrSportNotFound      = New(KindNotFound, "sport_not_found", "sport not found")
	ErrPlayerNotFound     = New(KindNotFound, "player_not_found", "player is not part of this match")
	ErrInvitationNotFound = New(KindNotFound, "invitation_not_found", "invitation not found")
	ErrJoinRequestMissing = New(KindNotFound, "join_request_not_found", "join request not found")

	ErrUserBlocked    = New(KindForbidden, "user_blocked", "user is blocked")
	ErrNotOwner       = New(KindForbidden, "not_owner", "only the owner may perform this action")
	ErrNotCreator     = New(KindForbidden, "not_creator", "only the match creator may perform this action")
	ErrNotInMatch     = New(KindForbidden, "not_in_match", "only match players may invite")
	ErrNotFacility    = New(KindForbidden, "not_facility_owner", "only the facility owner may check in bookings")
	ErrSelfRating     = New(KindForbidden, "self_rating", "players cannot rate themselves")
	ErrNotParticipant = New(KindForbidden, "not_participant", "both players must have checked in to the match")

	ErrBookingState = New(KindInvalidState, "booking_state", "booking is not in a valid state for this action")
	ErrMatchState   = New(KindInvalidState, "match_state", "match is not in a valid state for this action")
	ErrPlayerState  = New(KindInvalidState, "player_state", "player is not in a valid state for this action")

	ErrSlotUnavailable = New(KindConflict, "slot_unavailable", "the requested slot is already booked")
	ErrDuplicateMatch  = New(KindConflict, "duplicate_match", "a match already exists for this booking")
	ErrAlreadyInMatch  = New(KindConflict, "already_in_match", "user is already part of this match")
	ErrMatchFull       = New(KindConflict, "match_full", "match is full")
	ErrDuplicateRating = New(KindConflict, "duplicate_rating", "player was already rated for this match")

	ErrInvalidInput    = New(KindValidation, "invalid_input", "invalid input")
	ErrInvalidTeam     = New(KindValidation, "invalid_team", `team must be "A" or "B"`)
	ErrSkillOutOfRange = New(KindValidation, "skill_out_of_range", "skill level out of range")

	ErrCheckInTooEarly    = New(KindTooEarly, "check_in_too_early", "check-in window has not opened")
	ErrCheckInTooLate     = New(KindTooLate, "check_in_too_late", "check-in window has closed")
	ErrCancellationCutoff = New(KindTooLate, "cancellation_cutoff", "booking can no longer be cancelled")
)

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Event picks the log level for err. Rule violations are expected outcomes
// and log at info with their kind and code; anything else logs at error.
func Event(logger *zerolog.Logger, err error) *zerolog.Event {
	if appErr, ok := As(err); ok && appErr.Kind != KindPersistence && appErr.Kind != KindInternal {
		return logger.Info().
			Str("kind", string(appErr.Kind)).
			Str("code", appErr.Code).
			Str("reason", appErr.Message)
	}
	return logger.Error().Err(err)
}
