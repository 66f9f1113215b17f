package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/api/authz"
	"github.com/codr1/courtside/internal/apperr"
)

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// StatusFor maps an error kind onto an HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindInvalidState, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindTooEarly:
		return http.StatusTooEarly
	case apperr.KindTooLate:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as an ErrorResponse. Typed failures expose their code
// and message; anything else is reported as an internal error.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	resp := ErrorResponse{Kind: string(apperr.KindInternal), Message: "Internal Server Error"}
	if appErr, ok := apperr.As(err); ok && appErr.Kind != apperr.KindPersistence {
		resp = ErrorResponse{Kind: string(appErr.Kind), Code: appErr.Code, Message: appErr.Message}
	}
	status := StatusFor(apperr.Kind(resp.Kind))

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	if writeErr := WriteJSON(w, status, resp); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write error response")
	}
}

// WriteBadRequest reports a malformed request that never reached the core.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	if err := WriteJSON(w, http.StatusBadRequest, ErrorResponse{Kind: "bad_request", Message: message}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write bad request response")
	}
}

// RequireIdentity writes 401 or 403 and returns nil when the caller is
// missing or lacks one of roles. No roles means any authenticated caller.
func RequireIdentity(w http.ResponseWriter, r *http.Request, roles ...authz.Role) *authz.Identity {
	logger := log.Ctx(r.Context())

	var (
		identity *authz.Identity
		err      error
	)
	if len(roles) == 0 {
		identity, err = authz.RequireIdentity(r.Context())
	} else {
		identity, err = authz.RequireRole(r.Context(), roles...)
	}
	if err == nil {
		return identity
	}

	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		logger.Warn().Str("path", r.URL.Path).Msg("Access denied: unauthenticated")
		writeAuthError(w, r, http.StatusUnauthorized, "unauthenticated", "Unauthorized")
	case errors.Is(err, authz.ErrForbidden):
		logEvent := logger.Warn().Str("path", r.URL.Path)
		if caller := authz.IdentityFromContext(r.Context()); caller != nil {
			logEvent = logEvent.Int64("user_id", caller.UserID).Str("role", string(caller.Role))
		}
		logEvent.Msg("Access denied: forbidden")
		writeAuthError(w, r, http.StatusForbidden, string(apperr.KindForbidden), "Forbidden")
	default:
		logger.Error().Err(err).Msg("Access denied: error")
		writeAuthError(w, r, http.StatusInternalServerError, string(apperr.KindInternal), "Failed to authorize request")
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	if err := WriteJSON(w, status, ErrorResponse{Kind: kind, Message: message}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write auth error response")
	}
}

// Respond writes payload, logging a failed write against logger.
func Respond(w http.ResponseWriter, logger *zerolog.Logger, status int, payload any) {
	if err := WriteJSON(w, status, payload); err != nil {
		logger.Error().Err(err).Msg("Failed to write response")
	}
}
