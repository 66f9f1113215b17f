package apiutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codr1/courtside/internal/api/authz"
	"github.com/codr1/courtside/internal/apperr"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "not found", err: apperr.ErrMatchNotFound, wantStatus: http.StatusNotFound, wantCode: "match_not_found"},
		{name: "forbidden", err: apperr.ErrNotOwner, wantStatus: http.StatusForbidden, wantCode: "not_owner"},
		{name: "state", err: apperr.ErrBookingState, wantStatus: http.StatusConflict, wantCode: "booking_state"},
		{name: "conflict", err: fmt.Errorf("create: %w", apperr.ErrSlotUnavailable), wantStatus: http.StatusConflict, wantCode: "slot_unavailable"},
		{name: "validation", err: apperr.ErrInvalidTeam, wantStatus: http.StatusUnprocessableEntity, wantCode: "invalid_team"},
		{name: "too early", err: apperr.ErrCheckInTooEarly, wantStatus: http.StatusTooEarly, wantCode: "check_in_too_early"},
		{name: "too late", err: apperr.ErrCancellationCutoff, wantStatus: http.StatusGone, wantCode: "cancellation_cutoff"},
		{name: "persistence", err: apperr.ErrPersistence, wantStatus: http.StatusInternalServerError},
		{name: "internal", err: errors.New("disk on fire"), wantStatus: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tc.wantCode {
				t.Fatalf("expected code %q, got %q", tc.wantCode, body.Code)
			}
			if strings.Contains(rec.Body.String(), "disk on fire") {
				t.Fatal("internal error details leaked")
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"court"}`))
	if err := DecodeJSON(r, &dst); err != nil || dst.Name != "court" {
		t.Fatalf("decode: %v %+v", err, dst)
	}

	for _, body := range []string{`{"other":1}`, `{"name":"a"}{"name":"b"}`, `not json`} {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if err := DecodeJSON(r, &dst); err == nil {
			t.Fatalf("expected %q to fail", body)
		}
	}
}

func TestRequireIdentity(t *testing.T) {
	rec := httptest.NewRecorder()
	if RequireIdentity(rec, httptest.NewRequest(http.MethodGet, "/", nil)) != nil || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	ctx := authz.ContextWithIdentity(context.Background(), &authz.Identity{UserID: 3, Role: authz.RoleCustomer})
	r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

	rec = httptest.NewRecorder()
	if RequireIdentity(rec, r, authz.RoleOwner) != nil || rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	if identity := RequireIdentity(rec, r); identity == nil || identity.UserID != 3 {
		t.Fatalf("expected identity, got %+v", identity)
	}
}
