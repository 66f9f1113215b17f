package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codr1/courtside/internal/api"
	"github.com/codr1/courtside/internal/config"
	"github.com/codr1/courtside/internal/events"
	"github.com/codr1/courtside/internal/testutil"
)

func TestServerRoutes(t *testing.T) {
	database := testutil.NewTestDB(t)
	cfg := config.Defaults()
	svcs, err := newServices(&cfg, database, testutil.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)), time.UTC, events.LogPublisher{})
	if err != nil {
		t.Fatalf("new services: %v", err)
	}
	server := newServer(&cfg, svcs, database, nil)

	cases := []struct {
		name       string
		method     string
		path       string
		userID     string
		wantStatus int
	}{
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "bookings need identity", method: http.MethodGet, path: "/api/v1/bookings", wantStatus: http.StatusUnauthorized},
		{name: "bookings with identity", method: http.MethodGet, path: "/api/v1/bookings", userID: "1", wantStatus: http.StatusOK},
		{name: "malformed identity", method: http.MethodGet, path: "/api/v1/bookings", userID: "x", wantStatus: http.StatusBadRequest},
		{name: "missing match", method: http.MethodGet, path: "/api/v1/matches/42", wantStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodDelete, path: "/api/v1/matches", wantStatus: http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.userID != "" {
				req.Header.Set(api.HeaderUserID, tc.userID)
			}
			rec := httptest.NewRecorder()
			server.Handler.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}
