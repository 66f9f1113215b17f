package matches

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codr1/courtside/internal/api/authz"
	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/match"
	"github.com/codr1/courtside/internal/rating"
	"github.com/codr1/courtside/internal/testutil"
)

type handlerFixture struct {
	mux       *http.ServeMux
	creator   int64
	players   []int64
	bookingID int64
	sportID   int64
}

func setupHandlerTest(t *testing.T) handlerFixture {
	t.Helper()

	database := testutil.NewTestDB(t)
	fc := testutil.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	publisher := &testutil.RecordingPublisher{}

	matchSvc, err := match.NewService(database, fc, publisher)
	if err != nil {
		t.Fatalf("new match service: %v", err)
	}
	ratingSvc, err := rating.NewService(database, fc, publisher)
	if err != nil {
		t.Fatalf("new rating service: %v", err)
	}
	mux := http.NewServeMux()
	NewHandler(matchSvc, ratingSvc).RegisterRoutes(mux)

	ownerID := testutil.SeedOwner(t, database, "Owner")
	courtID := testutil.SeedCourt(t, database, testutil.SeedFacility(t, database, ownerID), 1000)
	creator := testutil.SeedUser(t, database, "Creator")
	players := []int64{
		testutil.SeedUser(t, database, "Invited One"),
		testutil.SeedUser(t, database, "Invited Two"),
		testutil.SeedUser(t, database, "Joiner"),
	}
	return handlerFixture{
		mux:       mux,
		creator:   creator,
		players:   players,
		bookingID: testutil.SeedBooking(t, database, creator, courtID, "2025-06-01", "10:00:00", "11:00:00", db.BookingStatusConfirmed),
		sportID:   testutil.SeedSport(t, database, "Padel"),
	}
}

func (f handlerFixture) do(t *testing.T, userID int64, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != 0 {
		identity := &authz.Identity{UserID: userID, Role: authz.RoleCustomer}
		req = req.WithContext(authz.ContextWithIdentity(context.Background(), identity))
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f handlerFixture) mustDo(t *testing.T, userID int64, method, path string, body any, wantStatus int) *httptest.ResponseRecorder {
	t.Helper()
	rec := f.do(t, userID, method, path, body)
	if rec.Code != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, wantStatus, rec.Code, rec.Body.String())
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func TestMatchFlowOverHTTP(t *testing.T) {
	f := setupHandlerTest(t)
	invitedOne, invitedTwo, joiner := f.players[0], f.players[1], f.players[2]

	rec := f.mustDo(t, f.creator, http.MethodPost, "/api/v1/matches", createMatchRequest{
		BookingID: f.bookingID,
		SportID:   f.sportID,
		TeamSize:  2,
		Title:     "Sunday doubles",
	}, http.StatusCreated)
	created := decode[match.MatchView](t, rec)
	if created.Status != db.MatchStatusOpen || len(created.Players) != 1 {
		t.Fatalf("unexpected match %+v", created)
	}
	base := fmt.Sprintf("/api/v1/matches/%d", created.ID)

	f.mustDo(t, f.creator, http.MethodPost, base+"/invitations", inviteRequest{UserID: invitedOne}, http.StatusOK)
	f.mustDo(t, f.creator, http.MethodPost, base+"/invitations", inviteRequest{UserID: invitedTwo}, http.StatusOK)
	f.mustDo(t, f.creator, http.MethodPost, base+"/invitations", inviteRequest{UserID: invitedTwo}, http.StatusConflict)
	f.mustDo(t, invitedOne, http.MethodPost, base+"/invitation", answerRequest{Accept: true}, http.StatusOK)
	f.mustDo(t, invitedTwo, http.MethodPost, base+"/invitation", answerRequest{Accept: true}, http.StatusOK)

	f.mustDo(t, joiner, http.MethodPost, base+"/join-requests", nil, http.StatusOK)
	f.mustDo(t, invitedOne, http.MethodPost, fmt.Sprintf("%s/join-requests/%d", base, joiner), answerRequest{Accept: true}, http.StatusForbidden)
	f.mustDo(t, f.creator, http.MethodPost, fmt.Sprintf("%s/join-requests/%d", base, joiner), answerRequest{Accept: true}, http.StatusOK)

	f.mustDo(t, joiner, http.MethodPut, fmt.Sprintf("%s/players/%d/team", base, joiner), teamRequest{Team: "C"}, http.StatusUnprocessableEntity)
	f.mustDo(t, joiner, http.MethodPut, fmt.Sprintf("%s/players/%d/team", base, joiner), teamRequest{Team: "B"}, http.StatusOK)

	f.mustDo(t, invitedOne, http.MethodPost, base+"/check-in", nil, http.StatusOK)
	f.mustDo(t, invitedTwo, http.MethodPost, base+"/check-in", nil, http.StatusOK)
	rec = f.mustDo(t, joiner, http.MethodPost, base+"/check-in", nil, http.StatusOK)
	if started := decode[match.MatchView](t, rec); started.Status != db.MatchStatusInProgress {
		t.Fatalf("expected automatic start, got %s", started.Status)
	}

	f.mustDo(t, f.creator, http.MethodPost, base+"/ratings", rateRequest{RatedID: invitedOne, SkillRating: 4, SportsmanshipRating: 5}, http.StatusConflict)
	rec = f.mustDo(t, f.creator, http.MethodPost, base+"/complete", nil, http.StatusOK)
	if completed := decode[match.MatchView](t, rec); completed.Status != db.MatchStatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("unexpected completed match %+v", completed)
	}

	rec = f.mustDo(t, f.creator, http.MethodPost, base+"/ratings", rateRequest{RatedID: invitedOne, SkillRating: 4, SportsmanshipRating: 5}, http.StatusCreated)
	if profile := decode[rating.ProfileView](t, rec); profile.SkillLevel != 8 || profile.MatchesPlayed != 1 {
		t.Fatalf("unexpected profile %+v", profile)
	}
	f.mustDo(t, f.creator, http.MethodPost, base+"/ratings", rateRequest{RatedID: f.creator, SkillRating: 5, SportsmanshipRating: 5}, http.StatusForbidden)

	rec = f.mustDo(t, f.creator, http.MethodGet, base+"/ratings/status", nil, http.StatusOK)
	if status := decode[ratingStatusResponse](t, rec); status.RatedAll {
		t.Fatal("expected unrated players to remain")
	}

	rec = f.mustDo(t, 0, http.MethodGet, fmt.Sprintf("/api/v1/users/%d/ratings", invitedOne), nil, http.StatusOK)
	if got := decode[ratingListResponse](t, rec); len(got.Ratings) != 1 {
		t.Fatalf("expected one rating, got %+v", got)
	}
	rec = f.mustDo(t, 0, http.MethodGet, fmt.Sprintf("/api/v1/users/%d/profile", invitedOne), nil, http.StatusOK)
	if profile := decode[rating.ProfileView](t, rec); profile.SkillLevel != 8 {
		t.Fatalf("unexpected stored profile %+v", profile)
	}

	rec = f.mustDo(t, joiner, http.MethodGet, "/api/v1/matches", nil, http.StatusOK)
	if mine := decode[matchListResponse](t, rec); len(mine.Matches) != 1 || len(mine.Matches[0].Players) != 4 {
		t.Fatalf("unexpected user matches %+v", mine)
	}
}

func TestMatchHandlerRejections(t *testing.T) {
	f := setupHandlerTest(t)

	f.mustDo(t, 0, http.MethodPost, "/api/v1/matches", createMatchRequest{BookingID: f.bookingID, SportID: f.sportID, TeamSize: 2}, http.StatusUnauthorized)
	f.mustDo(t, f.players[0], http.MethodPost, "/api/v1/matches", createMatchRequest{BookingID: f.bookingID, SportID: f.sportID, TeamSize: 2}, http.StatusNotFound)
	f.mustDo(t, f.creator, http.MethodPost, "/api/v1/matches", createMatchRequest{BookingID: f.bookingID, SportID: f.sportID, TeamSize: 0}, http.StatusUnprocessableEntity)
	f.mustDo(t, f.creator, http.MethodPost, "/api/v1/matches", map[string]any{"bookingId": f.bookingID, "unknown": true}, http.StatusBadRequest)
	f.mustDo(t, 0, http.MethodGet, "/api/v1/matches/9999", nil, http.StatusNotFound)
	f.mustDo(t, f.creator, http.MethodPost, "/api/v1/matches/9999/start", nil, http.StatusNotFound)

	rec := f.mustDo(t, f.creator, http.MethodPost, "/api/v1/matches", createMatchRequest{BookingID: f.bookingID, SportID: f.sportID, TeamSize: 2}, http.StatusCreated)
	matchID := decode[match.MatchView](t, rec).ID
	base := fmt.Sprintf("/api/v1/matches/%d", matchID)

	f.mustDo(t, f.creator, http.MethodPost, base+"/start", nil, http.StatusConflict)
	f.mustDo(t, f.players[0], http.MethodPost, base+"/cancel", nil, http.StatusForbidden)
	f.mustDo(t, f.creator, http.MethodPost, base+"/cancel", nil, http.StatusOK)
	f.mustDo(t, f.players[0], http.MethodPost, base+"/join-requests", nil, http.StatusConflict)
}
