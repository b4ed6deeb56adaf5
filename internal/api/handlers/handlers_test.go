package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eventboard/server/internal/api/middleware"
	"github.com/eventboard/server/internal/audit"
	"github.com/eventboard/server/internal/domain/events"
	"github.com/eventboard/server/internal/domain/users"
	"github.com/eventboard/server/internal/testauth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  *testauth.Store
	users  *users.Service
	auth   *AuthHandler
	events *EventsHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testauth.NewStore()
	userSvc := users.NewService(store.Users(), "attendee", zerolog.Nop(), users.WithHasher(testauth.PlainHasher{}))
	eventSvc := events.NewService(store.Events(), userSvc, "http://localhost:5000", zerolog.Nop())
	return &fixture{
		store:  store,
		users:  userSvc,
		auth:   NewAuthHandler(userSvc, testauth.Tokens(), "test"),
		events: NewEventsHandler(eventSvc, "test"),
	}
}

func (f *fixture) organizer(t *testing.T, email string) int64 {
	t.Helper()
	require.NoError(t, f.users.Bootstrap(context.Background(), email, "secret"))
	user, err := f.store.Users().GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return user.ID
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asUser(req *http.Request, userID int64, role string) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), middleware.Principal{UserID: userID, Role: role}))
}

func eventBody() map[string]any {
	return map[string]any{
		"title":    "Jazz Night",
		"image":    "jazz.png",
		"date":     "2025-06-01",
		"time":     "19:30",
		"location": "Main Hall",
	}
}

func TestSignup(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.auth.Signup(rec, jsonRequest(http.MethodPost, "/api/signup", map[string]string{"email": "a@b.co", "password": "x"}))

	require.Equal(t, http.StatusCreated, rec.Code)
	var body signupResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, int64(1), body.UserID)
	require.Equal(t, "User created successfully", body.Message)
}

func TestSignupFailures(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.auth.Signup(rec, jsonRequest(http.MethodPost, "/api/signup", map[string]string{"email": "a@b.co", "password": "x"}))
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name     string
		req      *http.Request
		wantType string
	}{
		{"duplicate", jsonRequest(http.MethodPost, "/api/signup", map[string]string{"email": "A@b.co", "password": "y"}), "conflict"},
		{"missing password", jsonRequest(http.MethodPost, "/api/signup", map[string]string{"email": "c@b.co"}), "validation-error"},
		{"bad email", jsonRequest(http.MethodPost, "/api/signup", map[string]string{"email": "nope", "password": "y"}), "validation-error"},
		{"malformed", httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader("{")), "validation-error"},
		{"empty", httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader("")), "validation-error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.auth.Signup(rec, tt.req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Contains(t, rec.Body.String(), tt.wantType)
		})
	}
}

func TestSignupStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.Err = errors.New("connection refused")

	rec := httptest.NewRecorder()
	f.auth.Signup(rec, jsonRequest(http.MethodPost, "/api/signup", map[string]string{"email": "a@b.co", "password": "x"}))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	id := f.organizer(t, "org@example.com")

	rec := httptest.NewRecorder()
	f.auth.Login(rec, jsonRequest(http.MethodPost, "/api/login", map[string]string{"email": "org@example.com", "password": "secret"}))

	require.Equal(t, http.StatusOK, rec.Code)
	var body loginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, id, body.UserID)
	require.Equal(t, "organizer", body.Role)

	claims, err := testauth.Tokens().Validate(body.Token)
	require.NoError(t, err)
	require.Equal(t, id, claims.UserID)
}

func TestLoginRejects(t *testing.T) {
	f := newFixture(t)
	f.organizer(t, "org@example.com")

	for _, creds := range []map[string]string{
		{"email": "org@example.com", "password": "wrong"},
		{"email": "ghost@example.com", "password": "secret"},
		{"email": "", "password": ""},
	} {
		rec := httptest.NewRecorder()
		f.auth.Login(rec, jsonRequest(http.MethodPost, "/api/login", creds))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := httptest.NewRecorder()
	f.auth.Login(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader("not json")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsListEmptyArray(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.events.List(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestEventsCreateAndGet(t *testing.T) {
	f := newFixture(t)
	orgID := f.organizer(t, "org@example.com")

	rec := httptest.NewRecorder()
	f.events.Create(rec, asUser(jsonRequest(http.MethodPost, "/api/events", eventBody()), orgID, "organizer"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created eventMutationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Equal(t, "Event created successfully", created.Message)
	require.Equal(t, "19:30:00", created.Time)
	require.Equal(t, "2025-06-01", created.Date)
	require.NotNil(t, created.ImageURL)
	require.Equal(t, "http://localhost:5000/images/jazz.png", *created.ImageURL)

	req := httptest.NewRequest(http.MethodGet, "/api/events/1", nil)
	req.SetPathValue("id", "1")
	rec = httptest.NewRecorder()
	f.events.Get(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"title":"Jazz Night"`)
}

func TestEventsCreateRequiresOrganizerRole(t *testing.T) {
	f := newFixture(t)
	attendee, err := f.users.Register(context.Background(), "att@example.com", "pw")
	require.NoError(t, err)

	// A forged organizer claim does not help: the stored role is checked.
	rec := httptest.NewRecorder()
	f.events.Create(rec, asUser(jsonRequest(http.MethodPost, "/api/events", eventBody()), attendee.ID, "organizer"))

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Zero(t, f.store.EventCount())
}

func TestEventsCreateValidation(t *testing.T) {
	f := newFixture(t)
	orgID := f.organizer(t, "org@example.com")

	body := eventBody()
	delete(body, "title")
	rec := httptest.NewRecorder()
	f.events.Create(rec, asUser(jsonRequest(http.MethodPost, "/api/events", body), orgID, "organizer"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"title"`)
}

func TestEventsWithoutPrincipal(t *testing.T) {
	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.events.Create(rec, jsonRequest(http.MethodPost, "/api/events", eventBody()))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEventsGetBadID(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"abc", "0", "-4"} {
		req := httptest.NewRequest(http.MethodGet, "/api/events/"+id, nil)
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		f.events.Get(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, id)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events/77", nil)
	req.SetPathValue("id", "77")
	rec := httptest.NewRecorder()
	f.events.Get(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventsUpdateAndDeleteOwnership(t *testing.T) {
	f := newFixture(t)
	ownerID := f.organizer(t, "owner@example.com")
	otherID := f.organizer(t, "other@example.com")

	rec := httptest.NewRecorder()
	f.events.Create(rec, asUser(jsonRequest(http.MethodPost, "/api/events", eventBody()), ownerID, "organizer"))
	require.Equal(t, http.StatusCreated, rec.Code)

	update := eventBody()
	update["title"] = "Renamed"
	put := func(userID int64, id string) *httptest.ResponseRecorder {
		req := asUser(jsonRequest(http.MethodPut, "/api/events/"+id, update), userID, "organizer")
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		f.events.Update(rec, req)
		return rec
	}
	del := func(userID int64, id string) *httptest.ResponseRecorder {
		req := asUser(httptest.NewRequest(http.MethodDelete, "/api/events/"+id, nil), userID, "organizer")
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		f.events.Delete(rec, req)
		return rec
	}

	require.Equal(t, http.StatusForbidden, put(otherID, "1").Code)
	require.Equal(t, http.StatusNotFound, put(ownerID, "9").Code)

	rec = put(ownerID, "1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"message":"Event updated successfully"`)
	require.Contains(t, rec.Body.String(), `"title":"Renamed"`)

	require.Equal(t, http.StatusForbidden, del(otherID, "1").Code)
	rec = del(ownerID, "1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"Event deleted successfully"}`, rec.Body.String())
	require.Equal(t, http.StatusNotFound, del(ownerID, "1").Code)
}

func TestEventsAuditTrail(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	f.events.Audit = audit.NewLogger(zerolog.New(&buf))
	ownerID := f.organizer(t, "owner@example.com")
	otherID := f.organizer(t, "other@example.com")

	rec := httptest.NewRecorder()
	f.events.Create(rec, asUser(jsonRequest(http.MethodPost, "/api/events", eventBody()), ownerID, "organizer"))
	require.Equal(t, http.StatusCreated, rec.Code)

	req := asUser(httptest.NewRequest(http.MethodDelete, "/api/events/1", nil), otherID, "organizer")
	req.SetPathValue("id", "1")
	f.events.Delete(httptest.NewRecorder(), req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"action":"event.create"`)
	require.Contains(t, lines[0], `"status":"success"`)
	require.Contains(t, lines[1], `"action":"event.delete"`)
	require.Contains(t, lines[1], `"status":"failure"`)
	require.Contains(t, lines[1], `"resource_id":1`)
}

func TestEventsUpdateLegacyTimeField(t *testing.T) {
	f := newFixture(t)
	ownerID := f.organizer(t, "owner@example.com")

	rec := httptest.NewRecorder()
	f.events.Create(rec, asUser(jsonRequest(http.MethodPost, "/api/events", eventBody()), ownerID, "organizer"))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := eventBody()
	delete(body, "time")
	body["date_time"] = "21:45"
	req := asUser(jsonRequest(http.MethodPut, "/api/events/1", body), ownerID, "organizer")
	req.SetPathValue("id", "1")
	rec = httptest.NewRecorder()
	f.events.Update(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"time":"21:45:00"`)
}

func TestEventsListStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.Err = errors.New("dial tcp: refused")

	rec := httptest.NewRecorder()
	f.events.List(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "poster.png"), []byte("PNGDATA"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))
	h := Images(dir, "test")

	serve := func(name string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/images/"+name, nil)
		req.SetPathValue("filename", name)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("poster.png")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "PNGDATA", rec.Body.String())

	for _, name := range []string{"missing.png", "nested", "..", ".env", ""} {
		require.Equal(t, http.StatusNotFound, serve(name).Code, name)
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz("1.0.0").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok","version":"1.0.0"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Readyz(pingFunc(func(context.Context) error { return nil })).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	Readyz(pingFunc(func(context.Context) error { return errors.New("down") })).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	Readyz(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
