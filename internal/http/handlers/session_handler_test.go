// README: Handler tests for the booking session and location routes.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideflow/internal/config"
	"rideflow/internal/http/handlers"
	httpmiddleware "rideflow/internal/http/middleware"
	"rideflow/internal/infra"
	"rideflow/internal/logging"
	"rideflow/internal/modules/booking"
	"rideflow/internal/modules/handoff"
	"rideflow/internal/modules/location"
	"rideflow/internal/modules/pricing"
	"rideflow/internal/modules/ride"
	"rideflow/internal/types"
)

// stubTokenVerifier is a test double for infra.TokenVerifier.
type stubTokenVerifier struct {
	token *infra.FirebaseToken
	err   error
}

func (s *stubTokenVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.FirebaseToken, error) {
	return s.token, s.err
}

func makeVerifier(uid, role string) *stubTokenVerifier {
	claims := map[string]interface{}{}
	if role != "" {
		claims["role"] = role
	}
	return &stubTokenVerifier{token: &infra.FirebaseToken{UID: uid, Claims: claims}}
}

type stubRides struct {
	mu        sync.Mutex
	active    []ride.Record
	createID  types.ID
	createErr error
	creates   int
}

func (s *stubRides) ActiveRides(context.Context) ([]ride.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, nil
}

func (s *stubRides) CreateRide(context.Context, ride.CreateCommand) (types.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	return s.createID, s.createErr
}

func (s *stubRides) CancelRide(context.Context, types.ID, string) error    { return nil }
func (s *stubRides) RateRide(context.Context, types.ID, int, string) error { return nil }
func (s *stubRides) ConfirmPayment(context.Context, types.ID) error        { return nil }

type offlineQuoter struct{}

func (offlineQuoter) Quote(context.Context, pricing.QuoteRequest) (pricing.RemoteQuote, error) {
	return pricing.RemoteQuote{}, errors.New("unreachable")
}

type stubEvents struct {
	events []booking.PhaseEvent
}

func (s stubEvents) ListEvents(context.Context, string, int) ([]booking.PhaseEvent, error) {
	return s.events, nil
}

// buildTestRouter wires a minimal Gin engine with the auth middleware and the session handler.
func buildTestRouter(verifier infra.TokenVerifier, rides *stubRides, events handlers.EventLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logging.Discard()
	registry := booking.NewRegistry(booking.Shared{
		Rides:    rides,
		Fares:    pricing.NewService(offlineQuoter{}, time.Second, "BDT", log),
		Handoffs: handoff.NewMemoryStore(time.Minute, time.Now),
		Config:   config.BookingConfig{RemoteTimeout: time.Second, FareTimeout: time.Second, RatingOpenDelay: time.Second, Currency: "BDT"},
		Log:      log,
	})
	locations := location.NewService(nil, log)

	r := gin.New()
	r.Use(httpmiddleware.Auth(verifier))
	lh := handlers.NewLocationHandler(locations)
	r.GET("/api/locations/suggestions", lh.Suggestions)

	h := handlers.NewSessionHandler(registry, locations, events)
	r.GET("/api/session", h.Get)
	r.DELETE("/api/session", h.End)
	r.GET("/api/session/events", h.Events)
	r.POST("/api/session/route", h.Route)
	r.POST("/api/session/handoff", h.Handoff)
	r.PUT("/api/session/pickup", h.SetPickup)
	r.POST("/api/session/pickup/current", h.CurrentPickup)
	r.PUT("/api/session/dropoff", h.SetDropoff)
	r.PUT("/api/session/tier", h.SetTier)
	r.POST("/api/session/select", h.Select)
	r.POST("/api/session/request", h.Request)
	r.POST("/api/session/cancel/open", h.OpenCancel)
	r.POST("/api/session/rating", h.SubmitRating)
	r.POST("/api/session/reset", h.Reset)
	return r
}

func doRequest(r *gin.Engine, method, path string, body interface{}, authHeader string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var (
	gulshan   = map[string]any{"id": "g", "name": "Gulshan", "address": "Gulshan, Dhaka", "coordinates": map[string]float64{"lat": 23.8103, "lng": 90.4125}, "type": "suggestion"}
	dhanmondi = map[string]any{"id": "d", "name": "Dhanmondi", "address": "Dhanmondi, Dhaka", "coordinates": map[string]float64{"lat": 23.7461, "lng": 90.3742}, "type": "suggestion"}
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestSession_Unauthenticated(t *testing.T) {
	r := buildTestRouter(&stubTokenVerifier{err: errors.New("no token")}, &stubRides{}, nil)
	w := doRequest(r, http.MethodGet, "/api/session", nil, "Bearer badtoken")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSession_InitialSnapshot(t *testing.T) {
	r := buildTestRouter(makeVerifier("rider1", ""), &stubRides{}, nil)
	w := doRequest(r, http.MethodGet, "/api/session", nil, "Bearer ok")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "search", body["phase"])
	assert.Equal(t, false, body["canRequest"])
}

func TestSession_RiderBooksRide(t *testing.T) {
	rides := &stubRides{createID: "r1"}
	r := buildTestRouter(makeVerifier("rider1", "rider"), rides, nil)

	require.Equal(t, http.StatusOK, doRequest(r, http.MethodPut, "/api/session/pickup", gulshan, "Bearer ok").Code)
	require.Equal(t, http.StatusOK, doRequest(r, http.MethodPut, "/api/session/dropoff", dhanmondi, "Bearer ok").Code)

	w := doRequest(r, http.MethodPost, "/api/session/select", nil, "Bearer ok")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "select_ride", body["phase"])
	quote := body["quote"].(map[string]any)
	assert.Equal(t, "estimated", quote["source"])
	assert.Equal(t, pricing.EstimatedNotice, quote["notice"])
	assert.Equal(t, true, body["canRequest"])

	w = doRequest(r, http.MethodPost, "/api/session/request", map[string]any{"notes": "gate 2"}, "Bearer ok")
	require.Equal(t, http.StatusCreated, w.Code)
	body = decode(t, w)
	assert.Equal(t, "r1", body["ride_id"])
	assert.Equal(t, 1, rides.creates)
}

func TestSession_RequestFailureIsBadGateway(t *testing.T) {
	rides := &stubRides{createErr: errors.New("503")}
	r := buildTestRouter(makeVerifier("rider1", ""), rides, nil)
	doRequest(r, http.MethodPut, "/api/session/pickup", gulshan, "Bearer ok")
	doRequest(r, http.MethodPut, "/api/session/dropoff", dhanmondi, "Bearer ok")
	doRequest(r, http.MethodPost, "/api/session/select", nil, "Bearer ok")

	w := doRequest(r, http.MethodPost, "/api/session/request", nil, "Bearer ok")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = doRequest(r, http.MethodGet, "/api/session", nil, "Bearer ok")
	assert.Equal(t, "select_ride", decode(t, w)["phase"])
}

func TestSession_DriverCannotBook(t *testing.T) {
	rides := &stubRides{createID: "r1"}
	r := buildTestRouter(makeVerifier("driver1", "driver"), rides, nil)
	doRequest(r, http.MethodPut, "/api/session/pickup", gulshan, "Bearer ok")
	doRequest(r, http.MethodPut, "/api/session/dropoff", dhanmondi, "Bearer ok")

	w := doRequest(r, http.MethodPost, "/api/session/select", nil, "Bearer ok")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, booking.RoleRestrictedMessage, decode(t, w)["error"])

	w = doRequest(r, http.MethodPost, "/api/session/request", nil, "Bearer ok")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, rides.creates)
}

func TestSession_ErrorMapping(t *testing.T) {
	r := buildTestRouter(makeVerifier("rider1", ""), &stubRides{}, nil)
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"placeholder route", http.MethodPost, "/api/session/route", map[string]any{"ride_id": "undefined"}, http.StatusBadRequest},
		{"invalid location", http.MethodPut, "/api/session/pickup", map[string]any{"name": "Nowhere"}, http.StatusBadRequest},
		{"select without locations", http.MethodPost, "/api/session/select", nil, http.StatusBadRequest},
		{"cancel without ride", http.MethodPost, "/api/session/cancel/open", nil, http.StatusConflict},
		{"rating without ride", http.MethodPost, "/api/session/rating", map[string]any{"rating": 5}, http.StatusNotFound},
		{"handoff without dropoff", http.MethodPost, "/api/session/handoff", map[string]any{"pickup": gulshan}, http.StatusBadRequest},
		{"malformed json", http.MethodPut, "/api/session/tier", "not-an-object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, tt.method, tt.path, tt.body, "Bearer ok")
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestSession_HandoffThenSnapshot(t *testing.T) {
	r := buildTestRouter(makeVerifier("rider1", ""), &stubRides{}, nil)
	w := doRequest(r, http.MethodPost, "/api/session/handoff", map[string]any{"pickup": gulshan, "dropoff": dhanmondi}, "Bearer ok")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.NotEmpty(t, decode(t, w)["handoff_id"])

	w = doRequest(r, http.MethodGet, "/api/session", nil, "Bearer ok")
	body := decode(t, w)
	assert.Equal(t, "select_ride", body["phase"])
	assert.Equal(t, "Gulshan", body["pickup"].(map[string]any)["name"])
}

func TestSession_ActiveRideRedirect(t *testing.T) {
	rec := ride.Record{
		ID:          "r7",
		Status:      ride.StatusAccepted,
		Pickup:      location.Location{Name: "Gulshan", Coordinates: types.Point{Lat: 23.8103, Lng: 90.4125}},
		Destination: location.Location{Name: "Dhanmondi", Coordinates: types.Point{Lat: 23.7461, Lng: 90.3742}},
		Driver:      &ride.Driver{ID: "d1", Name: "Karim"},
	}
	r := buildTestRouter(makeVerifier("rider1", ""), &stubRides{active: []ride.Record{rec}}, nil)
	w := doRequest(r, http.MethodGet, "/api/session", nil, "Bearer ok")
	body := decode(t, w)
	assert.Equal(t, "driver_assigned", body["phase"])
	navs := body["navigations"].([]any)
	require.Len(t, navs, 1)
	assert.Equal(t, "/ride/r7", navs[0].(map[string]any)["path"])
}

func TestSession_TierAlias(t *testing.T) {
	r := buildTestRouter(makeVerifier("rider1", ""), &stubRides{}, nil)
	w := doRequest(r, http.MethodPut, "/api/session/tier", map[string]any{"tier": "business"}, "Bearer ok")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "luxury", decode(t, w)["tier"])
}

func TestSession_Events(t *testing.T) {
	r := buildTestRouter(makeVerifier("rider1", ""), &stubRides{}, nil)
	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodGet, "/api/session/events", nil, "Bearer ok").Code)

	events := stubEvents{events: []booking.PhaseEvent{{ID: 2, SessionID: "rider1", FromPhase: booking.PhaseSearch, ToPhase: booking.PhaseSelectRide}}}
	r = buildTestRouter(makeVerifier("rider1", ""), &stubRides{}, events)
	w := doRequest(r, http.MethodGet, "/api/session/events?limit=10", nil, "Bearer ok")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["events"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "select_ride", list[0].(map[string]any)["to"])

	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodGet, "/api/session/events?limit=abc", nil, "Bearer ok").Code)
}

func TestSession_End(t *testing.T) {
	r := buildTestRouter(makeVerifier("rider1", ""), &stubRides{}, nil)
	doRequest(r, http.MethodPut, "/api/session/tier", map[string]any{"tier": "premium"}, "Bearer ok")
	assert.Equal(t, http.StatusNoContent, doRequest(r, http.MethodDelete, "/api/session", nil, "Bearer ok").Code)

	w := doRequest(r, http.MethodGet, "/api/session", nil, "Bearer ok")
	assert.Equal(t, "regular", decode(t, w)["tier"])
}

func TestLocation_Suggestions(t *testing.T) {
	r := buildTestRouter(makeVerifier("rider1", ""), &stubRides{}, nil)
	w := doRequest(r, http.MethodGet, "/api/locations/suggestions?q=gul", nil, "Bearer ok")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["suggestions"].([]any)
	require.NotEmpty(t, list)
	assert.Equal(t, "Gulshan", list[0].(map[string]any)["name"])

	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodGet, "/api/locations/suggestions?q=", nil, "Bearer ok").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(r, http.MethodGet, "/api/locations/suggestions?q=gul&lat=x&lng=1", nil, "Bearer ok").Code)
}

func TestSession_CurrentPickup(t *testing.T) {
	r := buildTestRouter(makeVerifier("rider1", ""), &stubRides{}, nil)
	w := doRequest(r, http.MethodPost, "/api/session/pickup/current", map[string]float64{"lat": 23.8103, "lng": 90.4125}, "Bearer ok")
	require.Equal(t, http.StatusOK, w.Code)
	pickup := decode(t, w)["pickup"].(map[string]any)
	assert.Equal(t, "Current Location", pickup["name"])
	assert.Equal(t, "23.810300, 90.412500", pickup["address"])
}
