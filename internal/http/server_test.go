package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rideflow/internal/config"
	httptransport "rideflow/internal/http"
	"rideflow/internal/infra"
	"rideflow/internal/logging"
	"rideflow/internal/modules/booking"
	"rideflow/internal/modules/handoff"
	"rideflow/internal/modules/location"
	"rideflow/internal/modules/ride"
	"rideflow/internal/types"
)

type rejectAll struct{}

func (rejectAll) VerifyIDToken(context.Context, string) (*infra.FirebaseToken, error) {
	return nil, errors.New("invalid")
}

type noRides struct{}

func (noRides) ActiveRides(context.Context) ([]ride.Record, error) { return nil, nil }
func (noRides) CreateRide(context.Context, ride.CreateCommand) (types.ID, error) {
	return "", errors.New("offline")
}
func (noRides) CancelRide(context.Context, types.ID, string) error    { return nil }
func (noRides) RateRide(context.Context, types.ID, int, string) error { return nil }
func (noRides) ConfirmPayment(context.Context, types.ID) error        { return nil }

func newHandler() http.Handler {
	log := logging.Discard()
	registry := booking.NewRegistry(booking.Shared{
		Rides:    noRides{},
		Handoffs: handoff.NewMemoryStore(time.Minute, time.Now),
		Config:   config.BookingConfig{RemoteTimeout: time.Second},
		Log:      log,
	})
	return httptransport.NewServer(httptransport.ServerDeps{
		Sessions:  registry,
		Locations: location.NewService(nil, log),
		Verifier:  rejectAll{},
		RateRPS:   10,
		RateBurst: 10,
		Log:       log,
	}).Routes()
}

func TestServerRoutes(t *testing.T) {
	h := newHandler()
	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/session", http.StatusUnauthorized},
		{"/api/locations/suggestions?q=gul", http.StatusUnauthorized},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}
