package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RIDEFLOW_BACKEND_URL", "http://backend.local/api/")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "http://backend.local/api", cfg.Backend.BaseURL)
	assert.Equal(t, cfg.Backend.BaseURL, cfg.Backend.PricingURL)
	assert.Equal(t, 10*time.Second, cfg.Booking.RemoteTimeout)
	assert.Equal(t, 5*time.Second, cfg.Booking.FareTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.Booking.RatingOpenDelay)
	assert.Equal(t, 30*time.Minute, cfg.Booking.SessionIdleTTL)
	assert.Equal(t, 2*time.Second, cfg.Booking.DashboardReloadDelay)
	assert.Equal(t, "BDT", cfg.Booking.Currency)
	assert.False(t, cfg.Firebase.CheckRevoked)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RIDEFLOW_PRICING_URL", "http://pricing.local")
	t.Setenv("RIDEFLOW_FARE_TIMEOUT", "750ms")
	t.Setenv("RIDEFLOW_RATE_LIMIT_BURST", "3")
	t.Setenv("RIDEFLOW_LOG_LEVEL", "DEBUG")
	t.Setenv("RIDEFLOW_SESSION_IDLE_TTL", "10m")
	t.Setenv("RIDEFLOW_FIREBASE_CHECK_REVOKED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://pricing.local", cfg.Backend.PricingURL)
	assert.Equal(t, 750*time.Millisecond, cfg.Booking.FareTimeout)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 10*time.Minute, cfg.Booking.SessionIdleTTL)
	assert.True(t, cfg.Firebase.CheckRevoked)
}

func TestLoadCollectsInvalidValues(t *testing.T) {
	t.Setenv("RIDEFLOW_REMOTE_TIMEOUT", "soon")
	t.Setenv("RIDEFLOW_RATE_LIMIT_RPS", "fast")

	cfg, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RIDEFLOW_REMOTE_TIMEOUT")
	assert.Contains(t, err.Error(), "RIDEFLOW_RATE_LIMIT_RPS")
	assert.Equal(t, 10*time.Second, cfg.Booking.RemoteTimeout)
}
