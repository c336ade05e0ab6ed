// README: Entry point; loads config, wires booking sessions and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"rideflow/internal/backend"
	"rideflow/internal/config"
	httptransport "rideflow/internal/http"
	"rideflow/internal/http/handlers"
	"rideflow/internal/http/middleware"
	"rideflow/internal/infra"
	"rideflow/internal/logging"
	"rideflow/internal/modules/booking"
	"rideflow/internal/modules/handoff"
	"rideflow/internal/modules/location"
	"rideflow/internal/modules/pricing"
	"rideflow/internal/modules/ride"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := logging.New(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("RIDEFLOW_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, infra.FirebaseOptions{
		ProjectID:       cfg.Firebase.ProjectID,
		CredentialsFile: cfg.Firebase.CredentialsFile,
		CheckRevoked:    cfg.Firebase.CheckRevoked,
	})
	if err != nil {
		log.WithError(err).Fatal("firebase init")
	}

	shared := booking.Shared{
		Config: cfg.Booking,
		Log:    log,
	}

	var events handlers.EventLister
	if dbPool, err := infra.NewDB(ctx, cfg.DB.DSN); err != nil {
		log.WithError(err).Warn("phase journal disabled")
	} else {
		defer dbPool.Close()
		store := booking.NewStore(dbPool)
		shared.Journal = store
		events = store
	}

	if rdb, err := infra.NewRedis(ctx, cfg.Redis.Addr); err != nil {
		log.WithError(err).Warn("redis unavailable, keeping handoffs in memory")
		shared.Handoffs = handoff.NewMemoryStore(cfg.Booking.HandoffTTL, time.Now)
	} else {
		defer rdb.Close()
		shared.Handoffs = handoff.NewRedisStore(rdb, cfg.Booking.HandoffTTL)
	}

	var geocoder location.Geocoder
	if cfg.Maps.APIKey != "" {
		g, err := location.NewGoogleGeocoder(cfg.Maps.APIKey)
		if err != nil {
			log.WithError(err).Fatal("maps client")
		}
		geocoder = g
	}
	locations := location.NewService(geocoder, log)

	api := backend.New(cfg.Backend.BaseURL, cfg.Booking.RemoteTimeout)
	pricingAPI := backend.New(cfg.Backend.PricingURL, cfg.Booking.FareTimeout)
	shared.Rides = ride.NewClient(api)
	shared.Fares = pricing.NewService(pricing.NewHTTPQuoter(pricingAPI), cfg.Booking.FareTimeout, cfg.Booking.Currency, log)

	registry := booking.NewRegistry(shared)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go registry.RunSweeper(ctx, time.Minute)
	go limiter.RunSweeper(ctx, time.Minute, cfg.Booking.SessionIdleTTL)

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Sessions:  registry,
		Locations: locations,
		Events:    events,
		Verifier:  verifier,
		Limiter:   limiter,
		Log:       log,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", cfg.HTTP.Addr).Info("rideflow api listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("http server")
	}
}
