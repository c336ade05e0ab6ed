// README: API gateway; holds the collaborators the routes delegate to.
package http

import (
	"github.com/sirupsen/logrus"

	"rideflow/internal/http/handlers"
	"rideflow/internal/http/middleware"
	"rideflow/internal/infra"
)

type ServerDeps struct {
	Sessions  handlers.Sessions
	Locations handlers.Locations
	// Events is nil when the phase journal is disabled.
	Events    handlers.EventLister
	Verifier  infra.TokenVerifier
	// Limiter is built from RateRPS and RateBurst when nil.
	Limiter   *middleware.RateLimiter
	RateRPS   float64
	RateBurst int
	Log       logrus.FieldLogger
}

type Server struct {
	sessions  handlers.Sessions
	locations handlers.Locations
	events    handlers.EventLister
	verifier  infra.TokenVerifier
	limiter   *middleware.RateLimiter
	log       logrus.FieldLogger
}

func NewServer(deps ServerDeps) *Server {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(deps.RateRPS, deps.RateBurst)
	}
	return &Server{
		sessions:  deps.Sessions,
		locations: deps.Locations,
		events:    deps.Events,
		verifier:  deps.Verifier,
		limiter:   limiter,
		log:       deps.Log,
	}
}
