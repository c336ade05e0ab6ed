// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rideflow/internal/http/handlers"
	"rideflow/internal/http/middleware"
)

func (s *Server) Routes() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(s.log), middleware.Logging(s.log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(s.verifier), s.limiter.Middleware())

	locationHandler := handlers.NewLocationHandler(s.locations)
	api.GET("/locations/suggestions", locationHandler.Suggestions)

	h := handlers.NewSessionHandler(s.sessions, s.locations, s.events)
	session := api.Group("/session")
	session.GET("", h.Get)
	session.DELETE("", h.End)
	session.GET("/events", h.Events)
	session.POST("/route", h.Route)
	session.POST("/handoff", h.Handoff)
	session.PUT("/pickup", h.SetPickup)
	session.POST("/pickup/current", h.CurrentPickup)
	session.PUT("/dropoff", h.SetDropoff)
	session.PUT("/tier", h.SetTier)
	session.POST("/select", h.Select)
	session.POST("/request", h.Request)
	session.POST("/cancel/open", h.OpenCancel)
	session.POST("/cancel/dismiss", h.DismissCancel)
	session.POST("/cancel/confirm", h.ConfirmCancel)
	session.POST("/rating/open", h.OpenRating)
	session.POST("/rating", h.SubmitRating)
	session.POST("/rating/skip", h.SkipRating)
	session.POST("/reset", h.Reset)
	return r
}
