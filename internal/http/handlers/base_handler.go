// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rideflow/internal/backend"
	"rideflow/internal/http/middleware"
	"rideflow/internal/modules/booking"
	"rideflow/internal/modules/cancellation"
	"rideflow/internal/modules/handoff"
	"rideflow/internal/modules/location"
	"rideflow/internal/modules/rating"
	"rideflow/internal/modules/ride"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// callerContext carries the caller's token to the ride backend.
func callerContext(c *gin.Context) context.Context {
	return backend.WithToken(c.Request.Context(), middleware.CallerToken(c))
}

func writeSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrMissingLocation),
		errors.Is(err, booking.ErrMissingQuote),
		errors.Is(err, ride.ErrInvalidRideID),
		errors.Is(err, ride.ErrInvalidRating),
		errors.Is(err, location.ErrInvalidLocation),
		errors.Is(err, location.ErrEmptyQuery),
		errors.Is(err, handoff.ErrInvalidHandoff):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrRoleRestricted):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrNoActiveRide):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrRequestFailed),
		errors.Is(err, cancellation.ErrCancelFailed),
		errors.Is(err, rating.ErrPaymentConfirmation),
		errors.Is(err, rating.ErrRatingSubmission),
		errors.Is(err, backend.ErrRemote):
		writeError(c, http.StatusBadGateway, err.Error())
	case errors.Is(err, booking.ErrInvalidState),
		errors.Is(err, cancellation.ErrInvalidState),
		errors.Is(err, rating.ErrInvalidState),
		errors.Is(err, rating.ErrAlreadyRated):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
