// README: Location suggestion handler.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rideflow/internal/modules/location"
	"rideflow/internal/types"
)

type Locations interface {
	Suggest(ctx context.Context, query string, near *types.Point) ([]location.Location, error)
	Current(ctx context.Context, p types.Point) (location.Location, error)
}

type LocationHandler struct {
	locations Locations
}

func NewLocationHandler(svc Locations) *LocationHandler {
	return &LocationHandler{locations: svc}
}

// Suggestions handles GET ?q=&lat=&lng=. The optional position orders results by distance.
func (h *LocationHandler) Suggestions(c *gin.Context) {
	var near *types.Point
	if lat, lng := c.Query("lat"), c.Query("lng"); lat != "" && lng != "" {
		la, errLat := strconv.ParseFloat(lat, 64)
		ln, errLng := strconv.ParseFloat(lng, 64)
		if errLat != nil || errLng != nil {
			writeError(c, http.StatusBadRequest, "invalid lat/lng")
			return
		}
		near = &types.Point{Lat: la, Lng: ln}
	}
	out, err := h.locations.Suggest(c.Request.Context(), c.Query("q"), near)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	if out == nil {
		out = []location.Location{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"suggestions": out})
}
