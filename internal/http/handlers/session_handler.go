// README: Booking session handlers; every route acts on the caller's own session.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rideflow/internal/http/middleware"
	"rideflow/internal/modules/booking"
	"rideflow/internal/modules/handoff"
	"rideflow/internal/modules/location"
	"rideflow/internal/modules/pricing"
	"rideflow/internal/types"
)

type Sessions interface {
	Session(uid string, role types.Role) *booking.Engine
	Drop(uid string)
}

type EventLister interface {
	ListEvents(ctx context.Context, sessionID string, limit int) ([]booking.PhaseEvent, error)
}

type SessionHandler struct {
	sessions  Sessions
	locations Locations
	events    EventLister
	now       func() time.Time
}

// NewSessionHandler builds the handler. events may be nil when no journal is configured.
func NewSessionHandler(sessions Sessions, locations Locations, events EventLister) *SessionHandler {
	return &SessionHandler{sessions: sessions, locations: locations, events: events, now: time.Now}
}

func (h *SessionHandler) engine(c *gin.Context) *booking.Engine {
	return h.sessions.Session(middleware.CallerUID(c), middleware.CallerRole(c))
}

// respond runs op against the caller's session and answers with a fresh snapshot.
func (h *SessionHandler) respond(c *gin.Context, op func(ctx context.Context, e *booking.Engine) error) {
	e := h.engine(c)
	ctx := callerContext(c)
	if err := op(ctx, e); err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, e.Snapshot(ctx))
}

func (h *SessionHandler) Get(c *gin.Context) {
	h.respond(c, func(context.Context, *booking.Engine) error { return nil })
}

type routeReq struct {
	RideID string `json:"ride_id"`
}

// Route binds the session to the ride route the UI is showing; an empty id unbinds.
func (h *SessionHandler) Route(c *gin.Context) {
	var req routeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	h.respond(c, func(ctx context.Context, e *booking.Engine) error {
		return e.SetRoute(ctx, types.ID(req.RideID))
	})
}

type handoffReq struct {
	Pickup  location.Location `json:"pickup"`
	Dropoff location.Location `json:"dropoff"`
	Quote   *pricing.Quote    `json:"quote"`
}

func (h *SessionHandler) Handoff(c *gin.Context) {
	var req handoffReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	hf, err := handoff.New(req.Pickup, req.Dropoff, req.Quote, h.now())
	if err != nil {
		writeSessionError(c, err)
		return
	}
	e := h.engine(c)
	if err := e.PublishHandoff(c.Request.Context(), hf); err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, map[string]any{"handoff_id": hf.ID})
}

func (h *SessionHandler) SetPickup(c *gin.Context) {
	h.setLocation(c, (*booking.Engine).SetPickup)
}

func (h *SessionHandler) SetDropoff(c *gin.Context) {
	h.setLocation(c, (*booking.Engine).SetDropoff)
}

func (h *SessionHandler) setLocation(c *gin.Context, set func(*booking.Engine, context.Context, location.Location) error) {
	var l location.Location
	if err := c.ShouldBindJSON(&l); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	h.respond(c, func(ctx context.Context, e *booking.Engine) error {
		return set(e, ctx, l)
	})
}

// CurrentPickup resolves the device position and uses it as pickup.
func (h *SessionHandler) CurrentPickup(c *gin.Context) {
	var p types.Point
	if err := c.ShouldBindJSON(&p); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	h.respond(c, func(ctx context.Context, e *booking.Engine) error {
		l, err := h.locations.Current(ctx, p)
		if err != nil {
			return err
		}
		return e.SetPickup(ctx, l)
	})
}

type tierReq struct {
	Tier string `json:"tier"`
}

func (h *SessionHandler) SetTier(c *gin.Context) {
	var req tierReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	h.respond(c, func(ctx context.Context, e *booking.Engine) error {
		return e.SetTier(ctx, pricing.Tier(req.Tier))
	})
}

func (h *SessionHandler) Select(c *gin.Context) {
	h.respond(c, func(ctx context.Context, e *booking.Engine) error {
		return e.ProceedToSelect(ctx)
	})
}

type requestReq struct {
	Notes string `json:"notes"`
}

func (h *SessionHandler) Request(c *gin.Context) {
	var req requestReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	e := h.engine(c)
	ctx := callerContext(c)
	id, err := e.RequestRide(ctx, req.Notes)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, map[string]any{"ride_id": id, "session": e.Snapshot(ctx)})
}

func (h *SessionHandler) OpenCancel(c *gin.Context) {
	h.respond(c, func(_ context.Context, e *booking.Engine) error { return e.OpenCancel() })
}

func (h *SessionHandler) DismissCancel(c *gin.Context) {
	h.respond(c, func(_ context.Context, e *booking.Engine) error { return e.DismissCancel() })
}

func (h *SessionHandler) ConfirmCancel(c *gin.Context) {
	h.respond(c, func(ctx context.Context, e *booking.Engine) error { return e.ConfirmCancel(ctx) })
}

func (h *SessionHandler) OpenRating(c *gin.Context) {
	h.respond(c, func(_ context.Context, e *booking.Engine) error { return e.OpenRating() })
}

type ratingReq struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

func (h *SessionHandler) SubmitRating(c *gin.Context) {
	var req ratingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	h.respond(c, func(ctx context.Context, e *booking.Engine) error {
		return e.SubmitRating(ctx, req.Rating, req.Feedback)
	})
}

func (h *SessionHandler) SkipRating(c *gin.Context) {
	h.respond(c, func(ctx context.Context, e *booking.Engine) error { return e.SkipRating(ctx) })
}

func (h *SessionHandler) Reset(c *gin.Context) {
	h.respond(c, func(ctx context.Context, e *booking.Engine) error {
		e.Reset(ctx)
		return nil
	})
}

// End forgets the caller's session entirely.
func (h *SessionHandler) End(c *gin.Context) {
	h.sessions.Drop(middleware.CallerUID(c))
	c.Status(http.StatusNoContent)
}

// Events lists the caller's recent phase transitions, newest first.
func (h *SessionHandler) Events(c *gin.Context) {
	if h.events == nil {
		writeError(c, http.StatusNotFound, "phase journal disabled")
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 200 {
			writeError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	events, err := h.events.ListEvents(c.Request.Context(), middleware.CallerUID(c), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		out = append(out, map[string]any{
			"id":         ev.ID,
			"ride_id":    ev.RideID,
			"from":       ev.FromPhase,
			"to":         ev.ToPhase,
			"created_at": ev.CreatedAt,
		})
	}
	writeJSON(c, http.StatusOK, map[string]any{"events": out})
}
