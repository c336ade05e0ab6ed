// README: Typed handoff from the landing screen to the booking session, consumed once.
package handoff

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"rideflow/internal/modules/location"
	"rideflow/internal/modules/pricing"
)

var ErrInvalidHandoff = errors.New("handoff needs valid pickup and dropoff")

type Handoff struct {
	ID        string            `json:"id"`
	Pickup    location.Location `json:"pickup"`
	Dropoff   location.Location `json:"dropoff"`
	Quote     *pricing.Quote    `json:"quote,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// New validates the locations and stamps a fresh handoff id.
func New(pickup, dropoff location.Location, quote *pricing.Quote, now time.Time) (Handoff, error) {
	if pickup.Validate() != nil || dropoff.Validate() != nil {
		return Handoff{}, ErrInvalidHandoff
	}
	return Handoff{
		ID:        uuid.NewString(),
		Pickup:    pickup,
		Dropoff:   dropoff,
		Quote:     quote,
		CreatedAt: now,
	}, nil
}

// SamePayload reports whether two handoffs carry the same locations and quote,
// regardless of id.
func (h Handoff) SamePayload(o Handoff) bool {
	if h.Pickup != o.Pickup || h.Dropoff != o.Dropoff {
		return false
	}
	switch {
	case h.Quote == nil && o.Quote == nil:
		return true
	case h.Quote == nil || o.Quote == nil:
		return false
	default:
		return *h.Quote == *o.Quote
	}
}

// Store holds at most one pending handoff per user.
type Store interface {
	Put(ctx context.Context, uid string, h Handoff) error
	// Take returns and removes the pending handoff, or nil when there is none.
	Take(ctx context.Context, uid string) (*Handoff, error)
}
