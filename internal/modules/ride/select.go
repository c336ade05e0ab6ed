package ride

import (
	"time"

	"rideflow/internal/types"
)

// SelectActive picks the session's active record: the newest non-terminal
// record, else the newest completed record inside the rating window that the
// viewer's role has not rated. It returns nil when nothing qualifies.
func SelectActive(records []Record, role types.Role, now time.Time) *Record {
	var best *Record
	for i := range records {
		r := &records[i]
		if r.Status.Terminal() || !r.ID.Valid() {
			continue
		}
		if best == nil || r.requestedAt().After(best.requestedAt()) {
			best = r
		}
	}
	if best != nil {
		out := *best
		return &out
	}

	for i := range records {
		r := &records[i]
		if r.Status != StatusCompleted || !r.ID.Valid() || r.RatedBy(role) {
			continue
		}
		done := r.CompletedAt()
		if done.IsZero() || now.Sub(done) >= RatingWindow {
			continue
		}
		if best == nil || done.After(best.CompletedAt()) {
			best = r
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}
