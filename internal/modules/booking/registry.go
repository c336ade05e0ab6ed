// README: Booking sessions keyed by authenticated user, evicted when idle.
package booking

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rideflow/internal/config"
	"rideflow/internal/modules/handoff"
	"rideflow/internal/observability"
	"rideflow/internal/types"
)

// Shared are the collaborators common to every session.
type Shared struct {
	Rides    RideService
	Fares    FareEstimator
	Handoffs handoff.Store
	Journal  Journal
	Config   config.BookingConfig
	Log      logrus.FieldLogger
	Now      func() time.Time
}

type entry struct {
	engine   *Engine
	lastSeen time.Time
}

type Registry struct {
	shared Shared
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewRegistry(shared Shared) *Registry {
	now := shared.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{shared: shared, now: now, sessions: make(map[string]*entry)}
}

// Session returns the user's engine, creating it on first use. A role change
// starts a fresh session.
func (r *Registry) Session(uid string, role types.Role) *Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if s, ok := r.sessions[uid]; ok && s.engine.Role() == role {
		s.lastSeen = now
		return s.engine
	}
	e := NewEngine(Deps{
		Session:  uid,
		Role:     role,
		Rides:    r.shared.Rides,
		Fares:    r.shared.Fares,
		Handoffs: r.shared.Handoffs,
		Journal:  r.shared.Journal,
		Config:   r.shared.Config,
		Log:      r.shared.Log,
		Now:      r.now,
	})
	r.sessions[uid] = &entry{engine: e, lastSeen: now}
	observability.ActiveSessions.Set(float64(len(r.sessions)))
	return e
}

// Drop forgets the user's session.
func (r *Registry) Drop(uid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, uid)
	observability.ActiveSessions.Set(float64(len(r.sessions)))
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions not touched within the idle TTL and reports how many
// went. A zero TTL disables eviction.
func (r *Registry) Sweep() int {
	ttl := r.shared.Config.SessionIdleTTL
	if ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for uid, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(r.sessions, uid)
			evicted++
		}
	}
	observability.ActiveSessions.Set(float64(len(r.sessions)))
	return evicted
}

// RunSweeper sweeps on every tick until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.shared.Log.WithField("evicted", n).Debug("idle booking sessions evicted")
			}
		}
	}
}
