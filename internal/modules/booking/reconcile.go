package booking

import (
	"github.com/sirupsen/logrus"

	"rideflow/internal/modules/effects"
	"rideflow/internal/modules/rating"
	"rideflow/internal/modules/ride"
	"rideflow/internal/observability"
)

// reconcileLocked derives the phase from, in priority order, the bound route,
// an adopted handoff and the active ride record. Nothing is decided while the
// first load is pending or during the optimistic request window.
func (e *Engine) reconcileLocked() {
	res := e.query.Result()
	if !res.HasData {
		if res.State != ride.QueryError || e.requesting {
			return
		}
		switch {
		case e.routeID != "":
			if res.Version <= e.routeVersion {
				return
			}
			e.log.WithError(res.Err).WithField("ride_id", e.routeID).Warn("routed ride could not be loaded, returning to search")
			e.clearLocked()
			e.setPhaseLocked(PhaseSearch)
			e.routeID = ""
			e.queue.Navigate(effects.Navigation{Path: effects.BasePath, Replace: true})
		case e.phase.After(PhaseSelectRide):
			e.log.WithError(res.Err).Warn("active ride unavailable, returning to search")
			e.clearLocked()
			e.setPhaseLocked(PhaseSearch)
		}
		return
	}
	if e.requesting {
		return
	}
	if e.routeID == "" && e.handoff != nil {
		return
	}

	rec := res.Record
	if rec != nil && e.dismissed[rec.ID] {
		rec = nil
	}
	if rec == nil {
		switch {
		case e.routeID != "":
			if res.Version <= e.routeVersion {
				return
			}
			e.log.WithField("ride_id", e.routeID).Info("routed ride is not active, returning to search")
			e.clearLocked()
			e.setPhaseLocked(PhaseSearch)
			e.routeID = ""
			e.queue.Navigate(effects.Navigation{Path: effects.BasePath, Replace: true})
		case e.record != nil:
			e.clearLocked()
			e.setPhaseLocked(PhaseSearch)
		}
		return
	}

	switch {
	case e.routeID != "" && rec.ID != e.routeID:
		if res.Version <= e.routeVersion {
			return
		}
		if !e.redirected[rec.ID] {
			e.queue.Navigate(effects.Navigation{Path: effects.RidePath(string(rec.ID)), Replace: true})
		}
		e.routeID = rec.ID
	case e.routeID == "":
		if !e.redirected[rec.ID] {
			e.queue.Navigate(effects.Navigation{Path: effects.RidePath(string(rec.ID)), Replace: true})
		}
		e.routeID = rec.ID
	}
	e.redirected[rec.ID] = true
	e.adoptLocked(rec, res.Version)
}

// adoptLocked replaces the local mirror with the record wholesale.
func (e *Engine) adoptLocked(rec *ride.Record, version uint64) {
	if e.adopted == version && e.record != nil && e.record.ID == rec.ID {
		return
	}
	e.adopted = version

	if !rec.Status.Known() {
		observability.ReconcileAnomalies.Inc()
		e.log.WithFields(logrus.Fields{"ride_id": rec.ID, "status": rec.Status}).Warn("unknown ride status, showing finding_driver")
	}
	phase := PhaseForStatus(rec.Status)
	if phase == PhaseSearch {
		e.clearLocked()
		e.setPhaseLocked(PhaseSearch)
		if e.routeID != "" {
			e.routeID = ""
			e.queue.Navigate(effects.Navigation{Path: effects.BasePath, Replace: true})
		}
		return
	}

	e.record = rec
	e.rideID = rec.ID
	e.handoff = nil
	if rec.Pickup.Validate() == nil {
		p := rec.Pickup
		e.pickup = &p
	}
	if rec.Destination.Validate() == nil {
		d := rec.Destination
		e.dropoff = &d
	}
	if q := quoteFromRecord(rec, e.tier); q != nil {
		e.quote = q
		e.tier = q.Tier
	}
	e.driver = projectDriver(rec.Driver)
	e.setPhaseLocked(phase)
}

// autoOpenRatingLocked opens the rating dialog once the completed phase has
// been shown for the configured delay.
func (e *Engine) autoOpenRatingLocked() {
	r := e.record
	if e.phase != PhaseCompleted || r == nil || r.Status != ride.StatusCompleted {
		return
	}
	if r.RatedBy(e.role) || e.rating.Handled(r.ID) || e.rating.View().State != rating.StateClosed {
		return
	}
	if e.now().Before(e.completedAt.Add(e.cfg.RatingOpenDelay)) {
		return
	}
	_ = e.rating.Open(rating.Target{RideID: r.ID, Status: r.Status})
}
