// README: Booking session engine: one per user, owns the phase and reconciles it with the active ride.
package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rideflow/internal/config"
	"rideflow/internal/modules/cancellation"
	"rideflow/internal/modules/effects"
	"rideflow/internal/modules/handoff"
	"rideflow/internal/modules/location"
	"rideflow/internal/modules/pricing"
	"rideflow/internal/modules/rating"
	"rideflow/internal/modules/ride"
	"rideflow/internal/observability"
	"rideflow/internal/types"
)

type RideService interface {
	ride.Fetcher
	CreateRide(ctx context.Context, cmd ride.CreateCommand) (types.ID, error)
	CancelRide(ctx context.Context, id types.ID, reason string) error
	RateRide(ctx context.Context, id types.ID, stars int, feedback string) error
	ConfirmPayment(ctx context.Context, id types.ID) error
}

type FareEstimator interface {
	Estimate(ctx context.Context, pickup, dropoff *location.Location, tier pricing.Tier) (pricing.Quote, error)
}

type Journal interface {
	AppendEvent(ctx context.Context, e *PhaseEvent) error
}

type Deps struct {
	Session  string
	Role     types.Role
	Rides    RideService
	Fares    FareEstimator
	Handoffs handoff.Store
	// Journal is optional.
	Journal Journal
	Config  config.BookingConfig
	Log     logrus.FieldLogger
	Now     func() time.Time
}

type Engine struct {
	session  string
	role     types.Role
	rides    RideService
	fares    FareEstimator
	handoffs handoff.Store
	journal  Journal
	cfg      config.BookingConfig
	log      logrus.FieldLogger
	now      func() time.Time

	query  *ride.Query
	queue  *effects.Queue
	cancel *cancellation.Flow
	rating *rating.Flow

	mu           sync.Mutex
	phase        Phase
	pickup       *location.Location
	dropoff      *location.Location
	tier         pricing.Tier
	quote        *pricing.Quote
	quoteKey     string
	quoting      bool
	driver       *DriverInfo
	rideID       types.ID
	routeID      types.ID
	routeVersion uint64
	record       *ride.Record
	adopted      uint64
	handoff      *handoff.Handoff
	redirected   map[types.ID]bool
	dismissed    map[types.ID]bool
	requesting   bool
	completedAt  time.Time
	events       []PhaseEvent
}

func NewEngine(d Deps) *Engine {
	if d.Now == nil {
		d.Now = time.Now
	}
	log := d.Log.WithField("session", d.Session)
	queue := effects.NewQueue()
	e := &Engine{
		session:    d.Session,
		role:       d.Role,
		rides:      d.Rides,
		fares:      d.Fares,
		handoffs:   d.Handoffs,
		journal:    d.Journal,
		cfg:        d.Config,
		log:        log,
		now:        d.Now,
		queue:      queue,
		phase:      PhaseSearch,
		tier:       pricing.TierRegular,
		redirected: make(map[types.ID]bool),
		dismissed:  make(map[types.ID]bool),
	}
	e.query = ride.NewQuery(d.Rides, d.Role, d.Config.RemoteTimeout, d.Now)
	e.cancel = cancellation.NewFlow(d.Rides, queue, d.Config.RemoteTimeout, log)
	e.rating = rating.NewFlow(d.Role, d.Rides, queue, queue, rating.Options{
		Timeout:     d.Config.RemoteTimeout,
		ReloadDelay: d.Config.DashboardReloadDelay,
	}, log)
	return e
}

func (e *Engine) Role() types.Role { return e.role }

// Snapshot consumes any pending handoff, loads the active ride if it has never
// loaded, reconciles, and returns the current view. Queued navigations and messages are
// drained into the result.
func (e *Engine) Snapshot(ctx context.Context) Snapshot {
	e.consumeHandoff(ctx)
	if !e.query.Result().HasData {
		if err := e.query.Refetch(ctx); err != nil {
			e.log.WithError(err).Warn("active ride fetch failed")
		}
	}

	e.mu.Lock()
	e.reconcileLocked()
	e.autoOpenRatingLocked()
	e.mu.Unlock()

	e.maybeQuote(ctx)
	e.flushJournal(ctx)

	e.mu.Lock()
	s := e.viewLocked()
	e.mu.Unlock()
	s.Navigations, s.Messages = e.queue.Drain()
	return s
}

// Refresh refetches the active ride and reconciles against the result.
func (e *Engine) Refresh(ctx context.Context) error {
	err := e.query.Refetch(ctx)
	e.mu.Lock()
	e.reconcileLocked()
	e.mu.Unlock()
	e.flushJournal(ctx)
	return err
}

// SetRoute binds the session to the ride named by the current route, or
// unbinds it when id is empty. A bound id shows finding_driver until the
// active record confirms or corrects it.
func (e *Engine) SetRoute(ctx context.Context, id types.ID) error {
	if id != "" && !id.Valid() {
		return ride.ErrInvalidRideID
	}
	e.mu.Lock()
	if id == e.routeID {
		e.mu.Unlock()
		return nil
	}
	e.routeID = id
	e.routeVersion = e.query.Result().Version
	if id != "" {
		e.redirected[id] = true
		e.rideID = id
		e.setPhaseLocked(PhaseFindingDriver)
	}
	e.mu.Unlock()

	if id == "" {
		e.flushJournal(ctx)
		return nil
	}
	if err := e.Refresh(ctx); err != nil {
		e.log.WithError(err).WithField("ride_id", id).Warn("active ride fetch failed")
	}
	return nil
}

// PublishHandoff stores a handoff for the next snapshot to pick up.
func (e *Engine) PublishHandoff(ctx context.Context, h handoff.Handoff) error {
	return e.handoffs.Put(ctx, e.session, h)
}

func (e *Engine) consumeHandoff(ctx context.Context) {
	if e.handoffs == nil {
		return
	}
	h, err := e.handoffs.Take(ctx, e.session)
	if err != nil {
		e.log.WithError(err).Warn("handoff read failed")
		return
	}
	if h != nil {
		e.applyHandoff(ctx, *h)
	}
}

// applyHandoff adopts the handoff's locations and quote at most once per
// payload. A bound route takes precedence.
func (e *Engine) applyHandoff(ctx context.Context, h handoff.Handoff) {
	e.mu.Lock()
	if e.handoff != nil && (e.handoff.ID == h.ID || e.handoff.SamePayload(h)) {
		e.mu.Unlock()
		return
	}
	if e.routeID != "" || e.requesting {
		bound := e.routeID
		e.mu.Unlock()
		e.log.WithField("ride_id", bound).Info("handoff ignored for bound ride route")
		return
	}
	e.handoff = &h
	pickup, dropoff := h.Pickup, h.Dropoff
	e.pickup, e.dropoff = &pickup, &dropoff
	e.quote, e.quoteKey = nil, ""
	if h.Quote != nil {
		q := *h.Quote
		if q.Tier != "" {
			e.tier = q.Tier
		}
		e.quote = &q
		e.quoteKey = quoteKey(pickup, dropoff, e.tier)
	}
	if e.role.BookingRestricted() {
		e.queue.Notify(effects.Message{Kind: effects.MessageError, Text: RoleRestrictedMessage})
	} else {
		e.setPhaseLocked(PhaseSelectRide)
	}
	e.mu.Unlock()

	e.maybeQuote(ctx)
	e.flushJournal(ctx)
}

func (e *Engine) SetPickup(ctx context.Context, l location.Location) error {
	return e.setLocation(ctx, l, true)
}

func (e *Engine) SetDropoff(ctx context.Context, l location.Location) error {
	return e.setLocation(ctx, l, false)
}

func (e *Engine) setLocation(ctx context.Context, l location.Location, pickup bool) error {
	if err := l.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	if e.phase.After(PhaseSelectRide) || e.requesting {
		e.mu.Unlock()
		return ErrInvalidState
	}
	target := &e.dropoff
	if pickup {
		target = &e.pickup
	}
	if *target == nil || **target != l {
		*target = &l
		e.quote, e.quoteKey = nil, ""
	}
	e.mu.Unlock()
	e.maybeQuote(ctx)
	return nil
}

func (e *Engine) SetTier(ctx context.Context, t pricing.Tier) error {
	t = pricing.ParseTier(string(t))
	e.mu.Lock()
	if e.phase.After(PhaseSelectRide) || e.requesting {
		e.mu.Unlock()
		return ErrInvalidState
	}
	if t != e.tier {
		e.tier = t
		e.quote, e.quoteKey = nil, ""
	}
	e.mu.Unlock()
	e.maybeQuote(ctx)
	return nil
}

// ProceedToSelect opens the ride selection step.
func (e *Engine) ProceedToSelect(ctx context.Context) error {
	e.mu.Lock()
	if e.role.BookingRestricted() {
		e.mu.Unlock()
		return ErrRoleRestricted
	}
	if e.pickup == nil || e.dropoff == nil {
		e.mu.Unlock()
		return ErrMissingLocation
	}
	if e.phase.After(PhaseSelectRide) {
		e.mu.Unlock()
		return ErrInvalidState
	}
	e.setPhaseLocked(PhaseSelectRide)
	e.mu.Unlock()

	e.maybeQuote(ctx)
	e.flushJournal(ctx)
	return nil
}

// RequestRide creates the ride. The phase shows finding_driver while the call
// is in flight and reverts to select_ride if it fails.
func (e *Engine) RequestRide(ctx context.Context, notes string) (types.ID, error) {
	e.mu.Lock()
	switch {
	case e.role.BookingRestricted():
		e.mu.Unlock()
		return "", ErrRoleRestricted
	case e.pickup == nil || e.dropoff == nil:
		e.mu.Unlock()
		return "", ErrMissingLocation
	case e.quote == nil:
		e.mu.Unlock()
		return "", ErrMissingQuote
	case e.phase != PhaseSelectRide || e.requesting:
		e.mu.Unlock()
		return "", ErrInvalidState
	}
	cmd := ride.CreateCommand{
		Pickup:   *e.pickup,
		Dropoff:  *e.dropoff,
		Notes:    notes,
		RideType: string(e.tier),
	}
	e.requesting = true
	e.setPhaseLocked(PhaseFindingDriver)
	e.mu.Unlock()
	e.flushJournal(ctx)

	cctx, cancel := e.callContext(ctx)
	id, err := e.rides.CreateRide(cctx, cmd)
	cancel()

	e.mu.Lock()
	e.requesting = false
	if err != nil {
		e.setPhaseLocked(PhaseSelectRide)
		e.queue.Notify(effects.Message{Kind: effects.MessageError, Text: "Failed to request ride. Please try again."})
		e.mu.Unlock()
		e.flushJournal(ctx)
		e.log.WithError(err).Warn("create ride failed")
		return "", fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	e.rideID = id
	e.routeID = id
	e.routeVersion = e.query.Result().Version
	e.redirected[id] = true
	e.handoff = nil
	e.queue.Navigate(effects.Navigation{Path: effects.RidePath(string(id))})
	e.queue.Notify(effects.Message{Kind: effects.MessageSuccess, Text: "Ride requested. Finding you a driver."})
	e.mu.Unlock()

	if err := e.Refresh(ctx); err != nil {
		e.log.WithError(err).WithField("ride_id", id).Warn("refetch after request failed")
	}
	return id, nil
}

func (e *Engine) OpenCancel() error {
	e.mu.Lock()
	ok := e.phase.cancellable() && e.rideID.Valid() && !e.requesting
	e.mu.Unlock()
	if !ok {
		return ErrInvalidState
	}
	return e.cancel.Open()
}

func (e *Engine) DismissCancel() error {
	return e.cancel.Dismiss()
}

// ConfirmCancel cancels the bound ride, refetches, then resets the session.
func (e *Engine) ConfirmCancel(ctx context.Context) error {
	e.mu.Lock()
	id := e.rideID
	e.mu.Unlock()
	if !id.Valid() {
		return ErrInvalidState
	}
	return e.cancel.Confirm(ctx, id, cancellation.Hooks{
		Refetch:     e.Refresh,
		OnCancelled: e.Reset,
	})
}

func (e *Engine) ratingTarget() (rating.Target, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.record
	if r == nil {
		return rating.Target{}, ErrNoActiveRide
	}
	if r.Status != ride.StatusCompleted && r.Status != ride.StatusPaymentCompleted {
		return rating.Target{}, ErrInvalidState
	}
	return rating.Target{RideID: r.ID, Status: r.Status, AlreadyRated: r.RatedBy(e.role)}, nil
}

func (e *Engine) OpenRating() error {
	t, err := e.ratingTarget()
	if err != nil {
		return err
	}
	return e.rating.Open(t)
}

func (e *Engine) SubmitRating(ctx context.Context, stars int, feedback string) error {
	t, err := e.ratingTarget()
	if err != nil {
		return err
	}
	return e.rating.Submit(ctx, t, stars, feedback, e.afterRating(t.RideID))
}

func (e *Engine) SkipRating(ctx context.Context) error {
	t, err := e.ratingTarget()
	if err != nil {
		return err
	}
	return e.rating.Skip(ctx, t, e.afterRating(t.RideID))
}

// afterRating returns the completion callback for a rated or skipped ride.
// The ride stays out of reconciliation for the rest of the session.
func (e *Engine) afterRating(id types.ID) func(context.Context) {
	return func(ctx context.Context) {
		e.mu.Lock()
		e.dismissed[id] = true
		e.mu.Unlock()
		if err := e.query.Refetch(ctx); err != nil {
			e.log.WithError(err).WithField("ride_id", id).Warn("refetch after rating failed")
		}
		e.Reset(ctx)
	}
}

// Reset clears the booking and returns to search, navigating to the base
// route when the session is on a ride route.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	e.clearLocked()
	e.setPhaseLocked(PhaseSearch)
	if e.routeID != "" {
		e.routeID = ""
		e.queue.Navigate(effects.Navigation{Path: effects.BasePath})
	}
	e.mu.Unlock()
	e.cancel.Reset()
	e.rating.Reset()
	e.flushJournal(ctx)
}

// clearLocked drops the local mirror of the booking. The tier is kept.
func (e *Engine) clearLocked() {
	e.pickup, e.dropoff = nil, nil
	e.quote, e.quoteKey = nil, ""
	e.driver = nil
	e.rideID = ""
	e.record = nil
	e.handoff = nil
}

func (e *Engine) setPhaseLocked(to Phase) {
	from := e.phase
	if from == to {
		return
	}
	e.phase = to
	if to == PhaseCompleted {
		e.completedAt = e.now()
	} else {
		e.completedAt = time.Time{}
	}
	observability.PhaseTransitions.WithLabelValues(string(from), string(to)).Inc()
	e.events = append(e.events, PhaseEvent{
		SessionID: e.session,
		RideID:    e.rideID,
		FromPhase: from,
		ToPhase:   to,
		CreatedAt: e.now(),
	})
	e.log.WithFields(logrus.Fields{"from": from, "phase": to, "ride_id": e.rideID}).Debug("phase transition")
}

// flushJournal writes pending phase events. Journal failures are logged only.
func (e *Engine) flushJournal(ctx context.Context) {
	e.mu.Lock()
	events := e.events
	e.events = nil
	e.mu.Unlock()
	if e.journal == nil {
		return
	}
	for i := range events {
		if err := e.journal.AppendEvent(ctx, &events[i]); err != nil {
			e.log.WithError(err).Warn("phase journal append failed")
			return
		}
	}
}

func quoteKey(pickup, dropoff location.Location, tier pricing.Tier) string {
	return fmt.Sprintf("%.6f,%.6f|%.6f,%.6f|%s",
		pickup.Coordinates.Lat, pickup.Coordinates.Lng,
		dropoff.Coordinates.Lat, dropoff.Coordinates.Lng, tier)
}

// maybeQuote runs the estimator once per pickup, dropoff and tier when the
// select step has both locations and no quote. An existing quote is kept.
func (e *Engine) maybeQuote(ctx context.Context) {
	e.mu.Lock()
	if e.phase != PhaseSelectRide || e.pickup == nil || e.dropoff == nil || e.quote != nil || e.quoting {
		e.mu.Unlock()
		return
	}
	key := quoteKey(*e.pickup, *e.dropoff, e.tier)
	if key == e.quoteKey {
		e.mu.Unlock()
		return
	}
	e.quoteKey = key
	e.quoting = true
	pickup, dropoff, tier := *e.pickup, *e.dropoff, e.tier
	e.mu.Unlock()

	q, err := e.fares.Estimate(ctx, &pickup, &dropoff, tier)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.quoting = false
	if err != nil {
		e.log.WithError(err).Warn("fare estimate rejected")
		return
	}
	if e.quoteKey != key || e.quote != nil || e.phase != PhaseSelectRide {
		return
	}
	e.quote = &q
	if q.Estimated() {
		e.queue.Notify(effects.Message{Kind: effects.MessageInfo, Text: q.Notice})
	}
}

func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.RemoteTimeout > 0 {
		return context.WithTimeout(ctx, e.cfg.RemoteTimeout)
	}
	return ctx, func() {}
}

func (e *Engine) viewLocked() Snapshot {
	res := e.query.Result()
	s := Snapshot{
		Phase:      e.phase,
		Loading:    res.State == ride.QueryLoading,
		RideID:     e.rideID,
		Pickup:     copyLocation(e.pickup),
		Dropoff:    copyLocation(e.dropoff),
		Tier:       e.tier,
		Quoting:    e.quoting,
		Requesting: e.requesting,
		Cancel:     e.cancel.View(),
		Rating:     e.rating.View(),
	}
	if e.quote != nil {
		q := *e.quote
		s.Quote = &q
	}
	if e.driver != nil {
		d := *e.driver
		s.Driver = &d
	}
	if e.record != nil {
		s.RideStatus = e.record.Status
		s.Pin = e.record.Pin
	}
	s.CanRequest, s.RequestBlockedReason = e.canRequestLocked()
	return s
}

func (e *Engine) canRequestLocked() (bool, string) {
	switch {
	case e.role.BookingRestricted():
		return false, RoleRestrictedMessage
	case e.phase != PhaseSelectRide:
		return false, ""
	case e.requesting:
		return false, "Request in progress"
	case e.pickup == nil || e.dropoff == nil:
		return false, "Select pickup and dropoff"
	case e.quote == nil:
		return false, "Waiting for fare estimate"
	}
	return true, ""
}

func copyLocation(l *location.Location) *location.Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}
