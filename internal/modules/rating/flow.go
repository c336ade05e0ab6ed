// README: Completion and rating dialog, including the driver's payment confirmation.
package rating

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rideflow/internal/modules/effects"
	"rideflow/internal/modules/ride"
	"rideflow/internal/types"
)

var (
	ErrInvalidState        = errors.New("rating not allowed in current state")
	ErrAlreadyRated        = errors.New("ride already rated")
	ErrPaymentConfirmation = errors.New("failed to confirm payment")
	ErrRatingSubmission    = errors.New("failed to submit rating")
)

type State string

const (
	StateClosed     State = "closed"
	StateOpen       State = "open"
	StateSubmitting State = "submitting"
)

type Rides interface {
	RateRide(ctx context.Context, id types.ID, stars int, feedback string) error
	ConfirmPayment(ctx context.Context, id types.ID) error
}

// Target is the ride being rated as the viewer currently sees it.
type Target struct {
	RideID       types.ID
	Status       ride.Status
	AlreadyRated bool
}

type View struct {
	State  State    `json:"state"`
	Error  string   `json:"error,omitempty"`
	RideID types.ID `json:"rideId,omitempty"`
}

type Options struct {
	Timeout     time.Duration
	ReloadDelay time.Duration
}

type Flow struct {
	role   types.Role
	rides  Rides
	nav    effects.Navigator
	notify effects.Notifier
	opts   Options
	log    logrus.FieldLogger

	mu      sync.Mutex
	state   State
	rideID  types.ID
	lastErr string
	rated   map[types.ID]bool
	skipped map[types.ID]bool
	paid    map[types.ID]bool
}

func NewFlow(role types.Role, rides Rides, nav effects.Navigator, notify effects.Notifier, opts Options, log logrus.FieldLogger) *Flow {
	return &Flow{
		role:    role,
		rides:   rides,
		nav:     nav,
		notify:  notify,
		opts:    opts,
		log:     log,
		state:   StateClosed,
		rated:   make(map[types.ID]bool),
		skipped: make(map[types.ID]bool),
		paid:    make(map[types.ID]bool),
	}
}

func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{State: f.state, Error: f.lastErr, RideID: f.rideID}
}

// Handled reports whether the viewer already rated or skipped the ride here.
func (f *Flow) Handled(id types.ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rated[id] || f.skipped[id]
}

func (f *Flow) Open(t Target) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.AlreadyRated || f.rated[t.RideID] {
		return ErrAlreadyRated
	}
	switch f.state {
	case StateClosed:
		f.state = StateOpen
		f.rideID = t.RideID
		f.lastErr = ""
		return nil
	case StateOpen:
		if f.rideID == t.RideID {
			return nil
		}
	}
	return ErrInvalidState
}

// Reset closes the dialog unless a submission is in flight.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateSubmitting {
		f.state = StateClosed
		f.rideID = ""
		f.lastErr = ""
	}
}

// Submit sends a 1-5 star rating. For a driver on a payment_completed ride the
// payment is confirmed first; each step fails with its own error.
func (f *Flow) Submit(ctx context.Context, t Target, stars int, feedback string, onDone func(context.Context)) error {
	if stars < 1 || stars > 5 {
		return ride.ErrInvalidRating
	}
	if err := f.begin(t, true); err != nil {
		return err
	}
	if err := f.confirmPaymentIfDue(ctx, t); err != nil {
		return err
	}

	cctx, cancel := f.callContext(ctx)
	err := f.rides.RateRide(cctx, t.RideID, stars, strings.TrimSpace(feedback))
	cancel()
	if err != nil {
		f.fail(err)
		f.log.WithError(err).WithField("ride_id", t.RideID).Warn("rate ride failed")
		return fmt.Errorf("%w: %w", ErrRatingSubmission, err)
	}

	f.mu.Lock()
	f.rated[t.RideID] = true
	f.mu.Unlock()
	f.notify.Notify(effects.Message{Kind: effects.MessageSuccess, Text: "Thank you for your feedback!"})
	f.finish(ctx, t, onDone)
	return nil
}

// Skip closes the dialog without rating. The driver's payment confirmation
// still happens when due.
func (f *Flow) Skip(ctx context.Context, t Target, onDone func(context.Context)) error {
	if err := f.begin(t, false); err != nil {
		return err
	}
	if err := f.confirmPaymentIfDue(ctx, t); err != nil {
		return err
	}
	f.mu.Lock()
	f.skipped[t.RideID] = true
	f.mu.Unlock()
	f.finish(ctx, t, onDone)
	return nil
}

func (f *Flow) begin(t Target, rating bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rating && (t.AlreadyRated || f.rated[t.RideID]) {
		return ErrAlreadyRated
	}
	if f.state != StateOpen || f.rideID != t.RideID {
		return ErrInvalidState
	}
	f.state = StateSubmitting
	f.lastErr = ""
	return nil
}

func (f *Flow) confirmPaymentIfDue(ctx context.Context, t Target) error {
	f.mu.Lock()
	due := f.role == types.RoleDriver && t.Status == ride.StatusPaymentCompleted && !f.paid[t.RideID]
	f.mu.Unlock()
	if !due {
		return nil
	}

	cctx, cancel := f.callContext(ctx)
	err := f.rides.ConfirmPayment(cctx, t.RideID)
	cancel()
	if err != nil {
		f.fail(err)
		f.log.WithError(err).WithField("ride_id", t.RideID).Warn("confirm payment failed")
		return fmt.Errorf("%w: %w", ErrPaymentConfirmation, err)
	}
	f.mu.Lock()
	f.paid[t.RideID] = true
	f.mu.Unlock()
	return nil
}

func (f *Flow) fail(err error) {
	f.mu.Lock()
	f.state = StateOpen
	f.lastErr = err.Error()
	f.mu.Unlock()
	f.notify.Notify(effects.Message{Kind: effects.MessageError, Text: err.Error()})
}

func (f *Flow) finish(ctx context.Context, t Target, onDone func(context.Context)) {
	f.mu.Lock()
	f.state = StateClosed
	f.rideID = ""
	paid := f.paid[t.RideID]
	f.mu.Unlock()

	if onDone != nil {
		onDone(ctx)
	}
	if f.role == types.RoleDriver && paid {
		f.nav.NavigateAfter(effects.Navigation{Path: effects.DriverDashboardPath, FullReload: true}, f.opts.ReloadDelay)
	}
}

func (f *Flow) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.opts.Timeout > 0 {
		return context.WithTimeout(ctx, f.opts.Timeout)
	}
	return ctx, func() {}
}
