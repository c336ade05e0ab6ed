// README: Cancel confirmation gate around a single remote cancel call.
package cancellation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rideflow/internal/modules/effects"
	"rideflow/internal/types"
)

// Reason is sent with every rider-initiated cancel.
const Reason = "Cancelled by rider"

var (
	ErrInvalidState = errors.New("cancellation not allowed in current state")
	ErrCancelFailed = errors.New("failed to cancel ride")
)

type State string

const (
	StateIdle       State = "idle"
	StateConfirming State = "confirming"
	StateCancelling State = "cancelling"
)

type Canceller interface {
	CancelRide(ctx context.Context, id types.ID, reason string) error
}

// Hooks run after a successful cancel, in order: Refetch, then OnCancelled.
type Hooks struct {
	Refetch     func(ctx context.Context) error
	OnCancelled func(ctx context.Context)
}

type View struct {
	State State  `json:"state"`
	Error string `json:"error,omitempty"`
}

type Flow struct {
	rides   Canceller
	notify  effects.Notifier
	timeout time.Duration
	log     logrus.FieldLogger

	mu      sync.Mutex
	state   State
	lastErr string
}

func NewFlow(rides Canceller, notify effects.Notifier, timeout time.Duration, log logrus.FieldLogger) *Flow {
	return &Flow{rides: rides, notify: notify, timeout: timeout, log: log, state: StateIdle}
}

func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{State: f.state, Error: f.lastErr}
}

// Open shows the confirmation. It is local only.
func (f *Flow) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case StateIdle:
		f.state = StateConfirming
		f.lastErr = ""
		return nil
	case StateConfirming:
		return nil
	default:
		return ErrInvalidState
	}
}

func (f *Flow) Dismiss() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateCancelling {
		return ErrInvalidState
	}
	f.state = StateIdle
	f.lastErr = ""
	return nil
}

// Reset returns to idle unless a cancel is in flight.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateCancelling {
		f.state = StateIdle
		f.lastErr = ""
	}
}

// Confirm cancels the ride. On failure the dialog stays open with the error and
// nothing is retried. On success the refetch completes before OnCancelled runs.
func (f *Flow) Confirm(ctx context.Context, id types.ID, hooks Hooks) error {
	f.mu.Lock()
	if f.state != StateConfirming {
		f.mu.Unlock()
		return ErrInvalidState
	}
	f.state = StateCancelling
	f.lastErr = ""
	f.mu.Unlock()

	cctx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	err := f.rides.CancelRide(cctx, id, Reason)

	f.mu.Lock()
	if err != nil {
		f.state = StateConfirming
		f.lastErr = err.Error()
		f.mu.Unlock()
		f.log.WithError(err).WithField("ride_id", id).Warn("cancel ride failed")
		return fmt.Errorf("%w: %w", ErrCancelFailed, err)
	}
	f.state = StateIdle
	f.mu.Unlock()

	f.notify.Notify(effects.Message{Kind: effects.MessageSuccess, Text: "Ride cancelled successfully"})
	if hooks.Refetch != nil {
		if err := hooks.Refetch(ctx); err != nil {
			f.log.WithError(err).WithField("ride_id", id).Warn("refetch after cancel failed")
		}
	}
	if hooks.OnCancelled != nil {
		hooks.OnCancelled(ctx)
	}
	return nil
}
