// README: Client booking phases and their derivation from server ride status.
package booking

import "rideflow/internal/modules/ride"

type Phase string

const (
	PhaseSearch         Phase = "search"
	PhaseSelectRide     Phase = "select_ride"
	PhaseFindingDriver  Phase = "finding_driver"
	PhaseDriverAssigned Phase = "driver_assigned"
	PhasePickedUp       Phase = "picked_up"
	PhaseInProgress     Phase = "in_progress"
	PhaseCompleted      Phase = "completed"
)

var phaseOrder = map[Phase]int{
	PhaseSearch:         0,
	PhaseSelectRide:     1,
	PhaseFindingDriver:  2,
	PhaseDriverAssigned: 3,
	PhasePickedUp:       4,
	PhaseInProgress:     5,
	PhaseCompleted:      6,
}

// After reports whether p is strictly later in the booking flow than o.
func (p Phase) After(o Phase) bool {
	return phaseOrder[p] > phaseOrder[o]
}

// StatusPhases maps server statuses with a dedicated phase. Every other
// status, known or not, shows as finding_driver.
var StatusPhases = map[ride.Status]Phase{
	ride.StatusRequested: PhaseFindingDriver,
	ride.StatusAccepted:  PhaseDriverAssigned,
	ride.StatusInTransit: PhaseInProgress,
	ride.StatusCompleted: PhaseCompleted,
	ride.StatusCancelled: PhaseSearch,
}

// PhaseForStatus is total over all strings.
func PhaseForStatus(s ride.Status) Phase {
	if p, ok := StatusPhases[s]; ok {
		return p
	}
	return PhaseFindingDriver
}

// cancellable phases have a bound ride that has not finished.
func (p Phase) cancellable() bool {
	switch p {
	case PhaseFindingDriver, PhaseDriverAssigned, PhasePickedUp, PhaseInProgress:
		return true
	}
	return false
}
