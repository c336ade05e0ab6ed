// README: Authoritative ride record as read from the backend.
package ride

import (
	"errors"
	"time"

	"rideflow/internal/modules/location"
	"rideflow/internal/types"
)

var (
	ErrInvalidRideID = errors.New("invalid ride id")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrNoRideID      = errors.New("create ride response has no ride id")
)

type Status string

const (
	StatusRequested        Status = "requested"
	StatusAccepted         Status = "accepted"
	StatusPickedUp         Status = "picked_up"
	StatusInTransit        Status = "in_transit"
	StatusPaymentPending   Status = "payment_pending"
	StatusPaymentCompleted Status = "payment_completed"
	StatusCompleted        Status = "completed"
	StatusCancelled        Status = "cancelled"
)

var knownStatuses = map[Status]struct{}{
	StatusRequested:        {},
	StatusAccepted:         {},
	StatusPickedUp:         {},
	StatusInTransit:        {},
	StatusPaymentPending:   {},
	StatusPaymentCompleted: {},
	StatusCompleted:        {},
	StatusCancelled:        {},
}

func (s Status) Known() bool {
	_, ok := knownStatuses[s]
	return ok
}

// Terminal reports statuses that close a ride.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// RatingWindow is how long a completed ride stays selectable for rating.
const RatingWindow = 30 * time.Minute

type Vehicle struct {
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
	Year  int    `json:"year,omitempty"`
	Color string `json:"color,omitempty"`
	Plate string `json:"plate,omitempty"`
}

type Driver struct {
	ID               string   `json:"id"`
	Name             string   `json:"name,omitempty"`
	Phone            string   `json:"phone,omitempty"`
	Rating           float64  `json:"rating,omitempty"`
	Vehicle          *Vehicle `json:"vehicle,omitempty"`
	EstimatedArrival int      `json:"estimatedArrival,omitempty"`
}

type FareBreakdown struct {
	BaseFare     float64 `json:"baseFare"`
	DistanceFare float64 `json:"distanceFare"`
	TimeFare     float64 `json:"timeFare"`
	TotalFare    float64 `json:"totalFare"`
	Currency     string  `json:"currency"`
}

type Measure struct {
	Estimated float64 `json:"estimated"`
	Actual    float64 `json:"actual"`
}

type Score struct {
	Stars    int       `json:"rating"`
	Feedback string    `json:"feedback,omitempty"`
	RatedAt  time.Time `json:"ratedAt,omitempty"`
}

// Ratings holds the two independent directions: DriverRating is the rider's
// score of the driver, RiderRating the driver's score of the rider.
type Ratings struct {
	DriverRating *Score `json:"driverRating,omitempty"`
	RiderRating  *Score `json:"riderRating,omitempty"`
}

type Payment struct {
	Method string `json:"method,omitempty"`
	Status string `json:"status,omitempty"`
}

type Record struct {
	ID          types.ID             `json:"id"`
	RiderID     string               `json:"riderId"`
	Driver      *Driver              `json:"driver,omitempty"`
	Pickup      location.Location    `json:"pickup"`
	Destination location.Location    `json:"destination"`
	Status      Status               `json:"status"`
	RideType    string               `json:"rideType,omitempty"`
	Fare        FareBreakdown        `json:"fare"`
	Distance    Measure              `json:"distance"`
	Duration    Measure              `json:"duration"`
	Timestamps  map[string]time.Time `json:"timestamps,omitempty"`
	Rating      Ratings              `json:"rating"`
	Pin         string               `json:"pin,omitempty"`
	Payment     Payment              `json:"payment"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// RatedBy reports whether the given role has already submitted its rating.
// Roles that never rate count as having rated.
func (r Record) RatedBy(role types.Role) bool {
	switch role {
	case types.RoleRider:
		return r.Rating.DriverRating != nil
	case types.RoleDriver:
		return r.Rating.RiderRating != nil
	default:
		return true
	}
}

// CompletedAt is the completion time, zero when unknown.
func (r Record) CompletedAt() time.Time {
	return r.Timestamps[string(StatusCompleted)]
}

func (r Record) requestedAt() time.Time {
	if t, ok := r.Timestamps[string(StatusRequested)]; ok {
		return t
	}
	return r.CreatedAt
}
