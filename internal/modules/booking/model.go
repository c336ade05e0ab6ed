package booking

import (
	"errors"
	"fmt"
	"time"

	"rideflow/internal/modules/cancellation"
	"rideflow/internal/modules/effects"
	"rideflow/internal/modules/location"
	"rideflow/internal/modules/pricing"
	"rideflow/internal/modules/rating"
	"rideflow/internal/modules/ride"
	"rideflow/internal/types"
)

// RoleRestrictedMessage is shown wherever a restricted role meets the booking flow.
const RoleRestrictedMessage = "Ride booking is not available for this role"

var (
	ErrRoleRestricted  = errors.New(RoleRestrictedMessage)
	ErrMissingLocation = errors.New("pickup and dropoff are required")
	ErrMissingQuote    = errors.New("fare quote is required")
	ErrInvalidState    = errors.New("operation not allowed in current phase")
	ErrRequestFailed   = errors.New("failed to request ride")
	ErrNoActiveRide    = errors.New("no active ride")
)

// Projection defaults for a driver record that lacks the field.
const (
	DefaultDriverRating   = 4.5
	DefaultVehicle        = "Toyota Corolla (2020) Silver"
	DefaultPlate          = "DHK-1234"
	DefaultArrivalMinutes = 5
)

type DriverInfo struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone,omitempty"`
	Rating         float64 `json:"rating"`
	Vehicle        string  `json:"vehicle"`
	Plate          string  `json:"plate"`
	ArrivalMinutes int     `json:"arrivalMinutes"`
}

func projectDriver(d *ride.Driver) *DriverInfo {
	if d == nil {
		return nil
	}
	info := &DriverInfo{
		ID:             d.ID,
		Name:           d.Name,
		Phone:          d.Phone,
		Rating:         d.Rating,
		Vehicle:        DefaultVehicle,
		Plate:          DefaultPlate,
		ArrivalMinutes: d.EstimatedArrival,
	}
	if info.Name == "" {
		info.Name = "Your driver"
	}
	if info.Rating <= 0 {
		info.Rating = DefaultDriverRating
	}
	if info.ArrivalMinutes <= 0 {
		info.ArrivalMinutes = DefaultArrivalMinutes
	}
	if v := d.Vehicle; v != nil {
		if v.Make != "" && v.Model != "" {
			info.Vehicle = fmt.Sprintf("%s %s", v.Make, v.Model)
			if v.Year > 0 {
				info.Vehicle += fmt.Sprintf(" (%d)", v.Year)
			}
			if v.Color != "" {
				info.Vehicle += " " + v.Color
			}
		}
		if v.Plate != "" {
			info.Plate = v.Plate
		}
	}
	return info
}

// quoteFromRecord mirrors the server fare of an adopted ride.
func quoteFromRecord(r *ride.Record, tier pricing.Tier) *pricing.Quote {
	if r.Fare.TotalFare <= 0 {
		return nil
	}
	currency := r.Fare.Currency
	if currency == "" {
		currency = types.DefaultCurrency
	}
	if r.RideType != "" {
		tier = pricing.ParseTier(r.RideType)
	}
	return &pricing.Quote{
		Fare:             types.Money{Amount: r.Fare.TotalFare, Currency: currency},
		DistanceKm:       r.Distance.Estimated,
		EstimatedMinutes: r.Duration.Estimated,
		Source:           pricing.SourceServer,
		Tier:             tier,
	}
}

// PhaseEvent is one journaled phase transition.
type PhaseEvent struct {
	ID        int64
	SessionID string
	RideID    types.ID
	FromPhase Phase
	ToPhase   Phase
	CreatedAt time.Time
}

// Snapshot is everything the UI needs to render the booking screen.
type Snapshot struct {
	Phase                Phase                `json:"phase"`
	Loading              bool                 `json:"loading"`
	RideID               types.ID             `json:"rideId,omitempty"`
	RideStatus           ride.Status          `json:"rideStatus,omitempty"`
	Pin                  string               `json:"pin,omitempty"`
	Pickup               *location.Location   `json:"pickup"`
	Dropoff              *location.Location   `json:"dropoff"`
	Tier                 pricing.Tier         `json:"tier"`
	Quote                *pricing.Quote       `json:"quote"`
	Quoting              bool                 `json:"quoting"`
	Driver               *DriverInfo          `json:"driver"`
	Requesting           bool                 `json:"requesting"`
	CanRequest           bool                 `json:"canRequest"`
	RequestBlockedReason string               `json:"requestBlockedReason,omitempty"`
	Cancel               cancellation.View    `json:"cancel"`
	Rating               rating.View          `json:"rating"`
	Navigations          []effects.Navigation `json:"navigations"`
	Messages             []effects.Message    `json:"messages"`
}
