// README: Location value selected as pickup or dropoff.
package location

import (
	"errors"
	"strings"

	"rideflow/internal/types"
)

var (
	ErrInvalidLocation = errors.New("invalid location")
	ErrEmptyQuery      = errors.New("empty query")
)

type Kind string

const (
	KindCurrent    Kind = "current"
	KindSuggestion Kind = "suggestion"
	KindSaved      Kind = "saved"
	KindGeocoded   Kind = "geocoded"
)

// Location is replaced wholesale once selected; Type is informational only.
type Location struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Address     string      `json:"address"`
	Coordinates types.Point `json:"coordinates"`
	Type        Kind        `json:"type"`
}

// Validate checks a location is usable for pricing and ride creation.
func (l Location) Validate() error {
	if strings.TrimSpace(l.Name) == "" && strings.TrimSpace(l.Address) == "" {
		return ErrInvalidLocation
	}
	if l.Coordinates.IsZero() {
		return ErrInvalidLocation
	}
	p := l.Coordinates
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return ErrInvalidLocation
	}
	return nil
}

// Label is the text shown for the location in summaries.
func (l Location) Label() string {
	if l.Name != "" {
		return l.Name
	}
	return l.Address
}
