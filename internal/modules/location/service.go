// README: Location selection: free-text suggestions and current-position lookup.
package location

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"rideflow/internal/types"
)

const maxSuggestions = 8

type Service struct {
	geocoder Geocoder
	log      logrus.FieldLogger
}

// NewService builds the selector. geocoder may be nil, in which case only the
// built-in catalogue is searched and current positions are not resolved.
func NewService(geocoder Geocoder, log logrus.FieldLogger) *Service {
	return &Service{geocoder: geocoder, log: log}
}

// Suggest returns candidate locations for free-text input, catalogue first.
func (s *Service) Suggest(ctx context.Context, query string, near *types.Point) ([]Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	out := matchCatalogue(query, near, maxSuggestions)
	if s.geocoder == nil || len(out) >= maxSuggestions {
		return out, nil
	}
	remote, err := s.geocoder.Search(ctx, query)
	if err != nil {
		s.log.WithError(err).WithField("query", query).Warn("place search failed, using catalogue only")
		return out, nil
	}
	seen := make(map[string]struct{}, len(out))
	for _, l := range out {
		seen[l.ID] = struct{}{}
	}
	for _, l := range remote {
		if _, dup := seen[l.ID]; dup || l.Validate() != nil {
			continue
		}
		out = append(out, l)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out, nil
}

// Current resolves a device position into a location. Geocoding failures
// degrade to a coordinate-only entry the user can still book from.
func (s *Service) Current(ctx context.Context, p types.Point) (Location, error) {
	fallback := Location{
		ID:          "current",
		Name:        "Current Location",
		Address:     fmt.Sprintf("%.6f, %.6f", p.Lat, p.Lng),
		Coordinates: p,
		Type:        KindCurrent,
	}
	if err := fallback.Validate(); err != nil {
		return Location{}, err
	}
	if s.geocoder == nil {
		return fallback, nil
	}
	loc, err := s.geocoder.ReverseGeocode(ctx, p)
	if err != nil {
		s.log.WithError(err).Warn("reverse geocode failed, using raw coordinates")
		return fallback, nil
	}
	if loc.ID == "" {
		loc.ID = fallback.ID
	}
	if loc.Address == "" {
		loc.Address = fallback.Address
	}
	return loc, nil
}
