// README: Google Maps backed reverse geocoding and place search.
package location

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"rideflow/internal/types"
)

var ErrNoResults = errors.New("no geocoding results")

type Geocoder interface {
	ReverseGeocode(ctx context.Context, p types.Point) (Location, error)
	Search(ctx context.Context, query string) ([]Location, error)
}

// GoogleGeocoder handles interactions with the Google Geocoding and Places APIs.
type GoogleGeocoder struct {
	client *maps.Client
	region string
}

// NewGoogleGeocoder creates a geocoder with the given API key.
func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleGeocoder{client: client, region: "bd"}, nil
}

func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, p types.Point) (Location, error) {
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: p.Lat, Lng: p.Lng},
	})
	if err != nil {
		return Location{}, fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) == 0 {
		return Location{}, ErrNoResults
	}
	r := results[0]
	return Location{
		ID:          r.PlaceID,
		Name:        "Current Location",
		Address:     r.FormattedAddress,
		Coordinates: p,
		Type:        KindCurrent,
	}, nil
}

func (g *GoogleGeocoder) Search(ctx context.Context, query string) ([]Location, error) {
	resp, err := g.client.TextSearch(ctx, &maps.TextSearchRequest{
		Query:  query,
		Region: g.region,
	})
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}
	out := make([]Location, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, Location{
			ID:      r.PlaceID,
			Name:    r.Name,
			Address: r.FormattedAddress,
			Coordinates: types.Point{
				Lat: r.Geometry.Location.Lat,
				Lng: r.Geometry.Location.Lng,
			},
			Type: KindGeocoded,
		})
	}
	return out, nil
}
