// README: Remote fare quote client.
package pricing

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"rideflow/internal/backend"
	"rideflow/internal/modules/location"
)

type QuoteRequest struct {
	Pickup  location.Location
	Dropoff location.Location
	Tier    Tier
}

// RemoteQuote is the server's answer before it is tagged with a source.
type RemoteQuote struct {
	Fare             float64
	DistanceKm       float64
	EstimatedMinutes float64
}

type Quoter interface {
	Quote(ctx context.Context, req QuoteRequest) (RemoteQuote, error)
}

type HTTPQuoter struct {
	client *backend.Client
}

func NewHTTPQuoter(client *backend.Client) *HTTPQuoter {
	return &HTTPQuoter{client: client}
}

type wirePoint struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type quoteBody struct {
	Pickup  wirePoint `json:"pickup"`
	Dropoff wirePoint `json:"dropoff"`
	Tier    Tier      `json:"tier"`
}

func (q *HTTPQuoter) Quote(ctx context.Context, req QuoteRequest) (RemoteQuote, error) {
	body, err := q.client.Do(ctx, "fare_quote", http.MethodPost, "/fares/quote", quoteBody{
		Pickup:  wirePoint{Lat: req.Pickup.Coordinates.Lat, Lng: req.Pickup.Coordinates.Lng, Address: req.Pickup.Address},
		Dropoff: wirePoint{Lat: req.Dropoff.Coordinates.Lat, Lng: req.Dropoff.Coordinates.Lng, Address: req.Dropoff.Address},
		Tier:    req.Tier,
	})
	if err != nil {
		return RemoteQuote{}, err
	}
	root := gjson.ParseBytes(body)
	if data := root.Get("data"); data.IsObject() {
		root = data
	}
	fare := root.Get("fare")
	if !fare.Exists() || fare.Float() <= 0 {
		return RemoteQuote{}, fmt.Errorf("%w: quote response has no fare", backend.ErrRemote)
	}
	return RemoteQuote{
		Fare:             fare.Float(),
		DistanceKm:       root.Get("distance").Float(),
		EstimatedMinutes: root.Get("estimatedTime").Float(),
	}, nil
}
