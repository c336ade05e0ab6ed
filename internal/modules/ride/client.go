// README: Ride backend client: create, active, cancel, rate, confirm payment.
package ride

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"rideflow/internal/backend"
	"rideflow/internal/modules/location"
	"rideflow/internal/types"
)

type CreateCommand struct {
	Pickup   location.Location
	Dropoff  location.Location
	Notes    string
	RideType string
}

type Client struct {
	api *backend.Client
}

func NewClient(api *backend.Client) *Client {
	return &Client{api: api}
}

type wireLocation struct {
	Name        string     `json:"name,omitempty"`
	Address     string     `json:"address"`
	Coordinates [2]float64 `json:"coordinates"`
}

func toWire(l location.Location) wireLocation {
	return wireLocation{
		Name:        l.Name,
		Address:     l.Address,
		Coordinates: [2]float64{l.Coordinates.Lng, l.Coordinates.Lat},
	}
}

type createBody struct {
	PickupLocation      wireLocation `json:"pickupLocation"`
	DestinationLocation wireLocation `json:"destinationLocation"`
	Notes               string       `json:"notes,omitempty"`
	RideType            string       `json:"rideType"`
}

func (c *Client) CreateRide(ctx context.Context, cmd CreateCommand) (types.ID, error) {
	body, err := c.api.Do(ctx, "create_ride", http.MethodPost, "/rides", createBody{
		PickupLocation:      toWire(cmd.Pickup),
		DestinationLocation: toWire(cmd.Dropoff),
		Notes:               strings.TrimSpace(cmd.Notes),
		RideType:            cmd.RideType,
	})
	if err != nil {
		return "", err
	}
	id := types.ID(firstPath(body, "rideId", "data.rideId", "data._id", "data.ride._id", "ride._id", "_id"))
	if !id.Valid() {
		return "", fmt.Errorf("%w: %w", backend.ErrRemote, ErrNoRideID)
	}
	return id, nil
}

func (c *Client) ActiveRides(ctx context.Context) ([]Record, error) {
	body, err := c.api.Do(ctx, "active_rides", http.MethodGet, "/rides/active", nil)
	if err != nil {
		return nil, err
	}
	return ParseRides(body), nil
}

func (c *Client) CancelRide(ctx context.Context, id types.ID, reason string) error {
	if !id.Valid() {
		return ErrInvalidRideID
	}
	_, err := c.api.Do(ctx, "cancel_ride", http.MethodPatch, ridePath(id, "cancel"), map[string]string{"reason": reason})
	return err
}

type rateBody struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}

func (c *Client) RateRide(ctx context.Context, id types.ID, stars int, feedback string) error {
	if !id.Valid() {
		return ErrInvalidRideID
	}
	if stars < 1 || stars > 5 {
		return ErrInvalidRating
	}
	_, err := c.api.Do(ctx, "rate_ride", http.MethodPatch, ridePath(id, "rate"), rateBody{Rating: stars, Feedback: strings.TrimSpace(feedback)})
	return err
}

func (c *Client) ConfirmPayment(ctx context.Context, id types.ID) error {
	if !id.Valid() {
		return ErrInvalidRideID
	}
	_, err := c.api.Do(ctx, "confirm_payment", http.MethodPost, ridePath(id, "confirm-payment"), nil)
	return err
}

func ridePath(id types.ID, action string) string {
	return "/rides/" + url.PathEscape(string(id)) + "/" + action
}

func firstPath(body []byte, paths ...string) string {
	for _, p := range paths {
		if v := gjson.GetBytes(body, p); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
