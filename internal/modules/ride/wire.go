// README: Adapter from the backend's ride JSON to Record. Partial data never fails.
package ride

import (
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"rideflow/internal/modules/location"
	"rideflow/internal/types"
)

// ParseRides extracts ride records from an active-rides response. It accepts a
// bare array, a single ride object, or either wrapped in data/rides/ride.
func ParseRides(body []byte) []Record {
	root := gjson.ParseBytes(body)
	if data := root.Get("data"); data.Exists() {
		root = data
	}
	switch {
	case root.IsArray():
	case root.Get("rides").IsArray():
		root = root.Get("rides")
	case root.Get("ride").IsObject():
		return []Record{FromWire(root.Get("ride"))}
	case root.IsObject() && idOf(root) != "":
		return []Record{FromWire(root)}
	default:
		return nil
	}
	var out []Record
	root.ForEach(func(_, v gjson.Result) bool {
		if v.IsObject() {
			out = append(out, FromWire(v))
		}
		return true
	})
	return out
}

// FromWire converts one backend ride object.
func FromWire(v gjson.Result) Record {
	r := Record{
		ID:          types.ID(idOf(v)),
		RiderID:     refID(v.Get("rider")),
		Pickup:      locationFromWire(v.Get("pickupLocation"), "pickup"),
		Destination: locationFromWire(v.Get("destinationLocation"), "destination"),
		Status:      Status(v.Get("status").String()),
		RideType:    v.Get("rideType").String(),
		Fare: FareBreakdown{
			BaseFare:     v.Get("fare.baseFare").Float(),
			DistanceFare: v.Get("fare.distanceFare").Float(),
			TimeFare:     v.Get("fare.timeFare").Float(),
			TotalFare:    v.Get("fare.totalFare").Float(),
			Currency:     v.Get("fare.currency").String(),
		},
		Distance:   Measure{Estimated: v.Get("distance.estimated").Float(), Actual: v.Get("distance.actual").Float()},
		Duration:   Measure{Estimated: v.Get("duration.estimated").Float(), Actual: v.Get("duration.actual").Float()},
		Timestamps: map[string]time.Time{},
		Pin:        stringOrNumber(v.Get("pin")),
		Payment:    Payment{Method: v.Get("payment.method").String(), Status: v.Get("payment.status").String()},
		CreatedAt:  parseTime(v.Get("createdAt")),
	}
	if d := v.Get("driver"); d.Exists() && d.Type != gjson.Null {
		r.Driver = driverFromWire(d)
	}
	v.Get("timestamps").ForEach(func(k, t gjson.Result) bool {
		if ts := parseTime(t); !ts.IsZero() {
			r.Timestamps[k.String()] = ts
		}
		return true
	})
	if _, ok := r.Timestamps[string(StatusCompleted)]; !ok && r.Status == StatusCompleted {
		if ts := parseTime(v.Get("updatedAt")); !ts.IsZero() {
			r.Timestamps[string(StatusCompleted)] = ts
		}
	}
	r.Rating.DriverRating = scoreFromWire(v.Get("rating.driverRating"))
	r.Rating.RiderRating = scoreFromWire(v.Get("rating.riderRating"))
	return r
}

func idOf(v gjson.Result) string {
	if id := v.Get("_id").String(); id != "" {
		return id
	}
	return v.Get("id").String()
}

func refID(v gjson.Result) string {
	if v.IsObject() {
		return idOf(v)
	}
	return v.String()
}

func locationFromWire(v gjson.Result, fallbackID string) location.Location {
	if !v.Exists() {
		return location.Location{}
	}
	l := location.Location{
		ID:      v.Get("id").String(),
		Name:    v.Get("name").String(),
		Address: v.Get("address").String(),
		Type:    location.KindSaved,
	}
	if l.ID == "" {
		l.ID = fallbackID
	}
	if l.Name == "" {
		l.Name = l.Address
	}
	c := v.Get("coordinates")
	if c.Get("coordinates").IsArray() {
		c = c.Get("coordinates")
	}
	switch {
	case c.IsArray():
		pair := c.Array()
		if len(pair) == 2 {
			l.Coordinates = types.Point{Lng: pair[0].Float(), Lat: pair[1].Float()}
		}
	case c.IsObject():
		l.Coordinates = types.Point{Lat: c.Get("lat").Float(), Lng: firstFloat(c, "lng", "lon")}
	}
	return l
}

func driverFromWire(v gjson.Result) *Driver {
	if !v.IsObject() {
		return &Driver{ID: v.String()}
	}
	d := &Driver{
		ID:               idOf(v),
		Name:             v.Get("name").String(),
		Phone:            v.Get("phone").String(),
		Rating:           v.Get("rating").Float(),
		EstimatedArrival: int(v.Get("estimatedArrival").Int()),
	}
	if d.Name == "" {
		d.Name = v.Get("user.name").String()
	}
	if vh := v.Get("vehicle"); vh.IsObject() {
		d.Vehicle = &Vehicle{
			Make:  vh.Get("make").String(),
			Model: vh.Get("model").String(),
			Year:  int(vh.Get("year").Int()),
			Color: vh.Get("color").String(),
			Plate: firstString(vh, "plateNumber", "licensePlate", "plate"),
		}
	}
	return d
}

func scoreFromWire(v gjson.Result) *Score {
	switch {
	case v.IsObject():
		stars := int(v.Get("rating").Int())
		if stars == 0 {
			return nil
		}
		return &Score{Stars: stars, Feedback: v.Get("feedback").String(), RatedAt: parseTime(v.Get("ratedAt"))}
	case v.Type == gjson.Number && v.Int() > 0:
		return &Score{Stars: int(v.Int())}
	default:
		return nil
	}
}

func parseTime(v gjson.Result) time.Time {
	if v.Type == gjson.Number {
		return time.UnixMilli(v.Int()).UTC()
	}
	t, err := time.Parse(time.RFC3339Nano, v.String())
	if err != nil {
		return time.Time{}
	}
	return t
}

func stringOrNumber(v gjson.Result) string {
	if v.Type == gjson.Number {
		return strconv.FormatInt(v.Int(), 10)
	}
	return v.String()
}

func firstString(v gjson.Result, keys ...string) string {
	for _, k := range keys {
		if s := v.Get(k).String(); s != "" {
			return s
		}
	}
	return ""
}

func firstFloat(v gjson.Result, keys ...string) float64 {
	for _, k := range keys {
		if f := v.Get(k); f.Exists() {
			return f.Float()
		}
	}
	return 0
}
