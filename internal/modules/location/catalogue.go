package location

import (
	"strings"

	"rideflow/internal/types"
)

// knownPlaces backs free-text suggestions when no places API is configured.
var knownPlaces = []Location{
	{ID: "dhaka-gulshan", Name: "Gulshan", Address: "Gulshan, Dhaka 1212", Coordinates: types.Point{Lat: 23.8103, Lng: 90.4125}},
	{ID: "dhaka-dhanmondi", Name: "Dhanmondi", Address: "Dhanmondi, Dhaka 1205", Coordinates: types.Point{Lat: 23.7461, Lng: 90.3742}},
	{ID: "dhaka-banani", Name: "Banani", Address: "Banani, Dhaka 1213", Coordinates: types.Point{Lat: 23.7937, Lng: 90.4066}},
	{ID: "dhaka-uttara", Name: "Uttara", Address: "Uttara, Dhaka 1230", Coordinates: types.Point{Lat: 23.8759, Lng: 90.3795}},
	{ID: "dhaka-mirpur", Name: "Mirpur", Address: "Mirpur, Dhaka 1216", Coordinates: types.Point{Lat: 23.8223, Lng: 90.3654}},
	{ID: "dhaka-motijheel", Name: "Motijheel", Address: "Motijheel, Dhaka 1000", Coordinates: types.Point{Lat: 23.7330, Lng: 90.4172}},
	{ID: "dhaka-airport", Name: "Hazrat Shahjalal International Airport", Address: "Airport Rd, Dhaka 1229", Coordinates: types.Point{Lat: 23.8433, Lng: 90.3978}},
	{ID: "dhaka-bashundhara", Name: "Bashundhara City", Address: "Panthapath, Dhaka 1215", Coordinates: types.Point{Lat: 23.7509, Lng: 90.3905}},
	{ID: "dhaka-mohakhali", Name: "Mohakhali", Address: "Mohakhali, Dhaka 1212", Coordinates: types.Point{Lat: 23.7778, Lng: 90.4056}},
	{ID: "dhaka-old-town", Name: "Old Dhaka", Address: "Sadarghat, Dhaka 1100", Coordinates: types.Point{Lat: 23.7104, Lng: 90.4074}},
}

// matchCatalogue returns catalogue entries whose name or address contains q.
// When near is set, results are ordered by distance from it.
func matchCatalogue(q string, near *types.Point, limit int) []Location {
	q = strings.ToLower(strings.TrimSpace(q))
	var out []Location
	for _, p := range knownPlaces {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Address), q) {
			p.Type = KindSuggestion
			out = append(out, p)
		}
	}
	if near != nil {
		origin := *near
		sortByDistance(out, func(l Location) float64 { return HaversineMeters(origin, l.Coordinates) })
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
