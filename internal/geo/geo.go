// Package geo provides the map-routing helpers: haversine distances and
// nearest-customer ordering for field agents.
package geo

import (
	"math"
	"sort"

	"github.com/tedtam/fieldops/internal/store"
)

// Bangkok city centroid, the default position for records without
// coordinates.
const (
	DefaultLatitude  = 13.7563
	DefaultLongitude = 100.5018
)

const earthRadiusKm = 6371

// Distance returns the great-circle distance in kilometers between two
// coordinates.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Coordinates returns the record's position, falling back to the city
// centroid when unset.
func Coordinates(c store.Customer) (lat, lng float64) {
	if c.Latitude == 0 && c.Longitude == 0 {
		return DefaultLatitude, DefaultLongitude
	}
	return c.Latitude, c.Longitude
}

// Located pairs a customer with its distance from a reference point.
type Located struct {
	Customer store.Customer `json:"customer"`
	Distance float64        `json:"distanceKm"`
}

// Nearest returns up to n customers ordered by ascending distance from
// (lat, lng). n <= 0 means all.
func Nearest(records []store.Customer, lat, lng float64, n int) []Located {
	out := make([]Located, 0, len(records))
	for _, c := range records {
		cLat, cLng := Coordinates(c)
		out = append(out, Located{Customer: c, Distance: Distance(lat, lng, cLat, cLng)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
