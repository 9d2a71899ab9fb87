package simulate

import (
	"math"

	"github.com/okian/stride/internal/domain/geo"
)

// Route is the sequence of samples one run posts.
type Route []geo.Point

// Length is the great-circle length of the route in kilometers.
func (r Route) Length() float64 {
	return geo.PathLength(r)
}

// eastward builds a route of n samples starting at origin, each step km
// further east along the same latitude.
func eastward(origin geo.Point, n int, stepKM float64) Route {
	degPerKM := 180 / (math.Pi * geo.EarthRadiusKM * math.Cos(origin.Lat*math.Pi/180))
	route := make(Route, n)
	for i := range route {
		route[i] = geo.Point{Lat: origin.Lat, Lon: origin.Lon + float64(i)*stepKM*degPerKM}
	}
	return route
}

// originFor spreads athletes out so their routes do not overlap.
func originFor(athlete int) geo.Point {
	const base, spacing = 45.0, 0.05
	return geo.Point{Lat: base + float64(athlete)*spacing, Lon: 7.0}
}

