// Package geo computes great-circle distances between GPS samples.
package geo

import (
	"github.com/golang/geo/s2"
)

// EarthRadiusKM is the IUGG mean Earth radius.
const EarthRadiusKM = 6371.0088

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Distance returns the great-circle distance between a and b in kilometers.
func Distance(a, b Point) float64 {
	la := s2.LatLngFromDegrees(a.Lat, a.Lon)
	lb := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return la.Distance(lb).Radians() * EarthRadiusKM
}

// PathLength sums the distance between each consecutive pair of points, in
// the order given. Fewer than two points yields 0.
func PathLength(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}
