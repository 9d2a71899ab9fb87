package model

import (
	"fmt"
	"math"
	"time"
)

// Coordinate bounds, inclusive.
const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// Position is one GPS sample belonging to a run.
type Position struct {
	ID        string
	RunID     string
	Latitude  float64
	Longitude float64
	Timestamp time.Time
	// Seq is a store-wide arrival sequence; ordering by it gives arrival order
	// within a run.
	Seq int64
}

// ValidateCoordinates checks the latitude/longitude range contract.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < MinLatitude || lat > MaxLatitude {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrValidation, lat)
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < MinLongitude || lon > MaxLongitude {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrValidation, lon)
	}
	return nil
}
