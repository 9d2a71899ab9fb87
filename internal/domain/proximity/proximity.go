// Package proximity matches GPS samples against collectible item locations.
package proximity

import (
	"github.com/okian/stride/internal/domain/geo"
	"github.com/okian/stride/internal/domain/model"
)

// DefaultRadiusKM is the activation radius under which an item is reached.
const DefaultRadiusKM = 0.1

// Matcher finds collectible items within an activation radius of a point.
type Matcher struct {
	radiusKM float64
}

// Option applies a configuration option to the Matcher.
type Option func(*Matcher)

// WithRadiusKM overrides the activation radius.
func WithRadiusKM(km float64) Option {
	return func(m *Matcher) {
		if km > 0 {
			m.radiusKM = km
		}
	}
}

// NewMatcher creates a matcher with the default 0.1 km radius.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{radiusKM: DefaultRadiusKM}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RadiusKM returns the configured activation radius.
func (m *Matcher) RadiusKM() float64 {
	return m.radiusKM
}

// Reached reports whether p is strictly closer than the radius to item.
func (m *Matcher) Reached(p geo.Point, item model.CollectibleItem) bool {
	return geo.Distance(p, geo.Point{Lat: item.Latitude, Lon: item.Longitude}) < m.radiusKM
}

// Match returns the items reached from p, preserving input order.
func (m *Matcher) Match(p geo.Point, items []model.CollectibleItem) []model.CollectibleItem {
	var out []model.CollectibleItem
	for _, it := range items {
		if m.Reached(p, it) {
			out = append(out, it)
		}
	}
	return out
}
