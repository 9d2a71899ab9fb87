package proximity_test

import (
	"testing"

	"github.com/okian/stride/internal/domain/geo"
	"github.com/okian/stride/internal/domain/model"
	"github.com/okian/stride/internal/domain/proximity"
	. "github.com/smartystreets/goconvey/convey"
)

// lonOffsetKM returns the longitude delta on the equator covering km.
func lonOffsetKM(km float64) float64 {
	return km / geo.Distance(geo.Point{Lat: 0, Lon: 0}, geo.Point{Lat: 0, Lon: 1})
}

func TestMatcher(t *testing.T) {
	Convey("Given a matcher with the default radius", t, func() {
		m := proximity.NewMatcher()
		item := model.CollectibleItem{ID: "coin", Latitude: 0, Longitude: 0}

		Convey("Then the radius should be 0.1 km", func() {
			So(m.RadiusKM(), ShouldEqual, 0.1)
		})

		Convey("When the position is on the item", func() {
			Convey("Then the item should be reached", func() {
				So(m.Reached(geo.Point{}, item), ShouldBeTrue)
			})
		})

		Convey("When the position is 50 m away", func() {
			p := geo.Point{Lat: 0, Lon: lonOffsetKM(0.05)}

			Convey("Then the item should be reached", func() {
				So(m.Reached(p, item), ShouldBeTrue)
			})
		})

		Convey("When the position is just over 100 m away", func() {
			p := geo.Point{Lat: 0, Lon: lonOffsetKM(0.1) * 1.0001}

			Convey("Then the item should not be reached", func() {
				So(geo.Distance(p, geo.Point{}), ShouldBeGreaterThanOrEqualTo, 0.1)
				So(m.Reached(p, item), ShouldBeFalse)
			})
		})

		Convey("When the position is far away", func() {
			Convey("Then the item should not be reached", func() {
				So(m.Reached(geo.Point{Lat: 1, Lon: 1}, item), ShouldBeFalse)
			})
		})

		Convey("When matching a mixed set of items", func() {
			items := []model.CollectibleItem{
				{ID: "near-1", Latitude: 0, Longitude: lonOffsetKM(0.02)},
				{ID: "far", Latitude: 0.5, Longitude: 0.5},
				{ID: "near-2", Latitude: 0, Longitude: -lonOffsetKM(0.09)},
			}
			got := m.Match(geo.Point{}, items)

			Convey("Then only the near items should be returned in order", func() {
				So(len(got), ShouldEqual, 2)
				So(got[0].ID, ShouldEqual, "near-1")
				So(got[1].ID, ShouldEqual, "near-2")
			})
		})

		Convey("When matching an empty item set", func() {
			Convey("Then nothing should be returned", func() {
				So(m.Match(geo.Point{}, nil), ShouldBeEmpty)
			})
		})
	})

	Convey("Given a matcher with a custom radius", t, func() {
		m := proximity.NewMatcher(proximity.WithRadiusKM(1))

		Convey("Then items within a kilometer should be reached", func() {
			So(m.Reached(geo.Point{Lat: 0, Lon: lonOffsetKM(0.5)}, model.CollectibleItem{}), ShouldBeTrue)
		})

		Convey("Then a non-positive radius should be ignored", func() {
			So(proximity.NewMatcher(proximity.WithRadiusKM(0)).RadiusKM(), ShouldEqual, proximity.DefaultRadiusKM)
		})
	})
}
