package simulate

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEastward(t *testing.T) {
	Convey("Given an eastward route of eleven samples", t, func() {
		route := eastward(originFor(0), 11, 0.25)

		Convey("Then it should stay on one latitude", func() {
			for _, p := range route {
				So(p.Lat, ShouldEqual, route[0].Lat)
			}
		})

		Convey("Then its length should be ten steps", func() {
			So(math.Abs(route.Length()-2.5), ShouldBeLessThan, 1e-6)
		})
	})

	Convey("Given two athletes", t, func() {
		Convey("Then their origins should differ", func() {
			So(originFor(1), ShouldNotResemble, originFor(0))
		})
	})
}
