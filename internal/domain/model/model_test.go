package model_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/stride/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestValidateCoordinates(t *testing.T) {
	Convey("Given coordinate validation", t, func() {
		Convey("When values sit on the inclusive bounds", func() {
			Convey("Then they should be accepted", func() {
				So(model.ValidateCoordinates(90, 0), ShouldBeNil)
				So(model.ValidateCoordinates(-90, 0), ShouldBeNil)
				So(model.ValidateCoordinates(0, 180), ShouldBeNil)
				So(model.ValidateCoordinates(0, -180), ShouldBeNil)
				So(model.ValidateCoordinates(90, -180), ShouldBeNil)
			})
		})

		Convey("When values fall outside the bounds", func() {
			cases := [][2]float64{{91, 0}, {-91, 0}, {0, 181}, {0, -181}, {90.0001, 0}}

			Convey("Then each should be a validation error", func() {
				for _, c := range cases {
					err := model.ValidateCoordinates(c[0], c[1])
					So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
				}
			})
		})

		Convey("When values are not finite", func() {
			Convey("Then they should be rejected", func() {
				So(model.ValidateCoordinates(math.NaN(), 0), ShouldNotBeNil)
				So(model.ValidateCoordinates(0, math.Inf(1)), ShouldNotBeNil)
			})
		})
	})
}

func TestParseAction(t *testing.T) {
	Convey("Given action strings", t, func() {
		Convey("Then start and stop should parse case-insensitively", func() {
			a, err := model.ParseAction("Start")
			So(err, ShouldBeNil)
			So(a, ShouldEqual, model.ActionStart)

			a, err = model.ParseAction("stop")
			So(err, ShouldBeNil)
			So(a, ShouldEqual, model.ActionStop)
		})

		Convey("Then anything else should be a validation error", func() {
			_, err := model.ParseAction("pause")
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestParseRunStatus(t *testing.T) {
	Convey("Given status strings", t, func() {
		Convey("Then the three lifecycle states should parse", func() {
			for _, s := range []string{"init", "in_progress", "finished"} {
				st, err := model.ParseRunStatus(s)
				So(err, ShouldBeNil)
				So(string(st), ShouldEqual, s)
			}
		})

		Convey("Then unknown states should be rejected", func() {
			_, err := model.ParseRunStatus("paused")
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestAthlete(t *testing.T) {
	Convey("Given athletes", t, func() {
		Convey("Then staff should be coaches", func() {
			So(model.Athlete{IsStaff: true}.Type(), ShouldEqual, "coach")
			So(model.Athlete{}.Type(), ShouldEqual, "athlete")
		})

		Convey("Then the type filter should be validated", func() {
			So(model.AthleteFilter{Type: "coach"}.Validate(), ShouldBeNil)
			So(model.AthleteFilter{}.Validate(), ShouldBeNil)
			So(model.AthleteFilter{Type: "admin"}.Validate(), ShouldNotBeNil)
		})
	})
}

func TestAthleteInfoValidate(t *testing.T) {
	Convey("Given athlete info", t, func() {
		w := func(v int) *int { return &v }

		Convey("Then an unset weight should be valid", func() {
			So(model.AthleteInfo{Goals: "marathon"}.Validate(), ShouldBeNil)
		})

		Convey("Then weights strictly between 0 and 900 should be valid", func() {
			So(model.AthleteInfo{Weight: w(1)}.Validate(), ShouldBeNil)
			So(model.AthleteInfo{Weight: w(899)}.Validate(), ShouldBeNil)
		})

		Convey("Then boundary weights should be rejected", func() {
			So(errors.Is(model.AthleteInfo{Weight: w(0)}.Validate(), model.ErrValidation), ShouldBeTrue)
			So(errors.Is(model.AthleteInfo{Weight: w(900)}.Validate(), model.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestPageOffset(t *testing.T) {
	Convey("Given pages", t, func() {
		So(model.Page{Number: 1, Size: 10}.Offset(), ShouldEqual, 0)
		So(model.Page{Number: 3, Size: 10}.Offset(), ShouldEqual, 20)
		So(model.Page{}.Offset(), ShouldEqual, 0)
	})
}
