package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When it is initialized with defaults", func() {
			err := Init()

			Convey("Then Get should return a logger", func() {
				So(err, ShouldBeNil)
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When it is initialized twice", func() {
			So(Init(), ShouldBeNil)
			So(Init(WithFormat(FormatJSON)), ShouldBeNil)

			Convey("Then the second configuration wins", func() {
				So(Get(), ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat(FormatJSON), WithWriter(&buf), WithSource(false)), ShouldBeNil)
		So(SetLevelString("info"), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().Info(ctx, "run finished",
				String("run_id", "r-1"),
				Float64("distance_km", 4.2),
				Bool("awarded", true),
				Error(errors.New("boom")),
			)

			Convey("Then the record should carry every field", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "run finished")
				So(rec["run_id"], ShouldEqual, "r-1")
				So(rec["distance_km"], ShouldEqual, 4.2)
				So(rec["awarded"], ShouldEqual, true)
				So(rec["error"], ShouldEqual, "boom")
			})
		})

		Convey("When logging below the configured level", func() {
			Get().Debug(ctx, "hidden")

			Convey("Then nothing should be written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When using a named child logger", func() {
			Named("engine").With(String("athlete_id", "a-1")).Warn(ctx, "slow store")

			Convey("Then fields should be grouped under the name", func() {
				So(strings.Contains(buf.String(), `"engine"`), ShouldBeTrue)
				So(strings.Contains(buf.String(), `"athlete_id":"a-1"`), ShouldBeTrue)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		Convey("Then known levels should be accepted", func() {
			for _, lvl := range []string{"debug", "INFO", " warn ", "warning", "error", ""} {
				So(SetLevelString(lvl), ShouldBeNil)
			}
		})

		Convey("Then unknown levels should be rejected", func() {
			So(SetLevelString("verbose"), ShouldNotBeNil)
		})

		Reset(func() {
			_ = SetLevelString("info")
		})
	})
}

func TestDiscard(t *testing.T) {
	Convey("Given a discard logger", t, func() {
		l := Discard()

		Convey("Then logging should not panic", func() {
			So(func() { l.Error(context.Background(), "dropped") }, ShouldNotPanic)
		})
	})
}
