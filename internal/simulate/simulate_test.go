package simulate_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/stride/internal/adapters/http/api"
	service "github.com/okian/stride/internal/app"
	"github.com/okian/stride/internal/simulate"
	"github.com/okian/stride/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := service.New()
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		srv := newServer(t)
		cfg := &simulate.Config{
			BaseURL:        srv.URL,
			Athletes:       3,
			RunsPerAthlete: 10,
			SamplesPerRun:  5,
			StepKM:         0.5,
			Workers:        3,
			Timeout:        5 * time.Second,
		}

		Convey("When the simulation runs", func() {
			stats, err := simulate.Run(context.Background(), cfg)

			Convey("Then every run should finish with the expected distance", func() {
				So(err, ShouldBeNil)
				So(stats.AthletesCreated, ShouldEqual, 3)
				So(stats.RunsFinished, ShouldEqual, 30)
				So(stats.SamplesPosted, ShouldEqual, 150)
				So(stats.DistanceMismatch, ShouldEqual, 0)
			})

			Convey("And each athlete should earn the run-count challenge once", func() {
				So(stats.ChallengesAwarded, ShouldEqual, 3)
			})

			Convey("And the first athlete should collect the beacon", func() {
				So(stats.ItemCollectors, ShouldEqual, 1)
			})
		})
	})

	Convey("Given an invalid configuration", t, func() {
		_, err := simulate.Run(context.Background(), &simulate.Config{BaseURL: "http://localhost"})

		Convey("Then it should fail before sending requests", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "invalid config")
		})
	})

	Convey("Given an unreachable service", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		cfg := &simulate.Config{
			BaseURL: srv.URL, Athletes: 1, RunsPerAthlete: 1, SamplesPerRun: 2,
			StepKM: 1, Workers: 1, Timeout: time.Second,
		}

		Convey("Then the health check should fail with the status", func() {
			_, err := simulate.Run(context.Background(), cfg)
			var se *simulate.StatusError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("Given simulation configs", t, func() {
		valid := simulate.Config{BaseURL: "http://x", Athletes: 1, RunsPerAthlete: 1, SamplesPerRun: 2, StepKM: 0.1, Workers: 1}

		Convey("Then a complete config should pass", func() {
			So(valid.Validate(), ShouldBeNil)
		})

		Convey("Then a single sample per run should fail", func() {
			c := valid
			c.SamplesPerRun = 1
			So(c.Validate(), ShouldNotBeNil)
		})

		Convey("Then a non-positive step should fail", func() {
			c := valid
			c.StepKM = 0
			So(c.Validate(), ShouldNotBeNil)
		})
	})
}
