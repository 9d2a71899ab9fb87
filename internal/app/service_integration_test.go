package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	service "github.com/okian/stride/internal/app"
	"github.com/okian/stride/internal/domain/achievement"
	"github.com/okian/stride/internal/domain/geo"
	"github.com/okian/stride/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// lonOffsetKM returns the longitude delta on the equator covering km.
func lonOffsetKM(km float64) float64 {
	return km / geo.Distance(geo.Point{Lat: 0, Lon: 0}, geo.Point{Lat: 0, Lon: 1})
}

// finishRun creates, starts, feeds and stops one run.
func finishRun(ctx context.Context, svc *service.Service, athleteID string, trace ...geo.Point) model.Run {
	run, err := svc.CreateRun(ctx, athleteID, "")
	So(err, ShouldBeNil)
	_, err = svc.ApplyTransition(ctx, run.ID, model.ActionStart)
	So(err, ShouldBeNil)
	for _, p := range trace {
		_, err = svc.RecordPosition(ctx, service.PositionInput{RunID: run.ID, Latitude: p.Lat, Longitude: p.Lon})
		So(err, ShouldBeNil)
	}
	run, err = svc.ApplyTransition(ctx, run.ID, model.ActionStop)
	So(err, ShouldBeNil)
	return run
}

func countNamed(cs []model.Challenge, name string) int {
	n := 0
	for _, c := range cs {
		if c.FullName == name {
			n++
		}
	}
	return n
}

func TestRunLifecycle(t *testing.T) {
	Convey("Given a started service and an athlete", t, func() {
		svc, ctx := startService()
		defer svc.Stop()
		a := mustAthlete(ctx, svc, "runner")

		run, err := svc.CreateRun(ctx, a.ID, "easy jog")
		So(err, ShouldBeNil)

		Convey("Then a new run should be in init", func() {
			So(run.Status, ShouldEqual, model.StatusInit)
			So(run.Comment, ShouldEqual, "easy jog")
			So(run.Distance, ShouldEqual, 0)
		})

		Convey("When stopping a run that never started", func() {
			got, err := svc.ApplyTransition(ctx, run.ID, model.ActionStop)

			Convey("Then it should be rejected without mutation", func() {
				So(errors.Is(err, model.ErrInvalidTransition), ShouldBeTrue)
				So(got.Status, ShouldEqual, model.StatusInit)
				stored, _ := svc.GetRun(ctx, run.ID)
				So(stored.Status, ShouldEqual, model.StatusInit)
			})
		})

		Convey("When starting the run twice", func() {
			_, err := svc.ApplyTransition(ctx, run.ID, model.ActionStart)
			So(err, ShouldBeNil)
			_, err = svc.ApplyTransition(ctx, run.ID, model.ActionStart)

			Convey("Then the second start should be rejected and status stay in_progress", func() {
				So(errors.Is(err, model.ErrInvalidTransition), ShouldBeTrue)
				stored, _ := svc.GetRun(ctx, run.ID)
				So(stored.Status, ShouldEqual, model.StatusInProgress)
			})
		})

		Convey("When the run is finished", func() {
			_, err := svc.ApplyTransition(ctx, run.ID, model.ActionStart)
			So(err, ShouldBeNil)
			_, err = svc.ApplyTransition(ctx, run.ID, model.ActionStop)
			So(err, ShouldBeNil)

			Convey("Then neither start nor stop should move it backwards", func() {
				_, err := svc.ApplyTransition(ctx, run.ID, model.ActionStart)
				So(errors.Is(err, model.ErrInvalidTransition), ShouldBeTrue)
				_, err = svc.ApplyTransition(ctx, run.ID, model.ActionStop)
				So(errors.Is(err, model.ErrInvalidTransition), ShouldBeTrue)
				stored, _ := svc.GetRun(ctx, run.ID)
				So(stored.Status, ShouldEqual, model.StatusFinished)
			})
		})

		Convey("When creating a run for an unknown athlete", func() {
			_, err := svc.CreateRun(ctx, "ghost", "")

			Convey("Then it should report not found", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When creating a run without an athlete", func() {
			_, err := svc.CreateRun(ctx, " ", "")

			Convey("Then it should report a validation error", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When transitioning an unknown run", func() {
			_, err := svc.ApplyTransition(ctx, "missing", model.ActionStart)

			Convey("Then it should report not found", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestRunDistanceScenario(t *testing.T) {
	Convey("Given a started run with three recorded positions", t, func() {
		svc, ctx := startService()
		defer svc.Stop()
		a := mustAthlete(ctx, svc, "tracer")

		trace := []geo.Point{
			{Lat: 52.5200, Lon: 13.4050},
			{Lat: 52.5300, Lon: 13.4150},
			{Lat: 52.5350, Lon: 13.4300},
		}
		run := finishRun(ctx, svc, a.ID, trace...)

		Convey("Then the run should be finished with the geodesic path length", func() {
			// 1.3015853 km + 1.1569612 km on a 6371.0088 km sphere.
			const want = 2.4585465
			So(run.Status, ShouldEqual, model.StatusFinished)
			So(run.Distance, ShouldAlmostEqual, want, 1e-6)

			stored, err := svc.GetRun(ctx, run.ID)
			So(err, ShouldBeNil)
			So(stored.Distance, ShouldAlmostEqual, want, 1e-6)
		})

		Convey("Then positions should be listed in arrival order", func() {
			ps, err := svc.ListPositions(ctx, run.ID)
			So(err, ShouldBeNil)
			So(len(ps), ShouldEqual, 3)
			for i, p := range ps {
				So(p.Latitude, ShouldEqual, trace[i].Lat)
			}
		})

		Convey("When a position is deleted after finishing", func() {
			ps, _ := svc.ListPositions(ctx, run.ID)
			So(svc.DeletePosition(ctx, ps[1].ID), ShouldBeNil)

			Convey("Then the stored distance should not be recomputed", func() {
				stored, _ := svc.GetRun(ctx, run.ID)
				So(stored.Distance, ShouldAlmostEqual, run.Distance, 1e-9)
			})
		})
	})

	Convey("Given runs with zero or one position", t, func() {
		svc, ctx := startService()
		defer svc.Stop()
		a := mustAthlete(ctx, svc, "idle")

		Convey("Then their distance should be zero", func() {
			So(finishRun(ctx, svc, a.ID).Distance, ShouldEqual, 0)
			So(finishRun(ctx, svc, a.ID, geo.Point{Lat: 10, Lon: 10}).Distance, ShouldEqual, 0)
		})
	})
}

func TestRecordPosition(t *testing.T) {
	Convey("Given an athlete with an in-progress run", t, func() {
		svc, ctx := startService()
		defer svc.Stop()
		a := mustAthlete(ctx, svc, "gps")
		run, err := svc.CreateRun(ctx, a.ID, "")
		So(err, ShouldBeNil)

		Convey("When posting to a run still in init", func() {
			_, err := svc.RecordPosition(ctx, service.PositionInput{RunID: run.ID, Latitude: 1, Longitude: 1})

			Convey("Then it should report an invalid run state", func() {
				So(errors.Is(err, model.ErrInvalidRunState), ShouldBeTrue)
			})
		})

		Convey("When the run is in progress", func() {
			_, err := svc.ApplyTransition(ctx, run.ID, model.ActionStart)
			So(err, ShouldBeNil)

			Convey("Then out-of-range coordinates should be rejected", func() {
				for _, c := range [][2]float64{{91, 0}, {-91, 0}, {0, 181}, {0, -181}} {
					_, err := svc.RecordPosition(ctx, service.PositionInput{RunID: run.ID, Latitude: c[0], Longitude: c[1]})
					So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
				}
				ps, _ := svc.ListPositions(ctx, run.ID)
				So(ps, ShouldBeEmpty)
			})

			Convey("Then boundary coordinates should be accepted", func() {
				for _, c := range [][2]float64{{90, 0}, {-90, 0}, {0, 180}, {0, -180}} {
					_, err := svc.RecordPosition(ctx, service.PositionInput{RunID: run.ID, Latitude: c[0], Longitude: c[1]})
					So(err, ShouldBeNil)
				}
				ps, _ := svc.ListPositions(ctx, run.ID)
				So(len(ps), ShouldEqual, 4)
			})

			Convey("Then a zero timestamp should be filled in", func() {
				p, err := svc.RecordPosition(ctx, service.PositionInput{RunID: run.ID, Latitude: 1, Longitude: 1})
				So(err, ShouldBeNil)
				So(p.Timestamp.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When the run is finished", func() {
			finished := finishRun(ctx, svc, a.ID)
			_, err := svc.RecordPosition(ctx, service.PositionInput{RunID: finished.ID, Latitude: 1, Longitude: 1})

			Convey("Then it should report an invalid run state", func() {
				So(errors.Is(err, model.ErrInvalidRunState), ShouldBeTrue)
			})
		})

		Convey("When posting to an unknown run", func() {
			_, err := svc.RecordPosition(ctx, service.PositionInput{RunID: "missing", Latitude: 1, Longitude: 1})

			Convey("Then it should report not found", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestCollectibleDiscovery(t *testing.T) {
	Convey("Given a collectible at the origin and an athlete running", t, func() {
		svc, ctx := startService()
		defer svc.Stop()
		a := mustAthlete(ctx, svc, "finder")
		item, err := svc.CreateCollectible(ctx, model.CollectibleItem{Name: "Golden Shoe", Value: 10})
		So(err, ShouldBeNil)

		run, err := svc.CreateRun(ctx, a.ID, "")
		So(err, ShouldBeNil)
		_, err = svc.ApplyTransition(ctx, run.ID, model.ActionStart)
		So(err, ShouldBeNil)

		record := func(km float64) {
			_, err := svc.RecordPosition(ctx, service.PositionInput{RunID: run.ID, Latitude: 0, Longitude: lonOffsetKM(km)})
			So(err, ShouldBeNil)
		}

		Convey("Then the uid should be derived from the name", func() {
			So(item.UID, ShouldEqual, "golden-shoe")
		})

		Convey("When positions stay at or beyond the radius", func() {
			So(geo.Distance(geo.Point{Lat: 0, Lon: lonOffsetKM(0.1)}, geo.Point{}), ShouldBeGreaterThanOrEqualTo, 0.1)
			record(0.1)
			record(0.15)

			Convey("Then nothing should be collected", func() {
				d, err := svc.GetCollectible(ctx, item.ID)
				So(err, ShouldBeNil)
				So(d.Collectors, ShouldBeEmpty)
			})
		})

		Convey("When the same close position is repeated", func() {
			record(0.05)
			record(0.05)
			record(0.01)

			Convey("Then the athlete should be a collector exactly once", func() {
				d, err := svc.GetCollectible(ctx, item.ID)
				So(err, ShouldBeNil)
				So(d.Collectors, ShouldResemble, []string{a.ID})

				collected, err := svc.ListCollected(ctx, a.ID)
				So(err, ShouldBeNil)
				So(len(collected), ShouldEqual, 1)
				So(collected[0].ID, ShouldEqual, item.ID)
			})
		})
	})

	Convey("Given collectible creation input", t, func() {
		svc, ctx := startService()
		defer svc.Stop()

		Convey("Then a blank name should be rejected", func() {
			_, err := svc.CreateCollectible(ctx, model.CollectibleItem{Name: "  "})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("Then a name with no sluggable characters and no uid should be rejected", func() {
			_, err := svc.CreateCollectible(ctx, model.CollectibleItem{Name: "!!!"})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("Then a negative value should be rejected", func() {
			_, err := svc.CreateCollectible(ctx, model.CollectibleItem{Name: "Coin", Value: -1})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("Then a taken uid should be reported as duplicate", func() {
			_, err := svc.CreateCollectible(ctx, model.CollectibleItem{Name: "Coin"})
			So(err, ShouldBeNil)
			_, err = svc.CreateCollectible(ctx, model.CollectibleItem{Name: "Other", UID: "coin"})
			So(errors.Is(err, model.ErrDuplicate), ShouldBeTrue)
		})
	})
}

func TestChallenges(t *testing.T) {
	Convey("Given an athlete finishing short runs", t, func() {
		svc, ctx := startService()
		defer svc.Stop()
		a := mustAthlete(ctx, svc, "steady")

		Convey("When nine runs are finished", func() {
			for i := 0; i < 9; i++ {
				finishRun(ctx, svc, a.ID)
			}

			Convey("Then no ten-run challenge should exist yet", func() {
				cs, _ := svc.ListChallenges(ctx, a.ID)
				So(countNamed(cs, achievement.DefaultRunCountChallenge), ShouldEqual, 0)
			})

			Convey("And after the tenth and eleventh run", func() {
				finishRun(ctx, svc, a.ID)
				cs, _ := svc.ListChallenges(ctx, a.ID)
				So(countNamed(cs, achievement.DefaultRunCountChallenge), ShouldEqual, 1)

				finishRun(ctx, svc, a.ID)

				Convey("Then exactly one ten-run challenge should exist", func() {
					cs, _ := svc.ListChallenges(ctx, a.ID)
					So(countNamed(cs, achievement.DefaultRunCountChallenge), ShouldEqual, 1)
				})
			})
		})
	})

	Convey("Given an athlete crossing 50 km", t, func() {
		svc, ctx := startService()
		defer svc.Stop()
		a := mustAthlete(ctx, svc, "long")

		// 0.3 degrees of latitude is about 33 km.
		leg := []geo.Point{{Lat: 0, Lon: 0}, {Lat: 0.3, Lon: 0}}
		first := finishRun(ctx, svc, a.ID, leg...)
		So(first.Distance, ShouldBeLessThan, 50)

		Convey("Then nothing should be awarded below the threshold", func() {
			cs, _ := svc.ListChallenges(ctx, a.ID)
			So(countNamed(cs, achievement.DefaultDistanceChallenge), ShouldEqual, 0)
		})

		Convey("When further runs push the total past 50 km", func() {
			finishRun(ctx, svc, a.ID, leg...)
			finishRun(ctx, svc, a.ID, leg...)
			finishRun(ctx, svc, a.ID, leg...)

			Convey("Then exactly one distance challenge should exist", func() {
				cs, _ := svc.ListChallenges(ctx, a.ID)
				So(countNamed(cs, achievement.DefaultDistanceChallenge), ShouldEqual, 1)
				So(countNamed(cs, achievement.DefaultRunCountChallenge), ShouldEqual, 0)
			})

			Convey("And other athletes should not see it", func() {
				b := mustAthlete(ctx, svc, "other")
				cs, _ := svc.ListChallenges(ctx, b.ID)
				So(cs, ShouldBeEmpty)
				all, _ := svc.ListChallenges(ctx, "")
				So(len(all), ShouldEqual, 1)
			})
		})
	})

	Convey("Given custom rules", t, func() {
		svc, ctx := startService(service.WithChallengeRules(
			achievement.RunCount{Milestone: 1, Title: "First run"},
		))
		defer svc.Stop()
		a := mustAthlete(ctx, svc, "rookie")

		Convey("When the first run finishes", func() {
			finishRun(ctx, svc, a.ID)

			Convey("Then the custom challenge should be awarded", func() {
				cs, _ := svc.ListChallenges(ctx, a.ID)
				So(len(cs), ShouldEqual, 1)
				So(cs[0].FullName, ShouldEqual, "First run")
			})
		})
	})
}

func TestConcurrentStops(t *testing.T) {
	Convey("Given an athlete with nine finished runs and many in-progress runs", t, func() {
		svc, ctx := startService()
		defer svc.Stop()
		a := mustAthlete(ctx, svc, "racer")
		for i := 0; i < 9; i++ {
			finishRun(ctx, svc, a.ID)
		}

		const parallel = 8
		runs := make([]model.Run, parallel)
		for i := range runs {
			r, err := svc.CreateRun(ctx, a.ID, "")
			So(err, ShouldBeNil)
			_, err = svc.ApplyTransition(ctx, r.ID, model.ActionStart)
			So(err, ShouldBeNil)
			runs[i] = r
		}

		Convey("When all of them are stopped concurrently, each twice", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			wins := 0
			for _, r := range runs {
				for j := 0; j < 2; j++ {
					wg.Add(1)
					go func(id string) {
						defer wg.Done()
						if _, err := svc.ApplyTransition(ctx, id, model.ActionStop); err == nil {
							mu.Lock()
							wins++
							mu.Unlock()
						}
					}(r.ID)
				}
			}
			wg.Wait()

			Convey("Then each run should finish exactly once", func() {
				So(wins, ShouldEqual, parallel)
			})

			Convey("Then exactly one ten-run challenge should exist", func() {
				cs, _ := svc.ListChallenges(ctx, a.ID)
				So(countNamed(cs, achievement.DefaultRunCountChallenge), ShouldEqual, 1)
			})
		})
	})

	Convey("Given an athlete evaluated concurrently after qualifying", t, func() {
		svc, ctx := startService()
		defer svc.Stop()
		a := mustAthlete(ctx, svc, "burst")
		for i := 0; i < 10; i++ {
			finishRun(ctx, svc, a.ID)
		}

		Convey("When evaluation races", func() {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = svc.EvaluateChallenges(ctx, a.ID)
				}()
			}
			wg.Wait()

			Convey("Then exactly one ten-run challenge should exist", func() {
				cs, _ := svc.ListChallenges(ctx, a.ID)
				So(countNamed(cs, achievement.DefaultRunCountChallenge), ShouldEqual, 1)
			})
		})
	})
}

func TestAthletes(t *testing.T) {
	Convey("Given coaches and athletes", t, func() {
		svc, ctx := startService(service.WithPageSizes(2, 3))
		defer svc.Stop()

		coach, err := svc.CreateAthlete(ctx, model.Athlete{Username: "coach", FirstName: "Maria", LastName: "Lopez", IsStaff: true})
		So(err, ShouldBeNil)
		jo := mustAthlete(ctx, svc, "jo")
		mustAthlete(ctx, svc, "pete")
		mustAthlete(ctx, svc, "sam")
		finishRun(ctx, svc, jo.ID)

		Convey("Then a blank username should be rejected", func() {
			_, err := svc.CreateAthlete(ctx, model.Athlete{Username: " "})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("Then a taken username should be a duplicate", func() {
			_, err := svc.CreateAthlete(ctx, model.Athlete{Username: "jo"})
			So(errors.Is(err, model.ErrDuplicate), ShouldBeTrue)
		})

		Convey("Then filtering by type should split staff", func() {
			coaches, total, err := svc.ListAthletes(ctx, model.AthleteFilter{Type: "coach"})
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 1)
			So(coaches[0].ID, ShouldEqual, coach.ID)
			So(coaches[0].Type(), ShouldEqual, model.AthleteTypeCoach)
		})

		Convey("Then an unknown type should be rejected", func() {
			_, _, err := svc.ListAthletes(ctx, model.AthleteFilter{Type: "admin"})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("Then the default page size should apply and sizes be capped", func() {
			page, total, err := svc.ListAthletes(ctx, model.AthleteFilter{})
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 4)
			So(len(page), ShouldEqual, 2)

			page, _, _ = svc.ListAthletes(ctx, model.AthleteFilter{Page: model.Page{Number: 1, Size: 100}})
			So(len(page), ShouldEqual, 3)
		})

		Convey("Then each summary should carry the finished run count", func() {
			got, err := svc.GetAthlete(ctx, jo.ID)
			So(err, ShouldBeNil)
			So(got.FinishedRuns, ShouldEqual, 1)
		})

		Convey("When athlete info is read before it is saved", func() {
			info, err := svc.GetAthleteInfo(ctx, jo.ID)

			Convey("Then it should be empty", func() {
				So(err, ShouldBeNil)
				So(info.AthleteID, ShouldEqual, jo.ID)
				So(info.Weight, ShouldBeNil)
			})
		})

		Convey("When athlete info is saved", func() {
			w := 72
			_, err := svc.SaveAthleteInfo(ctx, model.AthleteInfo{AthleteID: jo.ID, Goals: "10k", Weight: &w})
			So(err, ShouldBeNil)

			Convey("Then it should be returned", func() {
				info, err := svc.GetAthleteInfo(ctx, jo.ID)
				So(err, ShouldBeNil)
				So(info.Goals, ShouldEqual, "10k")
				So(*info.Weight, ShouldEqual, 72)
			})
		})

		Convey("Then an out-of-range weight should be rejected", func() {
			w := 900
			_, err := svc.SaveAthleteInfo(ctx, model.AthleteInfo{AthleteID: jo.ID, Weight: &w})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("Then info for an unknown athlete should be not found", func() {
			_, err := svc.GetAthleteInfo(ctx, "ghost")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestListRuns(t *testing.T) {
	Convey("Given runs in several states", t, func() {
		svc, ctx := startService()
		defer svc.Stop()
		a := mustAthlete(ctx, svc, "lister")
		b := mustAthlete(ctx, svc, "other")
		finishRun(ctx, svc, a.ID)
		_, err := svc.CreateRun(ctx, a.ID, "")
		So(err, ShouldBeNil)
		_, err = svc.CreateRun(ctx, b.ID, "")
		So(err, ShouldBeNil)

		Convey("Then filters should narrow the listing", func() {
			_, total, err := svc.ListRuns(ctx, model.RunFilter{AthleteID: a.ID})
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 2)

			finished, total, _ := svc.ListRuns(ctx, model.RunFilter{Status: model.StatusFinished})
			So(total, ShouldEqual, 1)
			So(finished[0].AthleteID, ShouldEqual, a.ID)
		})
	})
}
