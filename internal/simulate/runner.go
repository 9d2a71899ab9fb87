// Package simulate drives a running stride service over HTTP through
// complete run lifecycles and checks what the service reports back.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/stride/pkg/logger"
)

// distanceTolerance is the relative slack allowed between the distance the
// service stores and the one computed locally.
const distanceTolerance = 1e-6

// ErrVerification is returned when the service disagrees with the simulation.
var ErrVerification = errors.New("verification failed")

type counters struct {
	runs, samples, failed, mismatched atomic.Int64
}

// Run executes the complete simulation.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log := logger.Named("simulate")
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting stride simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("athletes", cfg.Athletes),
		logger.Int("runsPerAthlete", cfg.RunsPerAthlete),
		logger.Int("samplesPerRun", cfg.SamplesPerRun),
		logger.Float64("stepKm", cfg.StepKM),
		logger.Int("workers", cfg.Workers))

	if err := client.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	item, err := placeItem(ctx, client, originFor(0).Lat, originFor(0).Lon)
	if err != nil {
		return nil, fmt.Errorf("placing collectible failed: %w", err)
	}

	users, err := createAthletes(ctx, client, cfg.Athletes)
	if err != nil {
		return nil, fmt.Errorf("creating athletes failed: %w", err)
	}
	stats.AthletesCreated = len(users)

	var c counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, u := range users {
		route := eastward(originFor(i), cfg.SamplesPerRun, cfg.StepKM)
		g.Go(func() error {
			return simulateAthlete(gctx, client, cfg, u, route, &c, log)
		})
	}
	runErr := g.Wait()

	stats.RunsFinished = int(c.runs.Load())
	stats.SamplesPosted = int(c.samples.Load())
	stats.RequestsFailed = int(c.failed.Load())
	stats.DistanceMismatch = int(c.mismatched.Load())
	if runErr != nil {
		return stats, fmt.Errorf("simulation failed: %w", runErr)
	}

	if err := verify(ctx, client, cfg, users, item, stats); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func placeItem(ctx context.Context, client *HTTPClient, lat, lon float64) (Item, error) {
	uid := "sim-" + uuid.NewString()
	body := map[string]any{"name": "Simulation beacon", "uid": uid, "latitude": lat, "longitude": lon, "value": 1}
	var item Item
	err := client.Post(ctx, "/api/collectible_item", body, &item, http.StatusCreated)
	return item, err
}

func createAthletes(ctx context.Context, client *HTTPClient, n int) ([]User, error) {
	users := make([]User, 0, n)
	for range n {
		body := map[string]any{"username": "sim-" + uuid.NewString(), "first_name": "Sim", "type": "athlete"}
		var u User
		if err := client.Post(ctx, "/api/users", body, &u, http.StatusCreated); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

// simulateAthlete runs the full lifecycle RunsPerAthlete times over route.
func simulateAthlete(ctx context.Context, client *HTTPClient, cfg *Config, u User, route Route, c *counters, log logger.Logger) error {
	want := route.Length()
	for r := range cfg.RunsPerAthlete {
		run, err := lifecycle(ctx, client, u.ID, route, c)
		if err != nil {
			c.failed.Add(1)
			return fmt.Errorf("athlete %s run %d: %w", u.Username, r, err)
		}
		c.runs.Add(1)
		if math.Abs(run.Distance-want) > want*distanceTolerance {
			c.mismatched.Add(1)
			log.Warn(ctx, "distance mismatch",
				logger.String("run", run.ID),
				logger.Float64("got", run.Distance),
				logger.Float64("want", want))
		}
		if cfg.Verbose {
			log.Info(ctx, "run finished",
				logger.String("athlete", u.Username),
				logger.String("run", run.ID),
				logger.Float64("distanceKm", run.Distance))
		}
	}
	return nil
}

func lifecycle(ctx context.Context, client *HTTPClient, athleteID string, route Route, c *counters) (RunInfo, error) {
	var run RunInfo
	if err := client.Post(ctx, "/api/runs", map[string]any{"athlete": athleteID}, &run, http.StatusCreated); err != nil {
		return RunInfo{}, err
	}
	if err := client.Post(ctx, "/api/runs/"+run.ID+"/start", nil, &run, http.StatusOK); err != nil {
		return RunInfo{}, err
	}
	ts := time.Now().UTC()
	for i, p := range route {
		body := map[string]any{
			"run":       run.ID,
			"latitude":  p.Lat,
			"longitude": p.Lon,
			"date_time": ts.Add(time.Duration(i) * time.Second).Format(time.RFC3339),
		}
		if err := client.Post(ctx, "/api/positions", body, nil, http.StatusCreated); err != nil {
			return RunInfo{}, err
		}
		c.samples.Add(1)
	}
	if err := client.Post(ctx, "/api/runs/"+run.ID+"/stop", nil, &run, http.StatusOK); err != nil {
		return RunInfo{}, err
	}
	return run, nil
}

// verify cross-checks finished-run counts, challenges and the collectible.
func verify(ctx context.Context, client *HTTPClient, cfg *Config, users []User, item Item, stats *Stats) error {
	var problems []error
	if stats.DistanceMismatch > 0 {
		problems = append(problems, fmt.Errorf("%d runs stored an unexpected distance", stats.DistanceMismatch))
	}

	for _, u := range users {
		var got User
		if err := client.Get(ctx, "/api/users/"+u.ID, &got); err != nil {
			return err
		}
		if got.RunsFinished != cfg.RunsPerAthlete {
			problems = append(problems, fmt.Errorf("athlete %s finished %d runs, want %d", u.Username, got.RunsFinished, cfg.RunsPerAthlete))
		}

		var cs list[Challenge]
		if err := client.Get(ctx, "/api/challenges?athlete="+u.ID, &cs); err != nil {
			return err
		}
		seen := map[string]bool{}
		for _, ch := range cs.Results {
			if seen[ch.FullName] {
				problems = append(problems, fmt.Errorf("athlete %s holds %q twice", u.Username, ch.FullName))
			}
			seen[ch.FullName] = true
		}
		stats.ChallengesAwarded += cs.Count
	}

	var got Item
	if err := client.Get(ctx, "/api/collectible_item/"+item.ID, &got); err != nil {
		return err
	}
	stats.ItemCollectors = len(got.Collectors)
	if !slices.Contains(got.Collectors, users[0].ID) {
		problems = append(problems, fmt.Errorf("athlete %s passed the beacon but did not collect it", users[0].Username))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrVerification, errors.Join(problems...))
	}
	return nil
}

// displayFinalStats logs the final simulation statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var runsPerSecond float64
	if stats.Duration > 0 {
		runsPerSecond = float64(stats.RunsFinished) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("athletesCreated", stats.AthletesCreated),
		logger.Int("runsFinished", stats.RunsFinished),
		logger.Int("samplesPosted", stats.SamplesPosted),
		logger.Int("requestsFailed", stats.RequestsFailed),
		logger.Int("challengesAwarded", stats.ChallengesAwarded),
		logger.Int("itemCollectors", stats.ItemCollectors),
		logger.Duration("duration", stats.Duration),
		logger.Float64("runsPerSecond", runsPerSecond))
}
