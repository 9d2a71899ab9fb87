package simulate

import (
	"errors"
	"time"
)

// Config holds configuration for a simulation.
type Config struct {
	BaseURL        string        // Base URL of the service
	Athletes       int           // Number of simulated athletes
	RunsPerAthlete int           // Runs each athlete completes
	SamplesPerRun  int           // GPS samples posted per run
	StepKM         float64       // Distance between consecutive samples
	Workers        int           // Athletes simulated concurrently
	Timeout        time.Duration // HTTP request timeout
	Verbose        bool          // Log every run
}

// Validate rejects configurations that cannot produce a run.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.New("base url is required")
	case c.Athletes < 1 || c.RunsPerAthlete < 1:
		return errors.New("need at least one athlete and one run")
	case c.SamplesPerRun < 2:
		return errors.New("need at least two samples per run")
	case c.StepKM <= 0:
		return errors.New("step must be positive")
	case c.Workers < 1:
		return errors.New("need at least one worker")
	}
	return nil
}

// RunInfo is the wire shape of a run.
type RunInfo struct {
	ID       string  `json:"id"`
	Athlete  string  `json:"athlete"`
	Status   string  `json:"status"`
	Distance float64 `json:"distance"`
}

// User is the wire shape of an athlete.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	RunsFinished int    `json:"runs_finished"`
}

// Item is the wire shape of a collectible item.
type Item struct {
	ID         string   `json:"id"`
	UID        string   `json:"uid"`
	Collectors []string `json:"collectors"`
}

// Challenge is the wire shape of an awarded challenge.
type Challenge struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Athlete  string `json:"athlete"`
}

type list[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

// Stats holds simulation statistics.
type Stats struct {
	AthletesCreated   int
	RunsFinished      int
	SamplesPosted     int
	RequestsFailed    int
	ChallengesAwarded int
	DistanceMismatch  int
	ItemCollectors    int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
