package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/stride/internal/simulate"
	"github.com/okian/stride/pkg/logger"
)

// Default configuration constants.
const (
	defaultAthletes    = 20
	defaultRuns        = 10
	defaultSamples     = 20
	defaultStepKM      = 0.25
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		athletes = flag.Int("athletes", defaultAthletes, "Number of simulated athletes")
		runs     = flag.Int("runs", defaultRuns, "Runs per athlete")
		samples  = flag.Int("samples", defaultSamples, "GPS samples per run")
		step     = flag.Float64("step", defaultStepKM, "Kilometers between samples")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Athletes simulated concurrently")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose  = flag.Bool("verbose", false, "Log every run")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:        *baseURL,
		Athletes:       *athletes,
		RunsPerAthlete: *runs,
		SamplesPerRun:  *samples,
		StepKM:         *step,
		Workers:        *workers,
		Timeout:        *timeout,
		Verbose:        *verbose,
	}
	if _, err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
