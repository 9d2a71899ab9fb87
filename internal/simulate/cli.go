package simulate

import "os"

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Stride Run Simulator
====================

Drives a running stride service through full run lifecycles: athletes are
registered, runs are created, started, fed GPS samples and stopped, then
distances, collected items and challenges are checked.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -athletes int
        Number of simulated athletes (default 20)
  -runs int
        Runs per athlete (default 10)
  -samples int
        GPS samples per run (default 20)
  -step float
        Kilometers between samples (default 0.25)
  -workers int
        Athletes simulated concurrently (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -verbose
        Log every run
  -help
        Show this help message

Examples:
  # Ten runs each for twenty athletes
  go run ./cmd/simulate

  # Long runs to trigger the distance challenge
  go run ./cmd/simulate -athletes 5 -runs 3 -samples 80 -step 0.25
`)
}
