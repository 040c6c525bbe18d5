package loadtest

import "os"

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	os.Stdout.WriteString(`Boxy Run Load Tool
==================

Submits plausible plays for synthetic players, then reads the daily and
all-time leaderboards and every player's stats back and checks them.

Usage:
  load-scores [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -players int
        Number of synthetic players (default 500)
  -plays int
        Plays per player, submitted in order (default 3)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -capacity int
        Expected all-time capacity (default 100)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Write generated plays to this JSON file
  -verbose
        Enable verbose logging
  -help
        Show this help message

The exit status is 1 when the service is unreachable or any check fails.
`)
}
