package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/unicitynetwork/Boxy-Run/internal/loadtest"
	"github.com/unicitynetwork/Boxy-Run/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers  = 500
	defaultPlays    = 3
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultCapacity = 100
	defaultTimeout  = 30 * time.Second
	runTimeout      = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		players  = flag.Int("players", defaultPlayers, "Number of synthetic players")
		plays    = flag.Int("plays", defaultPlays, "Plays per player")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		capacity = flag.Int("capacity", defaultCapacity, "Expected all-time capacity")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		output   = flag.String("output", "", "Write generated plays to this JSON file")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	_, err := loadtest.Run(ctx, &loadtest.Config{
		BaseURL:         *baseURL,
		Players:         *players,
		PlaysPerPlayer:  *plays,
		Workers:         *workers,
		Timeout:         *timeout,
		AllTimeCapacity: *capacity,
		OutputFile:      *output,
		Verbose:         *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		os.Exit(1)
	}
}
