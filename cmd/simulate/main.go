package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/livescore/internal/simulator"
	"github.com/okian/livescore/pkg/logger"
)

const (
	defaultTeams      = 20
	defaultEvaluators = 5
	defaultRescores   = 25
	defaultTimeout    = 10 * time.Second
	defaultRetryFor   = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		teams      = flag.Int("teams", defaultTeams, "Number of teams to score")
		evaluators = flag.Int("evaluators", defaultEvaluators, "Number of evaluators")
		rescores   = flag.Int("rescores", defaultRescores, "Extra submissions replacing earlier ones")
		workers    = flag.Int("workers", runtime.NumCPU(), "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		retryFor   = flag.Duration("retry", defaultRetryFor, "How long to retry rate-limited submissions")
		seed       = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Generator seed")
		format     = flag.String("log-format", "text", "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Log progress every second")
	)
	flag.Parse()

	if err := logger.InitWithWriter(os.Stdout, *format); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	_, err := simulator.Run(ctx, simulator.Config{
		BaseURL:    *baseURL,
		Teams:      *teams,
		Evaluators: *evaluators,
		Rescores:   *rescores,
		Workers:    *workers,
		Timeout:    *timeout,
		RetryFor:   *retryFor,
		Seed:       *seed,
		Verbose:    *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Any("seed", *seed), logger.Error(err))
		cancel()
		stop()
		os.Exit(1)
	}
}
