package simulator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/okian/livescore/internal/domain/types"
	"github.com/okian/livescore/pkg/logger"
)

const progressInterval = time.Second

// Run generates submissions, posts them and verifies the leaderboard.
// Each evaluator's submissions are posted in order by a single worker so the
// last one wins on the server as it does locally.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	stats := Stats{StartTime: time.Now()}
	if err := cfg.validate(); err != nil {
		return stats, err
	}
	log := logger.Get().Named("simulator")
	client := NewClient(cfg.BaseURL, cfg.Timeout, cfg.RetryFor)

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("teams", cfg.Teams),
		logger.Int("evaluators", cfg.Evaluators),
		logger.Int("rescores", cfg.Rescores),
		logger.Int("workers", cfg.Workers))

	if err := client.Health(ctx); err != nil {
		return stats, err
	}
	criteria, err := client.Criteria(ctx)
	if err != nil {
		return stats, err
	}
	if len(criteria) == 0 {
		return stats, ErrNoCriteria
	}

	subs := Generate(cfg, criteria)
	stats.Generated = len(subs)

	submitAll(ctx, cfg, client, subs, &stats, log)
	if stats.Failed > 0 {
		return finish(stats), fmt.Errorf("%w: %d of %d", ErrSubmit, stats.Failed, stats.Generated)
	}

	got, err := client.Leaderboard(ctx)
	if err != nil {
		return finish(stats), err
	}
	stats.Teams = len(got)
	stats = finish(stats)

	if err := Verify(Expected(subs), got); err != nil {
		return stats, err
	}
	log.Info(ctx, "simulation verified",
		logger.Int("submitted", stats.Submitted),
		logger.Int("retried", stats.Retried),
		logger.Int("teams", stats.Teams),
		logger.Duration("duration", stats.Duration),
		logger.Float64("submissionsPerSecond", stats.Throughput))
	return stats, nil
}

// Verify compares the served leaderboard with the expected one.
func Verify(want, got []types.Entry) error {
	if diff := cmp.Diff(want, got); diff != "" {
		return fmt.Errorf("%w (-want +got):\n%s", ErrMismatch, diff)
	}
	return nil
}

func submitAll(ctx context.Context, cfg Config, client *Client, subs []Submission, stats *Stats, log logger.Logger) {
	var submitted, failed, retried atomic.Int64

	groups := make(chan []Submission)
	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for group := range groups {
				for _, s := range group {
					n, err := client.Submit(ctx, s)
					retried.Add(int64(n))
					if err != nil {
						failed.Add(1)
						log.Warn(ctx, "submission failed",
							logger.String("evaluator", s.Evaluator),
							logger.String("team", s.Team),
							logger.Error(err))
						continue
					}
					submitted.Add(1)
				}
			}
		}()
	}

	done := make(chan struct{})
	if cfg.Verbose {
		go func() {
			ticker := time.NewTicker(progressInterval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					log.Info(ctx, "progress",
						logger.Int("submitted", int(submitted.Load())),
						logger.Int("failed", int(failed.Load())),
						logger.Int("total", len(subs)))
				}
			}
		}()
	}

feed:
	for _, g := range byEvaluator(subs) {
		select {
		case <-ctx.Done():
			break feed
		case groups <- g:
		}
	}
	close(groups)
	wg.Wait()
	close(done)

	stats.Submitted = int(submitted.Load())
	stats.Failed = int(failed.Load())
	stats.Retried = int(retried.Load())
	if ctx.Err() != nil {
		stats.Failed += stats.Generated - stats.Submitted - stats.Failed
	}
}

func finish(s Stats) Stats {
	s.Duration = time.Since(s.StartTime)
	if s.Duration > 0 {
		s.Throughput = float64(s.Submitted) / s.Duration.Seconds()
	}
	return s
}
