// Package simulator drives a running scoring service with generated
// evaluator submissions and checks the served leaderboard against a locally
// computed one.
package simulator

import (
	"errors"
	"time"
)

// Sentinel errors.
var (
	ErrUnhealthy    = errors.New("simulator: service unhealthy")
	ErrNoCriteria   = errors.New("simulator: service has no criteria")
	ErrSubmit       = errors.New("simulator: submission failed")
	ErrMismatch     = errors.New("simulator: leaderboard mismatch")
	ErrUnexpected   = errors.New("simulator: unexpected response")
	ErrInvalidInput = errors.New("simulator: invalid configuration")
)

// Config holds one simulation run's parameters.
type Config struct {
	BaseURL    string        // service base URL, e.g. http://localhost:9080
	Teams      int           // number of generated teams
	Evaluators int           // number of generated evaluators
	Rescores   int           // extra submissions that replace earlier ones
	Workers    int           // concurrent submitters
	Timeout    time.Duration // per-request timeout
	RetryFor   time.Duration // how long a rate-limited submission is retried
	Seed       uint64        // generator seed; equal seeds give equal runs
	Verbose    bool
}

// Submission is one evaluator's scores for one team.
type Submission struct {
	Evaluator string         `json:"-"`
	Team      string         `json:"team"`
	Scores    map[string]int `json:"scores"`
}

// Stats summarizes a run.
type Stats struct {
	Generated  int
	Submitted  int
	Failed     int
	Retried    int
	Teams      int
	StartTime  time.Time
	Duration   time.Duration
	Throughput float64
}

func (c *Config) validate() error {
	switch {
	case c.BaseURL == "":
		return errors.Join(ErrInvalidInput, errors.New("base url is required"))
	case c.Teams <= 0 || c.Evaluators <= 0:
		return errors.Join(ErrInvalidInput, errors.New("teams and evaluators must be positive"))
	case c.Rescores < 0:
		return errors.Join(ErrInvalidInput, errors.New("rescores must not be negative"))
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RetryFor <= 0 {
		c.RetryFor = 30 * time.Second
	}
	return nil
}
