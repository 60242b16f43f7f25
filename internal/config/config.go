// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading accepts context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// CriterionSeed describes a scoring criterion created at startup.
type CriterionSeed struct {
	Name     string `koanf:"name"`
	MaxScore int    `koanf:"max_score"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ChangeQueueSize bounds the in-memory queue of change events.
	ChangeQueueSize int `koanf:"change_queue_size"`

	// WorkerCount sets the number of change workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the cache of relayed event ids.
	DedupeSize int `koanf:"dedupe_size"`

	// Hub tuning.
	HubSendBuffer       int `koanf:"hub_send_buffer"`
	HubWriteTimeoutMS   int `koanf:"hub_write_timeout_ms"`
	HubPingIntervalMS   int `koanf:"hub_ping_interval_ms"`
	HubReadTimeoutMS    int `koanf:"hub_read_timeout_ms"`
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// SubmitRatePerSec and SubmitBurst limit score submissions per evaluator.
	// A rate of zero disables limiting.
	SubmitRatePerSec float64 `koanf:"submit_rate_per_sec"`
	SubmitBurst      int     `koanf:"submit_burst"`

	// CORSAllowedOrigins lists origins allowed by the CORS handler.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// DatabaseURL selects the Postgres key/value store when set; memory otherwise.
	DatabaseURL string `koanf:"database_url"`

	// NATSURL enables the cross-replica relay when set.
	NATSURL     string `koanf:"nats_url"`
	NATSSubject string `koanf:"nats_subject"`

	// Criteria are created at startup when absent from the store.
	Criteria []CriterionSeed `koanf:"criteria"`

	// Teams are registered at startup when absent from the store.
	Teams []string `koanf:"teams"`

	// RequireKnownTeam rejects submissions for teams without a profile.
	RequireKnownTeam bool `koanf:"require_known_team"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		ChangeQueueSize:     10_000,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          100_000,
		HubSendBuffer:       64,
		HubWriteTimeoutMS:   5_000,
		HubPingIntervalMS:   25_000,
		HubReadTimeoutMS:    60_000,
		MaxLeaderboardLimit: 100,
		SubmitRatePerSec:    5,
		SubmitBurst:         10,
		CORSAllowedOrigins:  []string{"*"},
		NATSSubject:         "livescore.events",
		Criteria: []CriterionSeed{
			{Name: "Innovation", MaxScore: 10},
			{Name: "Impact", MaxScore: 10},
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ChangeQueueSize <= 0:
		return fmt.Errorf("%w: change_queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.HubSendBuffer <= 0:
		return fmt.Errorf("%w: hub_send_buffer must be positive", ErrInvalidConfig)
	case c.HubWriteTimeoutMS <= 0 || c.HubPingIntervalMS <= 0 || c.HubReadTimeoutMS <= 0:
		return fmt.Errorf("%w: hub timeouts must be positive", ErrInvalidConfig)
	case c.HubReadTimeoutMS <= c.HubPingIntervalMS:
		return fmt.Errorf("%w: hub_read_timeout_ms must exceed hub_ping_interval_ms", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.SubmitRatePerSec < 0 || c.SubmitBurst < 0:
		return fmt.Errorf("%w: submit rate settings must not be negative", ErrInvalidConfig)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}

	seen := make(map[string]struct{}, len(c.Criteria))
	for _, cr := range c.Criteria {
		if strings.TrimSpace(cr.Name) == "" || cr.MaxScore <= 0 {
			return fmt.Errorf("%w: criterion %q needs a name and a positive max_score", ErrInvalidConfig, cr.Name)
		}
		if _, dup := seen[cr.Name]; dup {
			return fmt.Errorf("%w: duplicate criterion %q", ErrInvalidConfig, cr.Name)
		}
		seen[cr.Name] = struct{}{}
	}
	return nil
}

// HubWriteTimeout returns the hub write deadline as a duration.
func (c *Config) HubWriteTimeout() time.Duration {
	return time.Duration(c.HubWriteTimeoutMS) * time.Millisecond
}

// HubPingInterval returns the keepalive ping period as a duration.
func (c *Config) HubPingInterval() time.Duration {
	return time.Duration(c.HubPingIntervalMS) * time.Millisecond
}

// HubReadTimeout returns the read deadline extended by each pong.
func (c *Config) HubReadTimeout() time.Duration {
	return time.Duration(c.HubReadTimeoutMS) * time.Millisecond
}
