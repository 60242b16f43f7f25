package api

import (
	"github.com/okian/livescore/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithMaxLeaderboardLimit caps the limit query parameter of GET /api/leaderboard.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithSubmitRate limits score submissions per identity. A non-positive rate
// disables the limit.
func WithSubmitRate(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.submitRate = perSecond
		s.submitBurst = burst
	}
}

// WithAllowedOrigins sets the origins accepted for CORS and websocket upgrades.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithLogger sets the logger used by the websocket handler.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
