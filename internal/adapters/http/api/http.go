// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/cors"

	"github.com/okian/livescore/internal/domain/types"
	"github.com/okian/livescore/pkg/logger"
)

const (
	defaultMaxLimit = 1000
	maxBodyBytes    = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ScoreDependencies
	LeaderboardDependencies
	ClockDependencies
	CriteriaDependencies
	TeamDependencies
	ConnectDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	scoresHandler      *ScoresHandler
	leaderboardHandler *LeaderboardHandler
	clockHandler       *ClockHandler
	criteriaHandler    *CriteriaHandler
	teamsHandler       *TeamsHandler
	wsHandler          *WebsocketHandler

	maxLimit       int
	submitRate     float64
	submitBurst    int
	allowedOrigins []string
	logger         logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		maxLimit:    defaultMaxLimit,
		submitBurst: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}

	var limiter *RateLimiter
	if s.submitRate > 0 {
		limiter = NewRateLimiter(s.submitRate, s.submitBurst)
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.scoresHandler = NewScoresHandler(deps, limiter)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.maxLimit)
	s.clockHandler = NewClockHandler(deps)
	s.criteriaHandler = NewCriteriaHandler(deps)
	s.teamsHandler = NewTeamsHandler(deps)
	s.wsHandler = NewWebsocketHandler(deps, s.allowedOrigins, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /api/leaderboard/{team}", MetricsMiddleware(s.leaderboardHandler.HandleGetTeamEntry, "leaderboard_team"))
	mux.HandleFunc("GET /api/teams/{team}/score", MetricsMiddleware(s.leaderboardHandler.HandleGetBreakdown, "team_score"))

	mux.HandleFunc("POST /api/scores", MetricsMiddleware(s.scoresHandler.HandlePostScore, "scores"))

	mux.HandleFunc("GET /api/clock", MetricsMiddleware(s.clockHandler.HandleGetClock, "clock"))
	mux.HandleFunc("POST /api/clock/start", MetricsMiddleware(s.clockHandler.HandleStartClock, "clock_start"))
	mux.HandleFunc("POST /api/clock/stop", MetricsMiddleware(s.clockHandler.HandleStopClock, "clock_stop"))

	mux.HandleFunc("GET /api/criteria", MetricsMiddleware(s.criteriaHandler.HandleList, "criteria"))
	mux.HandleFunc("POST /api/criteria", MetricsMiddleware(s.criteriaHandler.HandleCreate, "criteria"))
	mux.HandleFunc("DELETE /api/criteria/{id}", MetricsMiddleware(s.criteriaHandler.HandleDelete, "criteria"))

	mux.HandleFunc("GET /api/teams", MetricsMiddleware(s.teamsHandler.HandleList, "teams"))
	mux.HandleFunc("PUT /api/teams/{team}", MetricsMiddleware(s.teamsHandler.HandleUpsert, "teams"))

	mux.HandleFunc("GET /ws", MetricsMiddleware(s.wsHandler.HandleUpgrade, "ws"))
}

// Handler wraps next with CORS for the configured origins.
func (s *Server) Handler(next http.Handler) http.Handler {
	origins := s.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowedOrigins: origins,
		AllowedHeaders: []string{"Content-Type", HeaderIdentity, HeaderRole},
	})
	return c.Handler(next)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure picks the status from the error kind.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		// internal detail stays in the logs
		logger.Get().Error(context.Background(), "request failed", logger.Error(err))
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
