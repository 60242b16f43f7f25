// Package service wires the score store, aggregation engine, countdown, hub
// and relay together and implements the dependencies of the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okian/livescore/internal/adapters/hub"
	"github.com/okian/livescore/internal/adapters/kv"
	eventqueue "github.com/okian/livescore/internal/adapters/mq/queue"
	workerpool "github.com/okian/livescore/internal/adapters/mq/worker"
	"github.com/okian/livescore/internal/adapters/relay"
	repository "github.com/okian/livescore/internal/adapters/repository"
	"github.com/okian/livescore/internal/domain/clock"
	"github.com/okian/livescore/internal/domain/dedupe"
	"github.com/okian/livescore/internal/domain/leaderboard"
	"github.com/okian/livescore/internal/domain/model"
	"github.com/okian/livescore/internal/domain/scoring"
	"github.com/okian/livescore/internal/domain/types"
	"github.com/okian/livescore/pkg/logger"
	"github.com/okian/livescore/pkg/metrics"
)

const drainTimeout = 10 * time.Second

// Service owns every stateful component. Nothing here is global: tests and
// binaries each build their own instance.
type Service struct {
	mu sync.RWMutex

	// Core components, built by Start.
	kv       kv.Store
	criteria *repository.CriteriaStore
	teams    *repository.TeamStore
	scores   *repository.ScoreStore
	engine   *leaderboard.Engine
	clocks   *repository.ClockStore
	clock    clockwork.Clock
	ctrl     *clock.Controller
	hub      *hub.Hub
	queue    *eventqueue.InMemoryQueue
	pool     *workerpool.Pool
	relay    *relay.Relay

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	databaseURL      string
	natsURL          string
	natsSubject      string
	relayBus         relay.Bus
	criteriaSeed     []model.Criterion
	teamSeed         []string
	requireKnownTeam bool
	hubOpts          []hub.Option

	// notifyMu keeps pushed leaderboards in the order they were computed.
	notifyMu sync.Mutex

	ownsKV  bool
	started bool
	logger  logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		dedupeSize:  100_000,
		clock:       clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start hydrates state from the key/value store, seeds defaults and starts
// the change pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting live scoring service...")

	if err := s.openKV(ctx); err != nil {
		return err
	}
	if err := s.buildStores(ctx); err != nil {
		s.closeKV()
		return err
	}

	s.hub = hub.New(s.hubOpts...)
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, workerpool.HandlerFunc(s.Handle))
	s.pool.Start(ctx)

	if err := s.startRelay(ctx); err != nil {
		s.logger.Warn(ctx, "relay disabled", logger.Error(err))
	}

	s.started = true
	s.logger.Info(ctx, "live scoring service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("scoreEntries", s.scores.Count(ctx)),
		logger.Int("criteria", len(s.criteria.List(ctx))),
		logger.Bool("relay", s.relay != nil),
	)
	return nil
}

func (s *Service) openKV(ctx context.Context) error {
	if s.kv != nil {
		return nil
	}
	if s.databaseURL == "" {
		s.kv = kv.NewMemory()
		s.logger.Info(ctx, "using in-memory key/value store")
		return nil
	}
	pg, err := kv.NewPostgres(ctx, s.databaseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStart, err)
	}
	s.kv = pg
	s.ownsKV = true
	s.logger.Info(ctx, "using postgres key/value store")
	return nil
}

func (s *Service) closeKV() {
	if s.ownsKV && s.kv != nil {
		s.kv.Close()
	}
}

func (s *Service) buildStores(ctx context.Context) error {
	catalog := scoring.NewCatalog()
	s.criteria = repository.NewCriteriaStore(catalog, s.kv)
	if _, err := s.criteria.Hydrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStart, err)
	}
	if err := s.criteria.Seed(ctx, s.criteriaSeed); err != nil {
		return fmt.Errorf("%w: %w", ErrStart, err)
	}

	s.teams = repository.NewTeamStore(s.kv)
	if _, err := s.teams.Hydrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStart, err)
	}
	if err := s.teams.Seed(ctx, s.teamSeed); err != nil {
		return fmt.Errorf("%w: %w", ErrStart, err)
	}

	scoreOpts := []repository.Option{repository.WithDurable(s.kv), repository.WithClock(s.clock)}
	if s.requireKnownTeam {
		scoreOpts = append(scoreOpts, repository.WithTeamChecker(s.teams))
	}
	s.scores = repository.NewScoreStore(ctx, catalog, scoreOpts...)
	n, err := s.scores.Hydrate(ctx)
	if err != nil {
		_ = s.scores.Close()
		return fmt.Errorf("%w: %w", ErrStart, err)
	}
	s.engine = leaderboard.NewEngine(s.scores)

	s.clocks = repository.NewClockStore(s.kv)
	s.ctrl = clock.NewController(
		clock.WithClock(s.clock),
		clock.WithStore(s.clocks),
		clock.WithExpiryHook(s.onClockExpired),
	)
	state, found, err := s.clocks.LoadClock(ctx)
	if err != nil {
		_ = s.scores.Close()
		return fmt.Errorf("%w: %w", ErrStart, err)
	}
	if found {
		s.ctrl.Restore(state)
	}

	s.logger.Info(ctx, "state hydrated", logger.Int("scoreEntries", n), logger.Bool("clockRestored", found))
	return nil
}

func (s *Service) startRelay(ctx context.Context) error {
	bus := s.relayBus
	if bus == nil && s.natsURL != "" {
		dialed, err := relay.DialNATS(s.natsURL)
		if err != nil {
			return err
		}
		bus = dialed
	}
	if bus == nil {
		return nil
	}
	r := relay.New(bus,
		relay.WithSubject(s.natsSubject),
		relay.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))),
	)
	if err := r.Subscribe(ctx, s.applyRemote); err != nil {
		_ = r.Close()
		return err
	}
	s.relay = r
	return nil
}

// Stop drains pending notifications and releases every component.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping live scoring service...")

	drainCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	if err := s.pool.Shutdown(drainCtx); err != nil {
		s.logger.Warn(ctx, "change queue not fully drained", logger.Error(err))
	}
	cancel()

	if s.relay != nil {
		if err := s.relay.Close(); err != nil {
			s.logger.Warn(ctx, "relay close failed", logger.Error(err))
		}
	}
	s.hub.Close()
	s.ctrl.Close()
	_ = s.scores.Close()
	s.closeKV()

	s.started = false
	s.logger.Info(ctx, "live scoring service stopped")
}

// SubmitScore validates and stores one evaluator's scores for a team, then
// schedules the leaderboard push. A failed push never fails the submission.
func (s *Service) SubmitScore(ctx context.Context, evaluatorID, teamID string, scores map[string]int) (model.ScoreEntry, error) {
	entry, err := s.scores.Submit(ctx, evaluatorID, teamID, scores)
	if err != nil {
		return model.ScoreEntry{}, err
	}
	s.notify(ctx, model.ChangeEvent{Kind: model.ChangeScore, TeamID: teamID, EvaluatorID: evaluatorID})
	return entry, nil
}

// Leaderboard returns the full ordered leaderboard.
func (s *Service) Leaderboard(ctx context.Context) []types.Entry {
	return s.engine.Leaderboard(ctx)
}

// TopN returns at most n leading entries.
func (s *Service) TopN(ctx context.Context, n int) []types.Entry {
	return s.engine.TopN(ctx, n)
}

// Rank returns one team's leaderboard entry.
func (s *Service) Rank(ctx context.Context, teamID string) (types.Entry, error) {
	return s.engine.Rank(ctx, teamID)
}

// Breakdown returns the per-evaluator detail behind a team's total.
func (s *Service) Breakdown(ctx context.Context, teamID string) (leaderboard.Breakdown, error) {
	return s.engine.Breakdown(ctx, teamID)
}

// ClockState returns the current countdown.
func (s *Service) ClockState(ctx context.Context) types.ClockView {
	return s.ctrl.State(ctx)
}

// StartClock starts (or restarts) the countdown to endTime.
func (s *Service) StartClock(ctx context.Context, endTime time.Time) (types.ClockView, error) {
	view, err := s.ctrl.Start(ctx, endTime)
	if err != nil {
		return types.ClockView{}, err
	}
	s.notify(ctx, model.ChangeEvent{Kind: model.ChangeClock})
	return view, nil
}

// StopClock stops the countdown, keeping its end time.
func (s *Service) StopClock(ctx context.Context) (types.ClockView, error) {
	view, err := s.ctrl.Stop(ctx)
	if err != nil {
		return types.ClockView{}, err
	}
	s.notify(ctx, model.ChangeEvent{Kind: model.ChangeClock})
	return view, nil
}

func (s *Service) onClockExpired(_ types.ClockView) {
	s.notify(context.Background(), model.ChangeEvent{Kind: model.ChangeClock})
}

// ListCriteria returns every criterion ordered by name.
func (s *Service) ListCriteria(ctx context.Context) []model.Criterion {
	return s.criteria.List(ctx)
}

// CreateCriterion adds a criterion.
func (s *Service) CreateCriterion(ctx context.Context, name string, maxScore int) (model.Criterion, error) {
	return s.criteria.Create(ctx, name, maxScore)
}

// DeleteCriterion removes a criterion. Stored scores are left as submitted.
func (s *Service) DeleteCriterion(ctx context.Context, id string) (model.Criterion, error) {
	return s.criteria.Delete(ctx, id)
}

// ListTeams returns every team profile ordered by name.
func (s *Service) ListTeams(ctx context.Context) []model.Team {
	return s.teams.List(ctx)
}

// UpsertTeam creates or replaces a team profile.
func (s *Service) UpsertTeam(ctx context.Context, team model.Team) (model.Team, error) {
	return s.teams.Upsert(ctx, team)
}

// GetTeam returns one team profile.
func (s *Service) GetTeam(ctx context.Context, name string) (model.Team, error) {
	return s.teams.Get(ctx, name)
}

// Connect registers a live connection with the hub.
func (s *Service) Connect(identity string, role types.Role, transport hub.Transport) (*hub.Connection, error) {
	return s.hub.Register(identity, role, transport)
}

// Hub exposes the connection hub.
func (s *Service) Hub() *hub.Hub {
	return s.hub
}

// notify enqueues a change for the workers. A full queue drops the push;
// clients catch up on the next change or their next pull.
func (s *Service) notify(ctx context.Context, e model.ChangeEvent) {
	e.EventID = uuid.NewString()
	e.TS = s.clock.Now().UTC()
	if !s.queue.Enqueue(context.WithoutCancel(ctx), e) {
		s.logger.Warn(ctx, "change queue full, dropping notification",
			logger.String("kind", string(e.Kind)),
			logger.String("team", e.TeamID),
		)
	}
}

// Handle turns one change into pushed events and forwards each to the relay.
// It runs on the worker pool.
func (s *Service) Handle(ctx context.Context, e model.ChangeEvent) error {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	switch e.Kind {
	case model.ChangeScore:
		if err := s.publish(ctx, e, types.EventScoreUpdate, types.ScoreUpdate{TeamID: e.TeamID, EvaluatorID: e.EvaluatorID}); err != nil {
			return err
		}
		board := s.engine.Leaderboard(ctx)
		metrics.RecordLeaderboardUpdate()
		return s.publish(ctx, e, types.EventLeaderboardUpdate, types.LeaderboardUpdate{Entries: board})
	case model.ChangeClock:
		return s.publish(ctx, e, types.EventClockUpdate, s.ctrl.State(ctx))
	default:
		return fmt.Errorf("unknown change kind %q", e.Kind)
	}
}

func (s *Service) publish(ctx context.Context, e model.ChangeEvent, eventType types.EventType, payload any) error {
	env, err := s.hub.Publish(eventType, payload, hub.AudienceAll)
	if err != nil {
		return err
	}
	if s.relay == nil {
		return nil
	}
	// Each envelope travels as its own relay message with its own id.
	change := e
	change.EventID = env.ID
	if err := s.relay.Forward(ctx, change, env); err != nil {
		s.logger.Warn(ctx, "relay forward failed",
			logger.String("type", string(eventType)),
			logger.Error(err),
		)
	}
	return nil
}

// applyRemote reloads the state a peer replica changed and re-delivers its
// envelope to local connections.
func (s *Service) applyRemote(ctx context.Context, msg relay.Message) {
	switch msg.Change.Kind {
	case model.ChangeScore:
		if msg.Change.TeamID != "" && msg.Change.EvaluatorID != "" {
			if err := s.scores.Refresh(ctx, msg.Change.EvaluatorID, msg.Change.TeamID); err != nil {
				s.logger.Warn(ctx, "refresh after remote score failed",
					logger.String("team", msg.Change.TeamID),
					logger.Error(err),
				)
			}
		}
	case model.ChangeClock:
		state, found, err := s.clocks.LoadClock(ctx)
		if err != nil {
			s.logger.Warn(ctx, "reload after remote clock change failed", logger.Error(err))
		} else if found {
			s.ctrl.Restore(state)
		}
	}
	if _, err := s.hub.Deliver(msg.Envelope, hub.AudienceAll); err != nil {
		s.logger.Debug(ctx, "remote event not delivered", logger.Error(err))
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len(ctx)
	entries := s.scores.Count(ctx)
	hubStats := s.hub.Stats()
	view := s.ctrl.State(ctx)

	stats["queueLength"] = queueLen
	stats["scoreEntries"] = entries
	stats["criteria"] = len(s.criteria.List(ctx))
	stats["teams"] = len(s.teams.List(ctx))
	stats["connections"] = hubStats.Connections
	stats["connectionsByRole"] = hubStats.ByRole
	stats["clockActive"] = view.IsActive
	stats["clockRemainingSeconds"] = view.RemainingSeconds
	if s.relay != nil {
		stats["relayOrigin"] = s.relay.Origin()
	}

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateScoreEntries(entries)
	metrics.UpdateHubConnections(hubStats.Connections)
	return stats
}
