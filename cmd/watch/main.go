package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/okian/livescore/internal/domain/types"
	"github.com/okian/livescore/internal/session"
	"github.com/okian/livescore/internal/simulator"
	"github.com/okian/livescore/pkg/logger"
)

const (
	defaultTop     = 10
	requestTimeout = 5 * time.Second
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		identity = flag.String("identity", "", "Identity announced on the event channel (default: random public id)")
		role     = flag.String("role", string(types.RolePublic), "Role announced on the event channel")
		top      = flag.Int("top", defaultTop, "Number of leaderboard rows to print")
		format   = flag.String("log-format", "text", "Log format: text or json")
	)
	flag.Parse()

	if err := logger.InitWithWriter(os.Stdout, *format); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Named("watch")

	if *identity == "" {
		*identity = "public-" + uuid.NewString()
	}
	wsURL, err := eventURL(*baseURL, *identity, *role)
	if err != nil {
		log.Error(context.Background(), "invalid url", logger.String("url", *baseURL), logger.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := simulator.NewClient(*baseURL, requestTimeout, 0)
	refresh := func() {
		entries, err := client.Leaderboard(ctx)
		if err != nil {
			log.Warn(ctx, "leaderboard refresh failed", logger.Error(err))
			return
		}
		printBoard(ctx, log, entries, *top)
	}

	v := &viewer{
		ctx:     ctx,
		log:     log,
		refresh: refresh,
		show:    func(entries []types.Entry) { printBoard(ctx, log, entries, *top) },
	}

	sess := session.New(wsURL,
		session.WithLogger(log),
		session.OnTransition(func(tr session.Transition) {
			fields := []logger.Field{logger.String("state", string(tr.State)), logger.Int("attempt", tr.Attempt)}
			if tr.Delay > 0 {
				fields = append(fields, logger.Duration("retryIn", tr.Delay))
			}
			if tr.Err != nil {
				fields = append(fields, logger.Error(tr.Err))
			}
			log.Info(ctx, "connection", fields...)
			switch tr.State {
			case session.StateOpen:
				// events missed while disconnected are not replayed
				refresh()
			case session.StateOffline:
				log.Warn(ctx, "gave up reconnecting; send SIGHUP to retry")
			}
		}),
		session.OnEvent(v.onEvent),
	)
	if err := sess.Start(ctx); err != nil {
		log.Error(ctx, "failed to start session", logger.Error(err))
		os.Exit(1)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			_ = sess.Close()
			return
		case <-hup:
			sess.Reconnect()
		}
	}
}

// viewer reacts to pushed events. A score change re-pulls the board; a
// leaderboard push is shown as sent.
type viewer struct {
	ctx     context.Context
	log     logger.Logger
	refresh func()
	show    func([]types.Entry)
}

func (v *viewer) onEvent(ev session.Event) {
	switch types.EventType(ev.Type) {
	case types.EventLeaderboardUpdate:
		var lu types.LeaderboardUpdate
		if err := json.Unmarshal(ev.Data, &lu); err != nil {
			v.log.Warn(v.ctx, "bad leaderboard payload", logger.Error(err))
			v.refresh()
			return
		}
		v.show(lu.Entries)
	case types.EventScoreUpdate:
		var su types.ScoreUpdate
		if err := json.Unmarshal(ev.Data, &su); err == nil {
			v.log.Info(v.ctx, "score", logger.String("team", su.TeamID), logger.String("evaluator", su.EvaluatorID))
		}
		v.refresh()
	case types.EventClockUpdate:
		var view types.ClockView
		if err := json.Unmarshal(ev.Data, &view); err == nil {
			v.log.Info(v.ctx, "clock",
				logger.Bool("active", view.IsActive),
				logger.Float64("remainingSeconds", view.RemainingSeconds))
		}
	}
}

// eventURL turns an http(s) base URL into the websocket endpoint.
func eventURL(base, identity, role string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	q := url.Values{}
	q.Set("identity", identity)
	q.Set("role", role)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func printBoard(ctx context.Context, log logger.Logger, entries []types.Entry, top int) {
	if len(entries) > top {
		entries = entries[:top]
	}
	for _, e := range entries {
		log.Info(ctx, "rank",
			logger.Int("rank", e.Rank),
			logger.String("team", e.TeamID),
			logger.Int("total", e.TotalScore),
			logger.Int("judges", e.JudgeCount))
	}
}
