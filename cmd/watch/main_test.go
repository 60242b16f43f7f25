package main

import (
	"context"
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/livescore/internal/domain/types"
	"github.com/okian/livescore/internal/session"
	"github.com/okian/livescore/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func TestEventURL(t *testing.T) {
	Convey("Given service base URLs", t, func() {
		Convey("Then http maps to ws", func() {
			u, err := eventURL("http://localhost:9080/", "viewer-1", "public")
			So(err, ShouldBeNil)
			So(u, ShouldEqual, "ws://localhost:9080/ws?identity=viewer-1&role=public")
		})

		Convey("Then https maps to wss and keeps a path prefix", func() {
			u, err := eventURL("https://scores.example.com/live", "judge 1", "evaluator")
			So(err, ShouldBeNil)
			So(u, ShouldEqual, "wss://scores.example.com/live/ws?identity=judge+1&role=evaluator")
		})

		Convey("Then malformed URLs are rejected", func() {
			_, err := eventURL("http://[::1", "x", "public")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestViewerOnEvent(t *testing.T) {
	Convey("Given a viewer counting refreshes and shown boards", t, func() {
		var refreshes int
		var shown [][]types.Entry
		v := &viewer{
			ctx:     context.Background(),
			log:     logger.Get(),
			refresh: func() { refreshes++ },
			show:    func(e []types.Entry) { shown = append(shown, e) },
		}
		event := func(kind types.EventType, payload any) session.Event {
			data, err := json.Marshal(payload)
			So(err, ShouldBeNil)
			return session.Event{ID: "ev-1", Type: string(kind), Data: data}
		}

		Convey("A score update triggers a refresh pull", func() {
			v.onEvent(event(types.EventScoreUpdate, types.ScoreUpdate{TeamID: "Alpha", EvaluatorID: "judge-1"}))
			So(refreshes, ShouldEqual, 1)
			So(shown, ShouldBeEmpty)
		})

		Convey("A leaderboard update is shown without a pull", func() {
			entries := []types.Entry{{Rank: 1, TeamID: "Alpha", TotalScore: 30, JudgeCount: 2}}
			v.onEvent(event(types.EventLeaderboardUpdate, types.LeaderboardUpdate{Entries: entries}))
			So(refreshes, ShouldEqual, 0)
			So(shown, ShouldResemble, [][]types.Entry{entries})
		})

		Convey("A malformed leaderboard payload falls back to a pull", func() {
			v.onEvent(session.Event{Type: string(types.EventLeaderboardUpdate), Data: json.RawMessage(`"oops"`)})
			So(refreshes, ShouldEqual, 1)
		})

		Convey("A clock update neither pulls nor shows", func() {
			v.onEvent(event(types.EventClockUpdate, types.ClockView{IsActive: true}))
			So(refreshes, ShouldEqual, 0)
			So(shown, ShouldBeEmpty)
		})
	})
}
