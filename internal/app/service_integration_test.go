package service_test

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/livescore/internal/adapters/kv"
	service "github.com/okian/livescore/internal/app"
	"github.com/okian/livescore/internal/domain/types"
)

// memBus delivers every published message to all subscribers of the subject.
type memBus struct {
	mu   sync.Mutex
	subs map[string][]func([]byte)
}

func newMemBus() *memBus {
	return &memBus{subs: make(map[string][]func([]byte))}
}

func (b *memBus) Publish(subject string, data []byte) error {
	b.mu.Lock()
	fns := slices.Clone(b.subs[subject])
	b.mu.Unlock()
	for _, fn := range fns {
		fn(data)
	}
	return nil
}

func (b *memBus) Subscribe(subject string, fn func([]byte)) (func() error, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[subject] = append(b.subs[subject], fn)
	return func() error { return nil }, nil
}

func (b *memBus) Close() error { return nil }

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestServiceIntegration_Replicas(t *testing.T) {
	Convey("Given two replicas sharing a store and a relay bus", t, func() {
		ctx := context.Background()
		store := kv.NewMemory()
		bus := newMemBus()

		a := service.New(service.WithKV(store), service.WithRelayBus(bus), service.WithCriteria(defaultCriteria()))
		b := service.New(service.WithKV(store), service.WithRelayBus(bus), service.WithCriteria(defaultCriteria()))
		So(a.Start(ctx), ShouldBeNil)
		So(b.Start(ctx), ShouldBeNil)
		Reset(func() {
			a.Stop()
			b.Stop()
		})

		So(a.ListCriteria(ctx), ShouldHaveLength, 2)
		So(b.ListCriteria(ctx), ShouldHaveLength, 2)
		So(a.GetStats()["relayOrigin"], ShouldNotEqual, b.GetStats()["relayOrigin"])

		viewer := newRecorder()
		_, err := b.Connect("public-1", types.RolePublic, viewer)
		So(err, ShouldBeNil)

		Convey("When a score is submitted on the first replica", func() {
			_, err := a.SubmitScore(ctx, "judge-1", "Alpha", map[string]int{"innovation": 7})
			So(err, ShouldBeNil)

			Convey("Then the second replica pushes both events to its viewers", func() {
				first := viewer.next(t)
				So(first.Type, ShouldEqual, types.EventScoreUpdate)
				second := viewer.next(t)
				So(second.Type, ShouldEqual, types.EventLeaderboardUpdate)

				var lu types.LeaderboardUpdate
				So(json.Unmarshal(second.Data, &lu), ShouldBeNil)
				So(lu.Entries, ShouldHaveLength, 1)
				So(lu.Entries[0].TotalScore, ShouldEqual, 7)
			})

			Convey("And the second replica serves the new score from its own reads", func() {
				ok := waitFor(func() bool {
					entry, err := b.Rank(ctx, "Alpha")
					return err == nil && entry.TotalScore == 7
				})
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When the countdown is started on the second replica", func() {
			end := time.Now().Add(30 * time.Minute)
			_, err := b.StartClock(ctx, end)
			So(err, ShouldBeNil)

			Convey("Then the first replica reports the same countdown", func() {
				ok := waitFor(func() bool {
					view := a.ClockState(ctx)
					return view.IsActive && view.EndTime != nil && view.EndTime.Equal(end.UTC())
				})
				So(ok, ShouldBeTrue)
			})
		})
	})
}

func TestServiceIntegration_Restart(t *testing.T) {
	Convey("Given a service that recorded scores and a countdown", t, func() {
		ctx := context.Background()
		store := kv.NewMemory()
		fc := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
		end := fc.Now().Add(2 * time.Hour)

		first := service.New(service.WithKV(store), service.WithClock(fc), service.WithCriteria(defaultCriteria()))
		So(first.Start(ctx), ShouldBeNil)
		_, err := first.SubmitScore(ctx, "judge-1", "Alpha", map[string]int{"innovation": 5, "execution": 4})
		So(err, ShouldBeNil)
		_, err = first.SubmitScore(ctx, "judge-2", "Beta", map[string]int{"execution": 9})
		So(err, ShouldBeNil)
		_, err = first.StartClock(ctx, end)
		So(err, ShouldBeNil)
		first.Stop()

		Convey("When a new service starts on the same store", func() {
			second := service.New(service.WithKV(store), service.WithClock(fc), service.WithCriteria(defaultCriteria()))
			So(second.Start(ctx), ShouldBeNil)
			Reset(func() { second.Stop() })

			Convey("Then scores, criteria and the countdown are restored", func() {
				So(second.ListCriteria(ctx), ShouldHaveLength, 2)
				So(second.Leaderboard(ctx), ShouldResemble, []types.Entry{
					{Rank: 1, TeamID: "Alpha", TotalScore: 9, JudgeCount: 1},
					{Rank: 2, TeamID: "Beta", TotalScore: 9, JudgeCount: 1},
				})

				view := second.ClockState(ctx)
				So(view.IsActive, ShouldBeTrue)
				So(view.RemainingSeconds, ShouldEqual, 7200)
			})
		})
	})
}

func TestServiceIntegration_DeletedCriterionSurvivesRestart(t *testing.T) {
	Convey("Given a service seeded with two criteria", t, func() {
		ctx := context.Background()
		store := kv.NewMemory()

		first := service.New(service.WithKV(store), service.WithCriteria(defaultCriteria()))
		So(first.Start(ctx), ShouldBeNil)

		var executionID string
		for _, c := range first.ListCriteria(ctx) {
			if c.Name == "execution" {
				executionID = c.ID
			}
		}
		So(executionID, ShouldNotBeEmpty)

		Convey("When the organizer deletes one and the service restarts", func() {
			_, err := first.DeleteCriterion(ctx, executionID)
			So(err, ShouldBeNil)
			first.Stop()

			second := service.New(service.WithKV(store), service.WithCriteria(defaultCriteria()))
			So(second.Start(ctx), ShouldBeNil)
			Reset(func() { second.Stop() })

			Convey("Then the deleted criterion stays deleted", func() {
				got := second.ListCriteria(ctx)
				So(got, ShouldHaveLength, 1)
				So(got[0].Name, ShouldEqual, "innovation")
			})
		})
	})
}
