package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/livescore/internal/adapters/hub"
	"github.com/okian/livescore/internal/adapters/repository"
	service "github.com/okian/livescore/internal/app"
	"github.com/okian/livescore/internal/domain/clock"
	"github.com/okian/livescore/internal/domain/leaderboard"
	"github.com/okian/livescore/internal/domain/model"
	"github.com/okian/livescore/internal/domain/scoring"
	"github.com/okian/livescore/internal/domain/types"
	"github.com/okian/livescore/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var errClosed = errors.New("closed")

// recorder is a hub transport that hands every written envelope to a channel.
type recorder struct {
	frames    chan hub.Envelope
	closed    chan struct{}
	closeOnce sync.Once
}

func newRecorder() *recorder {
	return &recorder{frames: make(chan hub.Envelope, 64), closed: make(chan struct{})}
}

func (r *recorder) WriteMessage(_ int, data []byte) error {
	var env hub.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		// ping frames carry no payload
		return nil
	}
	select {
	case r.frames <- env:
	case <-r.closed:
		return errClosed
	}
	return nil
}

func (r *recorder) ReadMessage() (int, []byte, error) {
	<-r.closed
	return 0, nil, errClosed
}

func (r *recorder) SetWriteDeadline(time.Time) error   { return nil }
func (r *recorder) SetReadDeadline(time.Time) error    { return nil }
func (r *recorder) SetReadLimit(int64)                 {}
func (r *recorder) SetPongHandler(func(string) error) {}

func (r *recorder) Close() error {
	r.closeOnce.Do(func() { close(r.closed) })
	return nil
}

func (r *recorder) next(t *testing.T) hub.Envelope {
	t.Helper()
	select {
	case env := <-r.frames:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no event pushed")
		return hub.Envelope{}
	}
}

func defaultCriteria() []model.Criterion {
	return []model.Criterion{
		{Name: "innovation", MaxScore: 10},
		{Name: "execution", MaxScore: 10},
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
		)

		Convey("Then the options are reflected in its stats", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 50_000)
			So(stats["dedupeSize"], ShouldEqual, 25_000)
		})

		Convey("And invalid sizes keep the defaults", func() {
			other := service.New(service.WithQueueSize(-1), service.WithWorkerCount(0))
			So(other.GetStats()["queueSize"], ShouldEqual, 10_000)
			So(other.GetStats()["workerCount"], ShouldBeGreaterThan, 0)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := service.New(service.WithWorkerCount(2), service.WithCriteria(defaultCriteria()))
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Then it reports as running with seeded criteria", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["criteria"], ShouldEqual, 2)
			So(stats["connections"], ShouldEqual, 0)
			So(svc.Start(ctx), ShouldBeNil)
		})

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it is marked as stopped and a second stop is harmless", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				svc.Stop()
			})
		})

		Reset(func() { svc.Stop() })
	})
}

func TestService_Scoring(t *testing.T) {
	Convey("Given a started service with two criteria", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2), service.WithCriteria(defaultCriteria()))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { svc.Stop() })

		Convey("When two evaluators score two teams", func() {
			_, err := svc.SubmitScore(ctx, "judge-1", "Alpha", map[string]int{"innovation": 8, "execution": 7})
			So(err, ShouldBeNil)
			_, err = svc.SubmitScore(ctx, "judge-2", "Alpha", map[string]int{"innovation": 6})
			So(err, ShouldBeNil)
			_, err = svc.SubmitScore(ctx, "judge-1", "Beta", map[string]int{"innovation": 10, "execution": 10})
			So(err, ShouldBeNil)

			Convey("Then the leaderboard ranks by total", func() {
				board := svc.Leaderboard(ctx)
				So(board, ShouldResemble, []types.Entry{
					{Rank: 1, TeamID: "Alpha", TotalScore: 21, JudgeCount: 2},
					{Rank: 2, TeamID: "Beta", TotalScore: 20, JudgeCount: 1},
				})
				So(svc.TopN(ctx, 1), ShouldHaveLength, 1)

				entry, err := svc.Rank(ctx, "Beta")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 2)

				b, err := svc.Breakdown(ctx, "Alpha")
				So(err, ShouldBeNil)
				So(b.TotalScore, ShouldEqual, 21)
				So(b.Entries, ShouldHaveLength, 2)
				So(b.Entries[0].EvaluatorID, ShouldEqual, "judge-1")
			})

			Convey("And a resubmission replaces the evaluator's entry", func() {
				_, err := svc.SubmitScore(ctx, "judge-2", "Alpha", map[string]int{"innovation": 1})
				So(err, ShouldBeNil)
				entry, err := svc.Rank(ctx, "Alpha")
				So(err, ShouldBeNil)
				So(entry.TotalScore, ShouldEqual, 16)
				So(entry.JudgeCount, ShouldEqual, 2)
				So(entry.Rank, ShouldEqual, 2)
			})
		})

		Convey("When a submission is invalid", func() {
			_, err := svc.SubmitScore(ctx, "judge-1", "Alpha", map[string]int{"innovation": 11})
			So(errors.Is(err, scoring.ErrOutOfRange), ShouldBeTrue)
			_, err = svc.SubmitScore(ctx, "judge-1", "Alpha", map[string]int{"design": 3})
			So(errors.Is(err, scoring.ErrInvalidCriterion), ShouldBeTrue)
			_, err = svc.SubmitScore(ctx, "", "Alpha", map[string]int{"innovation": 3})
			So(errors.Is(err, repository.ErrEmptyIdentity), ShouldBeTrue)

			Convey("Then nothing is stored", func() {
				So(svc.Leaderboard(ctx), ShouldBeEmpty)
				_, err := svc.Rank(ctx, "Alpha")
				So(errors.Is(err, leaderboard.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_PushesChanges(t *testing.T) {
	Convey("Given a started service with a connected viewer", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(4), service.WithCriteria(defaultCriteria()))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { svc.Stop() })

		viewer := newRecorder()
		_, err := svc.Connect("public-1", types.RolePublic, viewer)
		So(err, ShouldBeNil)
		So(svc.GetStats()["connections"], ShouldEqual, 1)

		Convey("When a score is submitted", func() {
			_, err := svc.SubmitScore(ctx, "judge-1", "Alpha", map[string]int{"innovation": 9})
			So(err, ShouldBeNil)

			Convey("Then a score_update is followed by the new leaderboard", func() {
				first := viewer.next(t)
				So(first.Type, ShouldEqual, types.EventScoreUpdate)
				var su types.ScoreUpdate
				So(json.Unmarshal(first.Data, &su), ShouldBeNil)
				So(su, ShouldResemble, types.ScoreUpdate{TeamID: "Alpha", EvaluatorID: "judge-1"})

				second := viewer.next(t)
				So(second.Type, ShouldEqual, types.EventLeaderboardUpdate)
				var lu types.LeaderboardUpdate
				So(json.Unmarshal(second.Data, &lu), ShouldBeNil)
				So(lu.Entries, ShouldHaveLength, 1)
				So(lu.Entries[0].TotalScore, ShouldEqual, 9)
				So(first.ID, ShouldNotEqual, second.ID)
			})
		})

		Convey("When many scores are submitted concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, _ = svc.SubmitScore(ctx, "judge-"+string(rune('a'+i)), "Alpha", map[string]int{"innovation": 1})
				}(i)
			}
			wg.Wait()

			Convey("Then the last leaderboard pushed reflects every submission", func() {
				var last types.LeaderboardUpdate
				for i := 0; i < 20; i++ {
					env := viewer.next(t)
					if env.Type == types.EventLeaderboardUpdate {
						So(json.Unmarshal(env.Data, &last), ShouldBeNil)
					}
				}
				So(last.Entries, ShouldHaveLength, 1)
				So(last.Entries[0].JudgeCount, ShouldEqual, 10)
				So(last.Entries[0].TotalScore, ShouldEqual, 10)
			})
		})

		Convey("When the countdown is started and stopped", func() {
			end := time.Now().Add(time.Hour)
			view, err := svc.StartClock(ctx, end)
			So(err, ShouldBeNil)
			So(view.IsActive, ShouldBeTrue)

			started := viewer.next(t)
			So(started.Type, ShouldEqual, types.EventClockUpdate)
			var cv types.ClockView
			So(json.Unmarshal(started.Data, &cv), ShouldBeNil)
			So(cv.IsActive, ShouldBeTrue)
			So(cv.RemainingSeconds, ShouldBeGreaterThan, 3500)

			view, err = svc.StopClock(ctx)
			So(err, ShouldBeNil)
			So(view.IsActive, ShouldBeFalse)

			stopped := viewer.next(t)
			So(stopped.Type, ShouldEqual, types.EventClockUpdate)
			So(json.Unmarshal(stopped.Data, &cv), ShouldBeNil)
			So(cv.IsActive, ShouldBeFalse)
			So(svc.ClockState(ctx).IsActive, ShouldBeFalse)
		})

		Convey("When the countdown is started in the past", func() {
			_, err := svc.StartClock(ctx, time.Now().Add(-time.Minute))
			So(errors.Is(err, clock.ErrPastEndTime), ShouldBeTrue)
		})
	})
}

func TestService_ClockExpiry(t *testing.T) {
	Convey("Given a running countdown on a fake clock", t, func() {
		ctx := context.Background()
		fc := clockwork.NewFakeClock()
		svc := service.New(service.WithClock(fc))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { svc.Stop() })

		viewer := newRecorder()
		_, err := svc.Connect("public-1", types.RolePublic, viewer)
		So(err, ShouldBeNil)
		_, err = svc.StartClock(ctx, fc.Now().Add(time.Minute))
		So(err, ShouldBeNil)
		So(viewer.next(t).Type, ShouldEqual, types.EventClockUpdate)

		Convey("When the end time passes", func() {
			fc.Advance(time.Minute)

			Convey("Then viewers are told the countdown reached zero", func() {
				env := viewer.next(t)
				So(env.Type, ShouldEqual, types.EventClockUpdate)
				var cv types.ClockView
				So(json.Unmarshal(env.Data, &cv), ShouldBeNil)
				So(cv.RemainingSeconds, ShouldEqual, 0)
				So(svc.ClockState(ctx).RemainingSeconds, ShouldEqual, 0)
			})
		})
	})
}

func TestService_CatalogAndTeams(t *testing.T) {
	Convey("Given a started service with seeded teams", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithCriteria(defaultCriteria()),
			service.WithTeams([]string{"Alpha", "Beta"}),
			service.WithRequireKnownTeam(true),
		)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { svc.Stop() })

		Convey("Criteria can be created and deleted", func() {
			c, err := svc.CreateCriterion(ctx, "design", 5)
			So(err, ShouldBeNil)
			So(svc.ListCriteria(ctx), ShouldHaveLength, 3)

			_, err = svc.CreateCriterion(ctx, "design", 5)
			So(errors.Is(err, scoring.ErrDuplicateCriterion), ShouldBeTrue)

			_, err = svc.SubmitScore(ctx, "judge-1", "Alpha", map[string]int{"design": 4})
			So(err, ShouldBeNil)

			removed, err := svc.DeleteCriterion(ctx, c.ID)
			So(err, ShouldBeNil)
			So(removed.Name, ShouldEqual, "design")
			So(svc.ListCriteria(ctx), ShouldHaveLength, 2)

			Convey("And existing entries keep their scores", func() {
				entry, err := svc.Rank(ctx, "Alpha")
				So(err, ShouldBeNil)
				So(entry.TotalScore, ShouldEqual, 4)
			})
		})

		Convey("Teams are listed and can be updated", func() {
			So(svc.ListTeams(ctx), ShouldHaveLength, 2)
			team, err := svc.UpsertTeam(ctx, model.Team{Name: "Alpha", ProjectName: "Rocket"})
			So(err, ShouldBeNil)
			So(team.ProjectName, ShouldEqual, "Rocket")

			got, err := svc.GetTeam(ctx, "Alpha")
			So(err, ShouldBeNil)
			So(got.ProjectName, ShouldEqual, "Rocket")

			_, err = svc.GetTeam(ctx, "Gamma")
			So(errors.Is(err, repository.ErrTeamNotFound), ShouldBeTrue)
		})

		Convey("Submissions for unknown teams are rejected", func() {
			_, err := svc.SubmitScore(ctx, "judge-1", "Gamma", map[string]int{"innovation": 4})
			So(errors.Is(err, repository.ErrUnknownTeam), ShouldBeTrue)
		})
	})
}
