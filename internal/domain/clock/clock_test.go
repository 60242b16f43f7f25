package clock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/livescore/internal/domain/clock"
	"github.com/okian/livescore/internal/domain/model"
	"github.com/okian/livescore/internal/domain/types"
)

type recordingStore struct {
	mu    sync.Mutex
	saved []model.ClockState
	err   error
}

func (s *recordingStore) SaveClock(_ context.Context, st model.ClockState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, st)
	return nil
}

func TestController(t *testing.T) {
	ctx := context.Background()

	Convey("Given a stopped controller on a fake clock", t, func() {
		fake := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
		store := &recordingStore{}
		ctrl := clock.NewController(clock.WithClock(fake), clock.WithStore(store))

		Convey("Then it reports inactive with nothing remaining", func() {
			view := ctrl.State(ctx)
			So(view.IsActive, ShouldBeFalse)
			So(view.EndTime, ShouldBeNil)
			So(view.RemainingSeconds, ShouldEqual, 0)
		})

		Convey("When starting one hour ahead", func() {
			_, err := ctrl.Start(ctx, fake.Now().Add(3600*time.Second))
			So(err, ShouldBeNil)

			Convey("Then the immediate remaining time is within (3595, 3600]", func() {
				left := ctrl.RemainingSeconds(fake.Now())
				So(left, ShouldBeLessThanOrEqualTo, 3600)
				So(left, ShouldBeGreaterThan, 3595)
			})

			Convey("Then the state was persisted before it took effect", func() {
				So(store.saved, ShouldHaveLength, 1)
				So(store.saved[0].IsActive, ShouldBeTrue)
			})

			Convey("Then remaining time never increases and clamps at zero", func() {
				prev := ctrl.RemainingSeconds(fake.Now())
				for i := 0; i < 10; i++ {
					fake.Advance(7 * time.Minute)
					cur := ctrl.RemainingSeconds(fake.Now())
					So(cur, ShouldBeLessThanOrEqualTo, prev)
					So(cur, ShouldBeGreaterThanOrEqualTo, 0)
					prev = cur
				}
				So(prev, ShouldEqual, 0)
			})

			Convey("And stopping it", func() {
				end := fake.Now().Add(3600 * time.Second)
				view, err := ctrl.Stop(ctx)

				Convey("Then it is inactive but keeps the end time", func() {
					So(err, ShouldBeNil)
					So(view.IsActive, ShouldBeFalse)
					So(view.EndTime, ShouldNotBeNil)
					So(view.EndTime.Equal(end), ShouldBeTrue)
					So(view.RemainingSeconds, ShouldEqual, 0)
					So(ctrl.State(ctx).EndTime.Equal(end), ShouldBeTrue)
				})
			})

			Convey("And starting again while active", func() {
				view, err := ctrl.Start(ctx, fake.Now().Add(10*time.Minute))

				Convey("Then the end time is replaced without error", func() {
					So(err, ShouldBeNil)
					So(view.RemainingSeconds, ShouldEqual, 600)
				})
			})
		})

		Convey("When starting with an end time that is not in the future", func() {
			_, errNow := ctrl.Start(ctx, fake.Now())
			_, errPast := ctrl.Start(ctx, fake.Now().Add(-time.Second))

			Convey("Then both fail and nothing changes", func() {
				So(errors.Is(errNow, clock.ErrPastEndTime), ShouldBeTrue)
				So(errors.Is(errPast, clock.ErrPastEndTime), ShouldBeTrue)
				So(ctrl.State(ctx).IsActive, ShouldBeFalse)
				So(store.saved, ShouldBeEmpty)
			})
		})

		Convey("When the store fails", func() {
			store.err = errors.New("disk full")
			_, err := ctrl.Start(ctx, fake.Now().Add(time.Hour))

			Convey("Then the start is rejected and not applied", func() {
				So(errors.Is(err, clock.ErrPersist), ShouldBeTrue)
				So(ctrl.State(ctx).IsActive, ShouldBeFalse)
			})
		})

		Convey("When restoring a persisted active state", func() {
			end := fake.Now().Add(90 * time.Second)
			ctrl.Restore(model.ClockState{EndTime: end, IsActive: true})

			Convey("Then it counts down without writing back", func() {
				So(ctrl.RemainingSeconds(fake.Now()), ShouldEqual, 90)
				So(store.saved, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a controller with an expiry hook", t, func() {
		fake := clockwork.NewFakeClock()
		expired := make(chan types.ClockView, 1)
		ctrl := clock.NewController(clock.WithClock(fake), clock.WithExpiryHook(func(v types.ClockView) {
			expired <- v
		}))
		defer ctrl.Close()

		Convey("When the countdown reaches zero", func() {
			_, err := ctrl.Start(ctx, fake.Now().Add(time.Minute))
			So(err, ShouldBeNil)
			fake.Advance(time.Minute)

			Convey("Then the hook sees an active clock with nothing left", func() {
				select {
				case v := <-expired:
					So(v.IsActive, ShouldBeTrue)
					So(v.RemainingSeconds, ShouldEqual, 0)
				case <-time.After(2 * time.Second):
					So("expiry hook not called", ShouldBeEmpty)
				}
			})
		})

		Convey("When the countdown is stopped before zero", func() {
			_, err := ctrl.Start(ctx, fake.Now().Add(time.Minute))
			So(err, ShouldBeNil)
			_, err = ctrl.Stop(ctx)
			So(err, ShouldBeNil)
			fake.Advance(2 * time.Minute)

			Convey("Then the hook does not fire", func() {
				select {
				case <-expired:
					So("hook fired after stop", ShouldBeEmpty)
				case <-time.After(50 * time.Millisecond):
				}
			})
		})
	})
}
