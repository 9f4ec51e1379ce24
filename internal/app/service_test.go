package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/cadence/internal/adapters/identity"
	service "github.com/okian/cadence/internal/app"
	"github.com/okian/cadence/internal/domain/history"
	"github.com/okian/cadence/internal/domain/prediction"
	"github.com/okian/cadence/internal/domain/status"
	"github.com/okian/cadence/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func at(hh, mm, ss int) time.Time {
	return time.Date(2026, 10, 19, hh, mm, ss, 0, time.UTC)
}

func newTestService(clk *fakeClock, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithLogger(logger.Nop()),
		service.WithAuthenticator(identity.NewStatic(map[string]string{"ops@example.com": "hunter2"})),
		service.WithClock(clk.Now),
		service.WithLocation(time.UTC),
		service.WithTickInterval(time.Hour),
		service.WithIdleTimeout(10 * time.Minute),
	}
	return service.New(append(base, opts...)...)
}

func startedWithSession(clk *fakeClock, opts ...service.Option) (*service.Service, string) {
	svc := newTestService(clk, opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	sess, err := svc.Login(context.Background(), "ops@example.com", "hunter2")
	So(err, ShouldBeNil)
	return svc, sess.ID
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service without an authenticator", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))

		Convey("Then Start fails", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, service.ErrNoAuthenticator), ShouldBeTrue)
		})
	})

	Convey("Given a service that was not started", t, func() {
		svc := newTestService(&fakeClock{now: at(9, 0, 0)})

		Convey("Then operations report ErrNotStarted", func() {
			_, err := svc.Login(context.Background(), "ops@example.com", "hunter2")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("Then Stop is a no-op", func() {
			So(func() { svc.Stop() }, ShouldNotPanic)
		})
	})

	Convey("Given a started service", t, func() {
		svc := newTestService(&fakeClock{now: at(9, 0, 0)})
		So(svc.Start(context.Background()), ShouldBeNil)
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("Then Stop is idempotent", func() {
			svc.Stop()
			So(func() { svc.Stop() }, ShouldNotPanic)
		})
	})
}

func TestService_Sessions(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		clk := &fakeClock{now: at(9, 0, 0)}
		svc := newTestService(clk)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When signing in with the right password", func() {
			sess, err := svc.Login(ctx, "OPS@example.com", "hunter2")

			Convey("Then a session is opened", func() {
				So(err, ShouldBeNil)
				So(sess.ID, ShouldNotBeEmpty)
				So(sess.Email, ShouldEqual, "ops@example.com")
				got, err := svc.Authenticate(ctx, sess.ID)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, sess)
			})

			Convey("Then logout drops it", func() {
				So(svc.Logout(ctx, sess.ID), ShouldBeNil)
				_, err := svc.Authenticate(ctx, sess.ID)
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
				So(errors.Is(svc.Logout(ctx, sess.ID), service.ErrSessionNotFound), ShouldBeTrue)
			})
		})

		Convey("When signing in with a wrong password", func() {
			_, err := svc.Login(ctx, "ops@example.com", "nope")

			Convey("Then the identity error is returned", func() {
				So(errors.Is(err, identity.ErrInvalidCredentials), ShouldBeTrue)
			})
		})

		Convey("When using an unknown session", func() {
			_, err := svc.SubmitObservation(ctx, "nope", "09:00", "1", "")
			So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
			So(errors.Is(svc.ResetSession(ctx, "nope"), service.ErrSessionNotFound), ShouldBeTrue)
		})
	})
}

func TestService_SubmitObservation(t *testing.T) {
	Convey("Given a signed-in session", t, func() {
		ctx := context.Background()
		clk := &fakeClock{now: at(9, 15, 30)}
		svc, id := startedWithSession(clk)
		defer svc.Stop()

		Convey("When fewer than three observations exist", func() {
			res, err := svc.SubmitObservation(ctx, id, "09:05", "2", "")
			So(err, ShouldBeNil)
			So(res.Count, ShouldEqual, 1)
			So(res.Prediction.Set, ShouldBeFalse)
			So(res.Prediction.ClockTime, ShouldEqual, "--:--")

			Convey("Then the banner asks for more data", func() {
				view, err := svc.Snapshot(ctx, id, clk.Now())
				So(err, ShouldBeNil)
				So(view.Status.Set, ShouldBeFalse)
				So(view.Status.Status, ShouldBeNil)
				So(view.Status.Need, ShouldEqual, 2)
				So(view.Status.Presentation.Label, ShouldEqual, "INSUFFICIENT DATA: NEED 2")
			})
		})

		Convey("When three observations arrive out of order", func() {
			_, err := svc.SubmitObservation(ctx, id, "09:11", "7.25", "")
			So(err, ShouldBeNil)
			_, err = svc.SubmitObservation(ctx, id, "9:00", "1.5", "")
			So(err, ShouldBeNil)
			res, err := svc.SubmitObservation(ctx, id, "09:05", "2", "")
			So(err, ShouldBeNil)

			Convey("Then the prediction uses the sorted window", func() {
				So(res.Count, ShouldEqual, 3)
				So(res.Prediction.Set, ShouldBeTrue)
				So(res.Prediction.ClockTime, ShouldEqual, "09:18")
				So(res.Prediction.Confidence, ShouldEqual, 87.25)
				So(res.Prediction.Regime, ShouldEqual, prediction.RegimeMid)

				hist, err := svc.History(ctx, id)
				So(err, ShouldBeNil)
				So(hist[0].MinuteOfDay, ShouldEqual, 540)
				So(hist[2].MinuteOfDay, ShouldEqual, 551)
			})

			Convey("Then the snapshot shows the status and a newest-first console", func() {
				view, err := svc.Snapshot(ctx, id, clk.Now())
				So(err, ShouldBeNil)
				So(view.Now, ShouldEqual, "09:15")
				So(view.ServerClock, ShouldEqual, "09:15:30")
				So(view.Status.Set, ShouldBeTrue)
				So(*view.Status.Status, ShouldEqual, status.SpikeImminent)
				So(view.Status.Diff, ShouldEqual, 3)
				So(view.Console, ShouldHaveLength, 3)
				So(view.Console[0].Time, ShouldEqual, "09:11")
				So(view.Console[0].Display, ShouldEqual, "MULT: 7.25x")
				So(view.Console[0].Highlight, ShouldBeTrue)
				So(view.Console[2].Time, ShouldEqual, "09:00")
				So(view.Console[2].Highlight, ShouldBeFalse)
			})

			Convey("Then status follows the supplied minute", func() {
				for _, tc := range []struct {
					now  int
					want status.Status
				}{
					{9*60 + 10, status.Cold},
					{9*60 + 17, status.SpikeImminent},
					{9*60 + 18, status.Execute},
					{9*60 + 19, status.Execute},
					{9*60 + 20, status.Expired},
				} {
					v, err := svc.Status(ctx, id, tc.now)
					So(err, ShouldBeNil)
					So(*v.Status, ShouldEqual, tc.want)
				}
			})

			Convey("Then reset restores the neutral state", func() {
				So(svc.ResetSession(ctx, id), ShouldBeNil)
				p, err := svc.Prediction(ctx, id)
				So(err, ShouldBeNil)
				So(p, ShouldResemble, prediction.Unset())
				view, err := svc.Snapshot(ctx, id, clk.Now())
				So(err, ShouldBeNil)
				So(view.History, ShouldBeEmpty)
				So(view.Status.Presentation.Label, ShouldEqual, status.BannerScanning)
			})
		})

		Convey("When input is invalid", func() {
			_, err := svc.SubmitObservation(ctx, id, "09:00", "1", "")
			So(err, ShouldBeNil)

			cases := []struct {
				clock, value, field string
			}{
				{"24:00", "1", history.FieldTime},
				{"9:5", "1", history.FieldTime},
				{"09:01", "abc", history.FieldValue},
				{"09:01", "", history.FieldValue},
				{"09:01", "2.5x", history.FieldValue},
				{"09:01", "NaN", history.FieldValue},
				{"09:01", "-1", history.FieldValue},
				{"bad", "bad", history.FieldTime},
			}
			for _, tc := range cases {
				_, err := svc.SubmitObservation(ctx, id, tc.clock, tc.value, "")
				So(errors.Is(err, history.ErrValidation), ShouldBeTrue)
				var ve *history.ValidationError
				So(errors.As(err, &ve), ShouldBeTrue)
				So(ve.Field, ShouldEqual, tc.field)
			}

			Convey("Then nothing was appended", func() {
				hist, err := svc.History(ctx, id)
				So(err, ShouldBeNil)
				So(hist, ShouldHaveLength, 1)
			})
		})

		Convey("When a submission id is repeated", func() {
			first, err := svc.SubmitObservation(ctx, id, "09:00", "1", "sub-1")
			So(err, ShouldBeNil)
			again, err := svc.SubmitObservation(ctx, id, "09:00", "1", "sub-1")
			So(err, ShouldBeNil)

			Convey("Then the repeat is acknowledged without mutation", func() {
				So(first.Duplicate, ShouldBeFalse)
				So(again.Duplicate, ShouldBeTrue)
				So(again.Count, ShouldEqual, 1)
			})
		})

		Convey("When a rejected submission is retried with the same id", func() {
			_, err := svc.SubmitObservation(ctx, id, "99:00", "1", "sub-2")
			So(err, ShouldNotBeNil)
			res, err := svc.SubmitObservation(ctx, id, "09:00", "1", "sub-2")

			Convey("Then the corrected retry is accepted", func() {
				So(err, ShouldBeNil)
				So(res.Duplicate, ShouldBeFalse)
				So(res.Count, ShouldEqual, 1)
			})
		})
	})
}

func TestService_Tick(t *testing.T) {
	Convey("Given a session with a prediction", t, func() {
		ctx := context.Background()
		clk := &fakeClock{now: at(9, 15, 0)}
		svc, id := startedWithSession(clk)
		defer svc.Stop()

		for _, o := range [][2]string{{"09:00", "1.5"}, {"09:05", "2"}, {"09:11", "3"}} {
			_, err := svc.SubmitObservation(ctx, id, o[0], o[1], "")
			So(err, ShouldBeNil)
		}

		Convey("When ticking twice at the same minute", func() {
			first := svc.Tick(ctx, clk.Now())
			second := svc.Tick(ctx, clk.Now())

			Convey("Then only the first tick reports a transition", func() {
				So(first.Evaluated, ShouldEqual, 1)
				So(first.Transitions, ShouldEqual, 1)
				So(second.Transitions, ShouldEqual, 0)
			})
		})

		Convey("When the status moves on", func() {
			svc.Tick(ctx, clk.Now())
			res := svc.Tick(ctx, at(9, 18, 0))
			So(res.Transitions, ShouldEqual, 1)
		})

		Convey("When the session is idle past the timeout", func() {
			clk.Advance(11 * time.Minute)
			res := svc.Tick(ctx, clk.Now())

			Convey("Then it is evicted", func() {
				So(res.Evicted, ShouldEqual, 1)
				_, err := svc.Authenticate(ctx, id)
				So(errors.Is(err, service.ErrSessionNotFound), ShouldBeTrue)
			})
		})

		Convey("When the session was touched recently", func() {
			clk.Advance(9 * time.Minute)
			_, err := svc.Authenticate(ctx, id)
			So(err, ShouldBeNil)
			clk.Advance(9 * time.Minute)
			res := svc.Tick(ctx, clk.Now())

			Convey("Then it survives", func() {
				So(res.Evicted, ShouldEqual, 0)
			})
		})

		Convey("Then stats reflect the session", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["sessions"], ShouldEqual, 1)
			So(stats["observations"], ShouldEqual, 3)
			So(stats["sessionsWithPrediction"], ShouldEqual, 1)
			So(stats["confidenceMin"], ShouldEqual, 40.0)
			So(stats["confidenceMax"], ShouldEqual, 98.0)
			So(stats["volatilityFloor"], ShouldEqual, 10.0)
		})
	})
}

func TestService_ConcurrentSubmissions(t *testing.T) {
	Convey("Given one session hammered by concurrent submitters and a fast ticker", t, func() {
		ctx := context.Background()
		clk := &fakeClock{now: at(12, 0, 0)}
		svc, id := startedWithSession(clk, service.WithTickInterval(time.Millisecond))
		defer svc.Stop()

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 25; i++ {
					minute := (g*25 + i) % 60
					_, _ = svc.SubmitObservation(ctx, id, fmt.Sprintf("10:%02d", minute), "1.5", fmt.Sprintf("%d-%d", g, i))
				}
			}(g)
		}
		wg.Wait()

		Convey("Then every submission landed and history stayed sorted", func() {
			hist, err := svc.History(ctx, id)
			So(err, ShouldBeNil)
			So(hist, ShouldHaveLength, 200)
			for i := 1; i < len(hist); i++ {
				So(hist[i-1].MinuteOfDay, ShouldBeLessThanOrEqualTo, hist[i].MinuteOfDay)
			}
			p, err := svc.Prediction(ctx, id)
			So(err, ShouldBeNil)
			So(p.Set, ShouldBeTrue)
		})
	})
}
