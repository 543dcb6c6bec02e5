package scheduler

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/koderAP/trust-gambit-sub000/internal/adapters/mq/queue"
	"github.com/koderAP/trust-gambit-sub000/internal/adapters/notify"
	"github.com/koderAP/trust-gambit-sub000/internal/adapters/repository"
	"github.com/koderAP/trust-gambit-sub000/internal/domain/model"
	"github.com/koderAP/trust-gambit-sub000/internal/engine"
	"github.com/koderAP/trust-gambit-sub000/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

var pollerNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// recordingNotifier keeps published completion events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []model.RoundEnded
}

func (n *recordingNotifier) RoundEnded(_ context.Context, ev model.RoundEnded) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func frozenClock() func() time.Time {
	return func() time.Time { return pollerNow }
}

// newActiveRound seeds a round that started one minute before pollerNow.
func newActiveRound(ctx context.Context, store repository.Store, id string, duration time.Duration) {
	r := model.Round{
		ID:            id,
		GameID:        "game-1",
		Question:      "capital of France?",
		CorrectAnswer: "PARIS",
		Duration:      duration,
		Params:        model.ScoringParams{Lambda: 0.6, Beta: 0.2, Gamma: 0.4},
	}
	if err := store.CreateRound(ctx, r); err != nil {
		panic(err)
	}
	if err := store.AddParticipants(ctx, id, []string{"alice", "bob"}); err != nil {
		panic(err)
	}
	if _, err := store.StartRound(ctx, id, pollerNow.Add(-time.Minute)); err != nil {
		panic(err)
	}
}

func TestPollerExpiresRounds(t *testing.T) {
	Convey("Given a poller without a completion queue", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		eng := engine.New(store, notify.NewHub(), engine.WithClock(frozenClock()))
		p := New(store, eng, WithClock(frozenClock()))

		newActiveRound(ctx, store, "expired", 30*time.Second)
		newActiveRound(ctx, store, "running", 10*time.Minute)

		Convey("When a tick fires", func() {
			p.tick(ctx)

			Convey("Then the lapsed round is completed and scored inline", func() {
				r, err := store.GetRound(ctx, "expired")
				So(err, ShouldBeNil)
				So(r.Status, ShouldEqual, model.StatusCompleted)
				So(r.EndTime, ShouldEqual, pollerNow)
				So(r.EndReason, ShouldEqual, model.ReasonTimeExpired)

				scores, _ := store.ListScores(ctx, "expired")
				So(len(scores), ShouldEqual, 2)
			})

			Convey("And the round still in flight is untouched", func() {
				r, _ := store.GetRound(ctx, "running")
				So(r.Status, ShouldEqual, model.StatusActive)
			})

			Convey("And a second tick finds nothing to do", func() {
				p.tick(ctx)
				counts, _ := store.CountByStatus(ctx)
				So(counts[model.StatusCompleted], ShouldEqual, 1)
				So(counts[model.StatusActive], ShouldEqual, 1)
			})
		})
	})
}

func TestPollerQueuesExpiredRounds(t *testing.T) {
	Convey("Given a poller wired to a completion queue", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		eng := engine.New(store, notify.NewHub(), engine.WithClock(frozenClock()))
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		p := New(store, eng, WithClock(frozenClock()), WithQueue(q))

		newActiveRound(ctx, store, "expired", 30*time.Second)

		Convey("When a tick fires", func() {
			p.tick(ctx)

			Convey("Then the round is handed to the queue, not completed inline", func() {
				So(q.Len(ctx), ShouldEqual, 1)
				r, _ := store.GetRound(ctx, "expired")
				So(r.Status, ShouldEqual, model.StatusActive)
			})

			Convey("And the queued job names the round and reason", func() {
				j := <-q.Dequeue(ctx)
				So(j.RoundID, ShouldEqual, "expired")
				So(j.Reason, ShouldEqual, model.ReasonTimeExpired)
			})
		})
	})

	Convey("Given a full completion queue", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		eng := engine.New(store, notify.NewHub(), engine.WithClock(frozenClock()))
		q := queue.NewInMemoryQueue(queue.WithCapacity(1))
		So(q.Enqueue(ctx, queue.Job{RoundID: "other"}), ShouldBeTrue)
		p := New(store, eng, WithClock(frozenClock()), WithQueue(q))

		newActiveRound(ctx, store, "expired", 30*time.Second)

		Convey("When a tick fires", func() {
			p.tick(ctx)

			Convey("Then the poller completes the round itself", func() {
				r, _ := store.GetRound(ctx, "expired")
				So(r.Status, ShouldEqual, model.StatusCompleted)
			})
		})
	})
}

func TestPollerRetriesUnscoredRounds(t *testing.T) {
	Convey("Given an admin-ended round whose scoring never ran", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		notifier := &recordingNotifier{}
		eng := engine.New(store, notifier, engine.WithClock(frozenClock()))
		p := New(store, eng, WithClock(frozenClock()))

		newActiveRound(ctx, store, "stuck", 30*time.Second)
		_, won, err := store.TryComplete(ctx, "stuck", pollerNow, model.ReasonAdminEnded)
		So(err, ShouldBeNil)
		So(won, ShouldBeTrue)

		unscored, _ := store.ListUnscored(ctx)
		So(len(unscored), ShouldEqual, 1)

		Convey("When a tick fires", func() {
			p.tick(ctx)

			Convey("Then scoring is repaired", func() {
				scores, _ := store.ListScores(ctx, "stuck")
				So(len(scores), ShouldEqual, 2)
				unscored, _ := store.ListUnscored(ctx)
				So(len(unscored), ShouldEqual, 0)
			})

			Convey("And the notification keeps the recorded reason", func() {
				So(notifier.count(), ShouldEqual, 1)
				So(notifier.events[0].Reason, ShouldEqual, model.ReasonAdminEnded)
			})
		})
	})
}

func TestPollerSkipsScoredEmptyRounds(t *testing.T) {
	Convey("Given a completed round with an empty roster", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		notifier := &recordingNotifier{}
		eng := engine.New(store, notifier, engine.WithClock(frozenClock()))
		p := New(store, eng, WithClock(frozenClock()))

		r := model.Round{
			ID:            "empty",
			GameID:        "game-1",
			CorrectAnswer: "PARIS",
			Duration:      30 * time.Second,
			Params:        model.ScoringParams{Lambda: 0.6, Beta: 0.2, Gamma: 0.4},
		}
		So(store.CreateRound(ctx, r), ShouldBeNil)
		_, err := store.StartRound(ctx, "empty", pollerNow.Add(-time.Minute))
		So(err, ShouldBeNil)

		won, err := eng.Complete(ctx, "empty", model.ReasonTimeExpired)
		So(err, ShouldBeNil)
		So(won, ShouldBeTrue)
		So(notifier.count(), ShouldEqual, 1)

		Convey("When further ticks fire", func() {
			p.tick(ctx)
			p.tick(ctx)

			Convey("Then the round is never re-scored or re-announced", func() {
				So(notifier.count(), ShouldEqual, 1)
				unscored, _ := store.ListUnscored(ctx)
				So(len(unscored), ShouldEqual, 0)
			})
		})
	})
}

func TestPollerLifecycle(t *testing.T) {
	Convey("Given a started poller", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		eng := engine.New(store, notify.NewHub())
		p := New(store, eng, WithInterval(10*time.Millisecond))

		p.Start(ctx)

		Convey("When stopped", func() {
			So(p.Stop, ShouldNotPanic)

			Convey("And stopping again is safe", func() {
				So(p.Stop, ShouldNotPanic)
			})
		})
	})
}
