package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/koderAP/trust-gambit-sub000/internal/adapters/mq/queue"
	"github.com/koderAP/trust-gambit-sub000/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

// fakeCompleter records completion calls and lets tests script outcomes.
type fakeCompleter struct {
	mu       sync.Mutex
	calls    []string
	won      bool
	err      error
	notified chan struct{}
}

func newFakeCompleter(won bool, err error) *fakeCompleter {
	return &fakeCompleter{won: won, err: err, notified: make(chan struct{}, 64)}
}

func (f *fakeCompleter) Complete(_ context.Context, roundID, _ string) (bool, error) {
	f.mu.Lock()
	f.calls = append(f.calls, roundID)
	f.mu.Unlock()
	f.notified <- struct{}{}
	return f.won, f.err
}

func (f *fakeCompleter) completed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func waitForCalls(c *fakeCompleter, n int) bool {
	for i := 0; i < n; i++ {
		select {
		case <-c.notified:
		case <-time.After(2 * time.Second):
			return false
		}
	}
	return true
}

func TestWorkerProcessesJobs(t *testing.T) {
	Convey("Given a running worker", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		completer := newFakeCompleter(true, nil)
		w := NewInMemoryWorker(q, completer, WithName("w0"))
		go w.Run(ctx)

		Convey("When jobs are enqueued", func() {
			So(q.Enqueue(ctx, queue.Job{RoundID: "r1", Reason: "TIME_EXPIRED"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{RoundID: "r2", Reason: "ADMIN_ENDED"}), ShouldBeTrue)

			Convey("Then the completer is driven for each", func() {
				So(waitForCalls(completer, 2), ShouldBeTrue)
				So(completer.completed(), ShouldResemble, []string{"r1", "r2"})
			})
		})

		Convey("When the worker is shut down", func() {
			err := w.Shutdown(ctx)

			Convey("Then it stops cleanly", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestWorkerSurvivesFailures(t *testing.T) {
	Convey("Given a completer that fails", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		completer := newFakeCompleter(false, errors.New("store unavailable"))
		w := NewInMemoryWorker(q, completer)
		go w.Run(ctx)

		Convey("When a job fails", func() {
			So(q.Enqueue(ctx, queue.Job{RoundID: "r1"}), ShouldBeTrue)
			So(waitForCalls(completer, 1), ShouldBeTrue)

			Convey("Then the worker keeps consuming later jobs", func() {
				So(q.Enqueue(ctx, queue.Job{RoundID: "r2"}), ShouldBeTrue)
				So(waitForCalls(completer, 1), ShouldBeTrue)
				So(completer.completed(), ShouldResemble, []string{"r1", "r2"})
			})
		})
	})

	Convey("Given a completer that loses the race", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		completer := newFakeCompleter(false, nil)
		w := NewInMemoryWorker(q, completer)
		go w.Run(ctx)

		Convey("When the job is processed", func() {
			So(q.Enqueue(ctx, queue.Job{RoundID: "r1"}), ShouldBeTrue)

			Convey("Then losing is silent and not an error", func() {
				So(waitForCalls(completer, 1), ShouldBeTrue)
				So(completer.completed(), ShouldResemble, []string{"r1"})
			})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool of workers over one queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		completer := newFakeCompleter(true, nil)
		pool := NewPool(3, q, completer)
		pool.Start(ctx)

		Convey("When many jobs are enqueued", func() {
			for i := 0; i < 20; i++ {
				So(q.Enqueue(ctx, queue.Job{RoundID: "r", Reason: "TIME_EXPIRED"}), ShouldBeTrue)
			}

			Convey("Then every job is completed exactly once", func() {
				So(waitForCalls(completer, 20), ShouldBeTrue)
				So(len(completer.completed()), ShouldEqual, 20)
			})
		})

		Convey("When the pool shuts down", func() {
			So(q.Enqueue(ctx, queue.Job{RoundID: "last"}), ShouldBeTrue)
			err := pool.Shutdown(context.Background())

			Convey("Then the queue is closed and pending work drained", func() {
				So(err, ShouldBeNil)
				So(q.IsClosed(), ShouldBeTrue)
				So(len(completer.completed()), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})
	})

	Convey("Given a pool asked for zero workers", t, func() {
		q := queue.NewInMemoryQueue()
		pool := NewPool(0, q, newFakeCompleter(true, nil))

		Convey("Then it falls back to the default count", func() {
			So(len(pool.workers), ShouldEqual, defaultWorkerCount)
		})
	})
}
