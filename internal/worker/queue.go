package worker

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Queue is the in-process [Dispatcher]. A single worker runs jobs one after
// the other.
//
// At most 1+size jobs are in flight, the running one included. A slot is
// taken when a trigger is admitted and given back when its run ends, so the
// answer to a trigger never depends on whether the worker has picked up the
// previous job yet.
type Queue struct {
	runner   Runner
	observer Observer
	slots    *semaphore.Weighted
	jobs     chan string
	inflight atomic.Int64
}

var _ Dispatcher = (*Queue)(nil)

func NewQueue(runner Runner, size int, observer Observer) *Queue {
	if size < 0 {
		size = 0
	}
	if observer == nil {
		observer = nopObserver{}
	}

	capacity := 1 + size
	return &Queue{
		runner:   runner,
		observer: observer,
		slots:    semaphore.NewWeighted(int64(capacity)),
		// Sends never block: the buffer holds every admitted job.
		jobs: make(chan string, capacity),
	}
}

// Trigger admits a job or returns [ErrBusy] when the queue is full.
func (q *Queue) Trigger(ctx context.Context, source string) error {
	if !q.slots.TryAcquire(1) {
		q.observer.ObserveTrigger(source, false)
		slog.WarnContext(ctx, "trigger rejected, queue full", "source", source)
		return ErrBusy
	}

	n := q.inflight.Add(1)
	q.jobs <- source
	q.observer.ObserveTrigger(source, true)
	q.observer.ObserveQueueChange(1)
	slog.InfoContext(ctx, "trigger accepted", "source", source, "in_flight", n)

	return nil
}

// Run processes jobs until the context is done. The running job sees the
// cancellation; pending ones are dropped.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case source := <-q.jobs:
			q.process(ctx, source)
		}
	}
}

func (q *Queue) process(ctx context.Context, source string) {
	defer func() {
		q.slots.Release(1)
		q.inflight.Add(-1)
		q.observer.ObserveQueueChange(-1)
	}()

	// Outcomes are logged and recorded by the runner.
	q.runner.RunOnce(ctx, source)
}

// InFlight reports the running plus pending jobs.
func (q *Queue) InFlight() int {
	return int(q.inflight.Load())
}
