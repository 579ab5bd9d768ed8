// Package worker runs relay cycles off the request path, either on an
// in-process queue or as Temporal workflows.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	relayerrs "github.com/jdholdren/postrelay/internal/errors"
	"github.com/jdholdren/postrelay/internal/relay"
)

const TaskQueue = "postrelay"

// ErrBusy is returned by a [Dispatcher] that cannot take another run.
var ErrBusy = relayerrs.E(http.StatusTooManyRequests, "a run is already in progress")

type (
	// Dispatcher schedules a relay run without waiting for it.
	Dispatcher interface {
		Trigger(ctx context.Context, source string) error
	}

	// Runner performs one relay run. Implemented by [relay.Service].
	Runner interface {
		RunOnce(ctx context.Context, trigger string) (relay.Run, error)
	}

	// Observer is told about trigger admission and queue depth. Depth comes
	// as changes, since admission and completion happen on different
	// goroutines.
	Observer interface {
		ObserveTrigger(source string, accepted bool)
		ObserveQueueChange(delta int)
	}
)

type nopObserver struct{}

func (nopObserver) ObserveTrigger(string, bool) {}
func (nopObserver) ObserveQueueChange(int)      {}

// NewWorker sets up a Temporal worker that executes relay workflows.
//
// runTimeout bounds the relay activity; the run enforces its own deadline
// within it.
func NewWorker(cli client.Client, runner Runner, runTimeout time.Duration) (worker.Worker, error) {
	if runner == nil {
		return nil, fmt.Errorf("a runner is required")
	}

	w := worker.New(cli, TaskQueue, worker.Options{})

	wfs := workflows{activityTimeout: activityTimeout(runTimeout)}
	w.RegisterWorkflow(wfs.RelayLatestPost)
	w.RegisterActivity(&activities{runner: runner})

	return w, nil
}

// Leaves room past the run's own deadline for recording it.
func activityTimeout(runTimeout time.Duration) time.Duration {
	if runTimeout <= 0 {
		return 2 * time.Minute
	}

	return runTimeout + 15*time.Second
}

// Error types
//
// These are error types in the temporal sense, not the general "go" error types sense.
// They are used since between activities error types are marshaled and type information is lost.
const (
	errTypeRelay = "relay"
)
