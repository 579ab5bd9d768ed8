package worker

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	relayerrs "github.com/jdholdren/postrelay/internal/errors"
	"github.com/jdholdren/postrelay/internal/relay"
)

type workflows struct {
	activityTimeout time.Duration
}

// RelayLatestPost runs one fetch-notify cycle.
//
// A failed cycle is not retried; the next trigger is the retry.
func (wfs workflows) RelayLatestPost(ctx workflow.Context, trigger string) (relay.Run, error) {
	timeout := wfs.activityTimeout
	if timeout == 0 {
		timeout = activityTimeout(0)
	}
	options := workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	var run relay.Run
	if err := workflow.ExecuteActivity(ctx, acts.RelayPost, trigger).Get(ctx, &run); err != nil {
		var kind relayerrs.Kind
		rErr := &relayerrs.Error{}
		if asRelayErr(err, &rErr) {
			kind = rErr.Kind
		}
		workflow.GetLogger(ctx).Error("relay run failed", "trigger", trigger, "kind", kind, "error", err)
		return relay.Run{}, err
	}

	return run, nil
}
