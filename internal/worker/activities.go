package worker

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	relayerrs "github.com/jdholdren/postrelay/internal/errors"
	"github.com/jdholdren/postrelay/internal/relay"
)

type activities struct {
	runner Runner
}

// Instance to make the workflow a bit more readable
var acts = activities{}

// Fetches the latest post and sends it on.
func (a activities) RelayPost(ctx context.Context, trigger string) (relay.Run, error) {
	activity.GetLogger(ctx).Info("relaying latest post", "trigger", trigger)

	run, err := a.runner.RunOnce(ctx, trigger)
	if err == nil {
		return run, nil
	}

	// Carry the typed failure across so the caller can still read its kind.
	rErr := &relayerrs.Error{}
	if !errors.As(err, &rErr) {
		rErr = relayerrs.E(err)
	}
	return relay.Run{}, temporal.NewNonRetryableApplicationError(err.Error(), errTypeRelay, err, rErr)
}
