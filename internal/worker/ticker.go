package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jdholdren/postrelay/internal/relay"
)

// Every triggers a run on each tick until the context is done.
//
// A busy dispatcher skips the tick.
func Every(ctx context.Context, interval time.Duration, d Dispatcher) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	slog.InfoContext(ctx, "interval trigger started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			err := d.Trigger(ctx, relay.TriggerInterval)
			if errors.Is(err, ErrBusy) {
				slog.InfoContext(ctx, "skipping tick, run in progress")
				continue
			}
			if err != nil {
				slog.ErrorContext(ctx, "error triggering run", "error", err)
			}
		}
	}
}
