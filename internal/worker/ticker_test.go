package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jdholdren/postrelay/internal/relay"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	sources []string
	err     error
}

func (d *recordingDispatcher) Trigger(_ context.Context, source string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sources = append(d.sources, source)
	return d.err
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.sources)
}

func TestEvery(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "accepted"},
		{name: "busy", err: ErrBusy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				d           = &recordingDispatcher{err: tt.err}
				ctx, cancel = context.WithCancel(context.Background())
				done        = make(chan error)
			)
			go func() { done <- Every(ctx, 5*time.Millisecond, d) }()

			assert.Eventually(t, func() bool { return d.count() >= 3 }, time.Second, time.Millisecond)
			cancel()
			assert.NoError(t, <-done)

			d.mu.Lock()
			defer d.mu.Unlock()
			for _, s := range d.sources {
				assert.Equal(t, relay.TriggerInterval, s)
			}
		})
	}
}
