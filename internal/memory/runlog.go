// Package memory keeps run history in process when no database is
// configured.
package memory

import (
	"context"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jdholdren/postrelay/internal/relay"
)

// RunLog holds the most recent runs, evicting the oldest past its size.
type RunLog struct {
	cache *lru.Cache[string, relay.Run]
}

var _ relay.RunLog = (*RunLog)(nil)

func NewRunLog(size int) (*RunLog, error) {
	cache, err := lru.New[string, relay.Run](size)
	if err != nil {
		return nil, err
	}

	return &RunLog{cache: cache}, nil
}

func (l *RunLog) Record(_ context.Context, run relay.Run) error {
	l.cache.Add(run.ID, run)
	return nil
}

func (l *RunLog) Recent(_ context.Context, limit int) ([]relay.Run, error) {
	runs := l.cache.Values()

	// Values come oldest first by recency of use, not by start time.
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}

func (l *RunLog) Run(_ context.Context, id string) (relay.Run, error) {
	run, ok := l.cache.Peek(id)
	if !ok {
		return relay.Run{}, relay.ErrNotFound
	}

	return run, nil
}
