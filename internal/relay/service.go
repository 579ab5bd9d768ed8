package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sym01/htmlsanitizer"

	relayerrs "github.com/jdholdren/postrelay/internal/errors"
	"github.com/jdholdren/postrelay/internal/logger"
)

type (
	// Config is everything a [Service] needs to know about what it relays.
	Config struct {
		Handle string
		// Deadline for one whole run, fetch and delivery included.
		RunTimeout time.Duration
	}

	// Observer is told about every finished run.
	Observer interface {
		ObserveRun(run Run)
	}

	// Service performs fetch-notify cycles.
	Service struct {
		cfg      Config
		fetcher  Fetcher
		notifier Notifier
		runs     RunLog
		observer Observer

		now   func() time.Time
		newID func() string
	}
)

const runNamespace = "-run"

func NewService(cfg Config, fetcher Fetcher, notifier Notifier, runs RunLog, observer Observer) *Service {
	return &Service{
		cfg:      cfg,
		fetcher:  fetcher,
		notifier: notifier,
		runs:     runs,
		observer: observer,
		now:      time.Now,
		newID: func() string {
			return fmt.Sprintf("%s%s", uuid.NewString(), runNamespace)
		},
	}
}

// RunOnce fetches the latest post and sends it on.
//
// The returned run is always populated, and also recorded, even on failure.
// The error is the typed failure of whichever step failed.
func (s *Service) RunOnce(ctx context.Context, trigger string) (Run, error) {
	run := Run{
		ID:        s.newID(),
		Trigger:   trigger,
		StartedAt: s.now().UTC(),
	}
	ctx = logger.Ctx(ctx,
		slog.String("run_id", run.ID),
		slog.String("trigger", trigger),
		slog.String("handle", s.cfg.Handle),
	)

	slog.InfoContext(ctx, "run started")

	err := s.relay(ctx, &run)

	run.FinishedAt = s.now().UTC()
	if err != nil {
		run.Status = RunStatusFailed
		run.ErrorKind = string(relayerrs.KindOf(err))
		run.Error = err.Error()
		slog.ErrorContext(ctx, "run failed", "error", err, "kind", run.ErrorKind)
	} else {
		slog.InfoContext(ctx, "run finished", "status", run.Status, "post_id", run.PostID)
	}

	s.finish(ctx, run)

	return run, err
}

func (s *Service) relay(ctx context.Context, run *Run) error {
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	post, err := s.fetcher.Fetch(ctx, s.cfg.Handle)
	if err != nil {
		return fmt.Errorf("error fetching latest post: %w", err)
	}
	run.PostID = post.ID
	run.PostURL = post.URL
	run.PostRaw = sanitize(ctx, post.Raw)

	slog.InfoContext(ctx, "latest post", "post_id", post.ID, "url", post.URL, "text", post.Text)

	if !s.accepts(post) {
		run.Status = RunStatusSkipped
		return nil
	}

	if err := s.notifier.Send(ctx, post); err != nil {
		return fmt.Errorf("error sending post: %w", err)
	}
	run.Status = RunStatusDelivered

	return nil
}

func (s *Service) accepts(post Post) bool {
	if a, ok := s.notifier.(Accepter); ok {
		return a.Accepts(post)
	}

	return post.Text != ""
}

// Strips anything executable from the markup before it is kept around.
func sanitize(ctx context.Context, raw string) string {
	clean, err := htmlsanitizer.NewHTMLSanitizer().SanitizeString(raw)
	if err != nil {
		slog.WarnContext(ctx, "error sanitizing post markup, dropping it", "error", err)
		return ""
	}

	return clean
}

// Records the run, which shouldn't fail the run itself.
func (s *Service) finish(ctx context.Context, run Run) {
	if s.observer != nil {
		s.observer.ObserveRun(run)
	}
	if s.runs == nil {
		return
	}

	// The run context may already be done; history is written regardless.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.runs.Record(recCtx, run); err != nil {
		slog.ErrorContext(ctx, "error recording run", "error", err)
	}
}
