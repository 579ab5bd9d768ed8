package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sethvargo/go-retry"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"

	"github.com/jdholdren/postrelay/internal/metrics"
	"github.com/jdholdren/postrelay/internal/relay"
	"github.com/jdholdren/postrelay/internal/server"
	"github.com/jdholdren/postrelay/internal/worker"
)

func serve(ctx context.Context, cfg config) error {
	if err := cfg.validateDelivery(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.validateFetch(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	slog.Info("running", "port", cfg.Port, "handle", cfg.Handle, "fetch_mode", cfg.FetchMode, "temporal", cfg.TemporalHostPort != "")

	fetcher, probe := newFetcher(cfg)
	// /health is served whether or not the browser starts.
	probeCtx, cancelProbe := context.WithTimeout(ctx, 30*time.Second)
	if err := probe(probeCtx); err != nil {
		slog.WarnContext(ctx, "headless browser did not start", "error", err)
	}
	cancelProbe()

	runs, closeRuns, err := newRunLog(cfg)
	if err != nil {
		return err
	}
	defer closeRuns()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	svc := relay.NewService(relay.Config{
		Handle:     cfg.Handle,
		RunTimeout: cfg.RunTimeout,
	}, fetcher, newNotifier(cfg), runs, m)

	var g run.Group

	// Stop everything on a signal
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g.Add(func() error {
		<-ctx.Done()
		return nil
	}, func(error) {
		cancel()
	})

	dispatcher, err := addDispatcher(ctx, &g, cfg, svc, m)
	if err != nil {
		return err
	}

	s := server.NewServer(server.Config{Port: cfg.Port}, dispatcher, runs, reg)
	g.Add(func() error {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error listening: %s", err)
		}

		return nil
	}, func(error) {
		downCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(downCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}
	})

	if cfg.PollInterval > 0 {
		tickCtx, cancelTick := context.WithCancel(ctx)
		g.Add(func() error {
			return worker.Every(tickCtx, cfg.PollInterval, dispatcher)
		}, func(error) {
			cancelTick()
		})
	}

	if err := g.Run(); err != nil {
		return fmt.Errorf("error running: %s", err)
	}
	slog.Info("shut down")

	return nil
}

// Sets up whichever dispatcher is configured and adds what runs it to the
// group.
func addDispatcher(ctx context.Context, g *run.Group, cfg config, svc *relay.Service, m *metrics.Metrics) (worker.Dispatcher, error) {
	if cfg.TemporalHostPort == "" {
		q := worker.NewQueue(svc, cfg.QueueSize, m)
		qCtx, cancelQ := context.WithCancel(ctx)
		g.Add(func() error {
			return q.Run(qCtx)
		}, func(error) {
			cancelQ()
		})

		return q, nil
	}

	// Retry until temporal is ready
	var temporalCli client.Client
	if err := retry.Fibonacci(ctx, 1*time.Second, func(ctx context.Context) error {
		c, err := client.Dial(client.Options{
			HostPort:  cfg.TemporalHostPort,
			Namespace: cfg.TemporalNamespace,
			Logger:    tlog.NewStructuredLogger(slog.Default()),
		})
		if err != nil {
			slog.WarnContext(ctx, "temporal not ready", "error", err)
			return retry.RetryableError(err)
		}
		temporalCli = c

		return nil
	}); err != nil {
		return nil, fmt.Errorf("unable to create Temporal client: %s", err)
	}

	if err := worker.EnsureNamespace(ctx, temporalCli.WorkflowService(), cfg.TemporalNamespace); err != nil {
		temporalCli.Close()
		return nil, err
	}

	w, err := worker.NewWorker(temporalCli, svc, cfg.RunTimeout)
	if err != nil {
		temporalCli.Close()
		return nil, err
	}

	done := make(chan struct{})
	g.Add(func() error {
		if err := w.Start(); err != nil {
			return fmt.Errorf("error starting temporal worker: %s", err)
		}
		<-done

		return nil
	}, func(error) {
		close(done)
		w.Stop()
		temporalCli.Close()
	})

	return worker.NewTemporal(temporalCli, m), nil
}
