// Package server is the HTTP surface of postrelay: health, the run trigger,
// run history and metrics.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	relayerrs "github.com/jdholdren/postrelay/internal/errors"
	"github.com/jdholdren/postrelay/internal/relay"
	"github.com/jdholdren/postrelay/internal/serverutil"
	"github.com/jdholdren/postrelay/internal/worker"
)

const (
	triggeredBody = "Scraping triggered ✅"

	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

type (
	// Server is the HTTP portion serving the trigger and history.
	Server struct {
		*http.Server

		dispatcher worker.Dispatcher
		runs       relay.RunLog
	}

	// Config holds all of the different options for making a
	// server.
	Config struct {
		Port int
	}
)

func NewServer(cfg Config, dispatcher worker.Dispatcher, runs relay.RunLog, gatherer prometheus.Gatherer) *Server {
	r := serverutil.ErrRouter{Router: mux.NewRouter()}

	s := &Server{
		dispatcher: dispatcher,
		runs:       runs,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			Handler: handlers.RecoveryHandler(
				handlers.RecoveryLogger(recoveryLogger{}),
			)(r),
		},
	}

	r.Use(serverutil.AccessLogMiddleware) // Log everything
	r.HandleFuncE("/health", s.getHealth).Methods(http.MethodGet)
	r.HandleFuncE("/", s.getTrigger).Methods(http.MethodGet)
	r.HandleFuncE("/runs", s.getRuns).Methods(http.MethodGet)
	r.HandleFuncE("/runs/{runID}", s.getRun).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	slog.Debug("configured server", "port", cfg.Port)

	return s
}

// Sends panics recovered by the router to the structured log.
type recoveryLogger struct{}

func (recoveryLogger) Println(args ...any) {
	slog.Error("recovered from panic", "panic", fmt.Sprint(args...))
}

func writeText(w http.ResponseWriter, status int, body string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)

	_, err := w.Write([]byte(body))
	return err
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) error {
	return writeText(w, http.StatusOK, "OK")
}

// Starts a run and returns before it does anything.
func (s *Server) getTrigger(w http.ResponseWriter, r *http.Request) error {
	if err := s.dispatcher.Trigger(r.Context(), relay.TriggerHTTP); err != nil {
		return err
	}

	return writeText(w, http.StatusOK, triggeredBody)
}

type runsResp struct {
	Runs []relay.Run `json:"runs"`
}

func (s *Server) getRuns(w http.ResponseWriter, r *http.Request) error {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		return err
	}

	runs, err := s.runs.Recent(r.Context(), limit)
	if err != nil {
		return fmt.Errorf("error listing runs: %w", err)
	}
	if runs == nil {
		runs = []relay.Run{}
	}

	return serverutil.WriteJSON(w, http.StatusOK, runsResp{Runs: runs})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultRunsLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxRunsLimit {
		return 0, relayerrs.E(
			http.StatusBadRequest,
			"invalid limit",
			relayerrs.Detail{Field: "limit", Error: fmt.Sprintf("must be a number between 1 and %d", maxRunsLimit)},
		)
	}

	return limit, nil
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) error {
	id := mux.Vars(r)["runID"]

	run, err := s.runs.Run(r.Context(), id)
	if errors.Is(err, relay.ErrNotFound) {
		return relayerrs.E(http.StatusNotFound, "run not found")
	}
	if err != nil {
		return fmt.Errorf("error getting run: %w", err)
	}

	return serverutil.WriteJSON(w, http.StatusOK, run)
}
