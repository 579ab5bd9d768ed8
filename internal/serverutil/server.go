// Package serverutil has the plumbing shared by HTTP handlers: error-returning
// handlers, JSON responses and access logging.
package serverutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	relayerrs "github.com/jdholdren/postrelay/internal/errors"
	"github.com/jdholdren/postrelay/internal/logger"
)

func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("error encoding json response: %s", err)
	}

	return nil
}

// AccessLogMiddleware logs every request and tags the request context with
// an id so anything logged while handling it can be correlated.
func AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.Ctx(r.Context(), slog.String("request_id", uuid.NewString()))
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "request received", "method", r.Method, "path", r.URL.Path)
		start := time.Now()

		writer := &respCodeWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(writer, r)

		slog.InfoContext(ctx, "request completed",
			"method", r.Method,
			"url", r.URL.String(),
			"duration", time.Since(start),
			"status_code", writer.code,
		)
	})
}

// To trap the response status code for logging later.
type respCodeWriter struct {
	http.ResponseWriter
	code int
}

func (w *respCodeWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// HandlerFuncE is a modified type of [http.HandlerFunc] that returns an error.
type HandlerFuncE func(w http.ResponseWriter, r *http.Request) error

func (f HandlerFuncE) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := f(w, r)
	if err == nil {
		return
	}

	// Either it's already a structured error, or coerce it to one
	rErr := &relayerrs.Error{}
	if !errors.As(err, &rErr) {
		slog.ErrorContext(r.Context(), "unstructured error from handler", "error", err)
		rErr = relayerrs.E(http.StatusInternalServerError, "internal server error")
	}

	if err := WriteJSON(w, rErr.Status, rErr); err != nil {
		slog.ErrorContext(r.Context(), "error writing response", "error", err)
	}
}

// ErrRouter is a newtype around a mux router that allows attaching handlers that return errors.
type ErrRouter struct {
	*mux.Router
}

func (r ErrRouter) HandleFuncE(path string, f HandlerFuncE) *mux.Route {
	return r.Handle(path, f)
}
