// Package relay holds the domain of postrelay: the post being relayed, the
// collaborators that fetch and deliver it, and the record of each run.
package relay

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("resource not found")

type (
	// Post is the latest status of the watched account.
	//
	// It only lives for the duration of one run.
	Post struct {
		ID        string     `json:"id"`
		URL       string     `json:"url,omitempty"`
		Text      string     `json:"text"`
		Raw       string     `json:"raw"`
		CreatedAt *time.Time `json:"created_at,omitempty"`
		Media     []Media    `json:"media,omitempty"`
	}

	// Media is an attachment on a post.
	Media struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	}

	// Fetcher gets the latest post of an account.
	Fetcher interface {
		Fetch(ctx context.Context, handle string) (Post, error)
	}

	// Notifier delivers a post downstream.
	Notifier interface {
		Send(ctx context.Context, post Post) error
	}

	// Accepter is implemented by a [Notifier] that decides for itself which
	// posts it can deliver. Notifiers without it only get posts with text.
	Accepter interface {
		Accepts(post Post) bool
	}
)

// What started a run.
const (
	TriggerHTTP     = "http"
	TriggerInterval = "interval"
	TriggerCLI      = "cli"
)

type RunStatus string

const (
	RunStatusDelivered RunStatus = "delivered"
	// The notifier had nothing to send for the post.
	RunStatusSkipped RunStatus = "skipped"
	RunStatusFailed  RunStatus = "failed"
)

type (
	// Run records a single fetch-notify cycle.
	Run struct {
		ID         string    `json:"id" db:"id"`
		Trigger    string    `json:"trigger" db:"trigger_source"`
		StartedAt  time.Time `json:"started_at" db:"started_at"`
		FinishedAt time.Time `json:"finished_at" db:"finished_at"`
		Status     RunStatus `json:"status" db:"status"`
		ErrorKind  string    `json:"error_kind,omitempty" db:"error_kind"`
		Error      string    `json:"error,omitempty" db:"error"`
		PostID     string    `json:"post_id,omitempty" db:"post_id"`
		PostURL    string    `json:"post_url,omitempty" db:"post_url"`

		// Sanitized markup of the relayed post.
		PostRaw string `json:"post_raw,omitempty" db:"post_raw"`
	}

	// RunLog keeps the history of runs.
	RunLog interface {
		Record(ctx context.Context, run Run) error
		// Recent returns up to limit runs, newest first.
		Recent(ctx context.Context, limit int) ([]Run, error)
		Run(ctx context.Context, id string) (Run, error)
	}
)
