// Package notify delivers relayed posts to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	goaway "github.com/TwiN/go-away"
	"github.com/sethvargo/go-retry"

	relayerrs "github.com/jdholdren/postrelay/internal/errors"
	"github.com/jdholdren/postrelay/internal/relay"
)

type Format string

const (
	// FormatPlain posts {"post": ..., "url": ...}.
	FormatPlain Format = "plain"
	// FormatLark posts a Lark/Feishu bot text message.
	FormatLark Format = "lark"
)

type (
	Config struct {
		URL     string
		Timeout time.Duration
		// When set, anything but a 2xx counts as a failed delivery.
		RequireSuccess bool
		// Extra attempts after the first, for transport errors and 5xx.
		Retries uint64
		Format  Format
		// Handle of the account, used in the lark header.
		Handle string
		// Mask profanity in the text before sending.
		Censor bool
	}

	// Webhook implements [relay.Notifier] with a single POST per delivery.
	Webhook struct {
		cfg     Config
		client  *http.Client
		backoff time.Duration
	}
)

var (
	_ relay.Notifier = (*Webhook)(nil)
	_ relay.Accepter = (*Webhook)(nil)
)

func NewWebhook(cfg Config) *Webhook {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Format == "" {
		cfg.Format = FormatPlain
	}

	return &Webhook{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		backoff: time.Second,
	}
}

type plainPayload struct {
	Post string `json:"post"`
	URL  string `json:"url,omitempty"`
}

type larkPayload struct {
	MsgType string `json:"msg_type"`
	Content struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Accepts reports whether the post has anything to send. The plain body is
// only the text, while a lark message stands in a placeholder for it.
func (w *Webhook) Accepts(post relay.Post) bool {
	return w.cfg.Format == FormatLark || post.Text != ""
}

func (w *Webhook) Send(ctx context.Context, post relay.Post) error {
	if w.cfg.Censor {
		post.Text = goaway.Censor(post.Text)
	}

	body, err := w.payload(post)
	if err != nil {
		return fmt.Errorf("error encoding webhook payload: %w", err)
	}

	b := retry.WithMaxRetries(w.cfg.Retries, retry.NewExponential(w.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		return w.post(ctx, body)
	})
}

func (w *Webhook) payload(post relay.Post) ([]byte, error) {
	if w.cfg.Format != FormatLark {
		return json.Marshal(plainPayload{Post: post.Text, URL: post.URL})
	}

	var p larkPayload
	p.MsgType = "text"
	p.Content.Text = larkText(w.cfg.Handle, post)

	return json.Marshal(p)
}

// Lays the post out as a readable chat message.
func larkText(handle string, post relay.Post) string {
	text := post.Text
	if text == "" {
		text = "[Post contains only media or formatting]"
	}

	lines := []string{fmt.Sprintf("Update from @%s", strings.TrimPrefix(handle, "@")), "", text}
	if len(post.Media) > 0 {
		lines = append(lines, "", "Media:")
		for _, m := range post.Media {
			lines = append(lines, fmt.Sprintf("- %s: %s", m.Type, m.URL))
		}
	}
	if post.URL != "" {
		lines = append(lines, "", fmt.Sprintf("Link: %s", post.URL))
	}

	return strings.Join(lines, "\n")
}

// One attempt at delivery. Errors worth another attempt come back retryable.
func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return relayerrs.E(fmt.Errorf("error building webhook request: %w", err), relayerrs.KindTransport)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return retry.RetryableError(relayerrs.E(fmt.Errorf("error posting to webhook: %w", err), relayerrs.KindTransport))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	slog.InfoContext(ctx, "sent to webhook", "status_code", resp.StatusCode)

	if !w.cfg.RequireSuccess || resp.StatusCode/100 == 2 {
		return nil
	}

	sErr := relayerrs.E(
		fmt.Sprintf("webhook responded %d", resp.StatusCode),
		relayerrs.KindTransport,
		relayerrs.Detail{Field: "status_code", Error: fmt.Sprint(resp.StatusCode)},
	)
	if resp.StatusCode >= 500 {
		return retry.RetryableError(sErr)
	}

	return sErr
}
