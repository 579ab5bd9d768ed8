package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jdholdren/postrelay/internal/fetch"
	"github.com/jdholdren/postrelay/internal/memory"
	"github.com/jdholdren/postrelay/internal/notify"
	"github.com/jdholdren/postrelay/internal/relay"
	"github.com/jdholdren/postrelay/internal/sqlite"
)

// Builds the fetcher for the mode. The browser one comes with a check that
// chrome can start.
func newFetcher(cfg config) (relay.Fetcher, func(context.Context) error) {
	if cfg.FetchMode == fetchModeAPI {
		return fetch.NewAPIFetcher(fetch.APIConfig{
			SiteURL:      cfg.SiteURL,
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			UserAgent:    cfg.UserAgent,
		}), func(context.Context) error { return nil }
	}

	chrome := fetch.NewChrome(fetch.ChromeConfig{
		ExecPath:  cfg.ChromePath,
		UserAgent: cfg.UserAgent,
	})

	var dismisser fetch.Dismisser = fetch.NoopDismisser{}
	if cfg.DismissInterstitials {
		dismisser = fetch.RuleDismisser{Rules: fetch.DefaultRules}
	}

	return fetch.NewBrowserFetcher(fetch.BrowserConfig{
		SiteURL:       cfg.SiteURL,
		SettleTimeout: cfg.SettleTimeout,
	}, chrome, dismisser), chrome.Probe
}

func newNotifier(cfg config) *notify.Webhook {
	return notify.NewWebhook(notify.Config{
		URL:            cfg.WebhookURL,
		Timeout:        cfg.WebhookTimeout,
		RequireSuccess: cfg.WebhookRequireSuccess,
		Retries:        cfg.WebhookRetries,
		Format:         notify.Format(cfg.WebhookFormat),
		Handle:         cfg.Handle,
		Censor:         cfg.CensorProfanity,
	})
}

// Picks the run history store. The returned func releases it.
func newRunLog(cfg config) (relay.RunLog, func() error, error) {
	if cfg.Database == "" {
		l, err := memory.NewRunLog(cfg.HistorySize)
		if err != nil {
			return nil, nil, fmt.Errorf("error creating run history: %s", err)
		}
		slog.Info("keeping run history in memory", "size", cfg.HistorySize)

		return l, func() error { return nil }, nil
	}

	dbx, err := sqlite.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("keeping run history in sqlite", "database", cfg.Database)

	return sqlite.New(dbx), dbx.Close, nil
}
