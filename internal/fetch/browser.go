package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	relayerrs "github.com/jdholdren/postrelay/internal/errors"
	"github.com/jdholdren/postrelay/internal/relay"
)

type (
	// Browser hands out rendering contexts able to run the site's javascript.
	Browser interface {
		// Open acquires a page. It lives no longer than ctx.
		Open(ctx context.Context) (Page, error)
	}

	// Page is one rendering context.
	Page interface {
		// Navigate loads the url and returns once the DOM has been parsed.
		Navigate(ctx context.Context, url string) error
		// Settle waits, at most timeout, for the page to finish loading.
		Settle(ctx context.Context, timeout time.Duration) error
		// Eval runs a javascript expression in the page and decodes its result into out.
		Eval(ctx context.Context, expr string, out any) error
		// Fetch performs a same-origin GET from within the page.
		Fetch(ctx context.Context, path string) (status int, body []byte, err error)
		// Close releases the page and everything behind it.
		Close() error
	}

	BrowserConfig struct {
		SiteURL       string
		SettleTimeout time.Duration
	}

	// BrowserFetcher implements [relay.Fetcher] by driving a real page on the
	// site and calling its API from inside it.
	BrowserFetcher struct {
		cfg       BrowserConfig
		browser   Browser
		dismisser Dismisser
	}
)

var _ relay.Fetcher = (*BrowserFetcher)(nil)

func NewBrowserFetcher(cfg BrowserConfig, browser Browser, dismisser Dismisser) *BrowserFetcher {
	if dismisser == nil {
		dismisser = NoopDismisser{}
	}

	return &BrowserFetcher{
		cfg:       cfg,
		browser:   browser,
		dismisser: dismisser,
	}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, handle string) (relay.Post, error) {
	page, err := f.browser.Open(ctx)
	if err != nil {
		return relay.Post{}, relayerrs.E(fmt.Errorf("error opening page: %w", err), relayerrs.KindNavigation)
	}
	defer func() {
		if err := page.Close(); err != nil {
			slog.WarnContext(ctx, "error closing page", "error", err)
		}
	}()

	profile := profileURL(f.cfg.SiteURL, handle)
	if err := page.Navigate(ctx, profile); err != nil {
		return relay.Post{}, relayerrs.E(fmt.Errorf("error navigating to %s: %w", profile, err), relayerrs.KindNavigation)
	}

	if err := page.Settle(ctx, f.cfg.SettleTimeout); err != nil {
		// Late loading isn't fatal, the API is what matters.
		slog.DebugContext(ctx, "page did not settle", "error", err)
	}

	for _, d := range f.dismisser.Dismiss(ctx, page) {
		slog.InfoContext(ctx, "dismissed interstitial", "how", d)
	}

	return latest(ctx, pageGetter{page: page}, handle)
}

func profileURL(siteURL, handle string) string {
	return fmt.Sprintf("%s/@%s", strings.TrimRight(siteURL, "/"), strings.TrimPrefix(handle, "@"))
}

// Adapts a page to the API calls.
type pageGetter struct {
	page Page
}

func (g pageGetter) getJSON(ctx context.Context, path string) (int, []byte, error) {
	return g.page.Fetch(ctx, path)
}
