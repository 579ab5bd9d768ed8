package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/jdholdren/postrelay/internal/relay"
)

type (
	APIConfig struct {
		SiteURL      string
		ClientID     string
		ClientSecret string
		UserAgent    string
		Timeout      time.Duration
	}

	// APIFetcher implements [relay.Fetcher] by calling the site's API
	// directly with an app token, no browser involved.
	APIFetcher struct {
		siteURL   string
		userAgent string
		creds     clientcredentials.Config
		base      *http.Client
	}
)

var _ relay.Fetcher = (*APIFetcher)(nil)

func NewAPIFetcher(cfg APIConfig) *APIFetcher {
	siteURL := strings.TrimRight(cfg.SiteURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &APIFetcher{
		siteURL:   siteURL,
		userAgent: cfg.UserAgent,
		creds: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     siteURL + "/oauth/token",
			Scopes:       []string{"read"},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		base: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: uaTransport{userAgent: cfg.UserAgent, next: http.DefaultTransport},
		},
	}
}

func (f *APIFetcher) Fetch(ctx context.Context, handle string) (relay.Post, error) {
	// The token exchange uses the same client so it carries the user agent too.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.base)

	return latest(ctx, apiGetter{
		siteURL: f.siteURL,
		client:  f.creds.Client(ctx),
	}, handle)
}

type apiGetter struct {
	siteURL string
	client  *http.Client
}

func (g apiGetter) getJSON(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.siteURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("error calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	return resp.StatusCode, body, nil
}

// Sets the user agent on everything going out.
type uaTransport struct {
	userAgent string
	next      http.RoundTripper
}

func (t uaTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("User-Agent", t.userAgent)

	return t.next.RoundTrip(r)
}
