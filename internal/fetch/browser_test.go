package fetch

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relayerrs "github.com/jdholdren/postrelay/internal/errors"
)

type fakeResponse struct {
	status int
	body   string
	err    error
}

// A page that serves canned API responses by path.
type fakePage struct {
	responses map[string]fakeResponse
	navErr    error

	navigated []string
	fetched   []string
	scripts   []string
	closes    int
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	return p.navErr
}

func (p *fakePage) Settle(context.Context, time.Duration) error {
	return errors.New("polling timed out")
}

func (p *fakePage) Eval(_ context.Context, expr string, _ any) error {
	p.scripts = append(p.scripts, expr)
	return nil
}

func (p *fakePage) Fetch(_ context.Context, path string) (int, []byte, error) {
	p.fetched = append(p.fetched, path)
	resp, ok := p.responses[path]
	if !ok {
		return http.StatusNotFound, []byte(`{"error":"Record not found"}`), nil
	}

	return resp.status, []byte(resp.body), resp.err
}

func (p *fakePage) Close() error {
	p.closes++
	return nil
}

type fakeBrowser struct {
	page    *fakePage
	openErr error
	opens   int
}

func (b *fakeBrowser) Open(context.Context) (Page, error) {
	b.opens++
	if b.openErr != nil {
		return nil, b.openErr
	}

	return b.page, nil
}

const (
	testLookupPath   = "/api/v1/accounts/lookup?acct=someone"
	testStatusesPath = "/api/v1/accounts/123/statuses?exclude_replies=true&limit=1"
)

func sampleResponses() map[string]fakeResponse {
	return map[string]fakeResponse{
		testLookupPath: {status: http.StatusOK, body: `{"id":"123","acct":"someone"}`},
		testStatusesPath: {status: http.StatusOK, body: `[{
			"id": "s1",
			"url": "https://x/s1",
			"content": "<p>Hello</p><br>World",
			"created_at": "2025-01-02T03:04:05.000Z",
			"media_attachments": [
				{"type": "image", "url": "https://x/m1.png"},
				{"type": "video", "url": null, "remote_url": "https://y/m2.mp4"},
				{"type": "unknown", "url": null}
			]
		}]`},
	}
}

func newTestBrowserFetcher(b Browser) *BrowserFetcher {
	return NewBrowserFetcher(BrowserConfig{SiteURL: "https://social.example/", SettleTimeout: time.Second}, b, RuleDismisser{Rules: DefaultRules})
}

func TestBrowserFetcher_SampleResponse(t *testing.T) {
	var (
		page = &fakePage{responses: sampleResponses()}
		b    = &fakeBrowser{page: page}
	)

	post, err := newTestBrowserFetcher(b).Fetch(context.Background(), "someone")
	require.NoError(t, err)

	assert.Equal(t, "s1", post.ID)
	assert.Equal(t, "Hello World", post.Text)
	assert.Equal(t, "https://x/s1", post.URL)
	assert.Equal(t, "<p>Hello</p><br>World", post.Raw)
	require.NotNil(t, post.CreatedAt)
	assert.Equal(t, 2025, post.CreatedAt.Year())
	require.Len(t, post.Media, 2)
	assert.Equal(t, "https://x/m1.png", post.Media[0].URL)
	assert.Equal(t, "https://y/m2.mp4", post.Media[1].URL)

	assert.Equal(t, []string{"https://social.example/@someone"}, page.navigated)
	assert.Equal(t, []string{testLookupPath, testStatusesPath}, page.fetched)
	// The dismissal passes ran before the API calls.
	assert.NotEmpty(t, page.scripts)
	assert.Equal(t, 1, page.closes)
}

func TestBrowserFetcher_Failures(t *testing.T) {
	tests := []struct {
		name      string
		responses map[string]fakeResponse
		navErr    error
		wantKind  relayerrs.Kind
	}{
		{
			name:     "navigation fails",
			navErr:   errors.New("net::ERR_NAME_NOT_RESOLVED"),
			wantKind: relayerrs.KindNavigation,
		},
		{
			name: "lookup without id",
			responses: map[string]fakeResponse{
				testLookupPath: {status: http.StatusOK, body: `{"acct":"someone"}`},
			},
			wantKind: relayerrs.KindLookup,
		},
		{
			name: "lookup with empty id",
			responses: map[string]fakeResponse{
				testLookupPath: {status: http.StatusOK, body: `{"id":""}`},
			},
			wantKind: relayerrs.KindLookup,
		},
		{
			name: "lookup not json",
			responses: map[string]fakeResponse{
				testLookupPath: {status: http.StatusOK, body: `<html>challenge</html>`},
			},
			wantKind: relayerrs.KindDecode,
		},
		{
			name: "lookup forbidden",
			responses: map[string]fakeResponse{
				testLookupPath: {status: http.StatusForbidden, body: `{}`},
			},
			wantKind: relayerrs.KindUpstreamStatus,
		},
		{
			name: "in page fetch throws",
			responses: map[string]fakeResponse{
				testLookupPath: {err: errors.New("TypeError: Failed to fetch")},
			},
			wantKind: relayerrs.KindNavigation,
		},
		{
			name: "statuses empty",
			responses: map[string]fakeResponse{
				testLookupPath:   {status: http.StatusOK, body: `{"id":"123"}`},
				testStatusesPath: {status: http.StatusOK, body: `[]`},
			},
			wantKind: relayerrs.KindNoContent,
		},
		{
			name: "statuses malformed",
			responses: map[string]fakeResponse{
				testLookupPath:   {status: http.StatusOK, body: `{"id":"123"}`},
				testStatusesPath: {status: http.StatusOK, body: `{"error":"nope"}`},
			},
			wantKind: relayerrs.KindDecode,
		},
		{
			name: "status id not a scalar",
			responses: map[string]fakeResponse{
				testLookupPath:   {status: http.StatusOK, body: `{"id":"123"}`},
				testStatusesPath: {status: http.StatusOK, body: `[{"id":{"n":1},"content":"<p>hi</p>"}]`},
			},
			wantKind: relayerrs.KindDecode,
		},
		{
			name: "statuses rate limited",
			responses: map[string]fakeResponse{
				testLookupPath:   {status: http.StatusOK, body: `{"id":"123"}`},
				testStatusesPath: {status: http.StatusTooManyRequests, body: `{}`},
			},
			wantKind: relayerrs.KindUpstreamStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				page = &fakePage{responses: tt.responses, navErr: tt.navErr}
				b    = &fakeBrowser{page: page}
			)

			_, err := newTestBrowserFetcher(b).Fetch(context.Background(), "someone")
			require.Error(t, err)

			assert.Equal(t, tt.wantKind, relayerrs.KindOf(err))
			// Released exactly once, whichever step failed.
			assert.Equal(t, 1, page.closes)
		})
	}
}

func TestBrowserFetcher_NumericIDs(t *testing.T) {
	var (
		page = &fakePage{responses: map[string]fakeResponse{
			testLookupPath:   {status: http.StatusOK, body: `{"id":123}`},
			testStatusesPath: {status: http.StatusOK, body: `[{"id":109876543210987654,"content":"<p>hi</p>"}]`},
		}}
		b = &fakeBrowser{page: page}
	)

	post, err := newTestBrowserFetcher(b).Fetch(context.Background(), "someone")
	require.NoError(t, err)

	assert.Equal(t, "109876543210987654", post.ID)
	assert.Equal(t, "hi", post.Text)
	assert.Equal(t, []string{testLookupPath, testStatusesPath}, page.fetched)
}

func TestBrowserFetcher_OpenFails(t *testing.T) {
	b := &fakeBrowser{openErr: errors.New("chrome not found")}

	_, err := newTestBrowserFetcher(b).Fetch(context.Background(), "someone")
	require.Error(t, err)

	assert.Equal(t, relayerrs.KindNavigation, relayerrs.KindOf(err))
	assert.Equal(t, 1, b.opens)
}

func TestBrowserFetcher_NoopDismisser(t *testing.T) {
	var (
		page = &fakePage{responses: sampleResponses()}
		f    = NewBrowserFetcher(BrowserConfig{SiteURL: "https://social.example"}, &fakeBrowser{page: page}, nil)
	)

	_, err := f.Fetch(context.Background(), "@someone")
	require.NoError(t, err)

	assert.Empty(t, page.scripts)
	assert.Equal(t, []string{"https://social.example/@someone"}, page.navigated)
}
