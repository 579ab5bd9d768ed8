// Package fetch gets the latest post of an account from a Mastodon-compatible
// site, either through a headless browser or directly against its API.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	relayerrs "github.com/jdholdren/postrelay/internal/errors"
	"github.com/jdholdren/postrelay/internal/relay"
)

// getter issues a GET against the site's API and hands back the raw response.
//
// A transport-level failure is an error; any HTTP status is not.
type getter interface {
	getJSON(ctx context.Context, path string) (status int, body []byte, err error)
}

func lookupPath(handle string) string {
	return "/api/v1/accounts/lookup?" + url.Values{"acct": {handle}}.Encode()
}

func statusesPath(accountID string) string {
	return fmt.Sprintf("/api/v1/accounts/%s/statuses?exclude_replies=true&limit=1", url.PathEscape(accountID))
}

// Ids are strings on Mastodon but some forks send numbers.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	switch r := gjson.ParseBytes(b); r.Type {
	case gjson.String, gjson.Number:
		*id = flexID(r.String())
	case gjson.Null:
		*id = ""
	default:
		return fmt.Errorf("id is neither a string nor a number: %s", b)
	}

	return nil
}

// Represents a status from the statuses endpoint, only the parts we use.
type status struct {
	ID        flexID     `json:"id"`
	URL       string     `json:"url"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at"`
	Media     []struct {
		Type      string `json:"type"`
		URL       string `json:"url"`
		RemoteURL string `json:"remote_url"`
	} `json:"media_attachments"`
}

// latest resolves the handle to an account id and fetches its most recent
// non-reply status.
func latest(ctx context.Context, g getter, handle string) (relay.Post, error) {
	handle = strings.TrimPrefix(handle, "@")

	body, err := get(ctx, g, lookupPath(handle))
	if err != nil {
		return relay.Post{}, fmt.Errorf("error looking up account: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return relay.Post{}, relayerrs.E("lookup returned malformed json", relayerrs.KindDecode)
	}
	id := gjson.GetBytes(body, "id")
	if !id.Exists() || id.String() == "" {
		return relay.Post{}, relayerrs.E("lookup returned unexpected payload", relayerrs.KindLookup,
			relayerrs.Detail{Field: "acct", Error: handle})
	}

	body, err = get(ctx, g, statusesPath(id.String()))
	if err != nil {
		return relay.Post{}, fmt.Errorf("error fetching statuses: %w", err)
	}
	var statuses []status
	if err := json.Unmarshal(body, &statuses); err != nil {
		return relay.Post{}, relayerrs.E(fmt.Errorf("error decoding statuses: %w", err), relayerrs.KindDecode)
	}
	if len(statuses) == 0 {
		return relay.Post{}, relayerrs.E("no statuses returned", relayerrs.KindNoContent)
	}

	return toPost(statuses[0]), nil
}

func get(ctx context.Context, g getter, path string) ([]byte, error) {
	code, body, err := g.getJSON(ctx, path)
	if err != nil {
		return nil, relayerrs.E(err, relayerrs.KindNavigation)
	}
	if code != http.StatusOK {
		return nil, relayerrs.E(fmt.Sprintf("%s -> HTTP %d", path, code), relayerrs.KindUpstreamStatus)
	}

	return body, nil
}

func toPost(s status) relay.Post {
	post := relay.Post{
		ID:        string(s.ID),
		URL:       s.URL,
		Text:      HTMLToText(s.Content),
		Raw:       s.Content,
		CreatedAt: s.CreatedAt,
	}
	for _, m := range s.Media {
		u := m.URL
		if u == "" {
			u = m.RemoteURL
		}
		if u == "" {
			continue
		}
		post.Media = append(post.Media, relay.Media{Type: m.Type, URL: u})
	}

	return post
}
