package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

type (
	// Dismisser gets known interstitials out of the way.
	//
	// It is advisory: finding nothing to dismiss is not a failure, and neither
	// is failing to dismiss something.
	Dismisser interface {
		// Dismiss returns a description of each dismissal it made.
		Dismiss(ctx context.Context, page Page) []string
	}

	// Rules is a versioned list of what the site's overlays look like.
	Rules struct {
		Version string
		// Tried in order, only the first one present gets clicked.
		CloseButtons []string
		// Text that marks an element as an ad. Its closest dialog goes away.
		AdMarkers []string
		// Whatever still matches these gets removed.
		Overlays []string
	}

	// RuleDismisser applies a [Rules] set to the page.
	RuleDismisser struct {
		Rules Rules
	}

	// NoopDismisser leaves the page alone.
	NoopDismisser struct{}
)

// DefaultRules matches the overlays seen on the profile page.
var DefaultRules = Rules{
	Version: "2025-06",
	CloseButtons: []string{
		`button[aria-label="Close"]`,
		`button[aria-label="Close dialog"]`,
		`button[aria-label="Dismiss"]`,
		`[data-testid="close-button"]`,
		`.modal button[aria-label]`,
	},
	AdMarkers: []string{"Featured Ad"},
	Overlays: []string{
		`[role="dialog"]`,
		`[class*="modal"]`,
		`[data-testid="modal"]`,
	},
}

func (NoopDismisser) Dismiss(context.Context, Page) []string { return nil }

func (d RuleDismisser) Dismiss(ctx context.Context, page Page) []string {
	var done []string

	for _, sel := range d.Rules.CloseButtons {
		var clicked bool
		if err := page.Eval(ctx, clickScript(sel), &clicked); err != nil {
			slog.DebugContext(ctx, "error trying close button", "selector", sel, "error", err)
			continue
		}
		if clicked {
			done = append(done, fmt.Sprintf("clicked %s", sel))
			break
		}
	}

	if len(d.Rules.AdMarkers) > 0 {
		var removed int
		if err := page.Eval(ctx, removeAdsScript(d.Rules.AdMarkers), &removed); err != nil {
			slog.DebugContext(ctx, "error removing ads", "error", err)
		} else if removed > 0 {
			done = append(done, fmt.Sprintf("removed %d ad overlays", removed))
		}
	}

	if len(d.Rules.Overlays) > 0 {
		var removed int
		if err := page.Eval(ctx, removeOverlaysScript(d.Rules.Overlays), &removed); err != nil {
			slog.DebugContext(ctx, "error removing overlays", "error", err)
		} else if removed > 0 {
			done = append(done, fmt.Sprintf("removed %d overlays", removed))
		}
	}

	slog.DebugContext(ctx, "dismissal pass complete", "rules", d.Rules.Version, "dismissed", len(done))

	return done
}

// Encodes a Go value as a javascript literal.
func jsLiteral(v any) string {
	byts, err := json.Marshal(v)
	if err != nil {
		// Strings and string slices always marshal.
		panic(err)
	}

	return string(byts)
}

func clickScript(selector string) string {
	return fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) return false;
  try { el.click(); } catch (e) { return false; }
  return true;
})()`, jsLiteral(selector))
}

func removeAdsScript(markers []string) string {
	return fmt.Sprintf(`(() => {
  const markers = %s;
  const hit = el => markers.some(m => (el.textContent || "").includes(m));
  let removed = 0;
  for (const div of Array.from(document.querySelectorAll("div"))) {
    if (!div.isConnected || !hit(div)) continue;
    // Only the innermost match, otherwise the page root goes too.
    if (Array.from(div.querySelectorAll("div")).some(hit)) continue;
    const target = div.closest('[role="dialog"]') || div;
    if (target.parentElement) {
      target.parentElement.removeChild(target);
      removed++;
    }
  }
  return removed;
})()`, jsLiteral(markers))
}

func removeOverlaysScript(selectors []string) string {
	return fmt.Sprintf(`(() => {
  let removed = 0;
  for (const sel of %s) {
    document.querySelectorAll(sel).forEach(el => {
      if (el.isConnected) { el.remove(); removed++; }
    });
  }
  return removed;
})()`, jsLiteral(selectors))
}
