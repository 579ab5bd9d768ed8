package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"

type (
	ChromeConfig struct {
		// Path to the chrome binary, found on $PATH when empty.
		ExecPath  string
		UserAgent string
		Width     int
		Height    int
	}

	// Chrome is a [Browser] backed by a headless chrome per page.
	Chrome struct {
		cfg ChromeConfig
	}

	chromePage struct {
		ctx context.Context

		closeOnce   sync.Once
		closeErr    error
		cancelTab   context.CancelFunc
		cancelAlloc context.CancelFunc
	}
)

var _ Browser = (*Chrome)(nil)

func NewChrome(cfg ChromeConfig) *Chrome {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		cfg.Width, cfg.Height = 1280, 800
	}

	return &Chrome{cfg: cfg}
}

// Open launches chrome and a tab in it. Both are torn down by closing the
// page or by ctx ending, whichever comes first.
func (c *Chrome) Open(ctx context.Context) (Page, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.DisableGPU,
		chromedp.WindowSize(c.cfg.Width, c.cfg.Height),
		chromedp.UserAgent(c.cfg.UserAgent),
	)
	if c.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// The first run is what actually starts the browser.
	if err := chromedp.Run(tabCtx, chromedp.EmulateViewport(int64(c.cfg.Width), int64(c.cfg.Height))); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("error starting chrome: %w", err)
	}

	return &chromePage{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}, nil
}

// Probe checks that chrome can be launched at all.
func (c *Chrome) Probe(ctx context.Context) error {
	page, err := c.Open(ctx)
	if err != nil {
		return err
	}

	return page.Close()
}

// Navigate returns after the load event, then makes sure there's a body.
func (p *chromePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return chromedp.Run(p.ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p *chromePage) Settle(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var complete bool
	return chromedp.Run(p.ctx,
		chromedp.Poll(`document.readyState === "complete"`, &complete,
			chromedp.WithPollingTimeout(timeout),
			chromedp.WithPollingInterval(100*time.Millisecond),
		),
	)
}

func (p *chromePage) Eval(ctx context.Context, expr string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return chromedp.Run(p.ctx, chromedp.Evaluate(expr, out))
}

// What the in-page fetch hands back.
type pageResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

func (p *chromePage) Fetch(ctx context.Context, path string) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	var resp pageResponse
	if err := chromedp.Run(p.ctx, chromedp.Evaluate(fetchScript(path), &resp, awaitPromise)); err != nil {
		return 0, nil, fmt.Errorf("error fetching %s in page: %w", path, err)
	}

	return resp.Status, []byte(resp.Body), nil
}

func (p *chromePage) Close() error {
	p.closeOnce.Do(func() {
		// Asks chrome to shut down properly before killing the process.
		p.closeErr = chromedp.Cancel(p.ctx)
		p.cancelTab()
		p.cancelAlloc()
	})

	return p.closeErr
}

func awaitPromise(params *runtime.EvaluateParams) *runtime.EvaluateParams {
	return params.WithAwaitPromise(true)
}

func fetchScript(path string) string {
	return fmt.Sprintf(`(async () => {
  const resp = await fetch(%s, {
    headers: { accept: "application/json" },
    credentials: "same-origin",
  });
  return { status: resp.status, body: await resp.text() };
})()`, jsLiteral(path))
}
