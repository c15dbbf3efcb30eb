package discovery

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jshound/jshound/pkg/duration"
)

// newBrowserContext builds one shared Chrome allocator for a discovery
// run. Per-page renders open tabs against it instead of launching a
// browser each.
func newBrowserContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
	)
	return chromedp.NewExecAllocator(ctx, opts...)
}

// renderScripts loads the page in a browser tab and returns every
// script URL the rendered DOM ends up with plus every script request
// the network layer saw, catching loaders that build URLs at runtime.
func renderScripts(allocCtx context.Context, pageURL string) ([]string, error) {
	tabCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	runCtx, cancelRun := context.WithTimeout(tabCtx, duration.BrowserPage)
	defer cancelRun()

	var mu sync.Mutex
	var requested []string
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		if e, ok := ev.(*network.EventRequestWillBeSent); ok && e.Type == network.ResourceTypeScript {
			mu.Lock()
			requested = append(requested, e.Request.URL)
			mu.Unlock()
		}
	})

	var domScripts []string
	err := chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// Let late loaders inject their scripts before collecting.
		chromedp.Sleep(duration.BrowserIdle),
		chromedp.Evaluate(`Array.from(document.scripts).map(s => s.src).filter(Boolean)`, &domScripts),
	)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return append(requested, domScripts...), nil
}
