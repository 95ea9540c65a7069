package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/common"
	"github.com/ternarybob/nuntius/internal/interfaces"
	"github.com/ternarybob/nuntius/internal/models"
	"golang.org/x/time/rate"
)

// handle is a located element: the selector that matched it. Re-resolved on
// every action so stale node IDs never surface.
type handle struct {
	selector string
}

// Backend drives one exclusive Chrome session through chromedp. Selector
// fallback chains and URL templates come from configuration; the session
// login lives in the user data directory.
type Backend struct {
	browser   common.BrowserConfig
	selectors common.SelectorsConfig
	logger    arbor.ILogger

	// Floor between page-level actions, independent of campaign pacing.
	limiter *rate.Limiter

	mu          sync.Mutex
	browserCtx  context.Context
	cancelChain []context.CancelFunc
	started     bool
}

func NewBackend(browser common.BrowserConfig, selectors common.SelectorsConfig, logger arbor.ILogger) *Backend {
	interval := browser.MinActionInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Backend{
		browser:   browser,
		selectors: selectors,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Start launches Chrome and verifies it responds. Run-fatal on failure.
func (b *Backend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return fmt.Errorf("browser session already started")
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx,
		chromedp.WithLogf(func(s string, i ...interface{}) {
			b.logger.Debug().Msg(fmt.Sprintf(s, i...))
		}))
	b.cancelChain = []context.CancelFunc{browserCancel, allocatorCancel}

	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		b.releaseLocked()
		return fmt.Errorf("browser failed startup test: %w", err)
	}

	b.browserCtx = browserCtx
	b.started = true
	b.logger.Info().
		Bool("headless", b.browser.Headless).
		Str("user_data_dir", b.browser.UserDataDir).
		Msg("Browser session established")
	return nil
}

func (b *Backend) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(b.browser.UserAgent),
		chromedp.WindowSize(b.browser.WindowWidth, b.browser.WindowHeight),

		// Keep the session indistinguishable from a signed-in desktop browser.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-popup-blocking", true),
	}
	if b.browser.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(b.browser.UserDataDir))
	}
	if b.browser.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	return opts
}

func (b *Backend) session() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return nil, fmt.Errorf("browser session not started")
	}
	return b.browserCtx, nil
}

// OpenLocator navigates to the locator and lets the page settle.
func (b *Backend) OpenLocator(ctx context.Context, locator string) error {
	session, err := b.session()
	if err != nil {
		return err
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(session, b.browser.WaitTimeout)
	defer cancel()
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(locator),
		chromedp.Sleep(b.browser.NavigateSettle),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", locator, err)
	}
	return nil
}

// ExtractVisibleCandidates snapshots the page and parses profile anchors out
// of it. Parsing problems yield an empty slice, not an error.
func (b *Backend) ExtractVisibleCandidates(ctx context.Context) ([]models.Target, error) {
	session, err := b.session()
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(session, b.browser.WaitTimeout)
	defer cancel()
	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, fmt.Errorf("snapshot page: %w", err)
	}
	return extractTargets(html, b.selectors), nil
}

// RevealMore scrolls the listing to its current bottom to trigger the next
// batch of results.
func (b *Backend) RevealMore(ctx context.Context) error {
	session, err := b.session()
	if err != nil {
		return err
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(session, b.browser.WaitTimeout)
	defer cancel()
	if err := chromedp.Run(runCtx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(b.browser.NavigateSettle),
	); err != nil {
		return fmt.Errorf("reveal more: %w", err)
	}
	return nil
}

// SearchLocator fills the keyword into the configured search URL template.
func (b *Backend) SearchLocator(keyword string) string {
	return fmt.Sprintf(b.selectors.SearchURL, url.QueryEscape(keyword))
}

// ExpansionLocator fills a target's bare identifier into the configured
// network-view URL template.
func (b *Backend) ExpansionLocator(t models.Target) string {
	return fmt.Sprintf(b.selectors.ExpansionURL, strings.TrimPrefix(t.Identifier, "@"))
}

// LocateComposerEntryPoint walks the composer-entry fallback chain and
// returns the first selector with a visible match.
func (b *Backend) LocateComposerEntryPoint(ctx context.Context) (interfaces.Handle, error) {
	selector, err := b.firstPresent(ctx, b.selectors.ComposerEntry)
	if err != nil {
		return nil, err
	}
	return handle{selector: selector}, nil
}

// firstPresent probes each selector in turn and returns the first one that
// currently matches a node. ErrNotFound when the whole chain misses.
func (b *Backend) firstPresent(ctx context.Context, chain []string) (string, error) {
	session, err := b.session()
	if err != nil {
		return "", err
	}

	deadline := time.Now().Add(b.browser.WaitTimeout)
	for {
		for _, selector := range chain {
			probeCtx, cancel := context.WithTimeout(session, 2*time.Second)
			var nodes []*cdp.Node
			err := chromedp.Run(probeCtx,
				chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
			cancel()
			if err == nil && len(nodes) > 0 {
				return selector, nil
			}
		}
		if time.Now().After(deadline) {
			return "", interfaces.ErrNotFound
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// Click activates the element behind the handle. A click that cannot land
// inside the wait budget reports ErrObstructed for the caller's retry loop.
func (b *Backend) Click(ctx context.Context, h interfaces.Handle) error {
	located, ok := h.(handle)
	if !ok {
		return fmt.Errorf("foreign element handle %T", h)
	}
	session, err := b.session()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(session, b.browser.WaitTimeout)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Click(located.selector, chromedp.ByQuery)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return interfaces.ErrObstructed
		}
		return fmt.Errorf("click %s: %w", located.selector, err)
	}
	return nil
}

// TypeText finds the composer input through its fallback chain and types the
// message into it.
func (b *Backend) TypeText(ctx context.Context, text string) error {
	selector, err := b.firstPresent(ctx, b.selectors.ComposerInput)
	if err != nil {
		return err
	}
	session, err := b.session()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(session, b.browser.WaitTimeout)
	defer cancel()
	if err := chromedp.Run(runCtx,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("type into %s: %w", selector, err)
	}
	return nil
}

// Submit sends the composed message with the platform's send keystroke.
func (b *Backend) Submit(ctx context.Context) error {
	selector, err := b.firstPresent(ctx, b.selectors.ComposerInput)
	if err != nil {
		return err
	}
	session, err := b.session()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(session, b.browser.WaitTimeout)
	defer cancel()
	if err := chromedp.Run(runCtx,
		chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

// WaitForConfirmation polls the confirmation markers until one appears or
// the wait budget runs out. With no markers configured, the settle interval
// stands in for positive confirmation.
func (b *Backend) WaitForConfirmation(ctx context.Context) error {
	if len(b.selectors.Confirmation) == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.browser.NavigateSettle):
			return nil
		}
	}
	if _, err := b.firstPresent(ctx, b.selectors.Confirmation); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return interfaces.ErrConfirmationTimeout
		}
		return err
	}
	return nil
}

// Close tears down the browser and allocator. Safe to call twice.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return nil
	}
	b.releaseLocked()
	b.started = false
	b.logger.Info().Msg("Browser session released")
	return nil
}

func (b *Backend) releaseLocked() {
	for _, cancel := range b.cancelChain {
		cancel()
	}
	b.cancelChain = nil
	b.browserCtx = nil
}

var _ interfaces.AutomationBackend = (*Backend)(nil)
