// Package hhla implements the HHLA terminal adapter on top of headless Chrome.
// The HHLA portal renders results client-side. One Chrome process is shared by
// the adapter and each scrape opens its own tab in it, waits for the result
// panel, and reads the rendered DOM.
package hhla

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/container-status-poller/internal/provider"
	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

const defaultNavTimeout = 45 * time.Second

// DefaultURLTemplate is the public container tracking page; %s is the container number.
const DefaultURLTemplate = "https://coast.hhla.de/containerauskunft?container=%s"

// DefaultSelectors match the HHLA result panel.
var DefaultSelectors = provider.Selectors{
	Status:               "[data-testid='container-status']",
	Terminal:             "[data-testid='terminal']",
	ShippingLine:         "[data-testid='shipping-line']",
	DischargeOrderStatus: "[data-testid='discharge-order-status']",
	DischargeOrderAt:     "[data-testid='discharge-order-date']",
	Delivered:            "[data-testid='gate-out']",
	Ready:                "[data-testid='release-status'][data-value]",
	NotFound:             "[data-testid='no-result']",
}

// Config controls the headless adapter.
type Config struct {
	URLTemplate       string
	Selectors         provider.Selectors
	Headless          bool
	UserAgent         string
	NavigationTimeout time.Duration
	// WaitSelector is awaited before the DOM is read. Defaults to "body".
	WaitSelector string
}

type renderFunc func(ctx context.Context, pageURL string) (string, error)

// Provider scrapes HHLA with chromedp.
type Provider struct {
	cfg           Config
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	render        renderFunc
	now           func() time.Time

	startMu sync.Mutex
	started bool
}

// New creates the adapter and its browser context. The Chrome process is
// launched on the first scrape and reused by later ones until Close.
func New(cfg Config) (*Provider, error) {
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	if strings.Count(cfg.URLTemplate, "%s") != 1 {
		return nil, fmt.Errorf("hhla url template must contain exactly one %%s")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	if cfg.WaitSelector == "" {
		cfg.WaitSelector = "body"
	}
	cfg.Selectors = cfg.Selectors.Merge(DefaultSelectors)

	headless := chromedp.Flag("headless", "new")
	if !cfg.Headless {
		headless = chromedp.Flag("headless", false)
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		headless,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	p := &Provider{
		cfg:           cfg,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		now:           time.Now,
	}
	p.render = p.renderChromedp
	return p, nil
}

// Name implements tracker.Provider.
func (p *Provider) Name() tracker.ProviderName { return tracker.ProviderHHLA }

// Close shuts down the browser.
func (p *Provider) Close() {
	if p.browserCancel != nil {
		p.browserCancel()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
}

// Scrape renders the tracking page for containerNo and extracts its status.
func (p *Provider) Scrape(ctx context.Context, containerNo string) (tracker.ScrapeResult, error) {
	pageURL := fmt.Sprintf(p.cfg.URLTemplate, url.QueryEscape(containerNo))
	html, err := p.render(ctx, pageURL)
	if err != nil {
		return tracker.ScrapeResult{}, tracker.NewScrapeError(tracker.ProviderHHLA, containerNo, err)
	}
	res, err := provider.Extract([]byte(html), p.cfg.Selectors, tracker.ProviderHHLA, containerNo, p.now())
	if err != nil {
		return tracker.ScrapeResult{}, tracker.NewScrapeError(tracker.ProviderHHLA, containerNo, err)
	}
	return res, nil
}

// startBrowser launches Chrome once. A failed launch is retried on the next scrape.
func (p *Provider) startBrowser() error {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if p.started {
		return nil
	}
	if err := chromedp.Run(p.browserCtx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	p.started = true
	return nil
}

// renderChromedp opens a tab in the shared browser; canceling its context
// closes the tab on every return path.
func (p *Provider) renderChromedp(ctx context.Context, pageURL string) (string, error) {
	if err := p.startBrowser(); err != nil {
		return "", err
	}
	tabCtx, tabCancel := chromedp.NewContext(p.browserCtx)
	defer tabCancel()

	tabCtx, cancel := context.WithTimeout(tabCtx, p.cfg.NavigationTimeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	actions := []chromedp.Action{
		p.networkSetupAction(),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady(p.cfg.WaitSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

func (p *Provider) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if p.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(p.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}
