// Package eurogate implements the EUROGATE terminal adapter with Colly.
package eurogate

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/container-status-poller/internal/provider"
	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

const defaultTimeout = 15 * time.Second

// DefaultURLTemplate is the public container inquiry page; %s is the container number.
const DefaultURLTemplate = "https://www.eurogate.de/containerauskunft?containerNumber=%s"

// DefaultSelectors match the EUROGATE inquiry result table.
var DefaultSelectors = provider.Selectors{
	Status:               "td.container-status",
	Terminal:             "td.terminal",
	ShippingLine:         "td.carrier",
	DischargeOrderStatus: "td.discharge-order",
	DischargeOrderAt:     "td.discharge-order-date",
	Delivered:            "td.gate-out-date",
	NotFound:             ".no-results",
}

// Config controls collector behavior.
type Config struct {
	URLTemplate string
	Selectors   provider.Selectors
	UserAgent   string
	Timeout     time.Duration
}

// Provider scrapes EUROGATE with a cloned collector per request.
type Provider struct {
	cfg           Config
	baseCollector *colly.Collector
	now           func() time.Time
}

// New builds the adapter.
func New(cfg Config) (*Provider, error) {
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	if strings.Count(cfg.URLTemplate, "%s") != 1 {
		return nil, fmt.Errorf("eurogate url template must contain exactly one %%s")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.Selectors = cfg.Selectors.Merge(DefaultSelectors)

	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(newHTTPTransport())
	return &Provider{cfg: cfg, baseCollector: c, now: time.Now}, nil
}

// Name implements tracker.Provider.
func (p *Provider) Name() tracker.ProviderName { return tracker.ProviderEurogate }

// Scrape fetches the inquiry page for containerNo and extracts its status.
func (p *Provider) Scrape(ctx context.Context, containerNo string) (tracker.ScrapeResult, error) {
	pageURL := fmt.Sprintf(p.cfg.URLTemplate, url.QueryEscape(containerNo))
	body, err := p.fetch(ctx, pageURL)
	if err != nil {
		return tracker.ScrapeResult{}, tracker.NewScrapeError(tracker.ProviderEurogate, containerNo, err)
	}
	res, err := provider.Extract(body, p.cfg.Selectors, tracker.ProviderEurogate, containerNo, p.now())
	if err != nil {
		return tracker.ScrapeResult{}, tracker.NewScrapeError(tracker.ProviderEurogate, containerNo, err)
	}
	return res, nil
}

func (p *Provider) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	collector := p.baseCollector.Clone()
	if p.cfg.UserAgent != "" {
		collector.UserAgent = p.cfg.UserAgent
	}
	collector.SetRequestTimeout(p.cfg.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(pageURL)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return nil, fmt.Errorf("colly response failed: %w", fetchErr)
		}
		if err != nil {
			return nil, fmt.Errorf("colly visit failed: %w", err)
		}
		if len(body) == 0 {
			return nil, fmt.Errorf("empty response body")
		}
		return body, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
	}
}
