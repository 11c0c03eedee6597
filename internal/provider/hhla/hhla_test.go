package hhla

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

func newTestProvider(t *testing.T, render renderFunc) *Provider {
	t.Helper()
	p, err := New(Config{Headless: true})
	require.NoError(t, err)
	t.Cleanup(p.Close)
	p.render = render
	p.now = func() time.Time { return time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC) }
	return p
}

func TestNewValidatesTemplate(t *testing.T) {
	t.Parallel()

	_, err := New(Config{URLTemplate: "https://example.com/no-placeholder"})
	require.Error(t, err)

	p, err := New(Config{})
	require.NoError(t, err)
	defer p.Close()
	require.Equal(t, defaultNavTimeout, p.cfg.NavigationTimeout)
	require.Equal(t, "body", p.cfg.WaitSelector)
	require.Equal(t, DefaultSelectors.Status, p.cfg.Selectors.Status)
	require.Equal(t, tracker.ProviderHHLA, p.Name())
}

func TestNewSharesOneBrowserContext(t *testing.T) {
	t.Parallel()

	p, err := New(Config{Headless: true})
	require.NoError(t, err)
	require.NotNil(t, chromedp.FromContext(p.browserCtx))
	require.False(t, p.started)
	require.NoError(t, p.browserCtx.Err())

	p.Close()
	require.ErrorIs(t, p.browserCtx.Err(), context.Canceled)
}

func TestScrapeExtractsRenderedDOM(t *testing.T) {
	t.Parallel()

	var gotURL string
	p := newTestProvider(t, func(_ context.Context, pageURL string) (string, error) {
		gotURL = pageURL
		return `<html><body>
			<div data-testid="container-status">Entladen</div>
			<div data-testid="terminal">CTB</div>
			<div data-testid="discharge-order-status">Erledigt</div>
			<div data-testid="discharge-order-date">01.03.2024</div>
		</body></html>`, nil
	})

	res, err := p.Scrape(context.Background(), "MSCU1234567")
	require.NoError(t, err)
	require.Equal(t, "https://coast.hhla.de/containerauskunft?container=MSCU1234567", gotURL)
	require.Equal(t, tracker.StatusDischarged, res.Normalized)
	require.Equal(t, "CTB", res.Terminal)
	require.Equal(t, tracker.ProviderHHLA, res.Provider)
	require.Equal(t, "MSCU1234567", res.ContainerNo)
}

func TestScrapeWrapsFailuresAsScrapeError(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, func(context.Context, string) (string, error) {
		return "", errors.New("net::ERR_TIMED_OUT")
	})
	_, err := p.Scrape(context.Background(), "MSCU1234567")
	var scrapeErr *tracker.ScrapeError
	require.ErrorAs(t, err, &scrapeErr)
	require.Equal(t, tracker.ProviderHHLA, scrapeErr.Provider)

	p = newTestProvider(t, func(context.Context, string) (string, error) {
		return `<div data-testid="no-result">Kein Container gefunden</div>`, nil
	})
	_, err = p.Scrape(context.Background(), "MSCU1234567")
	require.ErrorAs(t, err, &scrapeErr)
}
