package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

var testSelectors = Selectors{
	Status:               "#status",
	Terminal:             "#terminal",
	ShippingLine:         "#line",
	DischargeOrderStatus: "#order-status",
	DischargeOrderAt:     "#order-at",
	Delivered:            "#delivered",
	Ready:                "#ready",
	NotFound:             ".not-found",
}

func TestExtractReadyWithCompletedOrder(t *testing.T) {
	t.Parallel()

	page := []byte(`<html><body>
		<span id="status">  Ready for
			pickup </span>
		<span id="terminal">CTA</span>
		<span id="line">MSC</span>
		<span id="order-status">Completed</span>
		<span id="order-at">01.03.2024 09:30</span>
		<span id="delivered" data-value="false"></span>
	</body></html>`)
	now := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	res, err := Extract(page, testSelectors, tracker.ProviderHHLA, "GLDU9400713", now)
	require.NoError(t, err)
	require.Equal(t, "Ready for pickup", res.StatusRaw)
	require.Equal(t, tracker.StatusReady, res.Normalized)
	require.Equal(t, "CTA", res.Terminal)
	require.Equal(t, "MSC", res.ShippingLine)
	require.NotNil(t, res.DischargeOrderAt)
	require.Equal(t, time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), *res.DischargeOrderAt)
	require.False(t, res.DeliveredOut)
	require.Equal(t, now, res.ScrapedAt)
}

func TestExtractDeliveredFlagWins(t *testing.T) {
	t.Parallel()

	page := []byte(`<span id="status">Discharged</span><span id="ready">x</span><span id="delivered" data-value="ja"></span>`)
	res, err := Extract(page, testSelectors, tracker.ProviderEurogate, "MSCU1234567", time.Now())
	require.NoError(t, err)
	require.Equal(t, tracker.StatusDeliveredOut, res.Normalized)
	require.True(t, res.DeliveredOut)
	require.Nil(t, res.DischargeOrderAt)
}

func TestExtractFailures(t *testing.T) {
	t.Parallel()

	_, err := Extract([]byte(`<div class="not-found">Kein Treffer</div>`), testSelectors, tracker.ProviderHHLA, "MSCU1234567", time.Now())
	require.ErrorIs(t, err, ErrContainerNotFound)

	_, err = Extract([]byte(`<div>layout changed</div>`), testSelectors, tracker.ProviderHHLA, "MSCU1234567", time.Now())
	require.ErrorContains(t, err, "status element")

	_, err = Extract([]byte(`<span id="status">x</span><span id="order-at">soon</span>`), testSelectors, tracker.ProviderHHLA, "MSCU1234567", time.Now())
	require.ErrorContains(t, err, "discharge order time")
}

func TestSelectorsMerge(t *testing.T) {
	t.Parallel()

	merged := Selectors{Status: ".custom"}.Merge(testSelectors)
	require.Equal(t, ".custom", merged.Status)
	require.Equal(t, "#terminal", merged.Terminal)
}
