package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

type namedProvider struct{ name tracker.ProviderName }

func (p namedProvider) Name() tracker.ProviderName { return p.name }

func (p namedProvider) Scrape(context.Context, string) (tracker.ScrapeResult, error) {
	return tracker.ScrapeResult{Provider: p.name}, nil
}

func names(ps []tracker.Provider) []tracker.ProviderName {
	out := make([]tracker.ProviderName, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name())
	}
	return out
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(nil,
		namedProvider{tracker.ProviderEurogate},
		namedProvider{tracker.ProviderHHLA},
	)
	require.NoError(t, err)

	require.Equal(t, []tracker.ProviderName{tracker.ProviderHHLA, tracker.ProviderEurogate}, names(reg.Resolve(tracker.ProviderAuto)))
	require.Equal(t, []tracker.ProviderName{tracker.ProviderHHLA, tracker.ProviderEurogate}, names(reg.Resolve("")))
	require.Equal(t, []tracker.ProviderName{tracker.ProviderEurogate}, names(reg.Resolve(tracker.ProviderEurogate)))
	require.Equal(t, []tracker.ProviderName{tracker.ProviderHHLA, tracker.ProviderEurogate}, reg.Names())
}

func TestRegistryCustomOrderAndMissing(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry([]tracker.ProviderName{tracker.ProviderEurogate, tracker.ProviderHHLA},
		namedProvider{tracker.ProviderHHLA},
	)
	require.NoError(t, err)
	require.Equal(t, []tracker.ProviderName{tracker.ProviderHHLA}, names(reg.Resolve(tracker.ProviderAuto)))
	require.Empty(t, reg.Resolve(tracker.ProviderEurogate))
}

func TestRegistryRejectsInvalid(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry(nil, namedProvider{tracker.ProviderHHLA}, namedProvider{tracker.ProviderHHLA})
	require.Error(t, err)
	_, err = NewRegistry(nil, namedProvider{tracker.ProviderAuto})
	require.Error(t, err)
	_, err = NewRegistry([]tracker.ProviderName{tracker.ProviderAuto})
	require.Error(t, err)
}
