// Package provider selects terminal portal adapters and holds the HTML
// extraction shared by them.
package provider

import (
	"fmt"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// DefaultOrder is the AUTO fallback order: primary terminal first.
var DefaultOrder = []tracker.ProviderName{tracker.ProviderHHLA, tracker.ProviderEurogate}

// Registry maps provider names to adapters and resolves a watch preference
// into the ordered list of adapters to try.
type Registry struct {
	providers map[tracker.ProviderName]tracker.Provider
	order     []tracker.ProviderName
}

// NewRegistry builds a Registry. order defaults to DefaultOrder; names in
// order without a registered adapter are skipped at resolve time.
func NewRegistry(order []tracker.ProviderName, providers ...tracker.Provider) (*Registry, error) {
	if len(order) == 0 {
		order = DefaultOrder
	}
	r := &Registry{
		providers: make(map[tracker.ProviderName]tracker.Provider, len(providers)),
		order:     append([]tracker.ProviderName(nil), order...),
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		name := p.Name()
		if name == tracker.ProviderAuto || name == "" {
			return nil, fmt.Errorf("provider name %q is reserved", name)
		}
		if _, dup := r.providers[name]; dup {
			return nil, fmt.Errorf("provider %s registered twice", name)
		}
		r.providers[name] = p
	}
	for _, name := range r.order {
		if name == tracker.ProviderAuto {
			return nil, fmt.Errorf("AUTO cannot appear in provider order")
		}
	}
	return r, nil
}

// Resolve returns the adapters to try for pref. An explicit provider pins a
// single adapter; AUTO or empty yields the configured order.
func (r *Registry) Resolve(pref tracker.ProviderName) []tracker.Provider {
	if pref != "" && pref != tracker.ProviderAuto {
		if p, ok := r.providers[pref]; ok {
			return []tracker.Provider{p}
		}
		return nil
	}
	out := make([]tracker.Provider, 0, len(r.order))
	for _, name := range r.order {
		if p, ok := r.providers[name]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Names returns the registered provider names in resolve order.
func (r *Registry) Names() []tracker.ProviderName {
	var out []tracker.ProviderName
	for _, p := range r.Resolve(tracker.ProviderAuto) {
		out = append(out, p.Name())
	}
	return out
}
