package poller

import (
	"fmt"
	"time"

	"github.com/JakeFAU/container-status-poller/internal/pool"
	"github.com/JakeFAU/container-status-poller/internal/retry"
)

// Settings is the immutable run configuration built once at startup.
type Settings struct {
	// Concurrency is the number of work items in flight.
	Concurrency int
	// MaxAttempts bounds scrape attempts per provider.
	MaxAttempts int
	// BaseDelay is the wait after the first failed attempt; it doubles each retry.
	BaseDelay time.Duration
	// SkipDelivered skips containers whose stored state is DELIVERED_OUT.
	SkipDelivered bool
	// Headless is passed through to the browser-backed provider.
	Headless bool
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		Concurrency:   pool.DefaultLimit,
		MaxAttempts:   retry.DefaultMaxAttempts,
		BaseDelay:     retry.DefaultBaseDelay,
		SkipDelivered: true,
		Headless:      true,
	}
}

// Validate rejects settings the orchestrator cannot run with.
func (s Settings) Validate() error {
	if s.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", s.Concurrency)
	}
	if s.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive, got %d", s.MaxAttempts)
	}
	if s.BaseDelay < 0 {
		return fmt.Errorf("base delay must not be negative, got %s", s.BaseDelay)
	}
	return nil
}

func (s Settings) retryPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: s.MaxAttempts, BaseDelay: s.BaseDelay}
}
