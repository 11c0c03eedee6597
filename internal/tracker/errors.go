package tracker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("poll run already in progress")

// ScrapeError is a transient provider failure (network, timeout, DOM shape).
type ScrapeError struct {
	Provider    ProviderName
	ContainerNo string
	Err         error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s via %s: %v", e.ContainerNo, e.Provider, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// NewScrapeError wraps err for the given provider and container.
func NewScrapeError(provider ProviderName, containerNo string, err error) error {
	return &ScrapeError{Provider: provider, ContainerNo: containerNo, Err: err}
}

// NoResultError reports that every provider and attempt was exhausted.
type NoResultError struct {
	ContainerNo string
	Tried       []ProviderName
}

func (e *NoResultError) Error() string {
	names := make([]string, 0, len(e.Tried))
	for _, p := range e.Tried {
		names = append(names, string(p))
	}
	return fmt.Sprintf("no result for %s (tried: %s)", e.ContainerNo, strings.Join(names, ","))
}

// StoreError is a persistence failure other than a duplicate notification.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NotifyError is a delivery failure. It is never retried.
type NotifyError struct {
	Channel string
	Err     error
}

func (e *NotifyError) Error() string {
	return fmt.Sprintf("notify via %s: %v", e.Channel, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }
