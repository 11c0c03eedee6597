package tracker

import (
	"context"
	"time"
)

// Provider fetches the current status of one container from a terminal portal.
// Implementations must return a *ScrapeError on failure and release any
// per-call browser or connection state before returning.
type Provider interface {
	Name() ProviderName
	Scrape(ctx context.Context, containerNo string) (ScrapeResult, error)
}

// WatchStore loads the watches and baselines a run operates on.
type WatchStore interface {
	// LoadActiveWatches returns every watch with at least one container
	// reference, regardless of notification preference.
	LoadActiveWatches(ctx context.Context) ([]Watch, error)
	// LoadLatestStatuses returns baselines for all given watches in one call.
	LoadLatestStatuses(ctx context.Context, watchIDs []string) (map[LatestKey]LatestStatus, error)
}

// StatusStore persists status changes and the notification ledger.
type StatusStore interface {
	UpsertLatest(ctx context.Context, latest LatestStatus) error
	AppendEvent(ctx context.Context, event StatusEvent) error
	// TryInsertNotificationRecord atomically inserts the record. It returns
	// false, nil when the same transition was already recorded.
	TryInsertNotificationRecord(ctx context.Context, record NotificationRecord) (bool, error)
}

// RunStore persists finalized run summaries.
type RunStore interface {
	SaveRunSummary(ctx context.Context, summary RunSummary) error
}

// Notifier delivers a milestone message to the watch owner.
type Notifier interface {
	Name() string
	SendMilestoneNotification(ctx context.Context, n MilestoneNotification) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
