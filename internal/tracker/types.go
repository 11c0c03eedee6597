package tracker

import (
	"fmt"
	"strings"
	"time"
)

// ProviderName identifies a terminal tracking portal.
type ProviderName string

// Known providers. ProviderAuto lets the registry pick in priority order.
const (
	ProviderHHLA     ProviderName = "HHLA"
	ProviderEurogate ProviderName = "EUROGATE"
	ProviderAuto     ProviderName = "AUTO"
)

// ParseProviderName maps free-form input to a ProviderName. Empty input is AUTO.
func ParseProviderName(raw string) (ProviderName, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", string(ProviderAuto):
		return ProviderAuto, nil
	case string(ProviderHHLA):
		return ProviderHHLA, nil
	case string(ProviderEurogate):
		return ProviderEurogate, nil
	default:
		return "", fmt.Errorf("unknown provider %q", raw)
	}
}

// NormalizedStatus is the canonical container lifecycle state.
type NormalizedStatus string

// Lifecycle states in ascending order.
const (
	StatusPreannounced NormalizedStatus = "PREANNOUNCED"
	StatusDischarged   NormalizedStatus = "DISCHARGED"
	StatusReady        NormalizedStatus = "READY"
	StatusDeliveredOut NormalizedStatus = "DELIVERED_OUT"
)

// Rank orders the lifecycle; unknown values rank below PREANNOUNCED.
func (s NormalizedStatus) Rank() int {
	switch s {
	case StatusPreannounced:
		return 1
	case StatusDischarged:
		return 2
	case StatusReady:
		return 3
	case StatusDeliveredOut:
		return 4
	default:
		return 0
	}
}

// IsMilestone reports whether reaching s should notify subscribers.
func (s NormalizedStatus) IsMilestone() bool {
	switch s {
	case StatusDischarged, StatusReady, StatusDeliveredOut:
		return true
	default:
		return false
	}
}

// EventType is the notification ledger key component for reaching s.
func (s NormalizedStatus) EventType() string {
	return "status_" + strings.ToLower(string(s))
}

// ParseNormalizedStatus validates a persisted status string.
func ParseNormalizedStatus(raw string) (NormalizedStatus, error) {
	s := NormalizedStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if s.Rank() == 0 {
		return "", fmt.Errorf("unknown normalized status %q", raw)
	}
	return s, nil
}

// Watch is a user's subscription to a shipment and its containers.
type Watch struct {
	ID                   string       `json:"id"`
	UserID               string       `json:"user_id"`
	UserEmail            string       `json:"user_email,omitempty"`
	VesselName           string       `json:"vessel_name"`
	ShipmentRef          string       `json:"shipment_reference,omitempty"`
	ContainerRefs        string       `json:"container_refs"`
	Provider             ProviderName `json:"provider"`
	NotificationsEnabled bool         `json:"notifications_enabled"`
}

// ScrapeResult is one provider answer for one container.
type ScrapeResult struct {
	ContainerNo          string           `json:"container_no"`
	Provider             ProviderName     `json:"provider"`
	StatusRaw            string           `json:"status_raw"`
	Normalized           NormalizedStatus `json:"normalized_status"`
	Terminal             string           `json:"terminal"`
	ShippingLine         string           `json:"shipping_line,omitempty"`
	DischargeOrderStatus string           `json:"discharge_order_status,omitempty"`
	DischargeOrderAt     *time.Time       `json:"discharge_order_ts,omitempty"`
	DeliveredOut         bool             `json:"delivered_out"`
	ScrapedAt            time.Time        `json:"scraped_at"`
}

// LatestKey addresses a LatestStatus row.
type LatestKey struct {
	WatchID     string
	ContainerNo string
}

// LatestStatus is the comparison baseline for one watch and container.
type LatestStatus struct {
	WatchID     string       `json:"watch_id"`
	ContainerNo string       `json:"container_no"`
	Result      ScrapeResult `json:"result"`
	StatusHash  string       `json:"status_hash"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Key returns the row key.
func (l LatestStatus) Key() LatestKey {
	return LatestKey{WatchID: l.WatchID, ContainerNo: l.ContainerNo}
}

// StatusEvent is an append-only transition record.
type StatusEvent struct {
	WatchID     string            `json:"watch_id"`
	ContainerNo string            `json:"container_no"`
	Previous    *NormalizedStatus `json:"previous_status,omitempty"`
	Current     NormalizedStatus  `json:"new_status"`
	StatusHash  string            `json:"status_hash"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// NotificationRecord is the idempotency ledger entry for one transition.
type NotificationRecord struct {
	WatchID     string    `json:"watch_id"`
	ContainerNo string    `json:"container_no"`
	EventType   string    `json:"event_type"`
	StatusHash  string    `json:"status_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// MilestoneNotification is the payload handed to a Notifier.
type MilestoneNotification struct {
	Watch       Watch             `json:"watch"`
	ContainerNo string            `json:"container_no"`
	Previous    *NormalizedStatus `json:"previous_status,omitempty"`
	Current     NormalizedStatus  `json:"new_status"`
	Result      ScrapeResult      `json:"result"`
	StatusHash  string            `json:"status_hash"`
}

// WorkItem is one watch and container pair checked during a run.
type WorkItem struct {
	Watch       Watch
	ContainerNo string
}

// Key returns the LatestStatus key for the item.
func (w WorkItem) Key() LatestKey {
	return LatestKey{WatchID: w.Watch.ID, ContainerNo: w.ContainerNo}
}

// Outcome is the terminal state of one work item.
type Outcome string

// Work item outcomes.
const (
	OutcomeSkippedTerminal Outcome = "SKIPPED_TERMINAL"
	OutcomeNoResult        Outcome = "NO_RESULT"
	OutcomeUnchanged       Outcome = "UNCHANGED"
	OutcomeChanged         Outcome = "CHANGED"
	OutcomeFailed          Outcome = "FAILED"
)

// RunSummary aggregates one polling invocation.
type RunSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Loaded     int       `json:"loaded"`
	Skipped    int       `json:"skipped"`
	OK         int       `json:"ok"`
	Failed     int       `json:"failed"`
	Changed    int       `json:"changed"`
	Unchanged  int       `json:"unchanged"`
	Notified   int       `json:"notified"`
	Error      string    `json:"error,omitempty"`
	Transcript []string  `json:"transcript"`
}
