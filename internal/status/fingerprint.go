package status

import (
	"time"

	"github.com/JakeFAU/container-status-poller/internal/hash/sha256"
	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

var hasher = sha256.New()

// Fingerprint returns the status hash of r. ScrapedAt, Provider, and
// ShippingLine are not part of the comparison set.
func Fingerprint(r tracker.ScrapeResult) string {
	return hasher.HashFields(
		string(r.Normalized),
		r.StatusRaw,
		r.Terminal,
		r.DischargeOrderStatus,
		formatOptionalTime(r.DischargeOrderAt),
		formatBool(r.DeliveredOut),
	)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
