// Package notify renders milestone messages and fans them out to delivery
// channels (email, Pub/Sub, Kafka).
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// Fanout delivers to every configured channel. Delivery to one channel does
// not depend on another; all failures are joined into one NotifyError.
type Fanout struct {
	notifiers []tracker.Notifier
}

// NewFanout wraps notifiers; nil entries are ignored.
func NewFanout(notifiers ...tracker.Notifier) *Fanout {
	f := &Fanout{}
	for _, n := range notifiers {
		if n != nil {
			f.notifiers = append(f.notifiers, n)
		}
	}
	return f
}

// Name implements tracker.Notifier.
func (f *Fanout) Name() string {
	names := make([]string, 0, len(f.notifiers))
	for _, n := range f.notifiers {
		names = append(names, n.Name())
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// Len returns the number of channels.
func (f *Fanout) Len() int { return len(f.notifiers) }

// SendMilestoneNotification implements tracker.Notifier.
func (f *Fanout) SendMilestoneNotification(ctx context.Context, n tracker.MilestoneNotification) error {
	var errs []error
	for _, notifier := range f.notifiers {
		if err := notifier.SendMilestoneNotification(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &tracker.NotifyError{Channel: f.Name(), Err: errors.Join(errs...)}
}

// Subject renders the short headline for n.
func Subject(n tracker.MilestoneNotification) string {
	vessel := tracker.NormalizeVesselName(n.Watch.VesselName)
	if vessel == "" {
		return fmt.Sprintf("Container %s: %s", n.ContainerNo, n.Current)
	}
	return fmt.Sprintf("Container %s: %s (%s)", n.ContainerNo, n.Current, vessel)
}

// Body renders the plain-text message for n. Timestamps use Berlin time.
func Body(n tracker.MilestoneNotification) string {
	prev := "-"
	if n.Previous != nil {
		prev = string(*n.Previous)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Container: %s\n", n.ContainerNo)
	if v := tracker.NormalizeVesselName(n.Watch.VesselName); v != "" {
		fmt.Fprintf(&b, "Schiff: %s\n", v)
	}
	if n.Watch.ShipmentRef != "" {
		fmt.Fprintf(&b, "Sendung: %s\n", n.Watch.ShipmentRef)
	}
	fmt.Fprintf(&b, "Status: %s -> %s\n", prev, n.Current)
	fmt.Fprintf(&b, "Terminalstatus: %s\n", orDash(n.Result.StatusRaw))
	fmt.Fprintf(&b, "Terminal: %s (%s)\n", orDash(n.Result.Terminal), n.Result.Provider)
	if n.Result.ShippingLine != "" {
		fmt.Fprintf(&b, "Reederei: %s\n", n.Result.ShippingLine)
	}
	fmt.Fprintf(&b, "Freistellung: %s (%s)\n", orDash(n.Result.DischargeOrderStatus), tracker.FormatBerlin(n.Result.DischargeOrderAt))
	scraped := n.Result.ScrapedAt
	fmt.Fprintf(&b, "Abgefragt: %s\n", tracker.FormatBerlin(&scraped))
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
