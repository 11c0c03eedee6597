// Package memory contains an in-memory notifier for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// Notifier stores delivered notifications for inspection.
type Notifier struct {
	mu   sync.RWMutex
	sent []tracker.MilestoneNotification
	err  error
}

// New returns a memory Notifier.
func New() *Notifier {
	return &Notifier{}
}

// FailWith makes subsequent sends record the call and return err.
func (n *Notifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

// Name implements tracker.Notifier.
func (*Notifier) Name() string { return "memory" }

// SendMilestoneNotification records the call.
func (n *Notifier) SendMilestoneNotification(_ context.Context, msg tracker.MilestoneNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

// Sent returns the recorded calls.
func (n *Notifier) Sent() []tracker.MilestoneNotification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]tracker.MilestoneNotification, len(n.sent))
	copy(out, n.sent)
	return out
}
