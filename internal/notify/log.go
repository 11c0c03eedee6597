package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// LogNotifier writes milestones to the log. It is the fallback channel when
// nothing else is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Name implements tracker.Notifier.
func (*LogNotifier) Name() string { return "log" }

// SendMilestoneNotification implements tracker.Notifier.
func (l *LogNotifier) SendMilestoneNotification(_ context.Context, n tracker.MilestoneNotification) error {
	l.logger.Info("milestone reached",
		zap.String("watch_id", n.Watch.ID),
		zap.String("container_no", n.ContainerNo),
		zap.String("status", string(n.Current)),
		zap.String("subject", Subject(n)),
	)
	return nil
}
