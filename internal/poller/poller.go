package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/JakeFAU/container-status-poller/internal/clock/system"
	"github.com/JakeFAU/container-status-poller/internal/containerno"
	"github.com/JakeFAU/container-status-poller/internal/id/uuid"
	"github.com/JakeFAU/container-status-poller/internal/metrics"
	"github.com/JakeFAU/container-status-poller/internal/notify"
	"github.com/JakeFAU/container-status-poller/internal/pool"
	"github.com/JakeFAU/container-status-poller/internal/provider"
	"github.com/JakeFAU/container-status-poller/internal/ratelimit"
	"github.com/JakeFAU/container-status-poller/internal/recorder"
	"github.com/JakeFAU/container-status-poller/internal/retry"
	"github.com/JakeFAU/container-status-poller/internal/status"
	"github.com/JakeFAU/container-status-poller/internal/storage"
	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// Deps are the collaborators of a Poller. Watches, Statuses, and Registry
// are required.
type Deps struct {
	Watches   tracker.WatchStore
	Statuses  tracker.StatusStore
	Runs      tracker.RunStore
	Archivers []storage.Archiver
	Registry  *provider.Registry
	Notifier  tracker.Notifier
	Limiter   *ratelimit.Limiter
	Clock     tracker.Clock
	IDs       tracker.IDGenerator
	Logger    *zap.Logger
	// RetryTimer overrides backoff sleeps (tests).
	RetryTimer backoff.Timer
}

// Poller executes polling runs.
type Poller struct {
	settings Settings
	deps     Deps
	logger   *zap.Logger
	// delivers is false when the notifier has no channels to send through.
	delivers bool
}

// channelCounter is implemented by notifiers that fan out to other channels.
type channelCounter interface {
	Len() int
}

// New validates settings and fills optional dependencies.
func New(settings Settings, deps Deps) (*Poller, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if deps.Watches == nil || deps.Statuses == nil {
		return nil, fmt.Errorf("watch and status stores are required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NewFanout()
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	if deps.IDs == nil {
		deps.IDs = uuid.NewGenerator()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	delivers := true
	if cc, ok := deps.Notifier.(channelCounter); ok && cc.Len() == 0 {
		delivers = false
	}
	return &Poller{settings: settings, deps: deps, logger: deps.Logger, delivers: delivers}, nil
}

// Settings returns the run configuration.
func (p *Poller) Settings() Settings {
	return p.settings
}

// Run executes one polling pass and returns its finalized summary. The error
// is non-nil only when the run aborted before processing work items.
// Persisting the summary is best-effort and never changes the result.
// Cancellation of ctx is ignored: a started run always processes every work
// item so that status rows, events, and the notification ledger stay in step.
func (p *Poller) Run(ctx context.Context) (tracker.RunSummary, error) {
	ctx = context.WithoutCancel(ctx)
	runID, err := p.deps.IDs.NewID()
	if err != nil {
		return tracker.RunSummary{}, fmt.Errorf("new run id: %w", err)
	}
	rec := recorder.New(runID, p.deps.Clock.Now(), p.logger)
	log := rec.Logger().Named("poller")

	runErr := p.execute(ctx, rec, log)
	if runErr != nil {
		rec.Fail(runErr)
		log.Error("run aborted", zap.Error(runErr))
	}
	snap := rec.Snapshot()
	log.Info("run finished",
		zap.Int("loaded", snap.Loaded),
		zap.Int("skipped", snap.Skipped),
		zap.Int("ok", snap.OK),
		zap.Int("failed", snap.Failed),
		zap.Int("changed", snap.Changed),
		zap.Int("notified", snap.Notified))

	sum := rec.Finalize(p.deps.Clock.Now())
	result := "completed"
	if runErr != nil {
		result = "aborted"
	}
	metrics.ObserveRun(result, sum.FinishedAt.Sub(sum.StartedAt))

	if err := rec.Persist(context.WithoutCancel(ctx), sum, p.deps.Runs, p.deps.Archivers...); err != nil {
		p.logger.Warn("run summary persistence incomplete", zap.String("run_id", runID), zap.Error(err))
	}
	return sum, runErr
}

func (p *Poller) execute(ctx context.Context, rec *recorder.Recorder, log *zap.Logger) error {
	log.Info("run started",
		zap.Int("concurrency", p.settings.Concurrency),
		zap.Int("max_attempts", p.settings.MaxAttempts),
		zap.Duration("base_delay", p.settings.BaseDelay),
		zap.Bool("skip_delivered", p.settings.SkipDelivered),
		zap.String("notifier", p.deps.Notifier.Name()))

	watches, err := p.deps.Watches.LoadActiveWatches(ctx)
	if err != nil {
		return asStoreError("load active watches", err)
	}
	ids := make([]string, 0, len(watches))
	for _, w := range watches {
		ids = append(ids, w.ID)
	}
	latest, err := p.deps.Watches.LoadLatestStatuses(ctx, ids)
	if err != nil {
		return asStoreError("load latest statuses", err)
	}

	items := containerno.Expand(watches)
	rec.SetLoaded(len(items))
	log.Info("work items loaded", zap.Int("watches", len(watches)), zap.Int("work_items", len(items)))

	workers := pool.New[tracker.WorkItem](p.settings.Concurrency, func(item tracker.WorkItem, recovered any) {
		log.Error("work item panicked",
			zap.String("watch_id", item.Watch.ID),
			zap.String("container_no", item.ContainerNo),
			zap.Any("panic", recovered))
		rec.Record(tracker.OutcomeFailed)
		metrics.ObserveItem("", string(tracker.OutcomeFailed))
	})
	err = workers.Run(ctx, items, func(ctx context.Context, item tracker.WorkItem) {
		metrics.IncInflight()
		defer metrics.DecInflight()
		outcome, providerName := p.processItem(ctx, rec, log, latest, item)
		rec.Record(outcome)
		metrics.ObserveItem(string(providerName), string(outcome))
	})
	if err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	return nil
}

// processItem drives one work item to its terminal outcome.
func (p *Poller) processItem(
	ctx context.Context,
	rec *recorder.Recorder,
	log *zap.Logger,
	latest map[tracker.LatestKey]tracker.LatestStatus,
	item tracker.WorkItem,
) (tracker.Outcome, tracker.ProviderName) {
	ilog := log.With(zap.String("watch_id", item.Watch.ID), zap.String("container_no", item.ContainerNo))
	prev, hasPrev := latest[item.Key()]

	if p.settings.SkipDelivered && hasPrev && prev.Result.Normalized == tracker.StatusDeliveredOut {
		ilog.Debug("skipping delivered container")
		return tracker.OutcomeSkippedTerminal, prev.Result.Provider
	}

	result, err := p.scrape(ctx, ilog, item)
	if err != nil {
		ilog.Warn("no result", zap.Error(err))
		return tracker.OutcomeNoResult, ""
	}
	ilog = ilog.With(zap.String("provider", string(result.Provider)))

	hash := status.Fingerprint(result)
	if hasPrev && prev.StatusHash == hash {
		ilog.Debug("status unchanged", zap.String("status", string(result.Normalized)))
		return tracker.OutcomeUnchanged, result.Provider
	}

	now := p.deps.Clock.Now()
	var previous *tracker.NormalizedStatus
	if hasPrev {
		ps := prev.Result.Normalized
		previous = &ps
	}
	if err := p.deps.Statuses.UpsertLatest(ctx, tracker.LatestStatus{
		WatchID:     item.Watch.ID,
		ContainerNo: item.ContainerNo,
		Result:      result,
		StatusHash:  hash,
		UpdatedAt:   now,
	}); err != nil {
		ilog.Error("upsert latest status failed", zap.Error(asStoreError("upsert latest", err)))
		return tracker.OutcomeFailed, result.Provider
	}
	if err := p.deps.Statuses.AppendEvent(ctx, tracker.StatusEvent{
		WatchID:     item.Watch.ID,
		ContainerNo: item.ContainerNo,
		Previous:    previous,
		Current:     result.Normalized,
		StatusHash:  hash,
		OccurredAt:  now,
	}); err != nil {
		ilog.Error("append status event failed", zap.Error(asStoreError("append event", err)))
		return tracker.OutcomeFailed, result.Provider
	}
	ilog.Info("status changed",
		zap.Stringp("previous_status", (*string)(previous)),
		zap.String("status", string(result.Normalized)),
		zap.String("status_raw", result.StatusRaw))

	if !item.Watch.NotificationsEnabled || !result.Normalized.IsMilestone() {
		return tracker.OutcomeChanged, result.Provider
	}
	if !p.delivers {
		ilog.Warn("milestone not notified: no notification channels configured",
			zap.String("status", string(result.Normalized)))
		return tracker.OutcomeChanged, result.Provider
	}
	if err := p.notifyMilestone(ctx, rec, ilog, item, previous, result, hash, now); err != nil {
		ilog.Error("record notification failed", zap.Error(err))
		return tracker.OutcomeFailed, result.Provider
	}
	return tracker.OutcomeChanged, result.Provider
}

// scrape tries each resolved provider through the retry controller. The
// first success is authoritative.
func (p *Poller) scrape(ctx context.Context, log *zap.Logger, item tracker.WorkItem) (tracker.ScrapeResult, error) {
	providers := p.deps.Registry.Resolve(item.Watch.Provider)
	if len(providers) == 0 {
		log.Warn("no provider registered", zap.String("preference", string(item.Watch.Provider)))
	}
	policy := p.settings.retryPolicy()
	policy.Timer = p.deps.RetryTimer

	tried := make([]tracker.ProviderName, 0, len(providers))
	for _, prov := range providers {
		name := prov.Name()
		tried = append(tried, name)
		plog := log.With(zap.String("provider", string(name)))
		result, ok, err := retry.Do(ctx, policy, plog, func(ctx context.Context, _ int) (tracker.ScrapeResult, error) {
			if err := p.deps.Limiter.Wait(ctx, string(name)); err != nil {
				return tracker.ScrapeResult{}, tracker.NewScrapeError(name, item.ContainerNo, err)
			}
			res, err := prov.Scrape(ctx, item.ContainerNo)
			metrics.ObserveScrapeAttempt(string(name), err == nil)
			return res, err
		})
		if ok {
			return p.complete(result, name, item.ContainerNo), nil
		}
		if len(providers) > len(tried) {
			plog.Info("falling back to next provider", zap.Error(err))
		}
	}
	return tracker.ScrapeResult{}, &tracker.NoResultError{ContainerNo: item.ContainerNo, Tried: tried}
}

// complete fills identity fields an adapter left empty.
func (p *Poller) complete(r tracker.ScrapeResult, name tracker.ProviderName, containerNo string) tracker.ScrapeResult {
	if r.Provider == "" {
		r.Provider = name
	}
	if r.ContainerNo == "" {
		r.ContainerNo = containerNo
	}
	if r.ScrapedAt.IsZero() {
		r.ScrapedAt = p.deps.Clock.Now()
	}
	return r
}

// notifyMilestone claims the notification ledger entry and delivers on
// success. A ledger failure is returned; delivery failures are only logged.
func (p *Poller) notifyMilestone(
	ctx context.Context,
	rec *recorder.Recorder,
	log *zap.Logger,
	item tracker.WorkItem,
	previous *tracker.NormalizedStatus,
	result tracker.ScrapeResult,
	hash string,
	now time.Time,
) error {
	channel := p.deps.Notifier.Name()
	accepted, err := p.deps.Statuses.TryInsertNotificationRecord(ctx, tracker.NotificationRecord{
		WatchID:     item.Watch.ID,
		ContainerNo: item.ContainerNo,
		EventType:   result.Normalized.EventType(),
		StatusHash:  hash,
		CreatedAt:   now,
	})
	if err != nil {
		return asStoreError("insert notification record", err)
	}
	if !accepted {
		log.Info("notification already recorded", zap.String("event_type", result.Normalized.EventType()))
		metrics.ObserveNotification(channel, "duplicate")
		return nil
	}

	err = p.deps.Notifier.SendMilestoneNotification(ctx, tracker.MilestoneNotification{
		Watch:       item.Watch,
		ContainerNo: item.ContainerNo,
		Previous:    previous,
		Current:     result.Normalized,
		Result:      result,
		StatusHash:  hash,
	})
	if err != nil {
		var notifyErr *tracker.NotifyError
		if !errors.As(err, &notifyErr) {
			err = &tracker.NotifyError{Channel: channel, Err: err}
		}
		log.Error("notification delivery failed", zap.Error(err))
		metrics.ObserveNotification(channel, "failed")
		return nil
	}
	rec.RecordNotified()
	metrics.ObserveNotification(channel, "sent")
	log.Info("notification sent", zap.String("event_type", result.Normalized.EventType()))
	return nil
}

func asStoreError(op string, err error) error {
	var storeErr *tracker.StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &tracker.StoreError{Op: op, Err: err}
}
