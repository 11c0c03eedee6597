// Package recorder accumulates per-run counters and a JSON-line transcript
// of everything the run logged.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/container-status-poller/internal/storage"
	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// DefaultMaxLines bounds the in-memory transcript.
const DefaultMaxLines = 20000

// lineSink collects encoded log entries, one per Write.
type lineSink struct {
	mu      sync.Mutex
	lines   []string
	max     int
	dropped int
}

func (s *lineSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lines) >= s.max {
		s.dropped++
		return len(p), nil
	}
	s.lines = append(s.lines, strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func (s *lineSink) Sync() error { return nil }

func (s *lineSink) snapshot() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...), s.dropped
}

// Recorder is safe for concurrent use by work items.
type Recorder struct {
	mu      sync.Mutex
	summary tracker.RunSummary
	sink    *lineSink
	base    *zap.Logger
	logger  *zap.Logger
}

// New starts a recorder for run runID. The returned Logger writes to base
// and to the transcript.
func New(runID string, startedAt time.Time, base *zap.Logger) *Recorder {
	if base == nil {
		base = zap.NewNop()
	}
	sink := &lineSink{max: DefaultMaxLines}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	memCore := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(sink), zapcore.DebugLevel)

	logger := base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, memCore)
	})).With(zap.String("run_id", runID))

	return &Recorder{
		summary: tracker.RunSummary{ID: runID, StartedAt: startedAt.UTC()},
		sink:    sink,
		base:    base.With(zap.String("run_id", runID)),
		logger:  logger,
	}
}

// Logger returns the run-scoped logger.
func (r *Recorder) Logger() *zap.Logger {
	return r.logger
}

// ID returns the run ID.
func (r *Recorder) ID() string {
	return r.summary.ID
}

// SetLoaded records the number of work items in the run.
func (r *Recorder) SetLoaded(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Loaded = n
}

// Record counts one finished work item.
func (r *Recorder) Record(outcome tracker.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch outcome {
	case tracker.OutcomeSkippedTerminal:
		r.summary.Skipped++
	case tracker.OutcomeUnchanged:
		r.summary.OK++
		r.summary.Unchanged++
	case tracker.OutcomeChanged:
		r.summary.OK++
		r.summary.Changed++
	case tracker.OutcomeNoResult, tracker.OutcomeFailed:
		r.summary.Failed++
	}
}

// RecordNotified counts one delivered notification.
func (r *Recorder) RecordNotified() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Notified++
}

// Fail marks the run as aborted.
func (r *Recorder) Fail(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.Error = err.Error()
}

// Snapshot returns the counters collected so far without the transcript.
func (r *Recorder) Snapshot() tracker.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := r.summary
	sum.Transcript = nil
	return sum
}

// Finalize stamps finishedAt and returns the summary with its transcript.
func (r *Recorder) Finalize(finishedAt time.Time) tracker.RunSummary {
	_ = r.logger.Sync()
	lines, dropped := r.sink.snapshot()
	if dropped > 0 {
		lines = append(lines, fmt.Sprintf(`{"level":"warn","msg":"transcript truncated","dropped":%d}`, dropped))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.FinishedAt = finishedAt.UTC()
	sum := r.summary
	sum.Transcript = lines
	return sum
}

// Persist saves sum to the run store and every archiver. Failures are logged
// and joined; callers must not let them change the run outcome.
func (r *Recorder) Persist(ctx context.Context, sum tracker.RunSummary, runs tracker.RunStore, archivers ...storage.Archiver) error {
	var errs []error
	if runs != nil {
		if err := runs.SaveRunSummary(ctx, sum); err != nil {
			r.base.Error("persist run summary failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	for _, a := range archivers {
		if a == nil {
			continue
		}
		uri, err := a.ArchiveRun(ctx, sum)
		if err != nil {
			r.base.Error("archive run summary failed", zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if uri != "" {
			r.base.Info("run summary archived", zap.String("uri", uri))
		}
	}
	return errors.Join(errs...)
}
