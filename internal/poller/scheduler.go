package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// Runner executes one polling run.
type Runner interface {
	Run(ctx context.Context) (tracker.RunSummary, error)
}

// Locker guards runs across replicas. ok is false when another holder has it.
type Locker interface {
	Acquire(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

// RunState describes the scheduler's most recent run.
type RunState string

// Run states reported by Last.
const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
)

// LastRun is a snapshot of the most recent run.
type LastRun struct {
	State   RunState            `json:"state"`
	Summary *tracker.RunSummary `json:"summary,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// Scheduler starts runs on an interval and on demand, one at a time.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	lock     Locker
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	last    LastRun
	wg      sync.WaitGroup
}

// NewScheduler builds a Scheduler. lock may be nil; a non-positive interval
// disables periodic runs.
func NewScheduler(runner Runner, interval time.Duration, lock Locker, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		lock:     lock,
		logger:   logger.Named("scheduler"),
		last:     LastRun{State: StateIdle},
	}
}

// Start runs immediately, then on every tick until ctx is done. Canceling ctx
// stops the ticker but never interrupts a run in progress. It returns after
// any run still in flight has finished.
func (s *Scheduler) Start(ctx context.Context) {
	defer s.wg.Wait()
	runCtx := context.WithoutCancel(ctx)
	s.runLogged(runCtx)
	if s.interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runLogged(runCtx)
		}
	}
}

// Trigger starts a run in the background. It returns ErrRunInProgress when a
// run is already active. The run is not canceled with ctx.
func (s *Scheduler) Trigger(ctx context.Context) error {
	if !s.begin() {
		return tracker.ErrRunInProgress
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logErr(s.execute(context.WithoutCancel(ctx)))
	}()
	return nil
}

// RunOnce executes a run synchronously.
func (s *Scheduler) RunOnce(ctx context.Context) (tracker.RunSummary, error) {
	if !s.begin() {
		return tracker.RunSummary{}, tracker.ErrRunInProgress
	}
	return s.executeWithSummary(ctx)
}

// Last returns the state of the most recent run.
func (s *Scheduler) Last() LastRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.last
	if out.Summary != nil {
		sum := *out.Summary
		out.Summary = &sum
	}
	return out
}

// Wait blocks until triggered runs finish.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) runLogged(ctx context.Context) {
	if !s.begin() {
		s.logger.Info("skipping scheduled run", zap.Error(tracker.ErrRunInProgress))
		return
	}
	s.logErr(s.execute(ctx))
}

func (s *Scheduler) logErr(err error) {
	switch {
	case err == nil:
	case errors.Is(err, tracker.ErrRunInProgress):
		s.logger.Info("run held by another replica")
	default:
		s.logger.Error("polling run failed", zap.Error(err))
	}
}

func (s *Scheduler) execute(ctx context.Context) error {
	_, err := s.executeWithSummary(ctx)
	return err
}

// begin claims the in-process slot.
func (s *Scheduler) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

// executeWithSummary runs with the slot held and releases it afterward.
func (s *Scheduler) executeWithSummary(ctx context.Context) (tracker.RunSummary, error) {
	prevState := s.Last()
	s.setState(LastRun{State: StateRunning, Summary: prevState.Summary})
	release, err := s.acquire(ctx)
	if err != nil {
		s.finish(prevState)
		return tracker.RunSummary{}, err
	}

	sum, runErr := s.runner.Run(ctx)
	if release != nil {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			s.logger.Warn("release run lock failed", zap.Error(relErr))
		}
	}
	next := LastRun{State: StateCompleted, Summary: &sum}
	if runErr != nil {
		next.State = StateFailed
		next.Error = runErr.Error()
	}
	s.finish(next)
	return sum, runErr
}

func (s *Scheduler) acquire(ctx context.Context) (func(context.Context) error, error) {
	if s.lock == nil {
		return nil, nil
	}
	release, ok, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, tracker.ErrRunInProgress
	}
	return release, nil
}

func (s *Scheduler) setState(l LastRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = l
}

func (s *Scheduler) finish(l LastRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = l
	s.running = false
}
