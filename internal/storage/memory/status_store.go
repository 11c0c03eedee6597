package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/container-status-poller/internal/containerno"
	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

type notificationKey struct {
	watchID     string
	containerNo string
	eventType   string
	statusHash  string
}

// StatusStore provides an in-memory implementation of the watch, status,
// notification ledger, and run stores for development/testing.
type StatusStore struct {
	mu            sync.RWMutex
	watches       map[string]tracker.Watch
	latest        map[tracker.LatestKey]tracker.LatestStatus
	events        []tracker.StatusEvent
	notifications map[notificationKey]tracker.NotificationRecord
	runs          []tracker.RunSummary
}

var (
	_ tracker.WatchStore  = (*StatusStore)(nil)
	_ tracker.StatusStore = (*StatusStore)(nil)
	_ tracker.RunStore    = (*StatusStore)(nil)
)

// NewStatusStore constructs a StatusStore.
func NewStatusStore() *StatusStore {
	return &StatusStore{
		watches:       make(map[string]tracker.Watch),
		latest:        make(map[tracker.LatestKey]tracker.LatestStatus),
		notifications: make(map[notificationKey]tracker.NotificationRecord),
	}
}

// PutWatch adds or replaces a watch.
func (s *StatusStore) PutWatch(w tracker.Watch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watches[w.ID] = w
}

// LoadActiveWatches returns watches with at least one valid container, ordered by ID.
func (s *StatusStore) LoadActiveWatches(_ context.Context) ([]tracker.Watch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tracker.Watch, 0, len(s.watches))
	for _, w := range s.watches {
		if len(containerno.Parse(w.ContainerRefs)) == 0 {
			continue
		}
		w.VesselName = tracker.NormalizeVesselName(w.VesselName)
		if w.Provider == "" {
			w.Provider = tracker.ProviderAuto
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LoadLatestStatuses returns baselines for the given watches.
func (s *StatusStore) LoadLatestStatuses(_ context.Context, watchIDs []string) (map[tracker.LatestKey]tracker.LatestStatus, error) {
	wanted := make(map[string]struct{}, len(watchIDs))
	for _, id := range watchIDs {
		wanted[id] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[tracker.LatestKey]tracker.LatestStatus)
	for k, v := range s.latest {
		if _, ok := wanted[k.WatchID]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// UpsertLatest stores the baseline for one watch and container.
func (s *StatusStore) UpsertLatest(_ context.Context, l tracker.LatestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[l.Key()] = l
	return nil
}

// AppendEvent appends a transition record.
func (s *StatusStore) AppendEvent(_ context.Context, e tracker.StatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// TryInsertNotificationRecord inserts rec unless the same transition exists.
// The check and insert happen under one lock.
func (s *StatusStore) TryInsertNotificationRecord(_ context.Context, rec tracker.NotificationRecord) (bool, error) {
	key := notificationKey{
		watchID:     rec.WatchID,
		containerNo: rec.ContainerNo,
		eventType:   rec.EventType,
		statusHash:  rec.StatusHash,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notifications[key]; exists {
		return false, nil
	}
	s.notifications[key] = rec
	return true, nil
}

// SaveRunSummary appends a run summary.
func (s *StatusStore) SaveRunSummary(_ context.Context, sum tracker.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum.Transcript = append([]string(nil), sum.Transcript...)
	s.runs = append(s.runs, sum)
	return nil
}

// Latest returns the stored baseline for key.
func (s *StatusStore) Latest(key tracker.LatestKey) (tracker.LatestStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.latest[key]
	return l, ok
}

// Events returns a copy of all transition records.
func (s *StatusStore) Events() []tracker.StatusEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]tracker.StatusEvent(nil), s.events...)
}

// NotificationCount returns the number of ledger entries.
func (s *StatusStore) NotificationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notifications)
}

// Runs returns a copy of stored run summaries.
func (s *StatusStore) Runs() []tracker.RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]tracker.RunSummary(nil), s.runs...)
}
