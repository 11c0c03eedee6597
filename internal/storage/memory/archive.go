package memory

import (
	"context"
	"sync"

	archive "github.com/JakeFAU/container-status-poller/internal/storage"
	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// Archive keeps encoded run summaries in memory, keyed by object name.
type Archive struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ archive.Archiver = (*Archive)(nil)

// NewArchive constructs an empty Archive.
func NewArchive() *Archive {
	return &Archive{objects: make(map[string][]byte)}
}

// ArchiveRun stores the encoded summary and returns a mem:// URI.
func (a *Archive) ArchiveRun(_ context.Context, sum tracker.RunSummary) (string, error) {
	data, err := archive.Encode(sum)
	if err != nil {
		return "", err
	}
	name := archive.ObjectName("", sum)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[name] = data
	return "mem://" + name, nil
}

// Object returns the stored bytes for name.
func (a *Archive) Object(name string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.objects[name]
	return data, ok
}

// Len returns the number of archived runs.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.objects)
}
