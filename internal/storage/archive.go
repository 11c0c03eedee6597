// Package storage defines where finalized run summaries are archived. The
// relational store keeps counters; archives keep the full JSON transcript.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// Archiver persists a run summary as a document and returns its URI.
type Archiver interface {
	ArchiveRun(ctx context.Context, sum tracker.RunSummary) (string, error)
}

// NoOpArchiver discards summaries.
type NoOpArchiver struct{}

// ArchiveRun does nothing.
func (NoOpArchiver) ArchiveRun(context.Context, tracker.RunSummary) (string, error) {
	return "", nil
}

// ObjectName returns the archive key for sum: <prefix>/runs/YYYY/MM/DD/<id>.json.
func ObjectName(prefix string, sum tracker.RunSummary) string {
	day := sum.StartedAt.UTC().Format("2006/01/02")
	return path.Join(strings.Trim(prefix, "/"), "runs", day, sum.ID+".json")
}

// Encode renders sum as indented JSON.
func Encode(sum tracker.RunSummary) ([]byte, error) {
	if sum.ID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	if sum.Transcript == nil {
		sum.Transcript = []string{}
	}
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal run summary: %w", err)
	}
	return data, nil
}
