package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

func TestArchiveRun(t *testing.T) {
	t.Parallel()

	a := NewArchive()
	sum := tracker.RunSummary{ID: "run-2", StartedAt: time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)}
	uri, err := a.ArchiveRun(context.Background(), sum)
	require.NoError(t, err)
	require.Equal(t, "mem://runs/2024/01/31/run-2.json", uri)

	data, ok := a.Object("runs/2024/01/31/run-2.json")
	require.True(t, ok)
	require.Contains(t, string(data), `"id": "run-2"`)
	require.Equal(t, 1, a.Len())

	_, err = a.ArchiveRun(context.Background(), tracker.RunSummary{})
	require.Error(t, err)
	require.Equal(t, 1, a.Len())
}
