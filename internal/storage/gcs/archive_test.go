package gcs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

type bufferWriter struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (b *bufferWriter) Close() error {
	b.closed = true
	return b.closeErr
}

func TestArchiveRunWritesObject(t *testing.T) {
	t.Parallel()

	buf := &bufferWriter{}
	var gotBucket, gotName string
	a := &Archive{
		cfg: Config{Bucket: "poller-runs", Prefix: "prod"},
		newWriter: func(_ context.Context, bucket, name string) io.WriteCloser {
			gotBucket, gotName = bucket, name
			return buf
		},
	}
	sum := tracker.RunSummary{ID: "run-9", StartedAt: time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)}

	uri, err := a.ArchiveRun(context.Background(), sum)
	require.NoError(t, err)
	require.Equal(t, "poller-runs", gotBucket)
	require.Equal(t, "prod/runs/2024/03/02/run-9.json", gotName)
	require.Equal(t, "gs://poller-runs/prod/runs/2024/03/02/run-9.json", uri)
	require.True(t, buf.closed)
	require.Contains(t, buf.String(), `"id": "run-9"`)
}

func TestArchiveRunCloseError(t *testing.T) {
	t.Parallel()

	a := &Archive{
		cfg: Config{Bucket: "b"},
		newWriter: func(context.Context, string, string) io.WriteCloser {
			return &bufferWriter{closeErr: errors.New("precondition failed")}
		},
	}
	_, err := a.ArchiveRun(context.Background(), tracker.RunSummary{ID: "r"})
	require.ErrorContains(t, err, "close writer")
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)
}
