// Package gcs archives run summaries to Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	archive "github.com/JakeFAU/container-status-poller/internal/storage"
	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// Config captures the bucket and key prefix for archived runs.
type Config struct {
	Bucket string
	Prefix string
}

type objectWriterFunc func(ctx context.Context, bucket, name string) io.WriteCloser

// Archive writes one JSON object per run.
type Archive struct {
	cfg       Config
	client    *storage.Client
	newWriter objectWriterFunc
}

// New creates a GCS-backed archive.
func New(client *storage.Client, cfg Config) (*Archive, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive.bucket is required")
	}
	return &Archive{
		cfg:    cfg,
		client: client,
		newWriter: func(ctx context.Context, bucket, name string) io.WriteCloser {
			w := client.Bucket(bucket).Object(name).NewWriter(ctx)
			w.ContentType = "application/json"
			return w
		},
	}, nil
}

// Close releases the storage client.
func (a *Archive) Close() error {
	if a.client == nil {
		return nil
	}
	if err := a.client.Close(); err != nil {
		return fmt.Errorf("close storage client: %w", err)
	}
	return nil
}

// ArchiveRun uploads sum and returns its gs:// URI.
func (a *Archive) ArchiveRun(ctx context.Context, sum tracker.RunSummary) (string, error) {
	data, err := archive.Encode(sum)
	if err != nil {
		return "", err
	}
	name := archive.ObjectName(a.cfg.Prefix, sum)
	w := a.newWriter(ctx, a.cfg.Bucket, name)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", a.cfg.Bucket, name), nil
}
