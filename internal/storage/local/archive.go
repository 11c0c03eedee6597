// Package local archives run summaries to the local filesystem.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	archive "github.com/JakeFAU/container-status-poller/internal/storage"
	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

// Config captures the archive root directory.
type Config struct {
	BaseDir string `mapstructure:"base_dir"`
}

// Archive writes run summaries below BaseDir.
type Archive struct {
	baseDir string
}

// New validates that BaseDir exists (creating it if needed) and is writable.
func New(cfg Config) (*Archive, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	probe := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("clean up probe file: %w", err)
	}
	return &Archive{baseDir: cfg.BaseDir}, nil
}

// ArchiveRun writes sum as JSON and returns a file:// URI.
func (a *Archive) ArchiveRun(ctx context.Context, sum tracker.RunSummary) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := archive.Encode(sum)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(a.baseDir, filepath.FromSlash(archive.ObjectName("", sum)))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}
	abs, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("resolve archive path: %w", err)
	}
	return "file://" + abs, nil
}
