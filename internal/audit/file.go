package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"shardback/internal/sb"
)

// FileSink writes one manifest file per run into a directory, typically
// the same shared storage that holds the snapshots. Writes go through a
// temp file and a rename so a crashed publish never leaves a truncated
// manifest behind.
type FileSink struct {
	dir    string
	logger sb.Logger
}

// NewFileSink creates a sink rooted at dir, creating it if needed.
func NewFileSink(dir string, logger sb.Logger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}
	return &FileSink{dir: dir, logger: logger}, nil
}

// Publish writes the manifest as <runID>.json.
func (s *FileSink) Publish(_ context.Context, runID string, manifest []byte) error {
	destPath := filepath.Join(s.dir, runID+".json")

	// Temp file in the same directory so the rename stays atomic.
	tmpFile, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(manifest); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("renaming manifest: %w", err)
	}

	success = true
	s.logger.Debug("manifest published", "path", destPath)
	return nil
}

// Compile-time check that FileSink implements sb.AuditSink.
var _ sb.AuditSink = (*FileSink)(nil)
