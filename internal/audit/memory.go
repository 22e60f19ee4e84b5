package audit

import (
	"context"
	"sync"

	"shardback/internal/sb"
)

// MemorySink keeps manifests in memory. Used in tests.
type MemorySink struct {
	mu        sync.Mutex
	manifests map[string][]byte
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{manifests: make(map[string][]byte)}
}

// Publish stores a copy of the manifest under the run ID.
func (s *MemorySink) Publish(_ context.Context, runID string, manifest []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests[runID] = append([]byte(nil), manifest...)
	return nil
}

// Manifest returns the published manifest for a run, or nil when the
// run never published.
func (s *MemorySink) Manifest(runID string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manifests[runID]
}

// Compile-time check that MemorySink implements sb.AuditSink.
var _ sb.AuditSink = (*MemorySink)(nil)
