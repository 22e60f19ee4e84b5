package testutil

import (
	"testing"
	"time"

	"shardback/internal/sb"
	"shardback/internal/snapshot"
)

// NewTestSnapshots creates a real snapshot store rooted in a fresh temp
// dir. The store works against the local filesystem, so most tests use
// it directly instead of a mock.
func NewTestSnapshots(t *testing.T) *snapshot.Store {
	t.Helper()

	store, err := snapshot.NewStore(t.TempDir(), sb.NewNopLogger())
	if err != nil {
		t.Fatalf("failed to create snapshot store: %v", err)
	}
	return store
}

// FlakySnapshots wraps a SnapshotStore and lets tests inject failures
// into individual operations.
type FlakySnapshots struct {
	Store sb.SnapshotStore

	CreateErr   error
	BaselineErr error
	FinalizeErr error
}

func (f *FlakySnapshots) Create(now time.Time) (*sb.Generation, error) {
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	return f.Store.Create(now)
}

func (f *FlakySnapshots) Baseline() (string, error) {
	if f.BaselineErr != nil {
		return "", f.BaselineErr
	}
	return f.Store.Baseline()
}

func (f *FlakySnapshots) Finalize(gen *sb.Generation) error {
	if f.FinalizeErr != nil {
		return f.FinalizeErr
	}
	return f.Store.Finalize(gen)
}

// Compile-time check
var _ sb.SnapshotStore = (*FlakySnapshots)(nil)
