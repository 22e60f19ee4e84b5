package sb

import "time"

// Generation is one timestamped snapshot generation under the snapshot root.
type Generation struct {
	// Name is the generation's directory name (UTC timestamp).
	Name string
	// Dir is the absolute generation directory.
	Dir string
	// StorageDir is the subtree node transfers write into:
	// <Dir>/storage/<node>/<object path>.
	StorageDir string
}

// SnapshotStore manages snapshot generations on the backup host.
type SnapshotStore interface {
	// Create makes a new empty generation named after the given time.
	Create(now time.Time) (*Generation, error)

	// Baseline returns the storage dir of the most recent completed
	// generation (via the current pointer), or "" when there is none or
	// it holds no files. The pointer is never touched mid-run.
	Baseline() (string, error)

	// Finalize atomically repoints current at the given generation.
	// Called only after every node transfer succeeded, so the baseline
	// chain always names a complete generation.
	Finalize(gen *Generation) error
}
