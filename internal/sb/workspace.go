package sb

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is the process-private scratch directory holding the
// materialized work-list files for one run. It is torn down at exit;
// work lists are never persisted beyond the run.
type Workspace struct {
	dir string
}

// NewWorkspace creates a fresh temp directory for one run's work lists.
func NewWorkspace() (*Workspace, error) {
	dir, err := os.MkdirTemp("", "shardback-*")
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// WriteWorkList materializes one work list as a file, one object path per
// line, and returns its path. The file name is keyed by node so per-node
// files never collide.
func (w *Workspace) WriteWorkList(wl WorkList) (string, error) {
	path := filepath.Join(w.dir, wl.Node+".list")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating work list for %s: %w", wl.Node, err)
	}

	for _, obj := range wl.Objects {
		if _, err := fmt.Fprintln(f, obj); err != nil {
			f.Close()
			return "", fmt.Errorf("writing work list for %s: %w", wl.Node, err)
		}
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing work list for %s: %w", wl.Node, err)
	}
	return path, nil
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	if w.dir == "" {
		return nil
	}
	err := os.RemoveAll(w.dir)
	w.dir = ""
	return err
}
