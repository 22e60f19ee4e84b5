package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"shardback/internal/fs"
	"shardback/internal/sb"
)

// Generation names use a compact UTC timestamp so lexical order is
// chronological order.
const nameFormat = "20060102T150405Z"

const currentLink = "current"

// Store keeps snapshot generations under a single root directory:
//
//	<root>/<name>/storage/<node>/...
//	<root>/current -> <name>
//
// The current symlink always names the latest complete generation; it
// is what baseline discovery follows and it only moves when a run
// landed every node.
type Store struct {
	root   string
	logger sb.Logger
}

// NewStore opens (creating if needed) the snapshot root.
func NewStore(root string, logger sb.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot root: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the snapshot root directory.
func (s *Store) Root() string {
	return s.root
}

// Create starts a new generation named after the run's start time.
func (s *Store) Create(now time.Time) (*sb.Generation, error) {
	name := now.UTC().Format(nameFormat)
	dir := filepath.Join(s.root, name)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("generation %s already exists", name)
	}
	storageDir := filepath.Join(dir, "storage")
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating generation %s: %w", name, err)
	}
	s.logger.Debug("generation created", "name", name)
	return &sb.Generation{Name: name, Dir: dir, StorageDir: storageDir}, nil
}

// Baseline returns the storage directory of the latest complete
// generation, or "" when there is none worth linking against. A
// missing or empty prior generation simply means a full copy.
func (s *Store) Baseline() (string, error) {
	target, err := os.Readlink(filepath.Join(s.root, currentLink))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading current link: %w", err)
	}

	storageDir := filepath.Join(s.root, target, "storage")
	empty, err := fs.DirEmpty(storageDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("checking baseline: %w", err)
	}
	if empty {
		return "", nil
	}
	return storageDir, nil
}

// Finalize promotes the generation by repointing the current symlink.
// The swap goes through a temporary link and a rename so a reader never
// observes a missing or half-written marker.
func (s *Store) Finalize(g *sb.Generation) error {
	tmp := filepath.Join(s.root, ".current.tmp")
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing stale link: %w", err)
	}
	if err := os.Symlink(g.Name, tmp); err != nil {
		return fmt.Errorf("linking generation: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.root, currentLink)); err != nil {
		return fmt.Errorf("promoting generation: %w", err)
	}
	s.logger.Info("generation promoted", "name", g.Name)
	return nil
}

// Info describes one generation on disk.
type Info struct {
	Name      string
	CreatedAt time.Time
	Current   bool
}

// List returns all generations, newest first. Directories that do not
// look like generations are ignored.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot root: %w", err)
	}
	current, _ := os.Readlink(filepath.Join(s.root, currentLink))

	var infos []Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		createdAt, err := time.Parse(nameFormat, entry.Name())
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Name:      entry.Name(),
			CreatedAt: createdAt,
			Current:   entry.Name() == current,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name > infos[j].Name })
	return infos, nil
}

// Prune removes old generations, keeping the newest keep of them. The
// current generation survives regardless of age: it is the baseline for
// the next run. Returns the names of the removed generations.
func (s *Store) Prune(keep int) ([]string, error) {
	if keep < 1 {
		return nil, fmt.Errorf("keep must be at least 1, got %d", keep)
	}
	infos, err := s.List()
	if err != nil {
		return nil, err
	}

	var removed []string
	for i, info := range infos {
		if i < keep || info.Current {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, info.Name)); err != nil {
			return removed, fmt.Errorf("removing generation %s: %w", info.Name, err)
		}
		s.logger.Info("generation removed", "name", info.Name)
		removed = append(removed, info.Name)
	}
	return removed, nil
}

// Compile-time check that Store implements sb.SnapshotStore.
var _ sb.SnapshotStore = (*Store)(nil)
