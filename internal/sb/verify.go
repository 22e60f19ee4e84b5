package sb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"shardback/internal/fs"
)

// VerificationReport compares what the run asked for against what
// actually landed in the generation.
type VerificationReport struct {
	Expected int      `json:"expected"`
	Found    int      `json:"found"`
	Missing  []string `json:"missing,omitempty"`
}

// OK reports whether every requested object is present. Objects present
// but never requested do not count against the run; nodes legitimately
// hold replicas and tombstones the routes no longer mention.
func (r *VerificationReport) OK() bool {
	return len(r.Missing) == 0
}

// Verifier checks a generation's storage tree against the union of all
// work lists. Object paths have a fixed shape, so the scan walks each
// node subtree to exactly the object depth instead of statting every
// expected path one by one.
type Verifier struct {
	depth  int
	logger Logger
}

// NewVerifier creates a verifier scanning at the given path depth.
// Depth zero or below falls back to the store's standard layout.
func NewVerifier(depth int, logger Logger) *Verifier {
	if depth <= 0 {
		depth = ObjectPathDepth
	}
	return &Verifier{depth: depth, logger: logger}
}

// Verify scans every node subtree under storageDir concurrently and
// diffs the found set against the expected set. The returned report is
// advisory: a mismatch never fails the run, it is surfaced for the
// operator to chase.
func (v *Verifier) Verify(lists []WorkList, storageDir string) (*VerificationReport, error) {
	expected := make(map[string]bool)
	for _, wl := range lists {
		for _, obj := range wl.Objects {
			expected[obj] = true
		}
	}

	entries, err := os.ReadDir(storageDir)
	if err != nil {
		return nil, fmt.Errorf("reading storage dir: %w", err)
	}

	var (
		mu    sync.Mutex
		found = make(map[string]bool)
		g     errgroup.Group
	)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		nodeDir := filepath.Join(storageDir, entry.Name())
		g.Go(func() error {
			objects, err := fs.ScanObjects(nodeDir, v.depth)
			if err != nil {
				return fmt.Errorf("scanning %s: %w", nodeDir, err)
			}
			mu.Lock()
			for _, obj := range objects {
				found[obj] = true
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var missing []string
	for obj := range expected {
		if !found[obj] {
			missing = append(missing, obj)
		}
	}
	sort.Strings(missing)

	report := &VerificationReport{
		Expected: len(expected),
		Found:    len(found),
		Missing:  missing,
	}
	v.logger.Info("verification complete",
		"expected", report.Expected, "found", report.Found, "missing", len(report.Missing))
	return report, nil
}
