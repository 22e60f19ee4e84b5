package sb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// LockCoordinator suspends and resumes background maintenance (compaction,
// garbage collection) on source nodes so in-flight backup reads see a
// stable view of the store.
type LockCoordinator struct {
	runner Runner
	offCmd string
	onCmd  string
	logger Logger
}

// NewLockCoordinator creates a coordinator using the given remote
// maintenance commands.
func NewLockCoordinator(runner Runner, offCmd, onCmd string, logger Logger) *LockCoordinator {
	return &LockCoordinator{
		runner: runner,
		offCmd: offCmd,
		onCmd:  onCmd,
		logger: logger,
	}
}

// Suspend disables maintenance on every node concurrently. It always
// returns a MaintenanceLocks recording exactly the nodes whose disable
// succeeded, including when it returns an error, so the caller can
// defer Release before checking the error. Any disable failure is fatal
// for the run: transferring while maintenance can mutate objects
// underneath risks an inconsistent snapshot.
func (c *LockCoordinator) Suspend(ctx context.Context, nodes []string) (*MaintenanceLocks, error) {
	locks := &MaintenanceLocks{coord: c}

	var g errgroup.Group
	for _, node := range nodes {
		node := node
		g.Go(func() error {
			if _, err := c.runner.Run(ctx, node, c.offCmd); err != nil {
				return fmt.Errorf("suspending maintenance on %s: %w", node, err)
			}
			locks.add(node)
			c.logger.Debug("maintenance suspended", "node", node)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return locks, err
	}
	return locks, nil
}

// MaintenanceLocks tracks which nodes currently have maintenance
// suspended. Every node recorded here must be restored before the
// process exits, regardless of how the run went.
type MaintenanceLocks struct {
	coord *LockCoordinator

	mu        sync.Mutex
	suspended []string
	released  bool
}

func (l *MaintenanceLocks) add(node string) {
	l.mu.Lock()
	l.suspended = append(l.suspended, node)
	l.mu.Unlock()
}

// Nodes returns the nodes whose maintenance is currently suspended.
func (l *MaintenanceLocks) Nodes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	nodes := append([]string(nil), l.suspended...)
	sort.Strings(nodes)
	return nodes
}

// Release re-enables maintenance on every suspended node, in order. A
// failed node does not stop the loop; all failures are aggregated into
// the returned error together with the manual remediation command. The
// second and later calls are no-ops.
//
// Release runs with a fresh context: maintenance must be restored even
// when the run's context was canceled by an interrupt.
func (l *MaintenanceLocks) Release() error {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return nil
	}
	l.released = true
	nodes := append([]string(nil), l.suspended...)
	l.mu.Unlock()

	sort.Strings(nodes)
	ctx := context.Background()

	var failed []string
	for _, node := range nodes {
		if _, err := l.coord.runner.Run(ctx, node, l.coord.onCmd); err != nil {
			failed = append(failed, fmt.Sprintf("%s (%v)", node, err))
			continue
		}
		l.coord.logger.Debug("maintenance resumed", "node", node)
	}

	if len(failed) > 0 {
		return fmt.Errorf("maintenance still suspended on %s: run %q there manually",
			strings.Join(failed, ", "), l.coord.onCmd)
	}
	return nil
}
