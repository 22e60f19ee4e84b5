package sb

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// NodeResult is the outcome of one node's transfer job.
type NodeResult struct {
	Node    string
	Objects int
	Err     error
}

// Status returns the persisted status string for the result.
func (r NodeResult) Status() string {
	if r.Err != nil {
		return NodeStatusFailed
	}
	return NodeStatusOK
}

// DispatchOptions carries the per-run paths a transfer job is built from.
type DispatchOptions struct {
	// StorePath is the object store root on the source nodes.
	StorePath string
	// StorageDir is the generation's storage directory on this host;
	// each node lands in its own subdirectory underneath it.
	StorageDir string
	// Baseline is the prior generation's storage directory, or empty
	// when there is no usable baseline and everything is copied fresh.
	Baseline string
	// DefaultOwner is the remote identity used when the owner probe
	// fails.
	DefaultOwner string
	// Workspace materializes work lists into files the transfer tool
	// reads.
	Workspace *Workspace
}

// Dispatcher runs one transfer job per node. Jobs run concurrently and
// independently: a failed node never cancels its siblings, it is only
// recorded in that node's result.
type Dispatcher struct {
	transfer Transfer
	runner   Runner
	logger   Logger
}

// NewDispatcher creates a dispatcher around the given transfer
// mechanism. The runner is used for the per-node owner probe.
func NewDispatcher(transfer Transfer, runner Runner, logger Logger) *Dispatcher {
	return &Dispatcher{
		transfer: transfer,
		runner:   runner,
		logger:   logger,
	}
}

// Run launches all jobs and waits for every one of them to finish,
// returning one result per non-empty work list. The fan-out is bounded
// by the number of nodes: there is never more than one job per node.
func (d *Dispatcher) Run(ctx context.Context, lists []WorkList, opts DispatchOptions) []NodeResult {
	jobs := make([]WorkList, 0, len(lists))
	for _, wl := range lists {
		if len(wl.Objects) > 0 {
			jobs = append(jobs, wl)
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	results := make([]NodeResult, len(jobs))
	var wg sync.WaitGroup
	for i, wl := range jobs {
		i, wl := i, wl
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = d.runNode(ctx, wl, opts)
		}()
	}
	wg.Wait()
	return results
}

func (d *Dispatcher) runNode(ctx context.Context, wl WorkList, opts DispatchOptions) NodeResult {
	res := NodeResult{Node: wl.Node, Objects: len(wl.Objects)}

	listPath, err := opts.Workspace.WriteWorkList(wl)
	if err != nil {
		res.Err = err
		return res
	}

	job := TransferJob{
		SourceHost: wl.Node,
		SourceUser: d.probeOwner(ctx, wl.Node, opts),
		SourcePath: opts.StorePath,
		DestPath:   filepath.Join(opts.StorageDir, wl.Node),
		ListPath:   listPath,
	}
	if opts.Baseline != "" {
		job.Baseline = filepath.Join(opts.Baseline, wl.Node)
	}

	d.logger.Info("transfer started", "node", wl.Node, "objects", len(wl.Objects))
	if err := d.transfer.Sync(ctx, job); err != nil {
		res.Err = fmt.Errorf("transferring from %s: %w", wl.Node, err)
		return res
	}
	d.logger.Info("transfer finished", "node", wl.Node, "objects", len(wl.Objects))
	return res
}

// probeOwner asks the node which identity owns the store root. Store
// trees are typically readable only by the storage daemon's own user,
// so transfers connect as that user. A failed probe falls back to the
// configured default rather than failing the node.
func (d *Dispatcher) probeOwner(ctx context.Context, node string, opts DispatchOptions) string {
	out, err := d.runner.Run(ctx, node, "stat -c %U "+opts.StorePath)
	if err != nil {
		d.logger.Warn("owner probe failed, using default",
			"node", node, "owner", opts.DefaultOwner, "err", err)
		return opts.DefaultOwner
	}
	owner := strings.TrimSpace(string(out))
	if owner == "" {
		return opts.DefaultOwner
	}
	return owner
}
