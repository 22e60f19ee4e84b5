package sb

import "context"

// TransferJob describes one bulk transfer from a source node into the
// node's disjoint subtree of a snapshot generation.
type TransferJob struct {
	// SourceHost is the storage node to pull from.
	SourceHost string
	// SourceUser is the remote identity that can read the store paths.
	SourceUser string
	// SourcePath is the object store root on the source node.
	SourcePath string
	// DestPath is the node's destination subtree in the new generation.
	DestPath string
	// ListPath names the work-list file selecting exactly which objects
	// to transfer. Only listed objects are considered, never a full-tree
	// scan.
	ListPath string
	// Baseline optionally points at the node's subtree in the previous
	// generation; unchanged files are reused instead of re-transferred.
	Baseline string
}

// Transfer is the bulk file-transfer engine. It is trusted for byte-level
// correctness; the orchestrator only decides what is transferred and where.
//
// Implementations must skip objects that are listed but already gone from
// the source (routes are computed once and objects may be pruned or
// rebalanced concurrently) and must use size-based change detection.
type Transfer interface {
	// Preflight verifies the transfer tool is present and usable.
	// A Preflight failure aborts the run before any data moves.
	Preflight(ctx context.Context) error

	// Sync runs one transfer job to completion.
	Sync(ctx context.Context, job TransferJob) error
}
