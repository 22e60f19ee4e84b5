package sb

import (
	"context"
	"fmt"
)

// Options carries the per-run parameters of a replication run. They are
// read from configuration by the caller; the service itself never
// touches config files.
type Options struct {
	// Host is the cluster entry host: routes are dumped there, and in
	// single-node mode it is also the only transfer source.
	Host string

	// Clustered selects per-owner fan-out. When false, every route is
	// served from Host regardless of its owner list.
	Clustered bool

	// Role filters topology discovery to nodes holding object data.
	Role string

	// StorePath is the object store root on the source nodes.
	StorePath string

	// DefaultOwner is the remote identity used when the store owner
	// probe fails.
	DefaultOwner string

	// Remote commands, run verbatim through the runner.
	RouteDumpCommand      string
	MaintenanceOffCommand string
	MaintenanceOnCommand  string

	// SkipVerification disables the post-transfer completeness check.
	SkipVerification bool

	// ObjectDepth is the store layout depth used by verification; zero
	// means the standard layout.
	ObjectDepth int
}

// SBService is the orchestration layer that coordinates across all
// components to perform a replication run.
type SBService struct {
	runner    Runner
	topology  Topology
	transfer  Transfer
	snapshots SnapshotStore
	clock     Clock
	logger    Logger
	opts      Options
}

// NewSBService creates a new SBService with the provided dependencies.
func NewSBService(runner Runner, topology Topology, transfer Transfer, snapshots SnapshotStore, clock Clock, logger Logger, opts Options) *SBService {
	return &SBService{
		runner:    runner,
		topology:  topology,
		transfer:  transfer,
		snapshots: snapshots,
		clock:     clock,
		logger:    logger,
		opts:      opts,
	}
}

// Backup performs one full replication run: suspend maintenance, dump
// routes, partition them into per-node work lists, pull every list into
// a fresh snapshot generation, verify the result, and promote the
// generation when everything landed.
//
// A nil error does not mean every node succeeded: per-node failures
// are recorded in the report, and the snapshot is kept either way. An
// error return means the run aborted before any data moved (or was
// interrupted), except that maintenance is restored in both cases.
func (s *SBService) Backup(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		StartedAt: s.clock.Now(),
		Clustered: s.opts.Clustered,
	}

	// Nothing may touch the cluster before we know the transfer tool
	// works and the entry host answers.
	if err := s.transfer.Preflight(ctx); err != nil {
		return nil, fmt.Errorf("transfer preflight: %w", err)
	}
	if _, err := s.runner.Run(ctx, s.opts.Host, "true"); err != nil {
		return nil, fmt.Errorf("probing %s: %w", s.opts.Host, err)
	}

	nodes, err := s.resolveNodes(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("run started", "nodes", len(nodes), "clustered", s.opts.Clustered)

	// Suspend returns the set of nodes it actually disabled even on
	// error, so Release is deferred before the error check. Restoring
	// maintenance is unconditional from here on: every return path,
	// including an interrupt, goes through it.
	coord := NewLockCoordinator(s.runner, s.opts.MaintenanceOffCommand, s.opts.MaintenanceOnCommand, s.logger)
	locks, err := coord.Suspend(ctx, nodes)
	defer func() {
		if rerr := locks.Release(); rerr != nil {
			s.logger.Warn("maintenance re-enable incomplete", "err", rerr)
		}
	}()
	if err != nil {
		return nil, fmt.Errorf("suspending maintenance: %w", err)
	}

	resolver := NewRouteResolver(s.runner, s.opts.Host, s.opts.RouteDumpCommand, s.logger)
	routes, err := resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	report.RouteCount = len(routes)
	if len(routes) == 0 {
		s.logger.Warn("cluster reported no routes, nothing to transfer")
		report.Empty = true
		report.FinishedAt = s.clock.Now()
		return report, nil
	}

	single := ""
	if !s.opts.Clustered {
		single = s.opts.Host
	}
	lists := BuildWorkLists(routes, s.opts.Clustered, single)
	report.ObjectCount = TotalObjects(lists)
	s.logger.Info("routes partitioned",
		"routes", report.RouteCount, "objects", report.ObjectCount, "lists", len(lists))

	workspace, err := NewWorkspace()
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	defer func() {
		if cerr := workspace.Close(); cerr != nil {
			s.logger.Warn("workspace cleanup failed", "err", cerr)
		}
	}()

	// The baseline is an optimization, never a requirement: when
	// discovery fails we copy everything fresh.
	baseline, err := s.snapshots.Baseline()
	if err != nil {
		s.logger.Warn("baseline discovery failed, running full copy", "err", err)
		baseline = ""
	}

	generation, err := s.snapshots.Create(s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("creating snapshot generation: %w", err)
	}
	report.Snapshot = generation.Name
	report.Baseline = baseline
	if baseline != "" {
		s.logger.Info("reusing prior generation as baseline", "baseline", baseline)
	}

	dispatcher := NewDispatcher(s.transfer, s.runner, s.logger)
	report.Results = dispatcher.Run(ctx, lists, DispatchOptions{
		StorePath:    s.opts.StorePath,
		StorageDir:   generation.StorageDir,
		Baseline:     baseline,
		DefaultOwner: s.opts.DefaultOwner,
		Workspace:    workspace,
	})
	for _, res := range report.Results {
		if res.Err != nil {
			s.logger.Error("node transfer failed", "node", res.Node, "err", res.Err)
		}
	}

	// An interrupt mid-transfer leaves a torn generation; verifying or
	// promoting it would only mislead.
	if ctx.Err() != nil {
		report.FinishedAt = s.clock.Now()
		return report, fmt.Errorf("run interrupted: %w", ctx.Err())
	}

	if s.opts.SkipVerification {
		s.logger.Info("verification skipped")
	} else {
		s.verify(lists, generation, report)
	}

	s.promote(generation, report)

	report.FinishedAt = s.clock.Now()
	s.logger.Info("run finished",
		"status", report.Status(), "snapshot", report.Snapshot,
		"objects", report.ObjectCount, "failed_nodes", len(report.FailedNodes()))
	return report, nil
}

func (s *SBService) resolveNodes(ctx context.Context) ([]string, error) {
	if !s.opts.Clustered {
		return []string{s.opts.Host}, nil
	}
	nodes, err := s.topology.ListNodes(ctx, s.opts.Role)
	if err != nil {
		return nil, fmt.Errorf("listing cluster nodes: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no cluster nodes found for role %q", s.opts.Role)
	}
	return nodes, nil
}

// verify diffs the generation against the work lists. Verification is
// advisory: a mismatch, or a verifier that could not run at all, is
// logged for the operator and recorded in the report, never turned into
// a run failure.
func (s *SBService) verify(lists []WorkList, generation *Generation, report *RunReport) {
	verifier := NewVerifier(s.opts.ObjectDepth, s.logger)
	result, err := verifier.Verify(lists, generation.StorageDir)
	if err != nil {
		s.logger.Warn("verification could not run", "err", err)
		return
	}
	report.Verification = result
	if !result.OK() {
		s.logger.Warn("verification found missing objects",
			"missing", len(result.Missing), "snapshot", generation.Name)
	}
}

// promote repoints the current-generation marker, but only when every
// node landed: the marker is the next run's baseline, and a baseline
// with holes would silently propagate them forward.
func (s *SBService) promote(generation *Generation, report *RunReport) {
	if failed := report.FailedNodes(); len(failed) > 0 {
		s.logger.Warn("snapshot kept but not promoted", "snapshot", generation.Name, "failed_nodes", failed)
		return
	}
	if err := s.snapshots.Finalize(generation); err != nil {
		s.logger.Warn("snapshot promotion failed", "snapshot", generation.Name, "err", err)
	}
}
