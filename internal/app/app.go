package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"shardback/internal/audit"
	"shardback/internal/config"
	"shardback/internal/database"
	"shardback/internal/remote"
	"shardback/internal/sb"
	"shardback/internal/snapshot"
	"shardback/internal/topology"
	"shardback/internal/transfer"
)

// SBApp is the application layer between the CLI and SBService.
// It constructs all dependencies from config, exposes the high-level
// operations the commands call, and manages the DB lifecycle on Close.
type SBApp struct {
	cfg       *config.Config
	db        sb.Database
	sink      sb.AuditSink
	snapshots *snapshot.Store
	service   *sb.SBService
	logger    sb.Logger
	clock     sb.Clock
	idgen     sb.IDGenerator
	logFile   *os.File
}

// NewSBApp creates a fully wired SBApp from the given config.
// The caller must call Close when done.
func NewSBApp(ctx context.Context, cfg *config.Config, verbose bool) (*SBApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID, verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	runner := remote.NewSSHRunner(cfg.Cluster.SSHOptions, logger)

	topo, err := topology.NewTopologyFromConfig(&cfg.Cluster, runner, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating topology: %w", err)
	}

	xfer := transfer.NewRsyncTransfer(cfg.Transfer.RsyncPath, cfg.Cluster.SSHOptions, cfg.Transfer.BandwidthLimit, logger)

	snapshots, err := snapshot.NewStore(cfg.Snapshots.Root, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating snapshot store: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	sink, err := audit.NewSinkFromConfig(ctx, cfg.Audit, logger)
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating audit sink: %w", err)
	}

	service := sb.NewSBService(runner, topo, xfer, snapshots, sb.RealClock{}, logger, sb.Options{
		Host:                  cfg.Cluster.Host,
		Clustered:             cfg.Cluster.Clustered,
		Role:                  cfg.Cluster.Role,
		StorePath:             cfg.Cluster.StorePath,
		DefaultOwner:          cfg.Cluster.DefaultOwner,
		RouteDumpCommand:      cfg.Cluster.RouteDumpCommand,
		MaintenanceOffCommand: cfg.Cluster.MaintenanceOffCommand,
		MaintenanceOnCommand:  cfg.Cluster.MaintenanceOnCommand,
		SkipVerification:      cfg.Verification.Skip,
		ObjectDepth:           cfg.Verification.ObjectDepth,
	})

	return &SBApp{
		cfg:       cfg,
		db:        db,
		sink:      sink,
		snapshots: snapshots,
		service:   service,
		logger:    logger,
		clock:     sb.RealClock{},
		idgen:     sb.UUIDGenerator{},
		logFile:   logFile,
	}, nil
}

// Run executes one replication run end to end. The run row is created
// before the service starts so an operator can see an in-flight (or
// crashed) run in history; afterwards the outcome is recorded and the
// manifest published.
func (a *SBApp) Run(ctx context.Context) (*sb.RunReport, error) {
	run := &sb.Run{
		ID:        a.idgen.New(),
		HostID:    a.cfg.HostID,
		StartedAt: a.clock.Now(),
		Status:    sb.RunStatusRunning,
		Clustered: a.cfg.Cluster.Clustered,
	}
	if err := a.db.CreateRun(run); err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}
	a.logger.Info("run recorded", "run_id", run.ID)

	report, err := a.service.Backup(ctx)
	a.finishRun(run, report, err)
	return report, err
}

// finishRun persists the outcome and publishes the manifest. Failures
// here are warnings, never errors: by now the data has already moved
// (or already failed) and the exit code must reflect that, not the
// bookkeeping.
func (a *SBApp) finishRun(run *sb.Run, report *sb.RunReport, runErr error) {
	run.FinishedAt = sql.NullTime{Time: a.clock.Now(), Valid: true}
	if runErr != nil {
		run.Status = sb.RunStatusFailed
		run.Message = runErr.Error()
	} else {
		run.Status = report.Status()
	}
	if report != nil {
		run.Snapshot = report.Snapshot
		run.NodeCount = len(report.Results)
		run.RouteCount = report.RouteCount
		run.ObjectCount = report.ObjectCount
		run.MissingCount = report.MissingCount()
	}

	if err := a.db.FinishRun(run); err != nil {
		a.logger.Warn("recording run outcome failed", "err", err)
	}
	if report != nil && len(report.Results) > 0 {
		if err := a.db.SaveNodeResults(run.ID, report.Results); err != nil {
			a.logger.Warn("recording node results failed", "err", err)
		}
	}

	// Manifests describe completed runs; an aborted run has nothing
	// trustworthy to publish.
	if runErr != nil || report == nil {
		return
	}
	manifest, err := report.Manifest(run.ID, run.HostID)
	if err != nil {
		a.logger.Warn("building manifest failed", "err", err)
		return
	}
	if err := a.sink.Publish(context.Background(), run.ID, manifest); err != nil {
		a.logger.Warn("publishing manifest failed", "run_id", run.ID, "err", err)
	}
}

// History returns the most recent runs, newest first.
func (a *SBApp) History(limit int) ([]*sb.Run, error) {
	return a.db.ListRuns(limit)
}

// RunDetail returns one run and its per-node outcomes.
func (a *SBApp) RunDetail(id string) (*sb.Run, []*sb.NodeRecord, error) {
	run, err := a.db.GetRun(id)
	if err != nil {
		return nil, nil, err
	}
	if run == nil {
		return nil, nil, fmt.Errorf("no run with id %s", id)
	}
	records, err := a.db.ListNodeResults(id)
	if err != nil {
		return nil, nil, err
	}
	return run, records, nil
}

// Snapshots lists generations on disk, newest first.
func (a *SBApp) Snapshots() ([]snapshot.Info, error) {
	return a.snapshots.List()
}

// PruneSnapshots removes old generations, keeping the newest keep.
// The promoted current generation is always kept.
func (a *SBApp) PruneSnapshots(keep int) ([]string, error) {
	return a.snapshots.Prune(keep)
}

// Close closes all resources.
func (a *SBApp) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
