package sb

import (
	"database/sql"
	"time"
)

// Run statuses as persisted in the history database.
const (
	RunStatusRunning = "running"
	RunStatusOK      = "ok"      // all node transfers succeeded
	RunStatusPartial = "partial" // at least one node failed, snapshot retained
	RunStatusFailed  = "failed"  // aborted before any data moved
	RunStatusEmpty   = "empty"   // cluster reported no routes
)

// Per-node statuses as persisted in the history database.
const (
	NodeStatusOK     = "ok"
	NodeStatusFailed = "failed"
)

// Run is one recorded replication run.
type Run struct {
	ID           string
	HostID       string
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	Status       string
	Snapshot     string // generation name, "" for empty/failed runs
	Clustered    bool
	NodeCount    int
	RouteCount   int
	ObjectCount  int
	MissingCount int
	Message      string
}

// NodeRecord is one node's persisted transfer outcome within a run.
type NodeRecord struct {
	Node    string
	Objects int
	Status  string // "ok" or "failed"
	Error   string
}

// Database persists run history on the backup host.
type Database interface {
	// CreateRun inserts a new run in the running state.
	CreateRun(run *Run) error

	// FinishRun records the final status, counts, and message of a run.
	FinishRun(run *Run) error

	// SaveNodeResults records the per-node outcomes of a run.
	SaveNodeResults(runID string, results []NodeResult) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*Run, error)

	// GetRun returns one run by ID, or nil when not found.
	GetRun(id string) (*Run, error)

	// ListNodeResults returns the per-node records of a run.
	ListNodeResults(runID string) ([]*NodeRecord, error)

	// Close closes the database connection.
	Close() error
}
