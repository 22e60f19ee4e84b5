package sb

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

// RunReport is everything a single replication run produced, built up
// by the service as the run moves through its phases.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time

	Clustered bool
	Empty     bool   // cluster reported no routes; nothing was transferred
	Snapshot  string // generation name, "" for empty runs
	Baseline  string // prior generation reused as hard-link baseline, "" for full copies

	RouteCount  int
	ObjectCount int

	Results      []NodeResult
	Verification *VerificationReport
}

// FailedNodes returns the nodes whose transfer failed, in result order.
func (r *RunReport) FailedNodes() []string {
	var nodes []string
	for _, res := range r.Results {
		if res.Err != nil {
			nodes = append(nodes, res.Node)
		}
	}
	return nodes
}

// Status maps the report onto a persisted run status.
func (r *RunReport) Status() string {
	switch {
	case r.Empty:
		return RunStatusEmpty
	case len(r.FailedNodes()) > 0:
		return RunStatusPartial
	default:
		return RunStatusOK
	}
}

// MissingCount returns the number of objects verification flagged, or
// zero when verification did not run.
func (r *RunReport) MissingCount() int {
	if r.Verification == nil {
		return 0
	}
	return len(r.Verification.Missing)
}

type manifestNode struct {
	Node    string `json:"node"`
	Objects int    `json:"objects"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

type manifest struct {
	RunID        string              `json:"run_id"`
	HostID       string              `json:"host_id"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at"`
	Status       string              `json:"status"`
	Clustered    bool                `json:"clustered"`
	Snapshot     string              `json:"snapshot,omitempty"`
	Baseline     string              `json:"baseline,omitempty"`
	Routes       int                 `json:"routes"`
	Objects      int                 `json:"objects"`
	Nodes        []manifestNode      `json:"nodes,omitempty"`
	Verification *VerificationReport `json:"verification,omitempty"`
}

// Manifest renders the report as the JSON document published to the
// audit sink. Run identity lives with the caller, not the report, so it
// is passed in.
func (r *RunReport) Manifest(runID, hostID string) ([]byte, error) {
	m := manifest{
		RunID:        runID,
		HostID:       hostID,
		StartedAt:    r.StartedAt.UTC(),
		FinishedAt:   r.FinishedAt.UTC(),
		Status:       r.Status(),
		Clustered:    r.Clustered,
		Snapshot:     r.Snapshot,
		Baseline:     r.Baseline,
		Routes:       r.RouteCount,
		Objects:      r.ObjectCount,
		Verification: r.Verification,
	}
	for _, res := range r.Results {
		node := manifestNode{
			Node:    res.Node,
			Objects: res.Objects,
			Status:  res.Status(),
		}
		if res.Err != nil {
			node.Error = res.Err.Error()
		}
		m.Nodes = append(m.Nodes, node)
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(m, "", "  ")
}
