package topology

import (
	"context"
	"sort"

	"shardback/internal/sb"
)

// StaticTopology serves a fixed node list from configuration, for
// clusters whose membership is managed by hand or whose admin tool
// cannot enumerate members.
type StaticTopology struct {
	nodes []string
}

// NewStaticTopology creates a topology over the given nodes.
func NewStaticTopology(nodes []string) *StaticTopology {
	return &StaticTopology{nodes: nodes}
}

// ListNodes returns the configured nodes, sorted. The role filter is
// ignored: a static list is assumed to name exactly the storage nodes.
func (t *StaticTopology) ListNodes(_ context.Context, _ string) ([]string, error) {
	nodes := append([]string(nil), t.nodes...)
	sort.Strings(nodes)
	return nodes, nil
}

// Compile-time check that StaticTopology implements sb.Topology.
var _ sb.Topology = (*StaticTopology)(nil)
