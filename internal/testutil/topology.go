package testutil

import (
	"context"

	"shardback/internal/sb"
)

// StubTopology returns a fixed node list, or Err when set.
type StubTopology struct {
	Nodes []string
	Err   error
}

func (t *StubTopology) ListNodes(context.Context, string) ([]string, error) {
	if t.Err != nil {
		return nil, t.Err
	}
	return t.Nodes, nil
}

// Compile-time check
var _ sb.Topology = (*StubTopology)(nil)
