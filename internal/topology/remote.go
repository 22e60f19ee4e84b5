package topology

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"shardback/internal/sb"
)

// RemoteTopology asks the cluster itself for its member list by running
// the configured discovery command on the entry host. The {role}
// placeholder in the command is replaced with the requested role before
// execution.
type RemoteTopology struct {
	runner  sb.Runner
	host    string
	command string
	logger  sb.Logger
}

// NewRemoteTopology creates a topology backed by a remote discovery
// command.
func NewRemoteTopology(runner sb.Runner, host, command string, logger sb.Logger) *RemoteTopology {
	return &RemoteTopology{
		runner:  runner,
		host:    host,
		command: command,
		logger:  logger,
	}
}

// ListNodes runs the discovery command and parses one node name per
// line. Blank lines and #-comments are skipped, duplicates collapse,
// and the result is sorted for deterministic fan-out.
func (t *RemoteTopology) ListNodes(ctx context.Context, role string) ([]string, error) {
	command := strings.ReplaceAll(t.command, "{role}", role)
	out, err := t.runner.Run(ctx, t.host, command)
	if err != nil {
		return nil, fmt.Errorf("listing nodes on %s: %w", t.host, err)
	}

	seen := make(map[string]bool)
	var nodes []string
	for _, line := range strings.Split(string(out), "\n") {
		node := strings.TrimSpace(line)
		if node == "" || strings.HasPrefix(node, "#") || seen[node] {
			continue
		}
		seen[node] = true
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	t.logger.Debug("nodes discovered", "role", role, "count", len(nodes))
	return nodes, nil
}

// Compile-time check that RemoteTopology implements sb.Topology.
var _ sb.Topology = (*RemoteTopology)(nil)
