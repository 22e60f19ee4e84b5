package topology

import (
	"fmt"

	"shardback/internal/config"
	"shardback/internal/sb"
)

// NewTopologyFromConfig creates a topology based on the cluster
// configuration.
func NewTopologyFromConfig(cfg *config.ClusterConfig, runner sb.Runner, logger sb.Logger) (sb.Topology, error) {
	switch cfg.Topology {
	case "static":
		if len(cfg.Nodes) == 0 {
			return nil, fmt.Errorf("static topology requires at least one node")
		}
		return NewStaticTopology(cfg.Nodes), nil
	case "remote":
		if cfg.ListNodesCommand == "" {
			return nil, fmt.Errorf("remote topology requires a list_nodes_command")
		}
		return NewRemoteTopology(runner, cfg.Host, cfg.ListNodesCommand, logger), nil
	default:
		return nil, fmt.Errorf("unknown topology type: %s", cfg.Topology)
	}
}
