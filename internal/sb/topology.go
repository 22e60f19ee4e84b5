package sb

import "context"

// Topology reports the current member hosts of the source cluster.
type Topology interface {
	// ListNodes returns the hosts currently serving the given role
	// (e.g. "storage-server"). Order is not significant.
	ListNodes(ctx context.Context, role string) ([]string, error)
}
