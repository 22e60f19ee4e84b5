package sb

// Route assigns one content-addressed object to its owning storage nodes
// at the time the cluster's route index was queried. Object paths are
// relative, with fixed-depth hash-prefix sharding (see ObjectPathDepth).
// Routes live for a single run and are never persisted.
type Route struct {
	Object string
	Nodes  []string
}

// ObjectPathDepth is the number of path components in an object path:
// five hash-prefix directory levels plus the object identifier.
const ObjectPathDepth = 6

// WorkList is the ordered set of object paths one node will be asked to
// supply during transfer. Downstream tools tolerate arbitrary ordering
// and suppress duplicates.
type WorkList struct {
	Node    string
	Objects []string
}
