package sb

import "sort"

// BuildWorkLists shards routes into per-node work lists.
//
// Clustered mode fans each route out to every owning node: the backup
// deliberately stores one copy per owner to mirror the source's
// replication factor. Single-node mode collapses everything onto the one
// configured host, with each object listed exactly once no matter how
// many owners the cluster reported.
//
// The returned lists are sorted by node for deterministic dispatch;
// object order within a list follows route order.
func BuildWorkLists(routes []Route, clustered bool, singleNode string) []WorkList {
	if len(routes) == 0 {
		return nil
	}

	if !clustered {
		seen := make(map[string]bool, len(routes))
		objects := make([]string, 0, len(routes))
		for _, rt := range routes {
			if seen[rt.Object] {
				continue
			}
			seen[rt.Object] = true
			objects = append(objects, rt.Object)
		}
		return []WorkList{{Node: singleNode, Objects: objects}}
	}

	byNode := make(map[string][]string)
	for _, rt := range routes {
		for _, node := range rt.Nodes {
			byNode[node] = append(byNode[node], rt.Object)
		}
	}

	nodes := make([]string, 0, len(byNode))
	for node := range byNode {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	lists := make([]WorkList, 0, len(nodes))
	for _, node := range nodes {
		lists = append(lists, WorkList{Node: node, Objects: byNode[node]})
	}
	return lists
}

// TotalObjects sums the work-list lengths, counting the assignment lines
// the transfer phase will actually request (duplicates included).
func TotalObjects(lists []WorkList) int {
	total := 0
	for _, wl := range lists {
		total += len(wl.Objects)
	}
	return total
}
