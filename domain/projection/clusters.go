package projection

import "sort"

// buildClusters derives the CPFP cluster map (§3, "Cluster map") from a
// fully CPFP-resolved live transaction set: every transaction connected to
// at least one other through an in-mempool parent/child edge is folded
// into a cluster, keyed by the member with no in-mempool ancestors of its
// own (ties broken lexicographically, for determinism).
//
// The component walk (over parent and child edges alike) is an iterative
// queue, not recursion, in the style
// of this engine's ancestor pool's own redeemer walk.
func buildClusters(live []*Transaction) ClusterMap {
	liveSet := make(map[TxID]*Transaction, len(live))
	for _, tx := range live {
		liveSet[tx.TxID] = tx
	}

	children := make(map[TxID][]TxID)
	hasParent := make(map[TxID]bool)
	for _, tx := range live {
		for _, parent := range tx.Vin {
			if _, ok := liveSet[parent]; ok {
				children[parent] = append(children[parent], tx.TxID)
				hasParent[tx.TxID] = true
			}
		}
	}

	visited := make(map[TxID]bool)
	clusters := make(ClusterMap)

	for _, tx := range live {
		if visited[tx.TxID] {
			continue
		}
		if !hasParent[tx.TxID] && len(children[tx.TxID]) == 0 {
			continue // isolated transaction, not part of any cluster
		}

		component := gatherComponent(tx.TxID, liveSet, children, hasParent)
		for _, id := range component {
			visited[id] = true
		}
		if len(component) < 2 {
			continue
		}

		root := canonicalRoot(component, hasParent)
		clusters[root] = topologicalOrder(component, children, hasParent)
	}

	return clusters
}

// gatherComponent returns every txid reachable from start by walking
// parent/child edges in either direction.
func gatherComponent(start TxID, liveSet map[TxID]*Transaction, children map[TxID][]TxID, hasParent map[TxID]bool) []TxID {
	seen := map[TxID]bool{start: true}
	queue := []TxID{start}
	var component []TxID

	for len(queue) > 0 {
		var current TxID
		current, queue = queue[0], queue[1:]
		component = append(component, current)

		for _, child := range children[current] {
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
		if tx, ok := liveSet[current]; ok && hasParent[current] {
			for _, parent := range tx.Vin {
				if _, ok := liveSet[parent]; ok && !seen[parent] {
					seen[parent] = true
					queue = append(queue, parent)
				}
			}
		}
	}
	return component
}

// canonicalRoot picks the lexicographically smallest member with no
// in-component ancestor as the cluster's root. A component can have more
// than one parentless member when a transaction spends from two unrelated
// low-fee parents; the canonical root is a deterministic tie-break for
// that case, not a claim that one parent dominates the other.
func canonicalRoot(component []TxID, hasParent map[TxID]bool) TxID {
	var roots []TxID
	for _, id := range component {
		if !hasParent[id] {
			roots = append(roots, id)
		}
	}
	if len(roots) == 0 {
		roots = component
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	return roots[0]
}

// topologicalOrder returns component's members ancestors-first,
// descendants-last, via Kahn's algorithm restricted to the component.
func topologicalOrder(component []TxID, children map[TxID][]TxID, hasParent map[TxID]bool) []TxID {
	inComponent := make(map[TxID]bool, len(component))
	for _, id := range component {
		inComponent[id] = true
	}

	indegree := make(map[TxID]int, len(component))
	for _, id := range component {
		indegree[id] = 0
	}
	for _, id := range component {
		for _, child := range children[id] {
			if inComponent[child] {
				indegree[child]++
			}
		}
	}

	var ready []TxID
	for _, id := range component {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	order := make([]TxID, 0, len(component))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)

		var freed []TxID
		for _, child := range children[current] {
			if !inComponent[child] {
				continue
			}
			indegree[child]--
			if indegree[child] == 0 {
				freed = append(freed, child)
			}
		}
		sort.Slice(freed, func(i, j int) bool { return freed[i] < freed[j] })
		ready = append(ready, freed...)
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
	}
	return order
}
