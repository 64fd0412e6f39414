package services

import (
	"sort"

	"github.com/sellermate/catalog-engine/pkg/models"
)

// unionFind tracks connectivity over product keys with path compression.
type unionFind struct {
	parent map[int64]int64
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[int64]int64)}
}

// add registers a key as a singleton node if it is not yet known.
func (u *unionFind) add(k int64) {
	if _, ok := u.parent[k]; !ok {
		u.parent[k] = k
	}
}

func (u *unionFind) find(k int64) int64 {
	u.add(k)
	root := k
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[k] != root {
		u.parent[k], k = root, u.parent[k]
	}
	return root
}

func (u *unionFind) union(a, b int64) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}

// components returns the connected components, each sorted ascending and the
// list ordered by each component's minimum key. Map iteration order never
// leaks into the result.
func (u *unionFind) components() [][]int64 {
	byRoot := make(map[int64][]int64)
	for k := range u.parent {
		root := u.find(k)
		byRoot[root] = append(byRoot[root], k)
	}

	comps := make([][]int64, 0, len(byRoot))
	for _, members := range byRoot {
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		comps = append(comps, members)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })
	return comps
}

// edgeKey is an undirected edge; a < b always.
type edgeKey struct {
	a, b int64
}

func makeEdgeKey(a, b int64) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a: a, b: b}
}

// buildEdgeWeights collapses candidate pairs to undirected edges, keeping the
// maximum score per edge.
func buildEdgeWeights(pairs []models.CandidatePair) map[edgeKey]float64 {
	edges := make(map[edgeKey]float64, len(pairs))
	for _, p := range pairs {
		k := makeEdgeKey(p.SeedKey, p.CandKey)
		if s, ok := edges[k]; !ok || p.FinalScore > s {
			edges[k] = p.FinalScore
		}
	}
	return edges
}

// splitComponent partitions an oversized component into score-cohesive
// subgroups of at most maxSize members.
//
// Greedy strategy: seed each subgroup with the remaining node carrying the
// highest total edge weight, then repeatedly pull in the remaining node most
// strongly connected to the subgroup so far (cumulative edge weight to all
// members, cached between steps). A subgroup closes when it reaches maxSize
// or no positively-connected node remains. Ties always resolve to the lowest
// key, so the partition is reproducible.
//
// The union of the returned subgroups is exactly the input component.
func splitComponent(component []int64, edges map[edgeKey]float64, maxSize int) [][]int64 {
	if len(component) == 0 {
		return nil
	}
	if len(component) <= maxSize {
		return [][]int64{component}
	}

	nodeScores := make(map[int64]float64, len(component))
	inComponent := make(map[int64]bool, len(component))
	for _, k := range component {
		nodeScores[k] = 0
		inComponent[k] = true
	}
	for e, w := range edges {
		if inComponent[e.a] && inComponent[e.b] {
			nodeScores[e.a] += w
			nodeScores[e.b] += w
		}
	}

	// remaining stays sorted ascending; selection scans it in order so the
	// first maximal node wins ties.
	remaining := make([]int64, len(component))
	copy(remaining, component)
	sort.Slice(remaining, func(i, j int) bool { return remaining[i] < remaining[j] })

	removeAt := func(idx int) {
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}

	var subgroups [][]int64
	for len(remaining) > 0 {
		seedIdx := 0
		for i, k := range remaining {
			if nodeScores[k] > nodeScores[remaining[seedIdx]] {
				seedIdx = i
			}
		}
		seed := remaining[seedIdx]
		removeAt(seedIdx)
		group := []int64{seed}

		connections := make(map[int64]float64, len(remaining))
		for _, k := range remaining {
			connections[k] = edges[makeEdgeKey(seed, k)]
		}

		for len(group) < maxSize && len(remaining) > 0 {
			bestIdx := -1
			bestScore := 0.0
			for i, k := range remaining {
				if s := connections[k]; s > bestScore {
					bestScore = s
					bestIdx = i
				}
			}
			if bestIdx < 0 {
				// No positively-connected node left; the next subgroup
				// starts from a fresh seed.
				break
			}

			best := remaining[bestIdx]
			removeAt(bestIdx)
			group = append(group, best)

			for _, k := range remaining {
				connections[k] += edges[makeEdgeKey(best, k)]
			}
		}

		sort.Slice(group, func(i, j int) bool { return group[i] < group[j] })
		subgroups = append(subgroups, group)
	}

	return subgroups
}

// boundComponents applies splitComponent to every component exceeding
// maxSize; components within the bound pass through unchanged. maxSize <= 0
// disables splitting.
func boundComponents(components [][]int64, edges map[edgeKey]float64, maxSize int) [][]int64 {
	if maxSize <= 0 {
		return components
	}
	var out [][]int64
	for _, comp := range components {
		if len(comp) > maxSize {
			out = append(out, splitComponent(comp, edges, maxSize)...)
		} else {
			out = append(out, comp)
		}
	}
	return out
}
