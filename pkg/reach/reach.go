// Package reach answers connectivity questions over a built graph.
package reach

import (
	"slices"

	"github.com/paulmach/osm"

	"bike_router/pkg/graph"
)

// DefaultMaxIterations bounds a Connected search when the caller has no
// preference.
const DefaultMaxIterations = 100_000

// Status is the outcome of a bounded connectivity search.
type Status int

const (
	// Unreachable means the search exhausted the frontier without finding the
	// target, or an endpoint has no edges.
	Unreachable Status = iota
	// Reachable means the target was dequeued.
	Reachable
	// Undetermined means the iteration ceiling was hit first.
	Undetermined
)

func (s Status) String() string {
	switch s {
	case Reachable:
		return "reachable"
	case Undetermined:
		return "undetermined"
	default:
		return "unreachable"
	}
}

// Connected runs a breadth-first search from start and reports whether end
// can be reached. maxIterations caps the number of dequeued nodes; a value
// <= 0 means no cap. The number of dequeued nodes is returned alongside.
func Connected(g *graph.Graph, start, end osm.NodeID, maxIterations int) (Status, int) {
	if !g.HasKey(start) || !g.HasKey(end) {
		return Unreachable, 0
	}

	visited := map[osm.NodeID]bool{start: true}
	queue := []osm.NodeID{start}
	iterations := 0

	for head := 0; head < len(queue); head++ {
		if maxIterations > 0 && iterations >= maxIterations {
			return Undetermined, iterations
		}
		cur := queue[head]
		iterations++
		if cur == end {
			return Reachable, iterations
		}
		for _, nb := range g.Neighbors(cur) {
			if !visited[nb.ID] {
				visited[nb.ID] = true
				queue = append(queue, nb.ID)
			}
		}
	}
	return Unreachable, iterations
}

// Partition is the set of connected components of a graph, largest first.
type Partition struct {
	comps [][]osm.NodeID
	index map[osm.NodeID]int
}

// Components partitions every adjacency key of g into connected components.
// Components are ordered by descending size; equal sizes keep the order in
// which they were discovered while walking the keys. Within a component,
// nodes are listed in traversal order.
func Components(g *graph.Graph) *Partition {
	visited := make(map[osm.NodeID]bool, len(g.Keys()))
	var comps [][]osm.NodeID

	for _, seed := range g.Keys() {
		if visited[seed] {
			continue
		}
		visited[seed] = true
		comp := []osm.NodeID{seed}
		for head := 0; head < len(comp); head++ {
			for _, nb := range g.Neighbors(comp[head]) {
				if !visited[nb.ID] {
					visited[nb.ID] = true
					comp = append(comp, nb.ID)
				}
			}
		}
		comps = append(comps, comp)
	}

	slices.SortStableFunc(comps, func(a, b []osm.NodeID) int {
		return len(b) - len(a)
	})

	index := make(map[osm.NodeID]int, len(visited))
	for i, comp := range comps {
		for _, id := range comp {
			index[id] = i
		}
	}
	return &Partition{comps: comps, index: index}
}

// Len returns the number of components.
func (p *Partition) Len() int { return len(p.comps) }

// Component returns the i-th largest component. The slice is shared.
func (p *Partition) Component(i int) []osm.NodeID { return p.comps[i] }

// Sizes returns the component sizes in partition order.
func (p *Partition) Sizes() []int {
	sizes := make([]int, len(p.comps))
	for i, c := range p.comps {
		sizes[i] = len(c)
	}
	return sizes
}

// IndexOf returns the component holding id.
func (p *Partition) IndexOf(id osm.NodeID) (int, bool) {
	i, ok := p.index[id]
	return i, ok
}

// Same reports whether a and b belong to the same component. Nodes without
// edges belong to no component.
func (p *Partition) Same(a, b osm.NodeID) bool {
	ia, okA := p.index[a]
	ib, okB := p.index[b]
	return okA && okB && ia == ib
}
