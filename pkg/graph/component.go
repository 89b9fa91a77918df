package graph

import (
	"github.com/paulmach/osm"
)

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte // max rank stays around 30 for realistic graphs
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the size of the set containing x.
func (uf *UnionFind) Size(x uint32) uint32 {
	return uf.size[uf.Find(x)]
}

// LargestComponent returns the adjacency keys belonging to the largest
// connected component, in key order. Ties go to the component whose first
// key appears earliest.
func LargestComponent(g *Graph) []osm.NodeID {
	if len(g.keys) == 0 {
		return nil
	}

	keyIdx := make(map[osm.NodeID]uint32, len(g.keys))
	for i, id := range g.keys {
		keyIdx[id] = uint32(i)
	}

	uf := NewUnionFind(uint32(len(g.keys)))
	for i, id := range g.keys {
		for _, nb := range g.adj[id] {
			uf.Union(uint32(i), keyIdx[nb.ID])
		}
	}

	bestRoot := uint32(0)
	bestSize := uint32(0)
	for i := range g.keys {
		if size := uf.Size(uint32(i)); size > bestSize {
			bestRoot = uf.Find(uint32(i))
			bestSize = size
		}
	}

	nodes := make([]osm.NodeID, 0, bestSize)
	for i, id := range g.keys {
		if uf.Find(uint32(i)) == bestRoot {
			nodes = append(nodes, id)
		}
	}
	return nodes
}

// Subgraph returns a new graph restricted to the given node ids. Node table
// order, adjacency order and edge metadata are preserved; edges leaving the
// set are dropped.
func (g *Graph) Subgraph(ids []osm.NodeID) *Graph {
	keep := make(map[osm.NodeID]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}

	sub := newGraph()
	for _, n := range g.nodes {
		if !keep[n.ID] {
			continue
		}
		sub.nodeIndex[n.ID] = len(sub.nodes)
		sub.nodes = append(sub.nodes, n)
	}

	for _, id := range g.keys {
		if !keep[id] {
			continue
		}
		var list []Neighbor
		for _, nb := range g.adj[id] {
			if !keep[nb.ID] {
				continue
			}
			list = append(list, nb)
			key := EdgeKey{From: id, To: nb.ID}
			if m, ok := g.meta[key]; ok {
				sub.meta[key] = m
			}
			if id < nb.ID {
				sub.numEdges++
			}
		}
		if len(list) == 0 {
			continue
		}
		sub.keys = append(sub.keys, id)
		sub.adj[id] = list
	}

	sub.stats = g.stats
	sub.stats.Edges = sub.numEdges
	return sub
}
