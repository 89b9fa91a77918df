package graph

import (
	"github.com/paulmach/osm"

	osmparser "bike_router/pkg/osm"
)

// Unknown is the sentinel used when a surface or highway value is missing.
const Unknown = "unknown"

// EdgeKey identifies a directed edge. Every undirected edge is stored under
// both of its directed keys.
type EdgeKey struct {
	From osm.NodeID
	To   osm.NodeID
}

// Reverse returns the key of the opposite direction.
func (k EdgeKey) Reverse() EdgeKey {
	return EdgeKey{From: k.To, To: k.From}
}

// EdgeMeta holds the tag-derived attributes of the way an edge came from.
type EdgeMeta struct {
	Surface    string
	Highway    string
	Width      string
	Lit        string
	Smoothness string
	Name       string
	WayID      osm.WayID
}

// Neighbor is one weighted entry of a node's adjacency list.
type Neighbor struct {
	ID     osm.NodeID
	Weight float64 // great-circle distance in meters
}

// Graph is an undirected weighted graph over OSM node ids together with the
// node table it was built from. A Graph is read-only once built and safe for
// concurrent use.
type Graph struct {
	nodes     []osmparser.Node // node table, first-appearance order
	nodeIndex map[osm.NodeID]int

	keys []osm.NodeID // adjacency keys, insertion order
	adj  map[osm.NodeID][]Neighbor
	meta map[EdgeKey]EdgeMeta

	numEdges int
	stats    BuildStats
}

func newGraph() *Graph {
	return &Graph{
		nodeIndex: make(map[osm.NodeID]int),
		adj:       make(map[osm.NodeID][]Neighbor),
		meta:      make(map[EdgeKey]EdgeMeta),
	}
}

// NumNodes returns the size of the node table, including nodes that are not
// part of any edge.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the number of undirected edges.
func (g *Graph) NumEdges() int { return g.numEdges }

// Nodes returns the node table in first-appearance order. The returned
// slice is shared and must not be modified.
func (g *Graph) Nodes() []osmparser.Node { return g.nodes }

// Node looks up a node by id.
func (g *Graph) Node(id osm.NodeID) (osmparser.Node, bool) {
	idx, ok := g.nodeIndex[id]
	if !ok {
		return osmparser.Node{}, false
	}
	return g.nodes[idx], true
}

// Keys returns every node that has at least one edge, in insertion order.
// The returned slice is shared and must not be modified.
func (g *Graph) Keys() []osm.NodeID { return g.keys }

// HasKey reports whether id has at least one edge.
func (g *Graph) HasKey(id osm.NodeID) bool {
	_, ok := g.adj[id]
	return ok
}

// Neighbors returns the adjacency list of id in insertion order.
func (g *Graph) Neighbors(id osm.NodeID) []Neighbor { return g.adj[id] }

// Degree returns the number of neighbors of id.
func (g *Graph) Degree(id osm.NodeID) int { return len(g.adj[id]) }

// Weight returns the weight of the edge a-b.
func (g *Graph) Weight(a, b osm.NodeID) (float64, bool) {
	for _, nb := range g.adj[a] {
		if nb.ID == b {
			return nb.Weight, true
		}
	}
	return 0, false
}

// Meta returns the metadata stored for the directed edge a→b.
func (g *Graph) Meta(a, b osm.NodeID) (EdgeMeta, bool) {
	m, ok := g.meta[EdgeKey{From: a, To: b}]
	return m, ok
}

// Stats returns the counters collected while the graph was built.
func (g *Graph) Stats() BuildStats { return g.stats }
