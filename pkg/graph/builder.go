package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/paulmach/osm"

	"bike_router/pkg/geo"
	osmparser "bike_router/pkg/osm"
)

var (
	// ErrMissingNode is returned by Builder.AddEdge when an endpoint is not in
	// the node table.
	ErrMissingNode = errors.New("edge endpoint missing from node table")

	// ErrSelfLoop is returned by Builder.AddEdge for an edge from a node to itself.
	ErrSelfLoop = errors.New("self-loop edge")

	// ErrNegativeWeight is returned by Builder.AddEdge for a negative weight.
	ErrNegativeWeight = errors.New("negative edge weight")
)

// OverlapPolicy decides which way wins when two ways produce the same
// undirected node pair.
type OverlapPolicy int

const (
	// LastWriteWins keeps the weight and metadata of the way processed last.
	LastWriteWins OverlapPolicy = iota
	// FirstWriteWins keeps the weight and metadata of the way processed first.
	FirstWriteWins
)

func (p OverlapPolicy) String() string {
	switch p {
	case LastWriteWins:
		return "last"
	case FirstWriteWins:
		return "first"
	default:
		return fmt.Sprintf("OverlapPolicy(%d)", int(p))
	}
}

// ParseOverlapPolicy parses "last" or "first".
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "last":
		return LastWriteWins, nil
	case "first":
		return FirstWriteWins, nil
	default:
		return 0, fmt.Errorf("unknown overlap policy %q (want \"last\" or \"first\")", s)
	}
}

// Conflict records two ways that produced the same undirected node pair.
type Conflict struct {
	A, B       osm.NodeID
	KeptWay    osm.WayID
	DroppedWay osm.WayID
}

// BuildStats counts what happened while building a graph.
type BuildStats struct {
	Ways             int // ways seen
	WaysSkipped      int // ways with fewer than two nodes
	Edges            int // undirected edges in the graph
	DroppedMissing   int // edges dropped because an endpoint was missing
	DroppedSelfLoops int // consecutive duplicate node ids
	Conflicts        []Conflict
}

// BuildOptions configures graph construction.
type BuildOptions struct {
	Overlap OverlapPolicy
	Logger  *slog.Logger
}

// Builder assembles a Graph incrementally. Nodes must be added before the
// edges that reference them. A Builder is not safe for concurrent use.
type Builder struct {
	g   *Graph
	opt BuildOptions

	// pos locates the Neighbor entry for a directed edge inside adj.
	pos map[EdgeKey]int
}

// NewBuilder returns an empty builder.
func NewBuilder(opts ...BuildOptions) *Builder {
	var opt BuildOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	return &Builder{
		g:   newGraph(),
		opt: opt,
		pos: make(map[EdgeKey]int),
	}
}

// AddNode indexes a node. A repeated id keeps its original table position
// and takes the newer coordinates.
func (b *Builder) AddNode(n osmparser.Node) {
	if idx, ok := b.g.nodeIndex[n.ID]; ok {
		b.g.nodes[idx] = n
		return
	}
	b.g.nodeIndex[n.ID] = len(b.g.nodes)
	b.g.nodes = append(b.g.nodes, n)
}

// AddWay inserts an edge for every consecutive node pair of the way, weighted
// by great-circle distance. Pairs with a missing endpoint and self-loops are
// skipped and counted.
func (b *Builder) AddWay(w osmparser.Way) {
	b.g.stats.Ways++
	if len(w.NodeIDs) < 2 {
		b.g.stats.WaysSkipped++
		return
	}

	meta := metaFromTags(w.ID, w.Tags)
	for i := 0; i < len(w.NodeIDs)-1; i++ {
		from, to := w.NodeIDs[i], w.NodeIDs[i+1]

		na, okA := b.g.Node(from)
		nb, okB := b.g.Node(to)
		if !okA || !okB {
			b.g.stats.DroppedMissing++
			continue
		}
		if from == to {
			b.g.stats.DroppedSelfLoops++
			continue
		}

		b.insert(from, to, geo.Haversine(na.Lat, na.Lon, nb.Lat, nb.Lon), meta)
	}
}

// AddEdge inserts an undirected edge with an explicit weight.
func (b *Builder) AddEdge(from, to osm.NodeID, weight float64, meta EdgeMeta) error {
	if _, ok := b.g.nodeIndex[from]; !ok {
		return fmt.Errorf("%w: %d", ErrMissingNode, from)
	}
	if _, ok := b.g.nodeIndex[to]; !ok {
		return fmt.Errorf("%w: %d", ErrMissingNode, to)
	}
	if from == to {
		return fmt.Errorf("%w: %d", ErrSelfLoop, from)
	}
	if weight < 0 {
		return fmt.Errorf("%w: %d-%d weight %f", ErrNegativeWeight, from, to, weight)
	}
	if meta.Surface == "" {
		meta.Surface = Unknown
	}
	if meta.Highway == "" {
		meta.Highway = Unknown
	}
	b.insert(from, to, weight, meta)
	return nil
}

func (b *Builder) insert(from, to osm.NodeID, weight float64, meta EdgeMeta) {
	key := EdgeKey{From: from, To: to}
	if _, exists := b.pos[key]; exists {
		prev := b.g.meta[key]
		keep := b.opt.Overlap == FirstWriteWins
		if prev.WayID != meta.WayID {
			c := Conflict{A: from, B: to, KeptWay: meta.WayID, DroppedWay: prev.WayID}
			if keep {
				c.KeptWay, c.DroppedWay = prev.WayID, meta.WayID
			}
			b.g.stats.Conflicts = append(b.g.stats.Conflicts, c)
		}
		if keep {
			return
		}
		b.g.adj[from][b.pos[key]].Weight = weight
		b.g.adj[to][b.pos[key.Reverse()]].Weight = weight
		b.g.meta[key] = meta
		b.g.meta[key.Reverse()] = meta
		return
	}

	b.link(key, weight)
	b.link(key.Reverse(), weight)
	b.g.meta[key] = meta
	b.g.meta[key.Reverse()] = meta
	b.g.numEdges++
}

func (b *Builder) link(key EdgeKey, weight float64) {
	list, ok := b.g.adj[key.From]
	if !ok {
		b.g.keys = append(b.g.keys, key.From)
	}
	b.pos[key] = len(list)
	b.g.adj[key.From] = append(list, Neighbor{ID: key.To, Weight: weight})
}

// Graph finalizes and returns the graph. The builder must not be used
// afterwards.
func (b *Builder) Graph() *Graph {
	g := b.g
	g.stats.Edges = g.numEdges
	b.g = nil
	b.pos = nil
	return g
}

func metaFromTags(id osm.WayID, tags osm.Tags) EdgeMeta {
	m := EdgeMeta{
		Surface:    tags.Find("surface"),
		Highway:    tags.Find("highway"),
		Width:      tags.Find("width"),
		Lit:        tags.Find("lit"),
		Smoothness: tags.Find("smoothness"),
		Name:       tags.Find("name"),
		WayID:      id,
	}
	if m.Surface == "" {
		m.Surface = Unknown
	}
	if m.Highway == "" {
		m.Highway = Unknown
	}
	return m
}

// Build creates a Graph from a raw dataset: every node is indexed first, then
// each way contributes an edge per consecutive node pair.
func Build(ds *osmparser.Dataset, opts ...BuildOptions) *Graph {
	b := NewBuilder(opts...)
	log := b.opt.Logger
	if log == nil {
		log = slog.Default()
	}

	for _, n := range ds.Nodes {
		b.AddNode(n)
	}
	for _, w := range ds.Ways {
		b.AddWay(w)
	}
	g := b.Graph()

	st := g.stats
	if st.DroppedMissing > 0 {
		log.Warn("skipped edges due to missing node coordinates", "edges", st.DroppedMissing)
	}
	if len(st.Conflicts) > 0 {
		log.Warn("ways overlap on the same node pair", "pairs", len(st.Conflicts), "policy", b.opt.Overlap.String())
	}
	log.Info("graph built", "nodes", g.NumNodes(), "keys", len(g.keys), "edges", g.numEdges, "ways", st.Ways)

	return g
}
