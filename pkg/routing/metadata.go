package routing

import (
	"github.com/paulmach/osm"

	"bike_router/pkg/graph"
)

// Segment is one traversed edge of a path with the metadata of the way it
// came from.
type Segment struct {
	From, To       osm.NodeID
	Surface        string
	Highway        string
	Width          string
	Lit            string
	Smoothness     string
	Name           string
	WayID          osm.WayID
	DistanceMeters float64
}

// RouteMetadata holds the segments of a path in traversal order together
// with their surfaces and highway types.
type RouteMetadata struct {
	Segments []Segment
	Surfaces []string
	Highways []string
}

// ExtractMetadata returns one segment per consecutive node pair of path.
// Pairs without recorded metadata get "unknown" surface and highway.
func ExtractMetadata(path []osm.NodeID, g *graph.Graph) RouteMetadata {
	if len(path) < 2 {
		return RouteMetadata{}
	}

	n := len(path) - 1
	md := RouteMetadata{
		Segments: make([]Segment, 0, n),
		Surfaces: make([]string, 0, n),
		Highways: make([]string, 0, n),
	}
	for i := range n {
		from, to := path[i], path[i+1]
		seg := Segment{From: from, To: to, Surface: graph.Unknown, Highway: graph.Unknown}
		if m, ok := g.Meta(from, to); ok {
			seg.Surface = m.Surface
			seg.Highway = m.Highway
			seg.Width = m.Width
			seg.Lit = m.Lit
			seg.Smoothness = m.Smoothness
			seg.Name = m.Name
			seg.WayID = m.WayID
		}
		if w, ok := g.Weight(from, to); ok {
			seg.DistanceMeters = w
		}

		md.Segments = append(md.Segments, seg)
		md.Surfaces = append(md.Surfaces, seg.Surface)
		md.Highways = append(md.Highways, seg.Highway)
	}
	return md
}

// Distance returns the summed segment length in meters.
func (md RouteMetadata) Distance() float64 {
	var d float64
	for _, s := range md.Segments {
		d += s.DistanceMeters
	}
	return d
}
