// Package nearest resolves arbitrary coordinates to the closest node of a
// node table.
//
// Both finders return the same answer for the same table: the node with the
// smallest great-circle distance, ties going to the node that comes first in
// table order.
package nearest

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/osm"
	"github.com/tidwall/rtree"

	"bike_router/pkg/geo"
	osmparser "bike_router/pkg/osm"
)

// ErrNoCandidates is returned when the node table is empty.
var ErrNoCandidates = errors.New("no candidate nodes")

const (
	initialRadiusMeters = 250.0
	maxExpansions       = 12 // 250 m * 2^12 ≈ 1000 km before scanning everything
)

// Result is a resolved node and its distance from the query point.
type Result struct {
	ID       osm.NodeID
	Lat      float64
	Lon      float64
	Distance float64 // meters
}

// Finder resolves a coordinate to the nearest node.
type Finder interface {
	Nearest(lat, lon float64) (Result, error)
}

// Scan returns the node nearest to (lat, lon) by checking every node.
func Scan(nodes []osmparser.Node, lat, lon float64) (Result, error) {
	if len(nodes) == 0 {
		return Result{}, ErrNoCandidates
	}

	best := -1
	bestDist := math.Inf(1)
	for i, n := range nodes {
		d := geo.Haversine(lat, lon, n.Lat, n.Lon)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best < 0 {
		// Only reachable with NaN coordinates.
		return Result{}, ErrNoCandidates
	}

	n := nodes[best]
	return Result{ID: n.ID, Lat: n.Lat, Lon: n.Lon, Distance: bestDist}, nil
}

// Scanner is a Finder doing an exhaustive scan per query.
type Scanner struct {
	nodes []osmparser.Node
}

// NewScanner returns a Finder over nodes. The slice is not copied.
func NewScanner(nodes []osmparser.Node) *Scanner {
	return &Scanner{nodes: nodes}
}

// Nearest implements Finder.
func (s *Scanner) Nearest(lat, lon float64) (Result, error) {
	return Scan(s.nodes, lat, lon)
}

// Index is a Finder backed by an R-tree over node positions. It searches a
// growing box around the query point and only accepts a candidate whose
// distance lies within the box radius, which makes the answer identical to
// Scan. Queries near the poles or the antimeridian fall back to Scan.
type Index struct {
	tr    rtree.RTreeG[int] // value: position in nodes
	nodes []osmparser.Node
}

// NewIndex builds an R-tree over nodes. The slice is not copied.
func NewIndex(nodes []osmparser.Node) *Index {
	ix := &Index{nodes: nodes}
	for i, n := range nodes {
		pt := [2]float64{n.Lon, n.Lat}
		ix.tr.Insert(pt, pt, i)
	}
	return ix
}

// Len returns the number of indexed nodes.
func (ix *Index) Len() int { return ix.tr.Len() }

// Nearest implements Finder.
func (ix *Index) Nearest(lat, lon float64) (Result, error) {
	if len(ix.nodes) == 0 {
		return Result{}, ErrNoCandidates
	}

	radius := initialRadiusMeters
	for range maxExpansions {
		box, ok := geo.SearchBox(lat, lon, radius)
		if !ok {
			break
		}

		best := -1
		bestDist := math.Inf(1)
		ix.tr.Search(
			[2]float64{box.MinLon, box.MinLat},
			[2]float64{box.MaxLon, box.MaxLat},
			func(_, _ [2]float64, i int) bool {
				n := ix.nodes[i]
				d := geo.Haversine(lat, lon, n.Lat, n.Lon)
				if d < bestDist || (d == bestDist && i < best) {
					best = i
					bestDist = d
				}
				return true
			},
		)

		// Every node closer than radius lies inside the box, so a candidate
		// within radius cannot be beaten by a node outside it.
		if best >= 0 && bestDist <= radius {
			n := ix.nodes[best]
			return Result{ID: n.ID, Lat: n.Lat, Lon: n.Lon, Distance: bestDist}, nil
		}
		radius *= 2
	}

	return Scan(ix.nodes, lat, lon)
}

// New returns a Finder of the named kind: "scan" or "rtree".
func New(kind string, nodes []osmparser.Node) (Finder, error) {
	switch kind {
	case "scan":
		return NewScanner(nodes), nil
	case "rtree", "":
		return NewIndex(nodes), nil
	default:
		return nil, fmt.Errorf("unknown nearest-node finder %q (want scan or rtree)", kind)
	}
}
