// Package geojson shapes computed routes into GeoJSON feature collections.
// Nothing in this package performs I/O.
package geojson

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/osm"

	osmparser "bike_router/pkg/osm"
	"bike_router/pkg/routing"
)

// ErrMissingNode is returned when a path references a node without
// coordinates.
var ErrMissingNode = errors.New("path node has no coordinates")

// NodeLocator looks up node coordinates. *graph.Graph implements it.
type NodeLocator interface {
	Node(id osm.NodeID) (osmparser.Node, bool)
}

func point(nodes NodeLocator, id osm.NodeID) (orb.Point, error) {
	n, ok := nodes.Node(id)
	if !ok {
		return orb.Point{}, fmt.Errorf("%w: %d", ErrMissingNode, id)
	}
	return orb.Point{n.Lon, n.Lat}, nil
}

func lineString(nodes NodeLocator, path []osm.NodeID) (orb.LineString, error) {
	ls := make(orb.LineString, 0, len(path))
	for _, id := range path {
		p, err := point(nodes, id)
		if err != nil {
			return nil, err
		}
		ls = append(ls, p)
	}
	return ls, nil
}

// routeGeometry returns the geometry of a whole path. A single-node path,
// where start and end snapped to the same node, becomes a Point since a
// LineString needs two positions.
func routeGeometry(nodes NodeLocator, path []osm.NodeID) (orb.Geometry, error) {
	if len(path) == 1 {
		return point(nodes, path[0])
	}
	return lineString(nodes, path)
}

// Summary returns a collection holding one feature for the whole route,
// carrying distance, surface and evaluation properties. The geometry is a
// LineString, or a Point for a single-node route.
func Summary(r *routing.Route, nodes NodeLocator) (*geojson.FeatureCollection, error) {
	geom, err := routeGeometry(nodes, r.Path)
	if err != nil {
		return nil, err
	}

	f := geojson.NewFeature(geom)
	f.Properties["distance_km"] = r.DistanceMeters / 1000
	f.Properties["distance_m"] = r.DistanceMeters
	f.Properties["surfaces"] = nonNil(r.Metadata.Surfaces)
	f.Properties["unique_surfaces"] = distinct(r.Metadata.Surfaces)
	f.Properties["highways"] = distinct(r.Metadata.Highways)
	f.Properties["segments_count"] = len(r.Metadata.Segments)
	f.Properties["surface_statistics"] = histogram(r.Metadata.Surfaces)
	f.Properties["bike_type"] = r.Profile
	f.Properties["evaluation"] = r.Evaluation.Properties()

	return geojson.NewFeatureCollection().Append(f), nil
}

// Detailed returns a collection with the whole route as its first feature
// followed by one two-point LineString per segment. The whole route is a
// Point when the path has a single node.
func Detailed(r *routing.Route, nodes NodeLocator) (*geojson.FeatureCollection, error) {
	geom, err := routeGeometry(nodes, r.Path)
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()

	whole := geojson.NewFeature(geom)
	whole.Properties["type"] = "main_route"
	whole.Properties["distance_km"] = r.DistanceMeters / 1000
	whole.Properties["bike_type"] = r.Profile
	whole.Properties["segments_count"] = len(r.Metadata.Segments)
	whole.Properties["evaluation"] = r.Evaluation.Properties()
	fc.Append(whole)

	for i, seg := range r.Metadata.Segments {
		from, err := point(nodes, seg.From)
		if err != nil {
			return nil, err
		}
		to, err := point(nodes, seg.To)
		if err != nil {
			return nil, err
		}

		f := geojson.NewFeature(orb.LineString{from, to})
		f.Properties["type"] = "segment"
		f.Properties["segment_index"] = i
		f.Properties["surface"] = seg.Surface
		f.Properties["highway"] = seg.Highway
		f.Properties["width"] = seg.Width
		f.Properties["lit"] = seg.Lit
		f.Properties["smoothness"] = seg.Smoothness
		f.Properties["name"] = seg.Name
		f.Properties["way_id"] = int64(seg.WayID)
		f.Properties["distance_m"] = seg.DistanceMeters
		fc.Append(f)
	}
	return fc, nil
}

// StartEnd returns a collection with the first and last path node as Point
// features, or nil for paths with fewer than two nodes.
func StartEnd(r *routing.Route, nodes NodeLocator) (*geojson.FeatureCollection, error) {
	if len(r.Path) < 2 {
		return nil, nil
	}
	start, err := point(nodes, r.Path[0])
	if err != nil {
		return nil, err
	}
	end, err := point(nodes, r.Path[len(r.Path)-1])
	if err != nil {
		return nil, err
	}

	fs := geojson.NewFeature(start)
	fs.Properties["type"] = "start"
	fs.Properties["name"] = "Start"
	fe := geojson.NewFeature(end)
	fe.Properties["type"] = "end"
	fe.Properties["name"] = "Finish"

	return geojson.NewFeatureCollection().Append(fs).Append(fe), nil
}

func distinct(values []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func histogram(values []string) map[string]int {
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}
	return counts
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
