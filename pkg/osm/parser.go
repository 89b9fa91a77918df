package osm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"bike_router/pkg/geo"
)

// Node is a single geographic point with a stable identifier.
type Node struct {
	ID  osm.NodeID
	Lat float64
	Lon float64
}

// Way is an ordered node sequence with descriptive tags.
type Way struct {
	ID      osm.WayID
	NodeIDs []osm.NodeID
	Tags    osm.Tags
}

// Dataset is the raw element list handed to the graph builder. Nodes and
// ways keep the order in which they appeared in the source.
type Dataset struct {
	Nodes []Node
	Ways  []Way
}

// bikeHighways lists the highway tag values requested from Overpass for
// bicycle routing.
var bikeHighways = []string{
	"cycleway", "path", "footway", "residential", "service", "track",
	"living_street", "unclassified", "tertiary", "secondary", "primary",
}

// BikeHighways returns the default highway allow-list.
func BikeHighways() []string {
	return slices.Clone(bikeHighways)
}

// isBikeAccessible returns true if the way can be ridden with the given
// highway allow-list. An empty allow-list accepts any way carrying a
// highway tag.
func isBikeAccessible(tags osm.Tags, highways map[string]bool) bool {
	hw := tags.Find("highway")
	if hw == "" {
		return false
	}
	if len(highways) > 0 && !highways[hw] {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	access := tags.Find("access")
	if (access == "no" || access == "private") && tags.Find("bicycle") != "yes" {
		return false
	}
	if tags.Find("bicycle") == "no" {
		return false
	}

	return true
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only nodes inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return geo.Box{MinLat: b.MinLat, MinLon: b.MinLng, MaxLat: b.MaxLat, MaxLon: b.MaxLng}.Contains(lat, lng)
}

// ParseOptions configures which elements are kept.
type ParseOptions struct {
	BBox BBox // if non-zero, drop nodes outside the box

	// Highways restricts ways to these highway values. Nil keeps every
	// way that has a highway tag; use BikeHighways for the default set.
	Highways []string

	Logger *slog.Logger
}

func (o ParseOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o ParseOptions) highwaySet() map[string]bool {
	if len(o.Highways) == 0 {
		return nil
	}
	set := make(map[string]bool, len(o.Highways))
	for _, hw := range o.Highways {
		set[hw] = true
	}
	return set
}

// Filter returns a new dataset with the options applied. Only nodes
// referenced by a kept way survive, so every node can carry an edge. Ways
// that lose nodes to the bbox are kept; the graph builder drops their
// dangling edges.
func (ds *Dataset) Filter(opt ParseOptions) *Dataset {
	highways := opt.highwaySet()
	useBBox := !opt.BBox.IsZero()

	out := &Dataset{}
	referenced := make(map[osm.NodeID]struct{})
	for _, w := range ds.Ways {
		if len(w.NodeIDs) < 2 || !isBikeAccessible(w.Tags, highways) {
			continue
		}
		for _, id := range w.NodeIDs {
			referenced[id] = struct{}{}
		}
		out.Ways = append(out.Ways, w)
	}
	for _, n := range ds.Nodes {
		if _, ok := referenced[n.ID]; !ok {
			continue
		}
		if useBBox && !opt.BBox.Contains(n.Lat, n.Lon) {
			continue
		}
		out.Nodes = append(out.Nodes, n)
	}
	opt.logger().Debug("dataset filtered",
		"nodes", len(out.Nodes), "dropped_nodes", len(ds.Nodes)-len(out.Nodes),
		"ways", len(out.Ways), "dropped_ways", len(ds.Ways)-len(out.Ways))
	return out
}

// FromOSM converts a decoded OSM document into a dataset. Relations are
// ignored.
func FromOSM(o *osm.OSM) *Dataset {
	ds := &Dataset{
		Nodes: make([]Node, 0, len(o.Nodes)),
		Ways:  make([]Way, 0, len(o.Ways)),
	}
	for _, n := range o.Nodes {
		ds.Nodes = append(ds.Nodes, Node{ID: n.ID, Lat: n.Lat, Lon: n.Lon})
	}
	for _, w := range o.Ways {
		ds.Ways = append(ds.Ways, wayFromOSM(w))
	}
	return ds
}

func wayFromOSM(w *osm.Way) Way {
	nodeIDs := make([]osm.NodeID, len(w.Nodes))
	for i, wn := range w.Nodes {
		nodeIDs[i] = wn.ID
	}
	return Way{ID: w.ID, NodeIDs: nodeIDs, Tags: w.Tags}
}

// ParsePBF reads an OSM PBF file and returns the bike-accessible ways and the
// nodes they reference. The reader is consumed twice (seeks back to start for
// the second pass), so it must implement io.ReadSeeker.
func ParsePBF(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*Dataset, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	log := opt.logger()
	highways := opt.highwaySet()

	// Pass 1: Scan ways to collect referenced node IDs.
	referencedNodes := make(map[osm.NodeID]struct{})
	ds := &Dataset{}

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if len(w.Nodes) < 2 || !isBikeAccessible(w.Tags, highways) {
			continue
		}

		way := wayFromOSM(w)
		for _, id := range way.NodeIDs {
			referencedNodes[id] = struct{}{}
		}
		ds.Ways = append(ds.Ways, way)
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Info("pass 1 complete", "ways", len(ds.Ways), "referenced_nodes", len(referencedNodes))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	useBBox := !opt.BBox.IsZero()
	var bboxFiltered int
	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		if useBBox && !opt.BBox.Contains(n.Lat, n.Lon) {
			bboxFiltered++
			continue
		}
		ds.Nodes = append(ds.Nodes, Node{ID: n.ID, Lat: n.Lat, Lon: n.Lon})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	if bboxFiltered > 0 {
		log.Info("filtered nodes outside bounding box", "nodes", bboxFiltered)
	}
	log.Info("pass 2 complete", "node_coordinates", len(ds.Nodes))

	return ds, nil
}
