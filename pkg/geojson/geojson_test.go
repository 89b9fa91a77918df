package geojson

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bike_router/pkg/graph"
	osmparser "bike_router/pkg/osm"
	"bike_router/pkg/profile"
	"bike_router/pkg/routing"
)

func testRoute(t *testing.T) (*routing.Route, *graph.Graph) {
	t.Helper()
	ds := &osmparser.Dataset{
		Nodes: []osmparser.Node{
			{ID: 1, Lat: 51.4668, Lon: 19.5710},
			{ID: 2, Lat: 51.4670, Lon: 19.5720},
			{ID: 3, Lat: 51.4672, Lon: 19.5730},
			{ID: 4, Lat: 51.4680, Lon: 19.5735},
		},
		Ways: []osmparser.Way{
			{ID: 100, NodeIDs: []osm.NodeID{1, 2, 3}, Tags: osm.Tags{
				{Key: "highway", Value: "cycleway"},
				{Key: "surface", Value: "asphalt"},
				{Key: "lit", Value: "yes"},
			}},
			{ID: 101, NodeIDs: []osm.NodeID{3, 4}, Tags: osm.Tags{
				{Key: "highway", Value: "track"},
			}},
		},
	}
	g := graph.Build(ds)
	eng := routing.NewEngine(g, profile.Default(), routing.Options{})

	r, err := eng.Route(context.Background(), routing.Query{
		Start:   routing.LatLng{Lat: 51.4668, Lng: 19.5710},
		End:     routing.LatLng{Lat: 51.4680, Lng: 19.5735},
		Profile: "city",
	})
	require.NoError(t, err)
	require.Equal(t, []osm.NodeID{1, 2, 3, 4}, r.Path)
	return r, g
}

func TestSummary(t *testing.T) {
	r, g := testRoute(t)

	fc, err := Summary(r, g)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	ls, ok := f.Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Len(t, ls, 4)
	assert.Equal(t, orb.Point{19.5710, 51.4668}, ls[0], "coordinates are [lon, lat]")

	assert.Equal(t, r.DistanceMeters/1000, f.Properties["distance_km"])
	assert.Equal(t, []string{"asphalt", "asphalt", "unknown"}, f.Properties["surfaces"])
	assert.Equal(t, []string{"asphalt", "unknown"}, f.Properties["unique_surfaces"])
	assert.Equal(t, []string{"cycleway", "track"}, f.Properties["highways"])
	assert.Equal(t, 3, f.Properties["segments_count"])
	assert.Equal(t, map[string]int{"asphalt": 2, "unknown": 1}, f.Properties["surface_statistics"])
	assert.Equal(t, "city", f.Properties["bike_type"])

	eval, ok := f.Properties["evaluation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "success", eval["status"])
}

func TestDetailed(t *testing.T) {
	r, g := testRoute(t)

	fc, err := Detailed(r, g)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1+len(r.Metadata.Segments))
	assert.Equal(t, "main_route", fc.Features[0].Properties["type"])

	for i, seg := range r.Metadata.Segments {
		f := fc.Features[i+1]
		assert.Equal(t, "segment", f.Properties["type"])
		assert.Equal(t, i, f.Properties["segment_index"])

		ls, ok := f.Geometry.(orb.LineString)
		require.True(t, ok)
		require.Len(t, ls, 2)

		from, _ := g.Node(seg.From)
		to, _ := g.Node(seg.To)
		assert.Equal(t, orb.Point{from.Lon, from.Lat}, ls[0])
		assert.Equal(t, orb.Point{to.Lon, to.Lat}, ls[1])
	}

	first := fc.Features[1].Properties
	assert.Equal(t, "asphalt", first["surface"])
	assert.Equal(t, "yes", first["lit"])
	assert.Equal(t, int64(100), first["way_id"])

	last := fc.Features[3].Properties
	assert.Equal(t, "unknown", last["surface"])
	assert.Equal(t, "track", last["highway"])
}

func TestDetailedMarshalsToPlainJSON(t *testing.T) {
	r, g := testRoute(t)

	fc, err := Detailed(r, g)
	require.NoError(t, err)
	data, err := json.Marshal(fc)
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string      `json:"type"`
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)
	assert.Equal(t, "LineString", decoded.Features[1].Geometry.Type)
	assert.Equal(t, []float64{19.5710, 51.4668}, decoded.Features[1].Geometry.Coordinates[0])
}

func TestStartEnd(t *testing.T) {
	r, g := testRoute(t)

	fc, err := StartEnd(r, g)
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, orb.Point{19.5710, 51.4668}, fc.Features[0].Geometry)
	assert.Equal(t, "start", fc.Features[0].Properties["type"])
	assert.Equal(t, orb.Point{19.5735, 51.4680}, fc.Features[1].Geometry)
	assert.Equal(t, "end", fc.Features[1].Properties["type"])

	short := &routing.Route{Path: []osm.NodeID{1}}
	fc, err = StartEnd(short, g)
	require.NoError(t, err)
	assert.Nil(t, fc)
}

func TestSingleNodeRouteIsPoint(t *testing.T) {
	_, g := testRoute(t)
	eng := routing.NewEngine(g, profile.Default(), routing.Options{})
	r, err := eng.Route(context.Background(), routing.Query{
		Start:   routing.LatLng{Lat: 51.4668, Lng: 19.5710},
		End:     routing.LatLng{Lat: 51.46681, Lng: 19.57101},
		Profile: "city",
	})
	require.NoError(t, err)
	require.Equal(t, []osm.NodeID{1}, r.Path)

	summary, err := Summary(r, g)
	require.NoError(t, err)
	require.Len(t, summary.Features, 1)
	assert.Equal(t, orb.Point{19.5710, 51.4668}, summary.Features[0].Geometry)
	assert.Equal(t, 0, summary.Features[0].Properties["segments_count"])

	detailed, err := Detailed(r, g)
	require.NoError(t, err)
	require.Len(t, detailed.Features, 1, "no segments")
	assert.Equal(t, orb.Point{19.5710, 51.4668}, detailed.Features[0].Geometry)

	data, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"Point"`)
}

func TestMissingNode(t *testing.T) {
	_, g := testRoute(t)
	r := &routing.Route{Path: []osm.NodeID{1, 99}}

	_, err := Summary(r, g)
	assert.ErrorIs(t, err, ErrMissingNode)
	_, err = Detailed(r, g)
	assert.ErrorIs(t, err, ErrMissingNode)
}
