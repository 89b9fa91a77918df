package osm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFileOverpassJSON(t *testing.T) {
	path := writeFile(t, "area.json", `{"elements":[
		{"type":"node","id":1,"lat":51.40,"lon":19.70},
		{"type":"node","id":2,"lat":51.41,"lon":19.70},
		{"type":"node","id":3,"lat":52.90,"lon":19.70},
		{"type":"way","id":10,"nodes":[1,2,3],"tags":{"highway":"cycleway"}},
		{"type":"way","id":11,"nodes":[1,2],"tags":{"highway":"motorway"}}
	]}`)

	ds, err := LoadFile(context.Background(), path, ParseOptions{
		BBox:     BBox{MinLat: 51, MaxLat: 52, MinLng: 19, MaxLng: 20},
		Highways: BikeHighways(),
	})
	require.NoError(t, err)
	assert.Len(t, ds.Nodes, 2, "node 3 is outside the bbox")
	require.Len(t, ds.Ways, 1)
	assert.Equal(t, osm.WayID(10), ds.Ways[0].ID)
}

func TestLoadFileXML(t *testing.T) {
	path := writeFile(t, "area.osm", `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="51.40" lon="19.70"/>
  <node id="2" lat="51.41" lon="19.71"/>
  <way id="10">
    <nd ref="1"/>
    <nd ref="2"/>
    <tag k="highway" v="track"/>
    <tag k="surface" v="gravel"/>
  </way>
</osm>`)

	ds, err := LoadFile(context.Background(), path, ParseOptions{})
	require.NoError(t, err)
	require.Len(t, ds.Nodes, 2)
	assert.Equal(t, 51.41, ds.Nodes[1].Lat)
	require.Len(t, ds.Ways, 1)
	assert.Equal(t, []osm.NodeID{1, 2}, ds.Ways[0].NodeIDs)
	assert.Equal(t, "gravel", ds.Ways[0].Tags.Find("surface"))
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(context.Background(), writeFile(t, "area.csv", "x"), ParseOptions{})
	assert.ErrorContains(t, err, "unsupported input format")

	_, err = LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.pbf"), ParseOptions{})
	assert.Error(t, err)

	_, err = LoadFile(context.Background(), writeFile(t, "bad.json", "{"), ParseOptions{})
	assert.Error(t, err)
}

func TestParseBBox(t *testing.T) {
	b, err := ParseBBox("51.2,19.4,51.6,20.1")
	require.NoError(t, err)
	assert.Equal(t, BBox{MinLat: 51.2, MaxLat: 51.6, MinLng: 19.4, MaxLng: 20.1}, b)
	assert.True(t, b.Contains(51.4, 19.7))

	_, err = ParseBBox("51.2,19.4")
	assert.Error(t, err)
	_, err = ParseBBox("52,19,51,20")
	assert.Error(t, err)
}

func TestPresetsAreValid(t *testing.T) {
	for name, b := range Presets {
		assert.False(t, b.IsZero(), name)
		assert.Less(t, b.MinLat, b.MaxLat, name)
		assert.Less(t, b.MinLng, b.MaxLng, name)
	}
}
