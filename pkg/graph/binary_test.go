package graph_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bike_router/pkg/graph"
	osmparser "bike_router/pkg/osm"
)

func buildTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	ds := &osmparser.Dataset{
		Nodes: []osmparser.Node{
			{ID: 10, Lat: 51.40, Lon: 19.70},
			{ID: 20, Lat: 51.41, Lon: 19.70},
			{ID: 30, Lat: 51.42, Lon: 19.71},
			{ID: 40, Lat: 51.43, Lon: 19.72},
			{ID: 99, Lat: 51.50, Lon: 19.80}, // isolated
		},
		Ways: []osmparser.Way{
			{ID: 1, NodeIDs: []osm.NodeID{10, 20, 30}, Tags: osm.Tags{{Key: "highway", Value: "cycleway"}, {Key: "surface", Value: "asphalt"}}},
			{ID: 2, NodeIDs: []osm.NodeID{30, 40}, Tags: osm.Tags{{Key: "highway", Value: "track"}, {Key: "smoothness", Value: "bad"}}},
			{ID: 3, NodeIDs: []osm.NodeID{40, 30}, Tags: osm.Tags{{Key: "highway", Value: "path"}}},
		},
	}
	return graph.Build(ds)
}

func TestBinaryRoundTrip(t *testing.T) {
	original := buildTestGraph(t)

	path := filepath.Join(t.TempDir(), "test.graph.bin")
	require.NoError(t, graph.WriteBinary(path, original))

	loaded, err := graph.ReadBinary(path)
	require.NoError(t, err)

	assert.Equal(t, original.Nodes(), loaded.Nodes())
	assert.Equal(t, original.Keys(), loaded.Keys())
	assert.Equal(t, original.NumEdges(), loaded.NumEdges())
	assert.Equal(t, original.Stats(), loaded.Stats())

	for _, id := range original.Keys() {
		assert.Equal(t, original.Neighbors(id), loaded.Neighbors(id))
		for _, nb := range original.Neighbors(id) {
			want, _ := original.Meta(id, nb.ID)
			got, ok := loaded.Meta(id, nb.ID)
			require.True(t, ok)
			assert.Equal(t, want, got)
		}
	}

	n, ok := loaded.Node(99)
	require.True(t, ok)
	assert.Equal(t, 51.50, n.Lat)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestBinaryCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.graph.bin")
	require.NoError(t, graph.WriteBinary(path, buildTestGraph(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)/2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = graph.ReadBinary(path)
	assert.ErrorContains(t, err, "CRC32 mismatch")
}

func TestBinaryBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o644))

	_, err := graph.ReadBinary(path)
	assert.ErrorContains(t, err, "invalid magic")
}
