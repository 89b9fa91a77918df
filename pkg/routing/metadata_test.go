package routing

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bike_router/pkg/graph"
)

func TestExtractMetadata(t *testing.T) {
	g := graph.Build(testDataset())
	path := []osm.NodeID{1, 2, 3, 4}

	md := ExtractMetadata(path, g)
	require.Len(t, md.Segments, len(path)-1)
	require.Len(t, md.Surfaces, len(path)-1)
	require.Len(t, md.Highways, len(path)-1)

	for i, seg := range md.Segments {
		assert.Equal(t, path[i], seg.From)
		assert.Equal(t, path[i+1], seg.To)
		w, ok := g.Weight(seg.From, seg.To)
		require.True(t, ok, "segment %d must be a graph edge", i)
		assert.Equal(t, w, seg.DistanceMeters)
	}

	assert.Equal(t, Segment{
		From: 1, To: 2,
		Surface: "asphalt", Highway: "cycleway", Name: "Rowerowa", WayID: 100,
		DistanceMeters: md.Segments[0].DistanceMeters,
	}, md.Segments[0])
	assert.Equal(t, osm.WayID(101), md.Segments[2].WayID)
	assert.Equal(t, "gravel", md.Surfaces[2])
}

func TestExtractMetadataReversedPath(t *testing.T) {
	g := graph.Build(testDataset())

	fwd := ExtractMetadata([]osm.NodeID{1, 2, 3, 4}, g)
	bwd := ExtractMetadata([]osm.NodeID{4, 3, 2, 1}, g)
	assert.Equal(t, []string{"gravel", "asphalt", "asphalt"}, bwd.Surfaces)
	assert.InDelta(t, fwd.Distance(), bwd.Distance(), 1e-9)
}

func TestExtractMetadataMissingEdgeIsUnknown(t *testing.T) {
	g := graph.Build(testDataset())

	md := ExtractMetadata([]osm.NodeID{2, 3, 5}, g)
	require.Len(t, md.Segments, 2)
	assert.Equal(t, Segment{From: 3, To: 5, Surface: graph.Unknown, Highway: graph.Unknown}, md.Segments[1])
	assert.Equal(t, []string{"asphalt", graph.Unknown}, md.Surfaces)
	assert.Equal(t, []string{"cycleway", graph.Unknown}, md.Highways)
}

func TestExtractMetadataShortPath(t *testing.T) {
	g := graph.Build(testDataset())

	assert.Empty(t, ExtractMetadata(nil, g).Segments)
	assert.Empty(t, ExtractMetadata([]osm.NodeID{1}, g).Segments)
}
