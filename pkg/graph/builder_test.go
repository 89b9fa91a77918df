package graph

import (
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bike_router/pkg/geo"
	osmparser "bike_router/pkg/osm"
)

// lineDataset returns four nodes along a street and one way through them.
//
//	1 ---- 2 ---- 3 ---- 4
func lineDataset() *osmparser.Dataset {
	return &osmparser.Dataset{
		Nodes: []osmparser.Node{
			{ID: 1, Lat: 51.4668, Lon: 19.5710},
			{ID: 2, Lat: 51.4670, Lon: 19.5720},
			{ID: 3, Lat: 51.4672, Lon: 19.5730},
			{ID: 4, Lat: 51.4674, Lon: 19.5740},
		},
		Ways: []osmparser.Way{
			{
				ID:      100,
				NodeIDs: []osm.NodeID{1, 2, 3, 4},
				Tags: osm.Tags{
					{Key: "highway", Value: "cycleway"},
					{Key: "surface", Value: "asphalt"},
					{Key: "lit", Value: "yes"},
					{Key: "name", Value: "Rowerowa"},
				},
			},
		},
	}
}

func TestBuildWayYieldsConsecutiveEdges(t *testing.T) {
	g := Build(lineDataset())

	assert.Equal(t, 4, g.NumNodes())
	assert.Equal(t, 3, g.NumEdges(), "a way with k nodes yields k-1 edges")
	assert.Equal(t, []osm.NodeID{1, 2, 3, 4}, g.Keys())

	// Not a clique: 1 and 3 are not adjacent.
	_, ok := g.Weight(1, 3)
	assert.False(t, ok)

	for _, pair := range [][2]osm.NodeID{{1, 2}, {2, 3}, {3, 4}} {
		ab, okAB := g.Weight(pair[0], pair[1])
		ba, okBA := g.Weight(pair[1], pair[0])
		require.True(t, okAB)
		require.True(t, okBA)
		assert.Equal(t, ab, ba, "weight must be symmetric")

		a, _ := g.Node(pair[0])
		b, _ := g.Node(pair[1])
		assert.Equal(t, geo.Haversine(a.Lat, a.Lon, b.Lat, b.Lon), ab)
	}
}

func TestBuildStoresMetadataBothDirections(t *testing.T) {
	g := Build(lineDataset())

	fwd, ok := g.Meta(2, 3)
	require.True(t, ok)
	bwd, ok := g.Meta(3, 2)
	require.True(t, ok)
	assert.Equal(t, fwd, bwd)

	assert.Equal(t, EdgeMeta{
		Surface: "asphalt",
		Highway: "cycleway",
		Lit:     "yes",
		Name:    "Rowerowa",
		WayID:   100,
	}, fwd)
}

func TestBuildDefaultsMissingTags(t *testing.T) {
	ds := lineDataset()
	ds.Ways[0].Tags = nil

	g := Build(ds)
	m, ok := g.Meta(1, 2)
	require.True(t, ok)
	assert.Equal(t, Unknown, m.Surface)
	assert.Equal(t, Unknown, m.Highway)
	assert.Empty(t, m.Width)
}

func TestBuildDropsMissingEndpoints(t *testing.T) {
	ds := lineDataset()
	// Node 3 was clipped away by the data source.
	ds.Nodes = append(ds.Nodes[:2], ds.Nodes[3])

	g := Build(ds)
	assert.Equal(t, 1, g.NumEdges(), "only 1-2 survives")
	assert.Equal(t, 2, g.Stats().DroppedMissing)
	assert.False(t, g.HasKey(4))
	assert.Equal(t, 3, g.NumNodes(), "node table still holds node 4")
}

func TestBuildSkipsShortWaysAndSelfLoops(t *testing.T) {
	ds := lineDataset()
	ds.Ways = append(ds.Ways,
		osmparser.Way{ID: 200, NodeIDs: []osm.NodeID{1}},
		osmparser.Way{ID: 201, NodeIDs: []osm.NodeID{4, 4}},
	)

	g := Build(ds)
	st := g.Stats()
	assert.Equal(t, 3, st.Ways)
	assert.Equal(t, 1, st.WaysSkipped)
	assert.Equal(t, 1, st.DroppedSelfLoops)
	assert.Equal(t, 3, st.Edges)
}

func TestBuildEmpty(t *testing.T) {
	g := Build(&osmparser.Dataset{})
	assert.Zero(t, g.NumNodes())
	assert.Zero(t, g.NumEdges())
	assert.Empty(t, g.Keys())
}

func overlapDataset() *osmparser.Dataset {
	ds := lineDataset()
	ds.Ways = append(ds.Ways, osmparser.Way{
		ID:      101,
		NodeIDs: []osm.NodeID{3, 2},
		Tags: osm.Tags{
			{Key: "highway", Value: "track"},
			{Key: "surface", Value: "gravel"},
		},
	})
	return ds
}

func TestBuildOverlapLastWriteWins(t *testing.T) {
	g := Build(overlapDataset())

	assert.Equal(t, 3, g.NumEdges(), "overlap does not add an edge")
	m, _ := g.Meta(2, 3)
	assert.Equal(t, "gravel", m.Surface)
	assert.Equal(t, osm.WayID(101), m.WayID)
	rev, _ := g.Meta(3, 2)
	assert.Equal(t, m, rev)

	require.Len(t, g.Stats().Conflicts, 1)
	assert.Equal(t, Conflict{A: 3, B: 2, KeptWay: 101, DroppedWay: 100}, g.Stats().Conflicts[0])
}

func TestBuildOverlapFirstWriteWins(t *testing.T) {
	g := Build(overlapDataset(), BuildOptions{Overlap: FirstWriteWins})

	m, _ := g.Meta(3, 2)
	assert.Equal(t, "asphalt", m.Surface)
	assert.Equal(t, osm.WayID(100), m.WayID)

	require.Len(t, g.Stats().Conflicts, 1)
	assert.Equal(t, osm.WayID(100), g.Stats().Conflicts[0].KeptWay)
	assert.Equal(t, osm.WayID(101), g.Stats().Conflicts[0].DroppedWay)
}

func TestBuilderAddEdge(t *testing.T) {
	b := NewBuilder()
	b.AddNode(osmparser.Node{ID: 1})
	b.AddNode(osmparser.Node{ID: 2})

	require.NoError(t, b.AddEdge(1, 2, 7.5, EdgeMeta{}))
	assert.ErrorIs(t, b.AddEdge(1, 3, 1, EdgeMeta{}), ErrMissingNode)
	assert.ErrorIs(t, b.AddEdge(1, 1, 1, EdgeMeta{}), ErrSelfLoop)
	assert.ErrorIs(t, b.AddEdge(2, 1, -1, EdgeMeta{}), ErrNegativeWeight)

	g := b.Graph()
	w, ok := g.Weight(2, 1)
	require.True(t, ok)
	assert.Equal(t, 7.5, w)
	m, _ := g.Meta(1, 2)
	assert.Equal(t, Unknown, m.Surface)
	assert.Equal(t, 1, g.Degree(1))
}

func TestParseOverlapPolicy(t *testing.T) {
	p, err := ParseOverlapPolicy("first")
	require.NoError(t, err)
	assert.Equal(t, FirstWriteWins, p)

	p, err = ParseOverlapPolicy("")
	require.NoError(t, err)
	assert.Equal(t, LastWriteWins, p)

	_, err = ParseOverlapPolicy("merge")
	assert.Error(t, err)
}
