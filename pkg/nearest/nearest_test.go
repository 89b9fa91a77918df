package nearest

import (
	"math/rand/v2"
	"testing"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	osmparser "bike_router/pkg/osm"
)

func testNodes() []osmparser.Node {
	return []osmparser.Node{
		{ID: 1, Lat: 51.4668, Lon: 19.5710},
		{ID: 2, Lat: 51.4672, Lon: 19.6019},
		{ID: 3, Lat: 51.4700, Lon: 19.5800},
		{ID: 4, Lat: 51.4500, Lon: 19.5900},
	}
}

func TestScanOwnCoordinates(t *testing.T) {
	nodes := testNodes()
	for _, n := range nodes {
		res, err := Scan(nodes, n.Lat, n.Lon)
		require.NoError(t, err)
		assert.Equal(t, n.ID, res.ID)
		assert.Zero(t, res.Distance)
	}
}

func TestScanEmpty(t *testing.T) {
	_, err := Scan(nil, 51.0, 19.0)
	assert.ErrorIs(t, err, ErrNoCandidates)

	_, err = NewIndex(nil).Nearest(51.0, 19.0)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestScanTieFirstWins(t *testing.T) {
	// Two nodes at the same position: the earlier table entry wins.
	nodes := []osmparser.Node{
		{ID: 7, Lat: 51.0, Lon: 19.0},
		{ID: 5, Lat: 51.0, Lon: 19.0},
	}
	for range 3 {
		res, err := Scan(nodes, 51.001, 19.0)
		require.NoError(t, err)
		assert.Equal(t, osm.NodeID(7), res.ID)

		res, err = NewIndex(nodes).Nearest(51.001, 19.0)
		require.NoError(t, err)
		assert.Equal(t, osm.NodeID(7), res.ID)
	}
}

func TestIndexMatchesScan(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))

	nodes := make([]osmparser.Node, 2000)
	for i := range nodes {
		nodes[i] = osmparser.Node{
			ID:  osm.NodeID(i + 1),
			Lat: 51.3 + rng.Float64()*0.3,
			Lon: 19.4 + rng.Float64()*0.4,
		}
	}
	ix := NewIndex(nodes)
	require.Equal(t, len(nodes), ix.Len())

	var finder Finder = ix
	for range 500 {
		// Include points well outside the node cloud to force box growth.
		lat := 50.8 + rng.Float64()*1.3
		lon := 18.9 + rng.Float64()*1.4

		want, err := Scan(nodes, lat, lon)
		require.NoError(t, err)
		got, err := finder.Nearest(lat, lon)
		require.NoError(t, err)
		assert.Equal(t, want, got, "query (%f, %f)", lat, lon)
	}
}

func TestIndexFarQueryFallsBackToScan(t *testing.T) {
	nodes := testNodes()
	ix := NewIndex(nodes)

	// Antipodal-ish query: box growth gives up and scans.
	want, err := Scan(nodes, -51.0, -160.0)
	require.NoError(t, err)
	got, err := ix.Nearest(-51.0, -160.0)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestScannerImplementsFinder(t *testing.T) {
	var f Finder = NewScanner(testNodes())
	res, err := f.Nearest(51.4701, 19.5801)
	require.NoError(t, err)
	assert.Equal(t, osm.NodeID(3), res.ID)
	assert.Greater(t, res.Distance, 0.0)
}

func TestNew(t *testing.T) {
	f, err := New("scan", testNodes())
	require.NoError(t, err)
	assert.IsType(t, &Scanner{}, f)

	f, err = New("rtree", testNodes())
	require.NoError(t, err)
	assert.IsType(t, &Index{}, f)

	_, err = New("kdtree", testNodes())
	assert.Error(t, err)
}

func BenchmarkScan(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 2))
	nodes := make([]osmparser.Node, 50_000)
	for i := range nodes {
		nodes[i] = osmparser.Node{ID: osm.NodeID(i), Lat: 51 + rng.Float64(), Lon: 19 + rng.Float64()}
	}
	b.ResetTimer()
	for b.Loop() {
		Scan(nodes, 51.5, 19.5)
	}
}

func BenchmarkIndex(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 2))
	nodes := make([]osmparser.Node, 50_000)
	for i := range nodes {
		nodes[i] = osmparser.Node{ID: osm.NodeID(i), Lat: 51 + rng.Float64(), Lon: 19 + rng.Float64()}
	}
	ix := NewIndex(nodes)
	b.ResetTimer()
	for b.Loop() {
		ix.Nearest(51.5, 19.5)
	}
}
