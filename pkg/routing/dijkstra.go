package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/osm"

	"bike_router/pkg/graph"
)

var (
	// ErrNoPath is returned by ShortestPath when end cannot be reached.
	ErrNoPath = errors.New("no path between nodes")

	// ErrUnknownNode is returned by ShortestPath when an endpoint has no edges.
	ErrUnknownNode = errors.New("node is not part of the graph")
)

// ctxCheckInterval is how many settled nodes pass between context checks.
const ctxCheckInterval = 100

// MinHeap is a concrete-typed min-heap for Dijkstra priority queue.
// Avoids interface boxing overhead of container/heap. Entries with equal
// distance pop in push order.
type MinHeap struct {
	items []PQItem
	seq   uint64
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node osm.NodeID
	Dist float64
	Seq  uint64
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node osm.NodeID, dist float64) {
	h.items = append(h.items, PQItem{Node: node, Dist: dist, Seq: h.seq})
	h.seq++
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return a.Seq < b.Seq
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.less(left, smallest) {
			smallest = left
		}
		if right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// ShortestPath returns the minimum-weight node sequence from start to end,
// inclusive, and its total weight.
//
// Ties are resolved deterministically: a node's predecessor only changes on
// a strictly shorter distance, so among equal-cost alternatives the one
// relaxed first wins. Neighbors are relaxed in adjacency insertion order and
// equal-distance frontier entries settle in push order.
func ShortestPath(ctx context.Context, g *graph.Graph, start, end osm.NodeID) ([]osm.NodeID, float64, error) {
	if !g.HasKey(start) {
		return nil, 0, fmt.Errorf("start %d: %w", start, ErrUnknownNode)
	}
	if !g.HasKey(end) {
		return nil, 0, fmt.Errorf("end %d: %w", end, ErrUnknownNode)
	}
	if start == end {
		return []osm.NodeID{start}, 0, nil
	}

	dist := map[osm.NodeID]float64{start: 0}
	pred := make(map[osm.NodeID]osm.NodeID)
	settled := make(map[osm.NodeID]bool)

	var pq MinHeap
	pq.Push(start, 0)

	iter := 0
	for pq.Len() > 0 {
		if iter%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		iter++

		item := pq.Pop()
		u := item.Node
		if settled[u] {
			continue // stale entry
		}
		settled[u] = true
		if u == end {
			break
		}

		for _, nb := range g.Neighbors(u) {
			if settled[nb.ID] {
				continue
			}
			nd := item.Dist + nb.Weight
			if old, seen := dist[nb.ID]; !seen || nd < old {
				dist[nb.ID] = nd
				pred[nb.ID] = u
				pq.Push(nb.ID, nd)
			}
		}
	}

	if !settled[end] {
		return nil, 0, ErrNoPath
	}
	return reconstructPath(pred, start, end), dist[end], nil
}

// reconstructPath walks predecessor links back from end and reverses them.
func reconstructPath(pred map[osm.NodeID]osm.NodeID, start, end osm.NodeID) []osm.NodeID {
	path := []osm.NodeID{end}
	for node := end; node != start; {
		node = pred[node]
		path = append(path, node)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
