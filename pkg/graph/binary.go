package graph

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/paulmach/osm"

	osmparser "bike_router/pkg/osm"
)

const (
	magicBytes = "BKROUTER"
	version    = uint32(1)
	maxPayload = 4 << 30
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic      [8]byte
	Version    uint32
	NumNodes   uint32
	NumEdges   uint32
	PayloadLen uint64
}

const headerSize = 8 + 4 + 4 + 4 + 8

// snapshot is the gob-encoded body of a graph file.
type snapshot struct {
	Nodes []osmparser.Node
	Keys  []osm.NodeID
	Adj   [][]Neighbor // parallel to Keys
	Meta  [][]EdgeMeta // parallel to Adj
	Stats BuildStats
}

// WriteBinary serializes a graph to path. The file is written to a
// temporary path first and renamed into place.
func WriteBinary(path string, g *Graph) error {
	snap := snapshot{
		Nodes: g.nodes,
		Keys:  g.keys,
		Adj:   make([][]Neighbor, len(g.keys)),
		Meta:  make([][]EdgeMeta, len(g.keys)),
		Stats: g.stats,
	}
	for i, id := range g.keys {
		snap.Adj[i] = g.adj[id]
		metas := make([]EdgeMeta, len(g.adj[id]))
		for j, nb := range g.adj[id] {
			metas[j] = g.meta[EdgeKey{From: id, To: nb.ID}]
		}
		snap.Meta[i] = metas
	}

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(&snap); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}

	hdr := fileHeader{
		Version:    version,
		NumNodes:   uint32(len(g.nodes)),
		NumEdges:   uint32(g.numEdges),
		PayloadLen: uint64(payload.Len()),
	}
	copy(hdr.Magic[:], magicBytes)

	var buf bytes.Buffer
	buf.Grow(headerSize + payload.Len() + 4)
	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	buf.Write(payload.Bytes())

	// CRC32 trailer over header and payload.
	checksum := crc32.ChecksumIEEE(buf.Bytes())
	if err := binary.Write(&buf, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadBinary deserializes a graph written by WriteBinary.
func ReadBinary(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if len(data) < headerSize+4 {
		return nil, fmt.Errorf("file too short: %d bytes", len(data))
	}

	var hdr fileHeader
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.PayloadLen > maxPayload || uint64(len(data)) != headerSize+hdr.PayloadLen+4 {
		return nil, fmt.Errorf("payload length %d does not match file size %d", hdr.PayloadLen, len(data))
	}

	body := data[:len(data)-4]
	stored := binary.LittleEndian.Uint32(data[len(data)-4:])
	if computed := crc32.ChecksumIEEE(body); computed != stored {
		return nil, fmt.Errorf("CRC32 mismatch: stored %08x, computed %08x", stored, computed)
	}

	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(body[headerSize:])).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	if len(snap.Adj) != len(snap.Keys) || len(snap.Meta) != len(snap.Keys) {
		return nil, fmt.Errorf("corrupt adjacency: %d keys, %d lists, %d metadata lists", len(snap.Keys), len(snap.Adj), len(snap.Meta))
	}

	g := newGraph()
	g.nodes = snap.Nodes
	for i, n := range g.nodes {
		g.nodeIndex[n.ID] = i
	}
	g.keys = snap.Keys
	for i, id := range snap.Keys {
		if len(snap.Meta[i]) != len(snap.Adj[i]) {
			return nil, fmt.Errorf("corrupt metadata for node %d", id)
		}
		g.adj[id] = snap.Adj[i]
		for j, nb := range snap.Adj[i] {
			g.meta[EdgeKey{From: id, To: nb.ID}] = snap.Meta[i][j]
			if id < nb.ID {
				g.numEdges++
			}
		}
	}
	g.stats = snap.Stats

	if uint32(len(g.nodes)) != hdr.NumNodes || uint32(g.numEdges) != hdr.NumEdges {
		return nil, fmt.Errorf("header counts (%d nodes, %d edges) do not match body (%d, %d)",
			hdr.NumNodes, hdr.NumEdges, len(g.nodes), g.numEdges)
	}
	return g, nil
}
