package osm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/paulmach/osm"
)

// DefaultOverpassURL is the public Overpass API interpreter endpoint.
const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// maxOverpassResponse caps the size of a decoded Overpass response.
const maxOverpassResponse = 512 << 20

// ErrOverpassStatus is returned when the Overpass API answers with a non-2xx status.
var ErrOverpassStatus = errors.New("overpass request failed")

// element is one entry of an Overpass JSON "elements" array.
type element struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []element `json:"elements"`
}

// DecodeOverpass decodes an Overpass JSON document ("out body; >; out skel")
// into a dataset. Element order is preserved; relations and other element
// types are ignored. Ways with fewer than two nodes are kept and later
// skipped by the graph builder.
func DecodeOverpass(r io.Reader) (*Dataset, error) {
	var resp overpassResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode overpass json: %w", err)
	}

	ds := &Dataset{}
	for _, el := range resp.Elements {
		switch el.Type {
		case "node":
			ds.Nodes = append(ds.Nodes, Node{ID: osm.NodeID(el.ID), Lat: el.Lat, Lon: el.Lon})
		case "way":
			nodeIDs := make([]osm.NodeID, len(el.Nodes))
			for i, id := range el.Nodes {
				nodeIDs[i] = osm.NodeID(id)
			}
			ds.Ways = append(ds.Ways, Way{
				ID:      osm.WayID(el.ID),
				NodeIDs: nodeIDs,
				Tags:    tagsFromMap(el.Tags),
			})
		}
	}
	return ds, nil
}

// tagsFromMap converts a JSON tag object into osm.Tags sorted by key, so
// the result does not depend on map iteration order.
func tagsFromMap(m map[string]string) osm.Tags {
	if len(m) == 0 {
		return nil
	}
	tags := make(osm.Tags, 0, len(m))
	for k, v := range m {
		tags = append(tags, osm.Tag{Key: k, Value: v})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Key < tags[j].Key })
	return tags
}

// BikeQuery builds an Overpass QL query that fetches every bike-relevant way
// inside the named administrative area, together with its member nodes.
func BikeQuery(area string, adminLevel int, highways []string) string {
	if len(highways) == 0 {
		highways = bikeHighways
	}
	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n")
	fmt.Fprintf(&b, "area[\"name\"=%q][admin_level=%d];\n", area, adminLevel)
	b.WriteString("(\n")
	fmt.Fprintf(&b, "  way[\"highway\"~%q](area);\n", strings.Join(highways, "|"))
	b.WriteString(");\nout body;\n>;\nout skel qt;\n")
	return b.String()
}

// Fetch posts an Overpass QL query and decodes the response.
func Fetch(ctx context.Context, client *http.Client, endpoint, query string) (*Dataset, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if endpoint == "" {
		endpoint = DefaultOverpassURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(query))
	if err != nil {
		return nil, fmt.Errorf("build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrOverpassStatus, resp.Status)
	}

	return DecodeOverpass(io.LimitReader(resp.Body, maxOverpassResponse))
}
