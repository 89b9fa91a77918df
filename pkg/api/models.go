package api

import (
	"github.com/paulmach/orb/geojson"
)

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	Start    LatLngJSON `json:"start"`
	End      LatLngJSON `json:"end"`
	Profile  string     `json:"profile"`
	Detailed bool       `json:"detailed"`
}

// BatchRequest is the JSON body for POST /api/v1/routes.
type BatchRequest struct {
	Queries []RouteRequest `json:"queries"`
}

// BatchItem is the outcome of one query of a batch: exactly one of Route
// and Error is set.
type BatchItem struct {
	Route *RouteResponse `json:"route,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// BatchResponse is the JSON response for POST /api/v1/routes. Results are
// in query order.
type BatchResponse struct {
	Results []BatchItem `json:"results"`
}

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

// SnappedNode is a query point resolved to a graph node.
type SnappedNode struct {
	NodeID         int64   `json:"node_id"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	DistanceMeters float64 `json:"snap_distance_meters"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	Profile             string                     `json:"profile"`
	TotalDistanceMeters float64                    `json:"total_distance_meters"`
	NumNodes            int                        `json:"num_nodes"`
	Start               SnappedNode                `json:"start"`
	End                 SnappedNode                `json:"end"`
	Evaluation          map[string]any             `json:"evaluation"`
	GeoJSON             *geojson.FeatureCollection `json:"geojson"`
}

// ProfileJSON describes one bicycle profile.
type ProfileJSON struct {
	Name     string   `json:"name"`
	Surfaces []string `json:"surfaces"`
}

// ProfilesResponse is the JSON response for GET /api/v1/profiles.
type ProfilesResponse struct {
	Profiles []ProfileJSON `json:"profiles"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error          string  `json:"error"`
	Field          string  `json:"field,omitempty"`
	DistanceMeters float64 `json:"distance_meters,omitempty"`
	RequestID      string  `json:"request_id,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumNodes      int `json:"num_nodes"`
	NumEdges      int `json:"num_edges"`
	NumComponents int `json:"num_components"`
	LargestSize   int `json:"largest_component_size"`
	Conflicts     int `json:"overlap_conflicts"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
