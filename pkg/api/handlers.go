package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-playground/validator/v10"
	orbgeojson "github.com/paulmach/orb/geojson"

	"bike_router/pkg/geojson"
	"bike_router/pkg/nearest"
	"bike_router/pkg/profile"
	"bike_router/pkg/routing"
)

const (
	maxBodyBytes      = 4096
	maxBatchBodyBytes = 256 << 10
	maxBatchQueries   = 100
)

var validate = validator.New()

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	router   routing.Router
	nodes    geojson.NodeLocator
	profiles *profile.Registry
	stats    StatsResponse
	log      *slog.Logger
}

// NewHandlers creates handlers with the given router. nodes resolves path
// node coordinates for the GeoJSON output.
func NewHandlers(router routing.Router, nodes geojson.NodeLocator, profiles *profile.Registry, stats StatsResponse, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		router:   router,
		nodes:    nodes,
		profiles: profiles,
		stats:    stats,
		log:      log,
	}
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeJSON(w, r, maxBodyBytes, &req) {
		return
	}

	// Validate coordinates.
	if field := invalidField(req, ""); field != "" {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", field)
		return
	}

	// Route.
	result, err := h.router.Route(r.Context(), req.query())
	if err != nil {
		status, resp := h.routeError(w, err)
		writeJSON(w, status, resp)
		return
	}

	// Build response.
	resp, err := h.routeResponse(result, req.Detailed)
	if err != nil {
		h.log.Error("assemble geojson", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleRoutes handles POST /api/v1/routes. Queries run concurrently; a
// failing query is reported in its own slot and does not fail the batch.
func (h *Handlers) HandleRoutes(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decodeJSON(w, r, maxBatchBodyBytes, &req) {
		return
	}
	if len(req.Queries) == 0 || len(req.Queries) > maxBatchQueries {
		writeError(w, http.StatusBadRequest, "invalid_request", "queries")
		return
	}

	queries := make([]routing.Query, len(req.Queries))
	for i, q := range req.Queries {
		if field := invalidField(q, fmt.Sprintf("queries[%d].", i)); field != "" {
			writeError(w, http.StatusBadRequest, "invalid_coordinates", field)
			return
		}
		queries[i] = q.query()
	}

	results, err := h.router.RouteBatch(r.Context(), queries)
	if err != nil {
		status, resp := h.routeError(w, err)
		writeJSON(w, status, resp)
		return
	}

	resp := BatchResponse{Results: make([]BatchItem, len(results))}
	for i, res := range results {
		if res.Err != nil {
			_, e := h.routeError(w, res.Err)
			resp.Results[i].Error = &e
			continue
		}
		rr, err := h.routeResponse(res.Route, req.Queries[i].Detailed)
		if err != nil {
			h.log.Error("assemble geojson", "error", err, "query", i)
			resp.Results[i].Error = &ErrorResponse{Error: "internal_error", RequestID: w.Header().Get(requestIDHeader)}
			continue
		}
		resp.Results[i].Route = &rr
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeJSON enforces the content type and decodes a size-limited body.
// It writes the error response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	return true
}

// invalidField returns the name of the first out-of-range coordinate, or "".
func invalidField(req RouteRequest, prefix string) string {
	if err := validate.Struct(req.Start); err != nil {
		return prefix + "start"
	}
	if err := validate.Struct(req.End); err != nil {
		return prefix + "end"
	}
	return ""
}

func (req RouteRequest) query() routing.Query {
	return routing.Query{
		Start:   routing.LatLng{Lat: req.Start.Lat, Lng: req.Start.Lng},
		End:     routing.LatLng{Lat: req.End.Lat, Lng: req.End.Lng},
		Profile: req.Profile,
	}
}

// routeError classifies a failed query, counts it and logs server-side
// failures.
func (h *Handlers) routeError(w http.ResponseWriter, err error) (int, ErrorResponse) {
	status, code := classifyError(err)
	routeErrorsTotal.WithLabelValues(code).Inc()
	requestID := w.Header().Get(requestIDHeader)
	if status >= http.StatusInternalServerError {
		h.log.Error("route failed", "error", err, "request_id", requestID)
	}

	resp := ErrorResponse{Error: code, RequestID: requestID}
	var tooFar *routing.PointTooFarError
	if errors.As(err, &tooFar) {
		resp.DistanceMeters = tooFar.Distance
	}
	return status, resp
}

// routeResponse shapes a computed route and records its metrics.
func (h *Handlers) routeResponse(result *routing.Route, detailed bool) (RouteResponse, error) {
	var fc *orbgeojson.FeatureCollection
	var err error
	if detailed {
		fc, err = geojson.Detailed(result, h.nodes)
	} else {
		fc, err = geojson.Summary(result, h.nodes)
	}
	if err != nil {
		return RouteResponse{}, err
	}

	routeEvaluationsTotal.WithLabelValues(result.Profile, string(result.Evaluation.Status)).Inc()
	routeDistance.Observe(result.DistanceMeters)

	return RouteResponse{
		Profile:             result.Profile,
		TotalDistanceMeters: result.DistanceMeters,
		NumNodes:            len(result.Path),
		Start:               snapped(result.Start),
		End:                 snapped(result.End),
		Evaluation:          result.Evaluation.Properties(),
		GeoJSON:             fc,
	}, nil
}

// HandleProfiles handles GET /api/v1/profiles.
func (h *Handlers) HandleProfiles(w http.ResponseWriter, r *http.Request) {
	var resp ProfilesResponse
	for _, p := range h.profiles.List() {
		resp.Profiles = append(resp.Profiles, ProfileJSON{Name: p.Name, Surfaces: p.Surfaces})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats)
}

// classifyError maps a routing error to an HTTP status and a stable code.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, profile.ErrUnknownProfile):
		return http.StatusBadRequest, "unknown_profile"
	case errors.Is(err, nearest.ErrNoCandidates):
		return http.StatusUnprocessableEntity, "no_candidate_nodes"
	case errors.Is(err, routing.ErrPointTooFar):
		return http.StatusUnprocessableEntity, "point_too_far_from_road"
	case errors.Is(err, routing.ErrDisconnected):
		return http.StatusNotFound, "no_route_found"
	case errors.Is(err, routing.ErrUndetermined):
		return http.StatusServiceUnavailable, "route_undetermined"
	case errors.Is(err, routing.ErrInconsistent):
		return http.StatusInternalServerError, "route_inconsistent"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request_timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func snapped(res nearest.Result) SnappedNode {
	return SnappedNode{
		NodeID:         int64(res.ID),
		Lat:            res.Lat,
		Lng:            res.Lon,
		DistanceMeters: res.Distance,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	writeJSON(w, status, ErrorResponse{
		Error:     code,
		Field:     field,
		RequestID: w.Header().Get(requestIDHeader),
	})
}
