package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulmach/osm"
	"golang.org/x/sync/errgroup"

	"bike_router/pkg/graph"
	"bike_router/pkg/nearest"
	"bike_router/pkg/profile"
	"bike_router/pkg/reach"
)

var (
	// ErrPointTooFar is returned when a query point is further from the
	// nearest node than the configured limit.
	ErrPointTooFar = errors.New("point too far from road network")

	// ErrDisconnected is returned when the resolved endpoints cannot reach
	// each other.
	ErrDisconnected = errors.New("no route found")

	// ErrUndetermined is returned when the reachability search hit its
	// iteration ceiling before reaching a verdict.
	ErrUndetermined = errors.New("reachability undetermined")

	// ErrInconsistent is returned when the solver finds no path although the
	// reachability checks passed.
	ErrInconsistent = errors.New("solver found no path between connected nodes")
)

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

// Query is a single routing request.
type Query struct {
	Start   LatLng
	End     LatLng
	Profile string
}

// Route is the result of a successful query.
type Route struct {
	Profile        string
	Start          nearest.Result
	End            nearest.Result
	Path           []osm.NodeID
	DistanceMeters float64
	Metadata       RouteMetadata
	Evaluation     profile.Evaluation

	// BFSIterations is the number of nodes dequeued by the verification search.
	BFSIterations int
}

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, q Query) (*Route, error)
	RouteBatch(ctx context.Context, queries []Query) ([]BatchResult, error)
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	// MaxIterations caps the reachability search. Zero selects
	// reach.DefaultMaxIterations, a negative value disables the cap.
	MaxIterations int

	// MaxSnapMeters rejects query points further than this from the nearest
	// node. Zero disables the check.
	MaxSnapMeters float64

	// BatchConcurrency bounds RouteBatch. Zero selects 4.
	BatchConcurrency int

	// Finder resolves coordinates to nodes. Nil selects an exhaustive scan
	// over the graph's node table.
	Finder nearest.Finder

	Logger *slog.Logger
}

var _ Router = (*Engine)(nil)

// Engine implements Router over a read-only graph. It is safe for
// concurrent use.
type Engine struct {
	g        *graph.Graph
	profiles *profile.Registry
	finder   nearest.Finder
	opt      Options
	log      *slog.Logger

	partOnce sync.Once
	part     *reach.Partition
}

// NewEngine creates a routing engine over g using the given profile registry.
func NewEngine(g *graph.Graph, profiles *profile.Registry, opt Options) *Engine {
	if opt.MaxIterations == 0 {
		opt.MaxIterations = reach.DefaultMaxIterations
	}
	if opt.BatchConcurrency <= 0 {
		opt.BatchConcurrency = 4
	}
	finder := opt.Finder
	if finder == nil {
		finder = nearest.NewScanner(g.Nodes())
	}
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		g:        g,
		profiles: profiles,
		finder:   finder,
		opt:      opt,
		log:      log,
	}
}

// Graph returns the graph the engine routes on.
func (e *Engine) Graph() *graph.Graph { return e.g }

// Profiles returns the engine's profile registry.
func (e *Engine) Profiles() *profile.Registry { return e.profiles }

// Partition returns the connected components of the graph, computed on
// first use.
func (e *Engine) Partition() *reach.Partition {
	e.partOnce.Do(func() {
		e.part = reach.Components(e.g)
		e.log.Debug("components computed", "count", e.part.Len())
	})
	return e.part
}

// Route resolves both query points to their nearest nodes, checks that they
// are connected, computes the shortest path and evaluates it against the
// query's profile.
func (e *Engine) Route(ctx context.Context, q Query) (*Route, error) {
	// Step 1: Reject unknown profiles before doing any work.
	prof, err := e.profiles.Get(q.Profile)
	if err != nil {
		return nil, err
	}

	// Step 2: Resolve endpoints.
	start, err := e.resolve(q.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	end, err := e.resolve(q.End)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}

	// Step 3: Cheap component pre-check.
	part := e.Partition()
	if !part.Same(start.ID, end.ID) {
		si, _ := part.IndexOf(start.ID)
		ei, _ := part.IndexOf(end.ID)
		e.log.Debug("endpoints in different components",
			"start", start.ID, "start_component", si, "end", end.ID, "end_component", ei)
		return nil, fmt.Errorf("%w: nodes %d and %d are in different components", ErrDisconnected, start.ID, end.ID)
	}

	// Step 4: Bounded BFS verification.
	status, iters := reach.Connected(e.g, start.ID, end.ID, e.opt.MaxIterations)
	switch status {
	case reach.Undetermined:
		return nil, fmt.Errorf("%w after %d iterations", ErrUndetermined, iters)
	case reach.Unreachable:
		return nil, fmt.Errorf("%w: bfs from %d did not reach %d", ErrDisconnected, start.ID, end.ID)
	}

	// Step 5: Shortest path.
	path, dist, err := ShortestPath(ctx, e.g, start.ID, end.ID)
	if errors.Is(err, ErrNoPath) || errors.Is(err, ErrUnknownNode) {
		return nil, fmt.Errorf("%w: %d -> %d: %v", ErrInconsistent, start.ID, end.ID, err)
	}
	if err != nil {
		return nil, err
	}

	// Step 6: Metadata and evaluation.
	md := ExtractMetadata(path, e.g)
	eval := profile.Evaluate(md.Surfaces, prof)

	e.log.Debug("route computed",
		"profile", prof.Name, "nodes", len(path), "distance_m", dist, "status", eval.Status)

	return &Route{
		Profile:        prof.Name,
		Start:          start,
		End:            end,
		Path:           path,
		DistanceMeters: dist,
		Metadata:       md,
		Evaluation:     eval,
		BFSIterations:  iters,
	}, nil
}

func (e *Engine) resolve(ll LatLng) (nearest.Result, error) {
	res, err := e.finder.Nearest(ll.Lat, ll.Lng)
	if err != nil {
		return nearest.Result{}, err
	}
	if e.opt.MaxSnapMeters > 0 && res.Distance > e.opt.MaxSnapMeters {
		return nearest.Result{}, &PointTooFarError{Distance: res.Distance, Limit: e.opt.MaxSnapMeters}
	}
	return res, nil
}

// PointTooFarError carries the snap distance of a rejected query point.
// It matches ErrPointTooFar with errors.Is.
type PointTooFarError struct {
	Distance float64
	Limit    float64
}

func (e *PointTooFarError) Error() string {
	return fmt.Sprintf("%v: %.0fm (limit %.0fm)", ErrPointTooFar, e.Distance, e.Limit)
}

func (e *PointTooFarError) Is(target error) bool { return target == ErrPointTooFar }

// BatchResult pairs a query with its outcome.
type BatchResult struct {
	Query Query
	Route *Route
	Err   error
}

// RouteBatch runs independent queries concurrently over the shared graph.
// A failing query does not affect the others; the returned error is only
// set when ctx is done.
func (e *Engine) RouteBatch(ctx context.Context, queries []Query) ([]BatchResult, error) {
	results := make([]BatchResult, len(queries))

	var g errgroup.Group
	g.SetLimit(e.opt.BatchConcurrency)
	for i, q := range queries {
		g.Go(func() error {
			results[i].Query = q
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Route, results[i].Err = e.Route(ctx, q)
			return nil
		})
	}
	_ = g.Wait()

	return results, ctx.Err()
}
