package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	orbgeojson "github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"

	"bike_router/pkg/config"
	"bike_router/pkg/geojson"
	"bike_router/pkg/graph"
	"bike_router/pkg/nearest"
	osmparser "bike_router/pkg/osm"
	"bike_router/pkg/routing"
)

var (
	configPath     string
	graphPath      string
	input          string
	overpassArea   string
	overpassURL    string
	adminLevel     int
	from           string
	to             string
	profileName    string
	profilesPath   string
	nearestKind    string
	maxSnap        float64
	output         string
	detailedOutput string
	pointsOutput   string
	logLevel       string

	rootCmd = &cobra.Command{
		Use:   "route",
		Short: "Plan a single bicycle route and write it as GeoJSON",
		Long: `route loads a graph (a snapshot from preprocess, a raw OSM file or an
Overpass area), finds the shortest path between two coordinates and checks
its surfaces against a bike profile. The route is written as GeoJSON.`,
		Example: `  route --graph graph.bin --from 51.4668,19.5710 --to 51.4672,19.6019 --profile trekking
  route --overpass-area "powiat piotrkowski" --profile city --detailed-output segments.geojson`,
		SilenceUsage: true,
		RunE:         run,
	}
)

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	f.StringVar(&graphPath, "graph", "", "Path to preprocessed graph binary")
	f.StringVar(&input, "input", "", "Path to .osm.pbf, Overpass .json or .osm file")
	f.StringVar(&overpassArea, "overpass-area", "", "Fetch this administrative area from Overpass")
	f.StringVar(&overpassURL, "overpass-url", osmparser.DefaultOverpassURL, "Overpass interpreter endpoint")
	f.IntVar(&adminLevel, "admin-level", osmparser.DefaultAdminLevel, "admin_level of --overpass-area")
	f.StringVar(&from, "from", "51.46681902975696,19.571030370525943", "Start point as lat,lng")
	f.StringVar(&to, "to", "51.46722369065393,19.601921146542217", "End point as lat,lng")
	f.StringVar(&profileName, "profile", "trekking", "Bike profile name")
	f.StringVar(&profilesPath, "profiles", "", "YAML file with additional bike profiles")
	f.StringVar(&nearestKind, "nearest", "", "Nearest-node finder: scan or rtree (overrides routing.nearest)")
	f.Float64Var(&maxSnap, "max-snap", 0, "Reject points further than this many meters from a road (overrides routing.max_snap_meters)")
	f.StringVarP(&output, "output", "o", "route.geojson", "Route GeoJSON output path (- for stdout)")
	f.StringVar(&detailedOutput, "detailed-output", "", "Per-segment GeoJSON output path")
	f.StringVar(&pointsOutput, "points-output", "", "Start and finish points GeoJSON output path")
	f.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.MarkFlagsMutuallyExclusive("graph", "input", "overpass-area")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	log, err := config.NewLogger(os.Stderr, logLevel)
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("nearest") {
		cfg.Routing.Nearest = nearestKind
	}
	if flags.Changed("max-snap") {
		cfg.Routing.MaxSnapMeters = maxSnap
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	start, err := parseLatLng(from)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	end, err := parseLatLng(to)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}

	profiles, err := cfg.Registry()
	if err != nil {
		return err
	}
	if profilesPath != "" {
		if err := profiles.LoadFile(profilesPath); err != nil {
			return err
		}
	}

	g, err := loadGraph(cmd, cfg.Routing, log)
	if err != nil {
		return err
	}
	log.Info("graph ready", "nodes", g.NumNodes(), "edges", g.NumEdges())

	finder, err := nearest.New(cfg.Routing.Nearest, g.Nodes())
	if err != nil {
		return err
	}
	engine := routing.NewEngine(g, profiles, routing.Options{
		MaxIterations: cfg.Routing.MaxIterations,
		MaxSnapMeters: cfg.Routing.MaxSnapMeters,
		Finder:        finder,
		Logger:        log,
	})

	began := time.Now()
	route, err := engine.Route(cmd.Context(), routing.Query{Start: start, End: end, Profile: profileName})
	if err != nil {
		return err
	}
	log.Info("route found",
		"elapsed", time.Since(began).Round(time.Microsecond),
		"start_node", route.Start.ID, "end_node", route.End.ID,
		"nodes", len(route.Path), "bfs_iterations", route.BFSIterations)

	summary, err := geojson.Summary(route, g)
	if err != nil {
		return err
	}
	if err := writeCollection(cmd.OutOrStdout(), output, summary); err != nil {
		return err
	}
	if detailedOutput != "" {
		fc, err := geojson.Detailed(route, g)
		if err != nil {
			return err
		}
		if err := writeCollection(cmd.OutOrStdout(), detailedOutput, fc); err != nil {
			return err
		}
	}
	if pointsOutput != "" {
		fc, err := geojson.StartEnd(route, g)
		if err != nil {
			return err
		}
		if fc == nil {
			log.Warn("route has a single node, no start and finish points written")
		} else if err := writeCollection(cmd.OutOrStdout(), pointsOutput, fc); err != nil {
			return err
		}
	}

	if output != "-" {
		printSummary(cmd.OutOrStdout(), route)
	}
	return nil
}

// loadGraph picks the graph source: a snapshot, a raw file, an Overpass
// area, or the snapshot named in the configuration.
func loadGraph(cmd *cobra.Command, rc config.RoutingConfig, log *slog.Logger) (*graph.Graph, error) {
	policy, err := rc.OverlapPolicy()
	if err != nil {
		return nil, err
	}
	opts := osmparser.ParseOptions{Highways: osmparser.BikeHighways(), Logger: log}

	var ds *osmparser.Dataset
	switch {
	case input != "":
		log.Info("parsing OSM data", "input", input)
		if ds, err = osmparser.LoadFile(cmd.Context(), input, opts); err != nil {
			return nil, err
		}
	case overpassArea != "":
		log.Info("querying Overpass", "area", overpassArea, "admin_level", adminLevel)
		client := &http.Client{Timeout: 2 * time.Minute}
		query := osmparser.BikeQuery(overpassArea, adminLevel, opts.Highways)
		if ds, err = osmparser.Fetch(cmd.Context(), client, overpassURL, query); err != nil {
			return nil, err
		}
		ds = ds.Filter(opts)
	default:
		path := graphPath
		if path == "" {
			path = rc.Graph
		}
		if path == "" {
			return nil, errors.New("no graph source: pass --graph, --input or --overpass-area")
		}
		log.Info("loading graph", "path", path)
		return graph.ReadBinary(path)
	}
	return graph.Build(ds, graph.BuildOptions{Overlap: policy, Logger: log}), nil
}

// parseLatLng parses "lat,lng".
func parseLatLng(s string) (routing.LatLng, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return routing.LatLng{}, fmt.Errorf("invalid point %q (expected lat,lng)", s)
	}
	var ll routing.LatLng
	var err error
	if ll.Lat, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return routing.LatLng{}, fmt.Errorf("invalid latitude in %q: %w", s, err)
	}
	if ll.Lng, err = strconv.ParseFloat(strings.TrimSpace(lng), 64); err != nil {
		return routing.LatLng{}, fmt.Errorf("invalid longitude in %q: %w", s, err)
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return routing.LatLng{}, fmt.Errorf("point %q out of range", s)
	}
	return ll, nil
}

func writeCollection(stdout io.Writer, path string, fc *orbgeojson.FeatureCollection) error {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printSummary(w io.Writer, r *routing.Route) {
	ev := r.Evaluation
	fmt.Fprintf(w, "Profile:   %s\n", r.Profile)
	fmt.Fprintf(w, "Distance:  %.2f km (%d nodes)\n", r.DistanceMeters/1000, len(r.Path))
	fmt.Fprintf(w, "Start:     node %d, %.1f m from query\n", r.Start.ID, r.Start.Distance)
	fmt.Fprintf(w, "Finish:    node %d, %.1f m from query\n", r.End.ID, r.End.Distance)
	fmt.Fprintf(w, "Status:    %s\n", ev.Status)
	fmt.Fprintf(w, "Message:   %s\n", ev.Message)
	if len(ev.NotAllowed) > 0 {
		fmt.Fprintf(w, "Rejected:  %s\n", strings.Join(ev.NotAllowed, ", "))
	}
	if len(ev.Surfaces) > 0 {
		fmt.Fprintf(w, "Surfaces:  %s\n", strings.Join(ev.Surfaces, ", "))
	}
}
