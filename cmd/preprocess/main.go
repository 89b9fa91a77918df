package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bike_router/pkg/config"
	"bike_router/pkg/graph"
	osmparser "bike_router/pkg/osm"
)

var (
	input            string
	output           string
	bbox             string
	preset           string
	highways         []string
	allHighways      bool
	largestComponent bool
	overlap          string
	overpassArea     string
	overpassURL      string
	adminLevel       int
	logLevel         string

	rootCmd = &cobra.Command{
		Use:   "preprocess",
		Short: "Build a bicycle routing graph snapshot from OSM data",
		Long: `preprocess reads OSM data (.osm.pbf, Overpass .json or OSM .xml) or
queries the Overpass API for an administrative area, builds the weighted
bicycle graph and writes it as a binary snapshot for the route and server
commands.`,
		SilenceUsage: true,
		RunE:         run,
	}
)

func init() {
	presets := slices.Sorted(maps.Keys(osmparser.Presets))

	f := rootCmd.Flags()
	f.StringVar(&input, "input", "", "Path to .osm.pbf, Overpass .json or .osm file")
	f.StringVar(&output, "output", "graph.bin", "Output binary graph file path")
	f.StringVar(&bbox, "bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng")
	f.StringVar(&preset, "preset", "", "Named bounding box ("+strings.Join(presets, ", ")+")")
	f.StringSliceVar(&highways, "highways", osmparser.BikeHighways(), "Highway values to keep")
	f.BoolVar(&allHighways, "all-highways", false, "Keep every way with a highway tag")
	f.BoolVar(&largestComponent, "largest-component", true, "Keep only the largest connected component")
	f.StringVar(&overlap, "overlap", "last", "Overlapping ways policy: last or first")
	f.StringVar(&overpassArea, "overpass-area", "", "Fetch this administrative area from Overpass instead of reading --input")
	f.StringVar(&overpassURL, "overpass-url", osmparser.DefaultOverpassURL, "Overpass interpreter endpoint")
	f.IntVar(&adminLevel, "admin-level", osmparser.DefaultAdminLevel, "admin_level of --overpass-area")
	f.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.MarkFlagsMutuallyExclusive("input", "overpass-area")
	rootCmd.MarkFlagsOneRequired("input", "overpass-area")
	rootCmd.MarkFlagsMutuallyExclusive("bbox", "preset")
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
	policy, err := graph.ParseOverlapPolicy(overlap)
	if err != nil {
		return err
	}

	// Parse bbox option.
	opts := osmparser.ParseOptions{Logger: log}
	if !allHighways {
		opts.Highways = highways
	}
	switch {
	case preset != "":
		b, ok := osmparser.Presets[preset]
		if !ok {
			return fmt.Errorf("unknown preset %q", preset)
		}
		opts.BBox = b
	case bbox != "":
		if opts.BBox, err = osmparser.ParseBBox(bbox); err != nil {
			return err
		}
	}
	if !opts.BBox.IsZero() {
		log.Info("using bounding box filter",
			"min_lat", opts.BBox.MinLat, "max_lat", opts.BBox.MaxLat,
			"min_lng", opts.BBox.MinLng, "max_lng", opts.BBox.MaxLng)
	}

	start := time.Now()
	ctx := cmd.Context()

	// Step 1: Load OSM data.
	ds, err := loadDataset(ctx, opts, log)
	if err != nil {
		return err
	}
	log.Info("dataset loaded", "nodes", len(ds.Nodes), "ways", len(ds.Ways))

	// Step 2: Build graph.
	g := graph.Build(ds, graph.BuildOptions{Overlap: policy, Logger: log})

	// Step 3: Extract largest connected component.
	if largestComponent && g.NumEdges() > 0 {
		componentNodes := graph.LargestComponent(g)
		log.Info("largest component",
			"nodes", len(componentNodes),
			"share_pct", fmt.Sprintf("%.1f", float64(len(componentNodes))/float64(len(g.Keys()))*100))
		g = g.Subgraph(componentNodes)
		log.Info("filtered graph", "nodes", g.NumNodes(), "edges", g.NumEdges())
	}

	// Step 4: Serialize to binary.
	log.Info("writing binary", "path", output)
	if err := graph.WriteBinary(output, g); err != nil {
		return fmt.Errorf("failed to write binary: %w", err)
	}

	info, err := os.Stat(output)
	if err != nil {
		return err
	}
	log.Info("done",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"output", output,
		"size_mb", fmt.Sprintf("%.1f", float64(info.Size())/(1024*1024)))
	return nil
}

func loadDataset(ctx context.Context, opts osmparser.ParseOptions, log *slog.Logger) (*osmparser.Dataset, error) {
	if overpassArea == "" {
		log.Info("parsing OSM data", "input", input)
		return osmparser.LoadFile(ctx, input, opts)
	}

	query := osmparser.BikeQuery(overpassArea, adminLevel, opts.Highways)
	log.Info("querying Overpass", "area", overpassArea, "admin_level", adminLevel, "url", overpassURL)
	client := &http.Client{Timeout: 2 * time.Minute}
	ds, err := osmparser.Fetch(ctx, client, overpassURL, query)
	if err != nil {
		return nil, err
	}
	return ds.Filter(opts), nil
}
