package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bike_router/pkg/api"
	"bike_router/pkg/config"
	"bike_router/pkg/graph"
	"bike_router/pkg/nearest"
	"bike_router/pkg/routing"
)

var (
	configPath   string
	graphPath    string
	addr         string
	corsOrigin   string
	profilesPath string
	logLevel     string

	rootCmd = &cobra.Command{
		Use:   "server",
		Short: "Serve bicycle routes over HTTP",
		Long: `server loads a graph snapshot written by preprocess and answers
POST /api/v1/route with GeoJSON routes evaluated against a bike profile.`,
		SilenceUsage: true,
		RunE:         run,
	}
)

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	f.StringVar(&graphPath, "graph", "graph.bin", "Path to preprocessed graph binary")
	f.StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	f.StringVar(&corsOrigin, "cors-origin", "", "CORS allowed origin (empty = same-origin)")
	f.StringVar(&profilesPath, "profiles", "", "YAML file with additional bike profiles")
	f.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
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

	// Flags given explicitly take precedence over the file.
	flags := cmd.Flags()
	if flags.Changed("graph") || cfg.Routing.Graph == "" {
		cfg.Routing.Graph = graphPath
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = addr
	}
	if flags.Changed("cors-origin") {
		cfg.Server.CORSOrigin = corsOrigin
	}
	if err := cfg.Validate(); err != nil {
		return err
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

	start := time.Now()

	// Load graph.
	log.Info("loading graph", "path", cfg.Routing.Graph)
	g, err := graph.ReadBinary(cfg.Routing.Graph)
	if err != nil {
		return fmt.Errorf("failed to load graph: %w", err)
	}
	log.Info("graph loaded", "nodes", g.NumNodes(), "edges", g.NumEdges())

	log.Info("building nearest-node index", "kind", cfg.Routing.Nearest)
	finder, err := nearest.New(cfg.Routing.Nearest, g.Nodes())
	if err != nil {
		return err
	}

	engine := routing.NewEngine(g, profiles, routing.Options{
		MaxIterations:    cfg.Routing.MaxIterations,
		MaxSnapMeters:    cfg.Routing.MaxSnapMeters,
		BatchConcurrency: cfg.Routing.BatchConcurrency,
		Finder:           finder,
		Logger:           log,
	})

	part := engine.Partition()
	stats := api.StatsResponse{
		NumNodes:      g.NumNodes(),
		NumEdges:      g.NumEdges(),
		NumComponents: part.Len(),
		Conflicts:     len(g.Stats().Conflicts),
	}
	if part.Len() > 0 {
		stats.LargestSize = len(part.Component(0))
	}
	log.Info("ready",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"components", stats.NumComponents,
		"profiles", profiles.Names())

	handlers := api.NewHandlers(engine, g, profiles, stats, log)
	srv := api.NewServer(cfg.Server, handlers, log)

	if err := api.ListenAndServe(srv, log); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
