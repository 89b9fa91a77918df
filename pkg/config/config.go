// Package config loads the YAML configuration shared by the command-line
// tools and the HTTP server.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"bike_router/pkg/graph"
	"bike_router/pkg/profile"
	"bike_router/pkg/reach"
)

// Config is the top-level configuration file.
type Config struct {
	Server   ServerConfig      `yaml:"server"`
	Routing  RoutingConfig     `yaml:"routing"`
	Profiles []profile.Profile `yaml:"profiles" validate:"dive"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr           string        `yaml:"addr" validate:"required"`
	ReadTimeout    time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" validate:"gt=0"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
	MaxConcurrent  int           `yaml:"max_concurrent" validate:"gte=1"`
	CORSOrigin     string        `yaml:"cors_origin"`
}

// RoutingConfig controls graph construction and queries.
type RoutingConfig struct {
	// Graph is the path of a snapshot written by preprocess.
	Graph string `yaml:"graph"`

	// MaxIterations caps the reachability search; negative disables the cap.
	MaxIterations int `yaml:"max_iterations"`

	// MaxSnapMeters rejects query points further from the network; 0 disables.
	MaxSnapMeters float64 `yaml:"max_snap_meters" validate:"gte=0"`

	Overlap          string `yaml:"overlap" validate:"oneof=last first"`
	Nearest          string `yaml:"nearest" validate:"oneof=scan rtree"`
	BatchConcurrency int    `yaml:"batch_concurrency" validate:"gte=1"`
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   10 * time.Second,
			RequestTimeout: 5 * time.Second,
			MaxConcurrent:  runtime.NumCPU() * 2,
		},
		Routing: RoutingConfig{
			Graph:            "graph.bin",
			MaxIterations:    reach.DefaultMaxIterations,
			MaxSnapMeters:    1000,
			Overlap:          "last",
			Nearest:          "rtree",
			BatchConcurrency: runtime.NumCPU(),
		},
	}
}

var validate = validator.New()

// Validate checks every field constraint.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads path on top of the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// OverlapPolicy returns the configured graph overlap policy.
func (r RoutingConfig) OverlapPolicy() (graph.OverlapPolicy, error) {
	return graph.ParseOverlapPolicy(r.Overlap)
}

// Registry returns the built-in profiles extended or overridden by the
// profiles in the configuration.
func (c Config) Registry() (*profile.Registry, error) {
	r := profile.Default()
	for _, p := range c.Profiles {
		if err := r.Set(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}
