// Package profile classifies routes against bicycle surface profiles.
package profile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Unknown is the surface value used when a segment has no surface tag.
const Unknown = "unknown"

// ErrUnknownProfile is returned for a profile name that is not registered.
var ErrUnknownProfile = errors.New("unknown profile")

// Profile is a named allow-list of surfaces.
type Profile struct {
	Name     string   `yaml:"name" json:"name" validate:"required"`
	Surfaces []string `yaml:"surfaces" json:"surfaces" validate:"required,min=1,dive,required"`
}

// Allows reports whether surface is on the allow-list.
func (p Profile) Allows(surface string) bool {
	return slices.Contains(p.Surfaces, surface)
}

// Builtin returns the default profiles: city, trekking, mountain and road.
func Builtin() []Profile {
	return []Profile{
		{Name: "city", Surfaces: []string{"asphalt", "paving_stones", "concrete"}},
		{Name: "trekking", Surfaces: []string{"asphalt", "concrete", "gravel"}},
		{Name: "mountain", Surfaces: []string{"asphalt", "concrete", "gravel", "dirt", "ground", "sand"}},
		{Name: "road", Surfaces: []string{"asphalt", "concrete"}},
	}
}

var validate = validator.New()

// Registry maps profile names to profiles. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	names    []string
	profiles map[string]Profile
}

// NewRegistry returns a registry holding the given profiles.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]Profile)}
	for _, p := range profiles {
		if err := r.Set(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Default returns a registry holding the built-in profiles.
func Default() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		panic(err) // built-ins are static
	}
	return r
}

// Set validates p and adds it, replacing any profile with the same name.
func (r *Registry) Set(p Profile) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid profile %q: %w", p.Name, err)
	}
	p.Surfaces = slices.Clone(p.Surfaces)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.Name]; !ok {
		r.names = append(r.names, p.Name)
	}
	r.profiles[p.Name] = p
	return nil
}

// Get looks up a profile by name.
func (r *Registry) Get(name string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// Names returns the registered profile names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.names)
}

// List returns all profiles in registration order.
func (r *Registry) List() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Profile, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.profiles[n])
	}
	return out
}

// Evaluate classifies surfaces against the named profile. An unknown name
// is rejected before any classification.
func (r *Registry) Evaluate(name string, surfaces []string) (Evaluation, error) {
	p, err := r.Get(name)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluate(surfaces, p), nil
}

type profileFile struct {
	Profiles []Profile `yaml:"profiles" validate:"dive"`
}

// Decode reads a YAML document of the form
//
//	profiles:
//	  - name: gravel
//	    surfaces: [asphalt, gravel, compacted]
func Decode(r io.Reader) ([]Profile, error) {
	var f profileFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("validate profiles: %w", err)
	}
	return f.Profiles, nil
}

// LoadFile decodes the profiles in path and adds them to r.
func (r *Registry) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open profiles: %w", err)
	}
	defer f.Close()

	profiles, err := Decode(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, p := range profiles {
		if err := r.Set(p); err != nil {
			return err
		}
	}
	return nil
}
