package osm

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/osm"
)

// Default area queried from Overpass when none is given.
const (
	DefaultArea       = "powiat piotrkowski"
	DefaultAdminLevel = 6
)

// LoadFile reads a dataset from disk and applies opt. The format follows
// the file name: ".pbf" is scanned with osmpbf, ".json" is decoded as an
// Overpass response and ".osm" or ".xml" as OSM XML.
func LoadFile(ctx context.Context, path string, opt ParseOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pbf":
		return ParsePBF(ctx, f, opt)
	case ".json":
		ds, err := DecodeOverpass(f)
		if err != nil {
			return nil, err
		}
		return ds.Filter(opt), nil
	case ".osm", ".xml":
		var doc osm.OSM
		if err := xml.NewDecoder(f).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode osm xml: %w", err)
		}
		return FromOSM(&doc).Filter(opt), nil
	default:
		return nil, fmt.Errorf("unsupported input format %q (want .pbf, .json, .osm or .xml)", ext)
	}
}

// ParseBBox parses "minLat,minLng,maxLat,maxLng".
func ParseBBox(s string) (BBox, error) {
	var minLat, minLng, maxLat, maxLng float64
	if _, err := fmt.Sscanf(s, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
		return BBox{}, fmt.Errorf("invalid bbox %q (expected minLat,minLng,maxLat,maxLng): %w", s, err)
	}
	if minLat > maxLat || minLng > maxLng {
		return BBox{}, fmt.Errorf("invalid bbox %q: min exceeds max", s)
	}
	return BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}, nil
}

// Preset bounding boxes selectable by name.
var Presets = map[string]BBox{
	"piotrkow": {MinLat: 51.20, MaxLat: 51.60, MinLng: 19.40, MaxLng: 20.10},
	"lodz":     {MinLat: 51.68, MaxLat: 51.86, MinLng: 19.32, MaxLng: 19.64},
}
