package geo

import "math"

const earthRadiusMeters = 6_371_000.0

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Box is a lat/lon rectangle in degrees.
type Box struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

// Contains reports whether the point lies inside the box (edges inclusive).
func (b Box) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// SearchBox returns a box that contains every point within radius meters of
// (lat, lon). ok is false when the box would touch a pole or cross the
// antimeridian; callers must then fall back to an exhaustive search.
func SearchBox(lat, lon, radius float64) (box Box, ok bool) {
	dLat := radius / earthRadiusMeters * 180 / math.Pi
	// Small padding absorbs floating-point error in the inverse formulas.
	dLat *= 1.001

	minLat, maxLat := lat-dLat, lat+dLat
	if minLat <= -90 || maxLat >= 90 {
		return Box{}, false
	}

	// The widest longitude span of the circle occurs at the box latitude
	// closest to a pole.
	cosLat := math.Min(math.Cos(minLat*math.Pi/180), math.Cos(maxLat*math.Pi/180))
	if cosLat <= 0 {
		return Box{}, false
	}
	dLon := dLat / cosLat
	angular := radius / earthRadiusMeters
	if s := math.Sin(angular) / math.Cos(lat*math.Pi/180); s < 1 {
		dLon = math.Max(dLon, math.Asin(s)*180/math.Pi*1.001)
	} else {
		return Box{}, false
	}
	minLon, maxLon := lon-dLon, lon+dLon
	if dLon >= 180 || minLon < -180 || maxLon > 180 {
		return Box{}, false
	}

	return Box{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}, true
}
