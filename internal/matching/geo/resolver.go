// Package geo maps region names to coordinates and measures great-circle
// distance between them. A region missing from the table is unresolvable;
// that is an expected outcome, not an error.
package geo

import (
	"math"
	"sort"
	"strings"
)

// EarthRadiusKm is the mean Earth radius (IUGG).
const EarthRadiusKm = 6371.0088

// Distance is a great-circle distance in kilometres. Unresolvable compares
// greater than every finite threshold.
type Distance float64

// Unresolvable is returned when either location is not in the table.
var Unresolvable = Distance(math.Inf(1))

func (d Distance) Resolvable() bool {
	return !math.IsInf(float64(d), 1)
}

func (d Distance) Km() float64 {
	return float64(d)
}

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Table maps region name to its reference coordinate.
type Table map[string]Coordinate

// Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	coords map[string]Coordinate
	names  []string
}

// NewResolver copies the table so later mutation by the caller has no effect.
func NewResolver(table Table) *Resolver {
	coords := make(map[string]Coordinate, len(table))
	names := make([]string, 0, len(table))
	for name, c := range table {
		key := strings.TrimSpace(name)
		if key == "" {
			continue
		}
		if _, dup := coords[key]; !dup {
			names = append(names, key)
		}
		coords[key] = c
	}
	sort.Strings(names)
	return &Resolver{coords: coords, names: names}
}

// Resolve looks a region up by name.
func (r *Resolver) Resolve(name string) (Coordinate, bool) {
	c, ok := r.coords[strings.TrimSpace(name)]
	return c, ok
}

// Distance returns the great-circle distance between two regions, or
// Unresolvable when either is unknown.
func (r *Resolver) Distance(a, b string) Distance {
	ca, ok := r.Resolve(a)
	if !ok {
		return Unresolvable
	}
	cb, ok := r.Resolve(b)
	if !ok {
		return Unresolvable
	}
	if ca == cb {
		return 0
	}
	return Distance(Haversine(ca, cb))
}

// Regions returns the known region names, sorted.
func (r *Resolver) Regions() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len reports how many regions are registered.
func (r *Resolver) Len() int {
	return len(r.coords)
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180.0
	dLon := (b.Lon - a.Lon) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
