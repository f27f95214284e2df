package geospatial

import (
	"math"

	"github.com/fieldmark/fieldmark/internal/core/domain"
)

const (
	metersPerDegree = 111320.0
	sqMetersPerAcre = 4046.86
)

// PolygonAreaAcres computes the enclosed area of a vertex ring in acres using
// the planar shoelace formula over (lon, lat) pairs treated as Cartesian.
// The approximation holds for field-sized (sub-kilometer) polygons; larger
// extents would need an equal-area projection. Fewer than three vertices
// return zero — boundary recording passes through those states transiently.
func PolygonAreaAcres(ring []domain.GeoPoint) float64 {
	if len(ring) < 3 {
		return 0
	}

	sum := 0.0
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += ring[i].Lon*ring[j].Lat - ring[j].Lon*ring[i].Lat
	}

	squareDegrees := math.Abs(sum) / 2
	squareMeters := squareDegrees * metersPerDegree * metersPerDegree
	return squareMeters / sqMetersPerAcre
}

// PolygonPerimeterMeters sums the haversine distances between consecutive
// vertices, including the closing edge back to the first. Fewer than two
// vertices return zero.
func PolygonPerimeterMeters(ring []domain.GeoPoint) float64 {
	if len(ring) < 2 {
		return 0
	}

	total := 0.0
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		total += Haversine(ring[i].Lat, ring[i].Lon, ring[j].Lat, ring[j].Lon)
	}
	return total
}
