// Package geo holds the great-circle helpers used for route and proximity
// estimates. Positions reported by trucks arrive as geohashes.
package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

const earthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees
type Point struct {
	Latitude  float64
	Longitude float64
}

// DistanceKm returns the haversine distance between two points in kilometers
func DistanceKm(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180.0
	lon1 := a.Longitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	lon2 := b.Longitude * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// PathKm sums the leg distances along an ordered list of points
func PathKm(points []Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += DistanceKm(points[i-1], points[i])
	}
	return total
}

// Encode returns the geohash of p at the given precision
func Encode(p Point, precision uint) string {
	return geohash.EncodeWithPrecision(p.Latitude, p.Longitude, precision)
}

// Decode returns the center of a geohash cell. ok is false for an empty or
// malformed hash.
func Decode(hash string) (p Point, ok bool) {
	if !valid(hash) {
		return Point{}, false
	}
	lat, lng := geohash.Decode(hash)
	return Point{Latitude: lat, Longitude: lng}, true
}

func valid(hash string) bool {
	return hash != "" && geohash.Validate(hash) == nil
}

// Round1 rounds to one decimal place, the precision shown to dispatchers
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
