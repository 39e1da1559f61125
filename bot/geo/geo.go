// Package geo implements the spherical-cap search used to find lost pets
// near a location.
package geo

import "math"

// EarthRadiusKm converts kilometres to radians on the sphere.
const EarthRadiusKm = 6378.1

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether p lies within coordinate bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lon)
}

// AngularRadius converts a radius in kilometres to radians.
func AngularRadius(radiusKm float64) float64 {
	return radiusKm / EarthRadiusKm
}

// AngularDistance is the great-circle distance between a and b in radians (haversine).
func AngularDistance(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * math.Asin(math.Min(1, math.Sqrt(h)))
}

// DistanceKm is the great-circle distance in kilometres.
func DistanceKm(a, b Point) float64 {
	return AngularDistance(a, b) * EarthRadiusKm
}

// Within reports whether p lies inside the cap of radiusKm around center.
func Within(center, p Point, radiusKm float64) bool {
	return AngularDistance(center, p) <= AngularRadius(radiusKm)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
