package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	madrid := Point{Lat: 40.4168, Lon: -3.7038}
	barcelona := Point{Lat: 41.3874, Lon: 2.1686}
	assert.InDelta(t, 505, DistanceKm(madrid, barcelona), 5)
	assert.Zero(t, DistanceKm(madrid, madrid))
}

func TestWithinHalfKilometre(t *testing.T) {
	center := Point{Lat: 40.0, Lon: -3.0}
	// 0.001 degrees of latitude is about 111 m.
	near := Point{Lat: 40.004, Lon: -3.0}
	far := Point{Lat: 40.006, Lon: -3.0}
	assert.True(t, Within(center, near, 0.5))
	assert.False(t, Within(center, far, 0.5))
}

func TestAngularRadius(t *testing.T) {
	assert.InDelta(t, 0.5/6378.1, AngularRadius(0.5), 1e-12)
}

func TestValid(t *testing.T) {
	assert.True(t, Point{Lat: 89, Lon: 179}.Valid())
	assert.False(t, Point{Lat: 91}.Valid())
	assert.False(t, Point{Lon: -181}.Valid())
	assert.False(t, Point{Lat: math.NaN()}.Valid())
}
