package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleettrack/internal/domain"
)

func TestHaversineKm_ZeroForSamePoint(t *testing.T) {
	assert.Equal(t, 0.0, HaversineKm(41.0, 29.0, 41.0, 29.0))
	assert.Equal(t, 0.0, HaversineKm(-6.2088, 106.8456, -6.2088, 106.8456))
}

func TestHaversineKm_Symmetric(t *testing.T) {
	d1 := HaversineKm(41.0, 29.0, 52.2297, 21.0122)
	d2 := HaversineKm(52.2297, 21.0122, 41.0, 29.0)
	assert.Equal(t, d1, d2)
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// Warsaw to Krakow, roughly 252 km.
	d := HaversineKm(52.2297, 21.0122, 50.0647, 19.9450)
	assert.InDelta(t, 252, d, 5)
}

func TestPointInCircle_BoundaryIsInside(t *testing.T) {
	centerLat, centerLon := 41.0, 29.0
	lat, lon := 41.001, 29.0

	radiusM := HaversineKm(lat, lon, centerLat, centerLon) * 1000
	assert.True(t, PointInCircle(lat, lon, centerLat, centerLon, radiusM))
	assert.False(t, PointInCircle(lat, lon, centerLat, centerLon, radiusM-0.01))
}

func TestPointInCircle_NearAndFar(t *testing.T) {
	assert.True(t, PointInCircle(41.0001, 29.0, 41.0, 29.0, 50))
	assert.False(t, PointInCircle(41.01, 29.0, 41.0, 29.0, 50))
}

func TestPointInPolygon_Square(t *testing.T) {
	square := []domain.LatLon{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 10},
		{Lat: 10, Lon: 10},
		{Lat: 10, Lon: 0},
	}

	assert.True(t, PointInPolygon(5, 5, square))
	assert.False(t, PointInPolygon(15, 15, square))
	assert.False(t, PointInPolygon(-1, 5, square))
}

func TestPointInPolygon_ClosingEdge(t *testing.T) {
	// Triangle where containment depends on the wraparound edge from the
	// last vertex back to the first.
	tri := []domain.LatLon{
		{Lat: 0, Lon: 0},
		{Lat: 10, Lon: 0},
		{Lat: 0, Lon: 10},
	}
	assert.True(t, PointInPolygon(2, 2, tri))
	assert.False(t, PointInPolygon(8, 8, tri))
}

func TestPointInPolygon_Degenerate(t *testing.T) {
	assert.False(t, PointInPolygon(5, 5, nil))
	assert.False(t, PointInPolygon(5, 5, []domain.LatLon{{Lat: 0, Lon: 0}, {Lat: 10, Lon: 10}}))
}

func TestShapeContains_Circle(t *testing.T) {
	inside, err := ShapeContains(domain.Circle{CenterLat: 41.0, CenterLon: 29.0, RadiusM: 50}, 41.0, 29.0)
	require.NoError(t, err)
	assert.True(t, inside)
}

func TestShapeContains_Polygon(t *testing.T) {
	poly := domain.Polygon{Vertices: []domain.LatLon{
		{Lat: 0, Lon: 0}, {Lat: 0, Lon: 10}, {Lat: 10, Lon: 10}, {Lat: 10, Lon: 0},
	}}

	inside, err := ShapeContains(poly, 5, 5)
	require.NoError(t, err)
	assert.True(t, inside)
}

func TestShapeContains_DegeneratePolygonRejected(t *testing.T) {
	_, err := ShapeContains(domain.Polygon{Vertices: []domain.LatLon{{Lat: 0, Lon: 0}}}, 5, 5)
	require.Error(t, err)
}

func TestShapeContains_UnknownShape(t *testing.T) {
	_, err := ShapeContains(nil, 5, 5)
	require.Error(t, err)
}
