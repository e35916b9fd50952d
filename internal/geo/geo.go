package geo

import (
	"fmt"
	"math"

	"fleettrack/internal/domain"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between two
// points given in decimal degrees. Symmetric; zero for identical points.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// PointInCircle reports whether a point lies within radiusM meters of the
// center. A point exactly on the boundary is inside.
func PointInCircle(lat, lon, centerLat, centerLon, radiusM float64) bool {
	return HaversineKm(lat, lon, centerLat, centerLon)*1000 <= radiusM
}

// PointInPolygon runs a ray cast over the vertices treated as a planar
// polygon, including the closing edge from the last vertex back to the
// first. No geodesic correction is applied, which is acceptable only for
// fences spanning a few kilometers. Degenerate polygons (<3 vertices) are
// always outside.
func PointInPolygon(lat, lon float64, vertices []domain.LatLon) bool {
	if len(vertices) < 3 {
		return false
	}

	inside := false
	j := len(vertices) - 1
	for i := 0; i < len(vertices); i++ {
		vi, vj := vertices[i], vertices[j]
		if (vi.Lat > lat) != (vj.Lat > lat) &&
			lon < (vj.Lon-vi.Lon)*(lat-vi.Lat)/(vj.Lat-vi.Lat)+vi.Lon {
			inside = !inside
		}
		j = i
	}
	return inside
}

// ShapeContains dispatches the containment test over the shape variants.
// An unrecognized shape is an error, not a silent miss.
func ShapeContains(s domain.Shape, lat, lon float64) (bool, error) {
	switch v := s.(type) {
	case domain.Circle:
		return PointInCircle(lat, lon, v.CenterLat, v.CenterLon, v.RadiusM), nil
	case domain.Polygon:
		if err := v.Validate(); err != nil {
			return false, err
		}
		return PointInPolygon(lat, lon, v.Vertices), nil
	default:
		return false, fmt.Errorf("unsupported shape: %T", s)
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
