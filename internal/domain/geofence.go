package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ShapeKind discriminates geofence shape variants.
type ShapeKind string

const (
	ShapeKindCircle  ShapeKind = "circle"
	ShapeKindPolygon ShapeKind = "polygon"
)

// LatLon is a single polygon vertex.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Shape is a sealed variant: Circle or Polygon. The containment check
// switches exhaustively on the concrete type; an unknown shape is an error,
// never a silent "outside".
type Shape interface {
	Kind() ShapeKind
	Validate() error
}

// Circle is a center point plus a radius in meters.
type Circle struct {
	CenterLat float64 `json:"centerLat"`
	CenterLon float64 `json:"centerLon"`
	RadiusM   float64 `json:"radiusM"`
}

func (Circle) Kind() ShapeKind { return ShapeKindCircle }

func (c Circle) Validate() error {
	if c.RadiusM <= 0 {
		return fmt.Errorf("%w: circle radius must be positive", ErrInvalidGeofence)
	}
	if c.CenterLat < -90 || c.CenterLat > 90 || c.CenterLon < -180 || c.CenterLon > 180 {
		return fmt.Errorf("%w: circle center out of range", ErrInvalidGeofence)
	}
	return nil
}

// Polygon is an ordered vertex list, implicitly closed. The containment
// test treats vertices as planar coordinates, which only holds for fences
// spanning a few kilometers.
type Polygon struct {
	Vertices []LatLon `json:"vertices"`
}

func (Polygon) Kind() ShapeKind { return ShapeKindPolygon }

func (p Polygon) Validate() error {
	if len(p.Vertices) < 3 {
		return fmt.Errorf("%w: polygon needs at least 3 vertices, got %d", ErrInvalidGeofence, len(p.Vertices))
	}
	return nil
}

// Geofence is a named region monitored for vehicle entry/exit.
type Geofence struct {
	ID           uuid.UUID `json:"id"`
	TenantID     string    `json:"tenantId"`
	Name         string    `json:"name"`
	Shape        Shape     `json:"shape"`
	AlertOnEntry bool      `json:"alertOnEntry"`
	AlertOnExit  bool      `json:"alertOnExit"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (g *Geofence) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidGeofence)
	}
	if g.Shape == nil {
		return fmt.Errorf("%w: shape is required", ErrInvalidGeofence)
	}
	return g.Shape.Validate()
}

// shapeEnvelope is the wire/storage encoding of a Shape: a kind tag plus
// the union of variant fields.
type shapeEnvelope struct {
	Kind      ShapeKind `json:"kind"`
	CenterLat *float64  `json:"centerLat,omitempty"`
	CenterLon *float64  `json:"centerLon,omitempty"`
	RadiusM   *float64  `json:"radiusM,omitempty"`
	Vertices  []LatLon  `json:"vertices,omitempty"`
}

// EncodeShape serializes a shape with its kind tag for JSONB storage and
// API payloads.
func EncodeShape(s Shape) ([]byte, error) {
	switch v := s.(type) {
	case Circle:
		return json.Marshal(shapeEnvelope{
			Kind:      ShapeKindCircle,
			CenterLat: &v.CenterLat,
			CenterLon: &v.CenterLon,
			RadiusM:   &v.RadiusM,
		})
	case Polygon:
		return json.Marshal(shapeEnvelope{
			Kind:     ShapeKindPolygon,
			Vertices: v.Vertices,
		})
	case nil:
		return nil, fmt.Errorf("%w: shape is nil", ErrInvalidGeofence)
	default:
		return nil, fmt.Errorf("%w: unknown shape kind %q", ErrInvalidGeofence, s.Kind())
	}
}

// DecodeShape is the inverse of EncodeShape.
func DecodeShape(data []byte) (Shape, error) {
	var env shapeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode shape: %w", err)
	}

	switch env.Kind {
	case ShapeKindCircle:
		if env.CenterLat == nil || env.CenterLon == nil || env.RadiusM == nil {
			return nil, fmt.Errorf("%w: circle requires center and radius", ErrInvalidGeofence)
		}
		return Circle{CenterLat: *env.CenterLat, CenterLon: *env.CenterLon, RadiusM: *env.RadiusM}, nil
	case ShapeKindPolygon:
		return Polygon{Vertices: env.Vertices}, nil
	default:
		return nil, fmt.Errorf("%w: unknown shape kind %q", ErrInvalidGeofence, env.Kind)
	}
}
