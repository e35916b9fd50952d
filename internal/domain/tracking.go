package domain

import "time"

// TrackingPoint is a single GPS observation reported by a vehicle.
// Points are immutable once stored.
type TrackingPoint struct {
	TenantID  string    `json:"tenantId"`
	VehicleID string    `json:"vehicleId"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	SpeedKmh  float64   `json:"speedKmh"`
	Heading   float64   `json:"heading"`
	AltitudeM *float64  `json:"altitudeM,omitempty"`
	AccuracyM *float64  `json:"accuracyM,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// RecordedAt is set server-side when the point is persisted.
	RecordedAt time.Time `json:"recordedAt"`
}

// FleetSnapshot resolves the last known location of every vehicle in a
// tenant's roster. Vehicles with no location on record are counted in
// TotalVehicles but omitted from Locations.
type FleetSnapshot struct {
	TotalVehicles  int              `json:"totalVehicles"`
	LocationsFound int              `json:"locationsFound"`
	Locations      []*TrackingPoint `json:"locations"`
}
