package domain

import "time"

// Trip is a contiguous run of moving points bounded by idle gaps. Derived
// on demand for reports, never persisted.
type Trip struct {
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	PointCount int       `json:"pointCount"`
	DistanceKm float64   `json:"distanceKm"`
}

// RouteSummary is the reconstructed path of a vehicle over a time window.
type RouteSummary struct {
	Points          []TrackingPoint `json:"points"`
	TotalDistanceKm float64         `json:"totalDistanceKm"`
	DurationMin     float64         `json:"durationMin"`
	AverageSpeedKmh float64         `json:"averageSpeedKmh"`
}

// BehaviorReport aggregates driver-behavior events over a reporting window.
type BehaviorReport struct {
	TenantID    string    `json:"tenantId"`
	VehicleID   string    `json:"vehicleId"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`

	TotalPoints            int     `json:"totalPoints"`
	SpeedingCount          int     `json:"speedingCount"`
	HarshBrakingCount      int     `json:"harshBrakingCount"`
	RapidAccelerationCount int     `json:"rapidAccelerationCount"`
	IdlingMinutes          float64 `json:"idlingMinutes"`

	// SafetyScore is clamped to [0, 100].
	SafetyScore int    `json:"safetyScore"`
	Rating      string `json:"rating"`
}
