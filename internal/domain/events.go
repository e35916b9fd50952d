package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransitionType indicates whether a vehicle entered or exited a geofence.
type TransitionType string

const (
	TransitionEntered TransitionType = "entered"
	TransitionExited  TransitionType = "exited"
)

// Transition is a detected boundary crossing for a (vehicle, geofence) pair.
type Transition struct {
	Type         TransitionType `json:"type"`
	TenantID     string         `json:"tenantId"`
	VehicleID    string         `json:"vehicleId"`
	GeofenceID   uuid.UUID      `json:"geofenceId"`
	GeofenceName string         `json:"geofenceName"`
	Point        TrackingPoint  `json:"point"`
	At           time.Time      `json:"at"`
}

// CheckResult summarizes one position check against a tenant's geofences.
type CheckResult struct {
	Transitions  []Transition `json:"transitions"`
	CheckedCount int          `json:"checkedCount"`
}

// AlertKind classifies outbound alerts.
type AlertKind string

const (
	AlertSpeeding AlertKind = "speeding"
	AlertIdling   AlertKind = "idling"
	AlertSLA      AlertKind = "sla"
)

// Alert is an outbound condition notification. Delivery is best-effort;
// the event bus owns any guarantees beyond that.
type Alert struct {
	Kind      AlertKind      `json:"kind"`
	TenantID  string         `json:"tenantId"`
	VehicleID string         `json:"vehicleId"`
	Message   string         `json:"message"`
	Value     float64        `json:"value"`
	Point     *TrackingPoint `json:"point,omitempty"`
	At        time.Time      `json:"at"`
}
