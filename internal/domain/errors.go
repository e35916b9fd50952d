package domain

import "errors"

var (
	// ErrNotFound is returned when a referenced vehicle, geofence, or
	// location does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidGeofence is returned for malformed geofence definitions
	// before anything is persisted.
	ErrInvalidGeofence = errors.New("invalid geofence")
)
