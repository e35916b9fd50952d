package service

import (
	"context"
	"fmt"
	"time"

	"fleettrack/internal/domain"
	"fleettrack/internal/geo"
)

type PointRangeStore interface {
	Range(ctx context.Context, tenantID, vehicleID string, start, end time.Time) ([]domain.TrackingPoint, error)
}

type TripConfig struct {
	// MovingSpeedKmh separates moving samples from idle ones.
	MovingSpeedKmh float64
	// IdleGap closes the current trip once this much time passes since the
	// last moving sample.
	IdleGap time.Duration
	// MinPoints drops trips at or below this point count as noise.
	MinPoints int
}

func DefaultTripConfig() TripConfig {
	return TripConfig{
		MovingSpeedKmh: 5,
		IdleGap:        30 * time.Minute,
		MinPoints:      10,
	}
}

// TripService reconstructs routes and segments point streams into discrete
// trips. It runs off historical data on demand, never on the live path.
type TripService struct {
	points PointRangeStore
	cfg    TripConfig
}

func NewTripService(points PointRangeStore, cfg TripConfig) *TripService {
	return &TripService{points: points, cfg: cfg}
}

// GetVehicleRoute reconstructs the ordered path over [start, end] and
// derives distance, duration, and average speed.
func (s *TripService) GetVehicleRoute(ctx context.Context, tenantID, vehicleID string, start, end time.Time) (*domain.RouteSummary, error) {
	points, err := s.points.Range(ctx, tenantID, vehicleID, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch route points: %w", err)
	}

	summary := &domain.RouteSummary{Points: points}
	if len(points) == 0 {
		return summary, nil
	}

	summary.TotalDistanceKm = pathDistanceKm(points)

	duration := points[len(points)-1].Timestamp.Sub(points[0].Timestamp)
	summary.DurationMin = duration.Minutes()
	if duration > 0 {
		summary.AverageSpeedKmh = summary.TotalDistanceKm / duration.Hours()
	}

	return summary, nil
}

// GetVehicleTripHistory segments the trailing days of samples into trips.
func (s *TripService) GetVehicleTripHistory(ctx context.Context, tenantID, vehicleID string, days int) ([]domain.Trip, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	points, err := s.points.Range(ctx, tenantID, vehicleID, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch trip points: %w", err)
	}

	return identifyTrips(points, s.cfg), nil
}

// identifyTrips walks the ordered samples once, accumulating moving points
// into the current trip and closing it when the idle gap since the last
// moving sample exceeds the threshold. Trips at or below MinPoints are
// discarded as noise, including the trailing in-progress trip.
func identifyTrips(points []domain.TrackingPoint, cfg TripConfig) []domain.Trip {
	var (
		trips      []domain.Trip
		current    []domain.TrackingPoint
		lastMoving time.Time
	)

	closeCurrent := func() {
		if len(current) > cfg.MinPoints {
			trips = append(trips, buildTrip(current))
		}
		current = nil
	}

	for i := range points {
		p := points[i]

		if p.SpeedKmh > cfg.MovingSpeedKmh {
			if len(current) > 0 && p.Timestamp.Sub(lastMoving) > cfg.IdleGap {
				closeCurrent()
			}
			current = append(current, p)
			lastMoving = p.Timestamp
			continue
		}

		if len(current) > 0 && p.Timestamp.Sub(lastMoving) > cfg.IdleGap {
			closeCurrent()
		}
	}

	closeCurrent()
	return trips
}

func buildTrip(points []domain.TrackingPoint) domain.Trip {
	return domain.Trip{
		StartTime:  points[0].Timestamp,
		EndTime:    points[len(points)-1].Timestamp,
		PointCount: len(points),
		DistanceKm: pathDistanceKm(points),
	}
}

func pathDistanceKm(points []domain.TrackingPoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += geo.HaversineKm(points[i-1].Lat, points[i-1].Lon, points[i].Lat, points[i].Lon)
	}
	return total
}
