package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fleettrack/internal/bus"
	"fleettrack/internal/domain"
	"fleettrack/internal/hub"
)

type PointStore interface {
	Insert(ctx context.Context, p *domain.TrackingPoint) error
	Latest(ctx context.Context, tenantID, vehicleID string) (*domain.TrackingPoint, error)
	VehicleIDs(ctx context.Context, tenantID string) ([]string, error)
}

type LocationCache interface {
	SetVehicleLocation(ctx context.Context, p *domain.TrackingPoint, ttl time.Duration) error
	GetVehicleLocation(ctx context.Context, tenantID, vehicleID string) (*domain.TrackingPoint, error)
}

type PositionChecker interface {
	CheckPosition(ctx context.Context, p *domain.TrackingPoint) (*domain.CheckResult, error)
}

// StatsSink receives operational counters. handler.ServerStats satisfies it.
type StatsSink interface {
	IncPointsRecorded()
	IncAlertsPublished()
	IncCacheHits()
	IncCacheMisses()
}

type RecorderConfig struct {
	SpeedLimitKmh float64
	IdleSpeedKmh  float64
	CacheTTL      time.Duration
}

// Recorder is the live ingestion path: it persists each incoming GPS
// sample and triggers the downstream checks. Only the initial persist is a
// hard requirement; every later step is fire-and-continue.
type Recorder struct {
	points   PointStore
	cache    LocationCache
	checker  PositionChecker
	pub      EventPublisher
	hub      Broadcaster
	notifier *Notifier
	cfg      RecorderConfig
	logger   *slog.Logger
	stats    StatsSink
}

func NewRecorder(points PointStore, cache LocationCache, checker PositionChecker, pub EventPublisher, h Broadcaster, notifier *Notifier, cfg RecorderConfig, logger *slog.Logger) *Recorder {
	return &Recorder{
		points:   points,
		cache:    cache,
		checker:  checker,
		pub:      pub,
		hub:      h,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With("component", "recorder"),
	}
}

// SetStats attaches an optional counter sink.
func (r *Recorder) SetStats(s StatsSink) { r.stats = s }

func (r *Recorder) RecordTrackingPoint(ctx context.Context, p *domain.TrackingPoint) (*domain.TrackingPoint, error) {
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now().UTC()
	}

	if err := r.points.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("persist point: %w", err)
	}
	if r.stats != nil {
		r.stats.IncPointsRecorded()
	}

	if r.cache != nil {
		if err := r.cache.SetVehicleLocation(ctx, p, r.cfg.CacheTTL); err != nil {
			r.logger.Warn("location cache refresh failed", "vehicle_id", p.VehicleID, "error", err)
		}
	}

	r.hub.SendToRoom(hub.VehicleRoom(p.TenantID, p.VehicleID), hub.Event{Type: "location", Payload: p})
	r.hub.SendToRoom(hub.FleetRoom(p.TenantID), hub.Event{Type: "location", Payload: p})

	if err := r.pub.Publish(ctx, bus.KeyLocationUpdated, p); err != nil {
		r.logger.Warn("location event publish failed", "vehicle_id", p.VehicleID, "error", err)
	}

	if p.SpeedKmh > r.cfg.SpeedLimitKmh {
		r.notifier.EmitAlert(ctx, &domain.Alert{
			Kind:      domain.AlertSpeeding,
			TenantID:  p.TenantID,
			VehicleID: p.VehicleID,
			Message:   fmt.Sprintf("speed %.1f km/h exceeds limit %.1f km/h", p.SpeedKmh, r.cfg.SpeedLimitKmh),
			Value:     p.SpeedKmh - r.cfg.SpeedLimitKmh,
			Point:     p,
			At:        time.Now().UTC(),
		})
	}

	if p.SpeedKmh < r.cfg.IdleSpeedKmh {
		r.notifier.EmitAlert(ctx, &domain.Alert{
			Kind:      domain.AlertIdling,
			TenantID:  p.TenantID,
			VehicleID: p.VehicleID,
			Message:   "vehicle idling",
			Value:     p.SpeedKmh,
			Point:     p,
			At:        time.Now().UTC(),
		})
	}

	if _, err := r.checker.CheckPosition(ctx, p); err != nil {
		r.logger.Warn("geofence check failed", "vehicle_id", p.VehicleID, "error", err)
	}

	return p, nil
}

// GetVehicleLocation reads cache-first, falling back to the most recent
// stored point on a miss and repopulating the cache. Cache errors count as
// misses, never as request failures.
func (r *Recorder) GetVehicleLocation(ctx context.Context, tenantID, vehicleID string) (*domain.TrackingPoint, error) {
	if r.cache != nil {
		cached, err := r.cache.GetVehicleLocation(ctx, tenantID, vehicleID)
		if err != nil {
			r.logger.Warn("location cache read failed", "vehicle_id", vehicleID, "error", err)
		} else if cached != nil {
			if r.stats != nil {
				r.stats.IncCacheHits()
			}
			return cached, nil
		}
		if r.stats != nil {
			r.stats.IncCacheMisses()
		}
	}

	p, err := r.points.Latest(ctx, tenantID, vehicleID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetVehicleLocation(ctx, p, r.cfg.CacheTTL); err != nil {
			r.logger.Warn("location cache repopulate failed", "vehicle_id", vehicleID, "error", err)
		}
	}
	return p, nil
}

// GetFleetLocations resolves the last known location of every vehicle in
// the tenant's roster. Vehicles with nothing on record stay in the total
// but are left out of the list.
func (r *Recorder) GetFleetLocations(ctx context.Context, tenantID string) (*domain.FleetSnapshot, error) {
	ids, err := r.points.VehicleIDs(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("fleet roster: %w", err)
	}

	snapshot := &domain.FleetSnapshot{
		TotalVehicles: len(ids),
		Locations:     make([]*domain.TrackingPoint, 0, len(ids)),
	}

	for _, id := range ids {
		p, err := r.GetVehicleLocation(ctx, tenantID, id)
		if err != nil {
			continue
		}
		snapshot.Locations = append(snapshot.Locations, p)
	}
	snapshot.LocationsFound = len(snapshot.Locations)

	return snapshot, nil
}
