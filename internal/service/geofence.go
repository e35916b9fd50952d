package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"

	"fleettrack/internal/bus"
	"fleettrack/internal/domain"
	"fleettrack/internal/geo"
	"fleettrack/internal/hub"
)

type GeofenceLister interface {
	ListActive(ctx context.Context, tenantID string) ([]domain.Geofence, error)
}

type StateStore interface {
	State(ctx context.Context, tenantID, vehicleID string, geofenceID uuid.UUID) (inside bool, found bool, err error)
	UpsertState(ctx context.Context, tenantID, vehicleID string, geofenceID uuid.UUID, inside bool) error
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Broadcaster interface {
	SendToRoom(room string, event hub.Event)
}

// GeofenceEngine evaluates vehicle positions against a tenant's active
// geofences and detects entry/exit transitions against the stored state.
type GeofenceEngine struct {
	geofences GeofenceLister
	states    StateStore
	publisher EventPublisher
	hub       Broadcaster
	logger    *slog.Logger

	// locks serializes the state read-modify-write per (vehicle, geofence)
	// so concurrent samples for the same vehicle emit at most one
	// transition per actual boundary crossing. One mutex per observed
	// (tenant, vehicle, geofence) key, held for the process lifetime:
	// evicting an entry while a goroutine holds it would let a second
	// goroutine mint a fresh mutex for the same key.
	locks cmap.ConcurrentMap[string, *sync.Mutex]
}

func NewGeofenceEngine(geofences GeofenceLister, states StateStore, publisher EventPublisher, h Broadcaster, logger *slog.Logger) *GeofenceEngine {
	return &GeofenceEngine{
		geofences: geofences,
		states:    states,
		publisher: publisher,
		hub:       h,
		logger:    logger.With("component", "geofence_engine"),
		locks:     cmap.New[*sync.Mutex](),
	}
}

// CheckPosition scans every active geofence of the tenant. A storage error
// on one geofence is logged and skipped; the remaining fences are still
// evaluated and whatever transitions succeeded are returned.
func (e *GeofenceEngine) CheckPosition(ctx context.Context, p *domain.TrackingPoint) (*domain.CheckResult, error) {
	fences, err := e.geofences.ListActive(ctx, p.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list geofences: %w", err)
	}

	result := &domain.CheckResult{}
	for i := range fences {
		transition, err := e.checkOne(ctx, &fences[i], p)
		if err != nil {
			e.logger.Error("geofence check failed",
				"geofence_id", fences[i].ID,
				"vehicle_id", p.VehicleID,
				"error", err,
			)
			continue
		}

		result.CheckedCount++
		if transition != nil {
			result.Transitions = append(result.Transitions, *transition)
			e.emit(ctx, transition)
		}
	}

	return result, nil
}

func (e *GeofenceEngine) checkOne(ctx context.Context, gf *domain.Geofence, p *domain.TrackingPoint) (*domain.Transition, error) {
	isInside, err := geo.ShapeContains(gf.Shape, p.Lat, p.Lon)
	if err != nil {
		return nil, err
	}

	mu := e.lockFor(stateLockKey(p.TenantID, p.VehicleID, gf.ID))
	mu.Lock()
	defer mu.Unlock()

	wasInside, known, err := e.states.State(ctx, p.TenantID, p.VehicleID, gf.ID)
	if err != nil {
		return nil, err
	}
	// Absent state means "outside": a vehicle's first observation inside a
	// fence establishes baseline without firing an entry alert.
	wasInside = known && wasInside

	var transition *domain.Transition
	switch {
	case isInside && !wasInside && gf.AlertOnEntry:
		transition = newTransition(domain.TransitionEntered, gf, p)
	case !isInside && wasInside && gf.AlertOnExit:
		transition = newTransition(domain.TransitionExited, gf, p)
	}

	// State is overwritten on every check, whether or not an alert fired.
	if err := e.states.UpsertState(ctx, p.TenantID, p.VehicleID, gf.ID, isInside); err != nil {
		return nil, err
	}

	return transition, nil
}

func (e *GeofenceEngine) emit(ctx context.Context, t *domain.Transition) {
	routingKey := bus.KeyGeofenceEntered
	if t.Type == domain.TransitionExited {
		routingKey = bus.KeyGeofenceExited
	}

	if err := e.publisher.Publish(ctx, routingKey, t); err != nil {
		e.logger.Error("transition publish failed",
			"geofence_id", t.GeofenceID,
			"vehicle_id", t.VehicleID,
			"error", err,
		)
	}

	e.hub.SendToRoom(hub.FleetRoom(t.TenantID), hub.Event{Type: "geofence." + string(t.Type), Payload: t})
	e.hub.SendToRoom(hub.VehicleRoom(t.TenantID, t.VehicleID), hub.Event{Type: "geofence." + string(t.Type), Payload: t})
}

func (e *GeofenceEngine) lockFor(key string) *sync.Mutex {
	if mu, ok := e.locks.Get(key); ok {
		return mu
	}
	e.locks.SetIfAbsent(key, &sync.Mutex{})
	mu, _ := e.locks.Get(key)
	return mu
}

func stateLockKey(tenantID, vehicleID string, geofenceID uuid.UUID) string {
	return tenantID + ":" + vehicleID + ":" + geofenceID.String()
}

func newTransition(tt domain.TransitionType, gf *domain.Geofence, p *domain.TrackingPoint) *domain.Transition {
	return &domain.Transition{
		Type:         tt,
		TenantID:     p.TenantID,
		VehicleID:    p.VehicleID,
		GeofenceID:   gf.ID,
		GeofenceName: gf.Name,
		Point:        *p,
		At:           time.Now().UTC(),
	}
}
