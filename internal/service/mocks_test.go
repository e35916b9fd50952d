package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"fleettrack/internal/domain"
	"fleettrack/internal/hub"
)

type mockGeofenceLister struct {
	fences []domain.Geofence
	err    error
}

func (m *mockGeofenceLister) ListActive(_ context.Context, _ string) ([]domain.Geofence, error) {
	return m.fences, m.err
}

type stateUpsert struct {
	vehicleID  string
	geofenceID uuid.UUID
	inside     bool
}

type mockStateStore struct {
	mu      sync.Mutex
	states  map[string]bool
	getErr  map[string]error
	upsErr  map[string]error
	upserts []stateUpsert

	// readDelay widens the window between a State read and the following
	// UpsertState, applied outside the mock's own mutex.
	readDelay time.Duration
}

func newMockStateStore() *mockStateStore {
	return &mockStateStore{
		states: make(map[string]bool),
		getErr: make(map[string]error),
		upsErr: make(map[string]error),
	}
}

func stateKey(vehicleID string, geofenceID uuid.UUID) string {
	return vehicleID + ":" + geofenceID.String()
}

func (m *mockStateStore) State(_ context.Context, _, vehicleID string, geofenceID uuid.UUID) (bool, bool, error) {
	m.mu.Lock()
	key := stateKey(vehicleID, geofenceID)
	err := m.getErr[key]
	inside, found := m.states[key]
	delay := m.readDelay
	m.mu.Unlock()

	if err != nil {
		return false, false, err
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	return inside, found, nil
}

func (m *mockStateStore) UpsertState(_ context.Context, _, vehicleID string, geofenceID uuid.UUID, inside bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stateKey(vehicleID, geofenceID)
	if err := m.upsErr[key]; err != nil {
		return err
	}
	m.states[key] = inside
	m.upserts = append(m.upserts, stateUpsert{vehicleID: vehicleID, geofenceID: geofenceID, inside: inside})
	return nil
}

type publishedEvent struct {
	routingKey string
	payload    any
}

type mockPublisher struct {
	mu        sync.Mutex
	published []publishedEvent
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, routingKey string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, publishedEvent{routingKey: routingKey, payload: payload})
	return nil
}

func (m *mockPublisher) byKey(routingKey string) []publishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []publishedEvent
	for _, e := range m.published {
		if e.routingKey == routingKey {
			out = append(out, e)
		}
	}
	return out
}

type roomEvent struct {
	room  string
	event hub.Event
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []roomEvent
}

func (m *mockBroadcaster) SendToRoom(room string, event hub.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, roomEvent{room: room, event: event})
}

type mockPointStore struct {
	insertFn     func(ctx context.Context, p *domain.TrackingPoint) error
	latestFn     func(ctx context.Context, tenantID, vehicleID string) (*domain.TrackingPoint, error)
	vehicleIDsFn func(ctx context.Context, tenantID string) ([]string, error)
}

func (m *mockPointStore) Insert(ctx context.Context, p *domain.TrackingPoint) error {
	return m.insertFn(ctx, p)
}

func (m *mockPointStore) Latest(ctx context.Context, tenantID, vehicleID string) (*domain.TrackingPoint, error) {
	return m.latestFn(ctx, tenantID, vehicleID)
}

func (m *mockPointStore) VehicleIDs(ctx context.Context, tenantID string) ([]string, error) {
	return m.vehicleIDsFn(ctx, tenantID)
}

type mockRangeStore struct {
	points []domain.TrackingPoint
	err    error
}

func (m *mockRangeStore) Range(_ context.Context, _, _ string, _, _ time.Time) ([]domain.TrackingPoint, error) {
	return m.points, m.err
}

type mockCache struct {
	mu     sync.Mutex
	stored map[string]*domain.TrackingPoint
	setErr error
	getErr error
}

func newMockCache() *mockCache {
	return &mockCache{stored: make(map[string]*domain.TrackingPoint)}
}

func (m *mockCache) SetVehicleLocation(_ context.Context, p *domain.TrackingPoint, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.stored[p.TenantID+":"+p.VehicleID] = p
	return nil
}

func (m *mockCache) GetVehicleLocation(_ context.Context, tenantID, vehicleID string) (*domain.TrackingPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.stored[tenantID+":"+vehicleID], nil
}

type mockChecker struct {
	result *domain.CheckResult
	err    error
	calls  int
}

func (m *mockChecker) CheckPosition(_ context.Context, _ *domain.TrackingPoint) (*domain.CheckResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.CheckResult{}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
