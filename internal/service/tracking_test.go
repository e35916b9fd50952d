package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleettrack/internal/bus"
	"fleettrack/internal/domain"
	"fleettrack/internal/hub"
)

func testRecorderConfig() RecorderConfig {
	return RecorderConfig{
		SpeedLimitKmh: 120,
		IdleSpeedKmh:  5,
		CacheTTL:      5 * time.Minute,
	}
}

func sample(speed float64) *domain.TrackingPoint {
	return &domain.TrackingPoint{
		TenantID:  "t1",
		VehicleID: "V1",
		Lat:       41.0,
		Lon:       29.0,
		SpeedKmh:  speed,
		Timestamp: time.Unix(1700000000, 0),
	}
}

func newRecorder(points PointStore, cache LocationCache, checker PositionChecker) (*Recorder, *mockPublisher, *mockBroadcaster) {
	pub := &mockPublisher{}
	bc := &mockBroadcaster{}
	notifier := NewNotifier(pub, discardLogger())
	rec := NewRecorder(points, cache, checker, pub, bc, notifier, testRecorderConfig(), discardLogger())
	return rec, pub, bc
}

func TestRecordTrackingPoint_PersistFailureIsHard(t *testing.T) {
	points := &mockPointStore{
		insertFn: func(_ context.Context, _ *domain.TrackingPoint) error {
			return errors.New("insert failed")
		},
	}
	checker := &mockChecker{}
	rec, pub, _ := newRecorder(points, newMockCache(), checker)

	_, err := rec.RecordTrackingPoint(context.Background(), sample(50))
	require.Error(t, err)

	// Nothing downstream runs when the persist fails.
	assert.Empty(t, pub.published)
	assert.Zero(t, checker.calls)
}

func TestRecordTrackingPoint_HappyPath(t *testing.T) {
	var inserted *domain.TrackingPoint
	points := &mockPointStore{
		insertFn: func(_ context.Context, p *domain.TrackingPoint) error {
			inserted = p
			return nil
		},
	}
	cache := newMockCache()
	checker := &mockChecker{}
	rec, pub, bc := newRecorder(points, cache, checker)

	stored, err := rec.RecordTrackingPoint(context.Background(), sample(50))
	require.NoError(t, err)
	require.NotNil(t, inserted)
	assert.False(t, stored.RecordedAt.IsZero())

	// Cache refreshed, rooms notified, location event published,
	// geofences checked.
	assert.NotNil(t, cache.stored["t1:V1"])
	require.Len(t, pub.byKey(bus.KeyLocationUpdated), 1)
	assert.Equal(t, 1, checker.calls)

	rooms := make(map[string]bool)
	for _, e := range bc.events {
		rooms[e.room] = true
	}
	assert.True(t, rooms[hub.VehicleRoom("t1", "V1")])
	assert.True(t, rooms[hub.FleetRoom("t1")])

	// Cruising speed: no speeding, no idling.
	assert.Empty(t, pub.byKey(bus.KeySpeeding))
	assert.Empty(t, pub.byKey(bus.KeyIdling))
}

func TestRecordTrackingPoint_SpeedingEventCarriesExcess(t *testing.T) {
	points := &mockPointStore{
		insertFn: func(_ context.Context, _ *domain.TrackingPoint) error { return nil },
	}
	rec, pub, _ := newRecorder(points, newMockCache(), &mockChecker{})

	_, err := rec.RecordTrackingPoint(context.Background(), sample(130))
	require.NoError(t, err)

	events := pub.byKey(bus.KeySpeeding)
	require.Len(t, events, 1)
	alert, ok := events[0].payload.(*domain.Alert)
	require.True(t, ok)
	assert.Equal(t, domain.AlertSpeeding, alert.Kind)
	assert.InDelta(t, 10.0, alert.Value, 1e-9)
}

func TestRecordTrackingPoint_IdlingEvent(t *testing.T) {
	points := &mockPointStore{
		insertFn: func(_ context.Context, _ *domain.TrackingPoint) error { return nil },
	}
	rec, pub, _ := newRecorder(points, newMockCache(), &mockChecker{})

	_, err := rec.RecordTrackingPoint(context.Background(), sample(2))
	require.NoError(t, err)

	require.Len(t, pub.byKey(bus.KeyIdling), 1)
	assert.Empty(t, pub.byKey(bus.KeySpeeding))
}

func TestRecordTrackingPoint_CacheFailureIsSoft(t *testing.T) {
	points := &mockPointStore{
		insertFn: func(_ context.Context, _ *domain.TrackingPoint) error { return nil },
	}
	cache := newMockCache()
	cache.setErr = errors.New("redis down")
	checker := &mockChecker{}
	rec, _, _ := newRecorder(points, cache, checker)

	_, err := rec.RecordTrackingPoint(context.Background(), sample(50))
	require.NoError(t, err)
	assert.Equal(t, 1, checker.calls)
}

func TestGetVehicleLocation_CacheFirst(t *testing.T) {
	cached := sample(40)
	cache := newMockCache()
	cache.stored["t1:V1"] = cached

	points := &mockPointStore{
		latestFn: func(_ context.Context, _, _ string) (*domain.TrackingPoint, error) {
			t.Fatal("store should not be hit on a cache hit")
			return nil, nil
		},
	}
	rec, _, _ := newRecorder(points, cache, &mockChecker{})

	p, err := rec.GetVehicleLocation(context.Background(), "t1", "V1")
	require.NoError(t, err)
	assert.Equal(t, cached, p)
}

func TestGetVehicleLocation_MissFallsBackAndRepopulates(t *testing.T) {
	latest := sample(40)
	cache := newMockCache()
	points := &mockPointStore{
		latestFn: func(_ context.Context, _, _ string) (*domain.TrackingPoint, error) {
			return latest, nil
		},
	}
	rec, _, _ := newRecorder(points, cache, &mockChecker{})

	p, err := rec.GetVehicleLocation(context.Background(), "t1", "V1")
	require.NoError(t, err)
	assert.Equal(t, latest, p)
	assert.Equal(t, latest, cache.stored["t1:V1"])
}

func TestGetVehicleLocation_CacheErrorDegradesToStore(t *testing.T) {
	latest := sample(40)
	cache := newMockCache()
	cache.getErr = errors.New("redis down")
	points := &mockPointStore{
		latestFn: func(_ context.Context, _, _ string) (*domain.TrackingPoint, error) {
			return latest, nil
		},
	}
	rec, _, _ := newRecorder(points, cache, &mockChecker{})

	p, err := rec.GetVehicleLocation(context.Background(), "t1", "V1")
	require.NoError(t, err)
	assert.Equal(t, latest, p)
}

func TestGetVehicleLocation_NotFound(t *testing.T) {
	points := &mockPointStore{
		latestFn: func(_ context.Context, _, _ string) (*domain.TrackingPoint, error) {
			return nil, domain.ErrNotFound
		},
	}
	rec, _, _ := newRecorder(points, newMockCache(), &mockChecker{})

	_, err := rec.GetVehicleLocation(context.Background(), "t1", "V1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetFleetLocations_MissingVehiclesCountedNotListed(t *testing.T) {
	points := &mockPointStore{
		vehicleIDsFn: func(_ context.Context, _ string) ([]string, error) {
			return []string{"V1", "V2", "V3"}, nil
		},
		latestFn: func(_ context.Context, _, vehicleID string) (*domain.TrackingPoint, error) {
			if vehicleID == "V2" {
				return nil, domain.ErrNotFound
			}
			p := sample(30)
			p.VehicleID = vehicleID
			return p, nil
		},
	}
	rec, _, _ := newRecorder(points, newMockCache(), &mockChecker{})

	snap, err := rec.GetFleetLocations(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, 3, snap.TotalVehicles)
	assert.Equal(t, 2, snap.LocationsFound)
	require.Len(t, snap.Locations, 2)
}
