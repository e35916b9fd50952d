package ingestor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"fleettrack/internal/domain"
)

// topicPattern carries tenant and vehicle in the topic path:
// fleet/<tenant>/vehicle/<vehicle>/location
const topicPattern = "fleet/+/vehicle/+/location"

type PointRecorder interface {
	RecordTrackingPoint(ctx context.Context, p *domain.TrackingPoint) (*domain.TrackingPoint, error)
}

type locationMessage struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	SpeedKmh  float64  `json:"speed_kmh"`
	Heading   float64  `json:"heading"`
	AltitudeM *float64 `json:"altitude_m,omitempty"`
	AccuracyM *float64 `json:"accuracy_m,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// MQTTIngestor subscribes to device location reports and routes them
// through the same recorder the REST path uses.
type MQTTIngestor struct {
	client   mqtt.Client
	recorder PointRecorder
	logger   *slog.Logger

	ready   bool
	readyMu sync.RWMutex
}

func NewMQTTIngestor(client mqtt.Client, recorder PointRecorder, logger *slog.Logger) *MQTTIngestor {
	return &MQTTIngestor{
		client:   client,
		recorder: recorder,
		logger:   logger.With("component", "mqtt_ingestor"),
	}
}

func (i *MQTTIngestor) Start() error {
	token := i.client.Subscribe(topicPattern, 1, i.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe: %w", err)
	}

	i.setReady(true)
	i.logger.Info("subscribed to location topic", "pattern", topicPattern)
	return nil
}

func (i *MQTTIngestor) Stop() {
	i.setReady(false)
	token := i.client.Unsubscribe(topicPattern)
	token.Wait()
}

func (i *MQTTIngestor) IsReady() bool {
	i.readyMu.RLock()
	defer i.readyMu.RUnlock()
	return i.ready
}

func (i *MQTTIngestor) setReady(ready bool) {
	i.readyMu.Lock()
	defer i.readyMu.Unlock()
	i.ready = ready
}

func (i *MQTTIngestor) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	tenantID, vehicleID, err := parseTopic(msg.Topic())
	if err != nil {
		i.logger.Debug("unexpected topic", "topic", msg.Topic(), "error", err)
		return
	}

	var raw locationMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		i.logger.Debug("invalid location message", "topic", msg.Topic(), "error", err)
		return
	}

	if err := validateLocationMessage(&raw); err != nil {
		i.logger.Debug("location message rejected", "topic", msg.Topic(), "error", err)
		return
	}

	point := &domain.TrackingPoint{
		TenantID:  tenantID,
		VehicleID: vehicleID,
		Lat:       raw.Latitude,
		Lon:       raw.Longitude,
		SpeedKmh:  raw.SpeedKmh,
		Heading:   raw.Heading,
		AltitudeM: raw.AltitudeM,
		AccuracyM: raw.AccuracyM,
		Timestamp: time.Unix(raw.Timestamp, 0).UTC(),
	}

	if _, err := i.recorder.RecordTrackingPoint(context.Background(), point); err != nil {
		i.logger.Error("record point failed", "tenant_id", tenantID, "vehicle_id", vehicleID, "error", err)
	}
}

func parseTopic(topic string) (tenantID, vehicleID string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != "fleet" || parts[2] != "vehicle" || parts[4] != "location" {
		return "", "", fmt.Errorf("malformed topic %q", topic)
	}
	if parts[1] == "" || parts[3] == "" {
		return "", "", fmt.Errorf("empty tenant or vehicle in topic %q", topic)
	}
	return parts[1], parts[3], nil
}

func validateLocationMessage(msg *locationMessage) error {
	if msg.Latitude < -90 || msg.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if msg.Longitude < -180 || msg.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	if msg.SpeedKmh < 0 {
		return fmt.Errorf("speed_kmh: must be non-negative")
	}
	if msg.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return nil
}
