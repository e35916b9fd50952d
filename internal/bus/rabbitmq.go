package bus

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeName = "fleet.events"

// Routing keys for the fleet.events topic exchange.
const (
	KeyGeofenceEntered = "geofence.entered"
	KeyGeofenceExited  = "geofence.exited"
	KeySpeeding        = "vehicle.speeding"
	KeyIdling          = "vehicle.idling"
	KeyLocationUpdated = "vehicle.location.updated"
	KeySLAAlert        = "sla.alert"
)

// Publisher is a fire-and-forget JSON publisher on the fleet.events topic
// exchange. Delivery guarantees beyond that belong to the broker.
type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}
