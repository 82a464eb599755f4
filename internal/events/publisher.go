package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQPublisher struct {
	client *RabbitMQ
}

func NewRabbitMQPublisher(client *RabbitMQ) *RabbitMQPublisher {
	return &RabbitMQPublisher{client: client}
}

func (p *RabbitMQPublisher) PublishConfigured(ctx context.Context, event ConfigEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid config event: %w", err)
	}
	return p.publish(ctx, KindConfigured, event.AppID, event.EventID, event)
}

func (p *RabbitMQPublisher) PublishRemoved(ctx context.Context, event ConfigEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid config event: %w", err)
	}
	return p.publish(ctx, KindRemoved, event.AppID, event.EventID, event)
}

func (p *RabbitMQPublisher) PublishStatusChanged(ctx context.Context, event StatusEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid status event: %w", err)
	}
	return p.publish(ctx, KindStatusChanged, event.AppID, event.EventID, event)
}

func (p *RabbitMQPublisher) publish(ctx context.Context, kind Kind, appID, eventID string, payload any) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is not initialized")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", kind, err)
	}

	ch, err := p.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    eventID,
		Type:         string(kind),
		Body:         body,
	}

	routingKey := RoutingKey(kind, appID)
	if err := ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish %s event for app %q: %w", kind, appID, err)
	}

	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
