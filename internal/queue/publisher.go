package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends events to RabbitMQ, dialing once per publish.
type Publisher struct {
	URL string
	Log *zap.Logger
}

// NewPublisher returns a publisher for url.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{URL: url, Log: log}
}

// Publish sends ev to the notifications queue as a persistent message. Errors
// are logged and returned so the caller can fall back.
func (p *Publisher) Publish(ctx context.Context, ev NotificationEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Log.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := declare(ch); err != nil {
		p.Log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", NotificationsQueue, false, false, pub); err != nil {
		p.Log.Warn("rabbitmq: publish failed", zap.Error(err), zap.String("kind", ev.Kind))
		return err
	}
	return nil
}

func declare(ch *amqp.Channel) (amqp.Queue, error) {
	return ch.QueueDeclare(
		NotificationsQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
}
