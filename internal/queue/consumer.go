package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/stream"
)

// Store persists notifications.
type Store interface {
	Insert(ctx context.Context, n *model.Notification) error
}

// Broadcaster tells connected dashboards that the list changed.
type Broadcaster interface {
	Broadcast(ev stream.Event)
}

// ChangedEvent is the push frame type sent after a notification is stored.
const ChangedEvent = "notifications.changed"

// Consumer reads NotificationEvents, stores them and pushes a change event.
type Consumer struct {
	URL   string
	Store Store
	Hub   Broadcaster
	Log   *zap.Logger

	// NewBackOff overrides the reconnect policy (tests).
	NewBackOff func() backoff.BackOff
}

// Run connects and consumes until ctx is cancelled, reconnecting with
// exponential backoff whenever the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	newBO := c.NewBackOff
	if newBO == nil {
		newBO = func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = 0
			return bo
		}
	}
	for {
		bo := backoff.WithContext(newBO(), ctx)
		var conn *amqp.Connection
		err := backoff.RetryNotify(func() error {
			var err error
			conn, err = amqp.Dial(c.URL)
			return err
		}, bo, func(err error, wait time.Duration) {
			c.Log.Warn("notification-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", wait))
		})
		if err != nil {
			return ctx.Err()
		}
		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("notification-consumer: consume loop ended, reconnecting", zap.Error(err))
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("notification-consumer: set QoS failed", zap.Error(err))
	}
	if _, err := declare(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(NotificationsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				c.Log.Error("notification-consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle stores one event body and broadcasts the change.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Kind == "" {
		return errors.New("event without kind")
	}
	n := ev.Notification()
	if err := c.Store.Insert(ctx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	if c.Hub != nil {
		c.Hub.Broadcast(stream.Event{Type: ChangedEvent, ID: n.ID})
	}
	return nil
}
