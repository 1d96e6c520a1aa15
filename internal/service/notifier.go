package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/queue"
	"github.com/iliyamo/script-review-portal/internal/stream"
)

// EventPublisher sends notification events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.NotificationEvent) error
}

// NotificationStore persists dashboard notifications.
type NotificationStore interface {
	Insert(ctx context.Context, n *model.Notification) error
}

// Notifier records admin notifications. Events go through the broker when
// one is configured; when publishing fails the row is written directly.
// Failures never reach the caller.
type Notifier struct {
	Publisher EventPublisher
	Store     NotificationStore
	Hub       queue.Broadcaster
	Log       *zap.Logger
}

// Notify records ev.
func (n *Notifier) Notify(ctx context.Context, ev queue.NotificationEvent) {
	if n == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if n.Publisher != nil {
		if err := n.Publisher.Publish(ctx, ev); err == nil {
			return
		}
	}
	row := ev.Notification()
	if err := n.Store.Insert(ctx, row); err != nil {
		n.Log.Error("notify: insert failed", zap.String("kind", ev.Kind), zap.Error(err))
		return
	}
	if n.Hub != nil {
		n.Hub.Broadcast(stream.Event{Type: queue.ChangedEvent, ID: row.ID})
	}
}

func scriptEvent(kind, title string, s *model.Script) queue.NotificationEvent {
	id := s.ID
	return queue.NotificationEvent{Kind: kind, Title: title, Body: s.Title + " by " + s.AuthorName, ScriptID: &id}
}

func queueEvent(kind, title, body string) queue.NotificationEvent {
	return queue.NotificationEvent{Kind: kind, Title: title, Body: body}
}
