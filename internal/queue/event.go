// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into admin notifications.
package queue

import (
	"time"

	"github.com/iliyamo/script-review-portal/internal/model"
)

// NotificationsQueue is the durable queue carrying NotificationEvent bodies.
const NotificationsQueue = "review.notifications"

// NotificationEvent is published whenever something an admin should see
// happens: a paid script arrives, a script is assigned, a review is completed
// or a contractor applies. It carries everything needed to build the
// dashboard row without querying the primary database.
type NotificationEvent struct {
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	ScriptID   *string   `json:"script_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notification converts the event into the row stored for the dashboard.
func (e NotificationEvent) Notification() *model.Notification {
	return &model.Notification{
		Kind:      e.Kind,
		Title:     e.Title,
		Body:      e.Body,
		ScriptID:  e.ScriptID,
		CreatedAt: e.OccurredAt.UTC().Truncate(time.Second),
	}
}
