package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/model"
	"github.com/iliyamo/script-review-portal/internal/queue"
	"github.com/iliyamo/script-review-portal/internal/stream"
)

// NotificationReader is the admin inbox.
type NotificationReader interface {
	List(ctx context.Context, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id uint64) error
	MarkAllRead(ctx context.Context) error
}

// NotificationHandler serves the inbox and its live stream.
type NotificationHandler struct {
	Store NotificationReader
	Hub   *stream.Hub
	Log   *zap.Logger
}

// List GET /v1/admin/notifications?unread=1&limit=
func (h *NotificationHandler) List(c echo.Context) error {
	limit, _ := pageParams(c)
	list, err := h.Store.List(c.Request().Context(), c.QueryParam("unread") == "1", limit)
	if err != nil {
		return fail(c, h.Log, "list notifications", err)
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list, "unread": unread})
}

// MarkRead POST /v1/admin/notifications/:id/read
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid id")
	}
	if err := h.Store.MarkRead(c.Request().Context(), id); err != nil {
		return fail(c, h.Log, "mark notification read", err)
	}
	h.changed()
	return c.NoContent(http.StatusNoContent)
}

// MarkAllRead POST /v1/admin/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	if err := h.Store.MarkAllRead(c.Request().Context()); err != nil {
		return fail(c, h.Log, "mark notifications read", err)
	}
	h.changed()
	return c.NoContent(http.StatusNoContent)
}

// Stream GET /v1/admin/stream upgrades to a websocket that receives a
// "changed" event whenever the inbox changes.
func (h *NotificationHandler) Stream(c echo.Context) error {
	if h.Hub == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "stream unavailable"})
	}
	if err := h.Hub.ServeWS(c.Response(), c.Request()); err != nil {
		h.Log.Debug("stream upgrade failed", zap.Error(err))
	}
	return nil
}

func (h *NotificationHandler) changed() {
	if h.Hub != nil {
		h.Hub.Broadcast(stream.Event{Type: queue.ChangedEvent})
	}
}
