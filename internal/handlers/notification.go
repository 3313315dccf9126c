package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/notify"
)

const wsWriteTimeout = 5 * time.Second

// NotificationHandler streams notifications to connected clients.
type NotificationHandler struct {
	hub            *notify.Hub
	originPatterns []string
}

func NewNotificationHandler(hub *notify.Hub, originPatterns ...string) *NotificationHandler {
	return &NotificationHandler{hub: hub, originPatterns: originPatterns}
}

// topicsFor lists what a principal receives: its own events and, for org
// admins, the events addressed to the admins of their tenant.
func topicsFor(p authz.Principal) []string {
	topics := []string{notify.UserTopic(p.ID)}
	if home, ok := p.HomeTenant(); ok && p.Role == authz.RoleOrgAdmin {
		topics = append(topics, notify.TenantAdminsTopic(home))
	}
	return topics
}

// Stream upgrades the request to a websocket and forwards events until either
// side goes away.
func (h *NotificationHandler) Stream(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		slog.WarnContext(c.Request.Context(), "websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.CloseNow()

	// CloseRead discards client messages and cancels ctx once the peer closes.
	ctx, cancel := context.WithCancel(conn.CloseRead(c.Request.Context()))
	defer cancel()

	events := h.hub.Subscribe(ctx, topicsFor(actor.Principal)...)
	_ = wsjson.Write(ctx, conn, notify.Event{Type: notify.EventReady, Timestamp: time.Now().UTC()})

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case evt, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, wsWriteTimeout)
			err := wsjson.Write(writeCtx, conn, evt)
			cancelWrite()
			if err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}
