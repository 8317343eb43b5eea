package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orbitapp/backend/internal/application/services"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List supports ?unread=true and ?limit=N.
func (h *NotificationHandler) List(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	unreadOnly := c.Query("unread") == "true"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	items, err := h.notifications.List(c.Request.Context(), session.ID, unreadOnly, limit)
	HandleGet(c, items, err)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	count, err := h.notifications.UnreadCount(c.Request.Context(), session.ID)
	HandleGet(c, gin.H{"count": count}, err)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), session.ID); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	session, err := GetUserFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	n, err := h.notifications.MarkAllRead(c.Request.Context(), session.ID)
	HandleGet(c, gin.H{"marked": n}, err)
}
