package handlers

import (
	"net/http"

	"github.com/Adriano-Lengruber/flowtasks/internal/services"

	"github.com/gin-gonic/gin"
)

// NotificationHandler exposes the per-user notification feed.
type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortUnauthorized(c)
		return
	}
	items, err := h.notifications.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list notifications", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		abortUnauthorized(c)
		return
	}
	id := c.Param("id")
	if err := h.notifications.MarkRead(c.Request.Context(), userID, id); err != nil {
		c.JSON(statusForError(err), ErrorResponse{Error: "Failed to mark notification read", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "read"})
}

// RegisterNotificationRoutes mounts the notification routes.
func RegisterNotificationRoutes(r *gin.RouterGroup, handler *NotificationHandler) {
	n := r.Group("/notifications")
	{
		n.GET("", handler.ListNotifications)
		n.POST(":id/read", handler.MarkRead)
	}
}
