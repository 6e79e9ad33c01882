package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ayudas-panel/internal/models"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
	"github.com/noah-isme/ayudas-panel/pkg/response"
)

type notificationFeed interface {
	Active() []models.Notification
	Dismiss(id string) bool
}

// NotificationHandler exposes the operator alerts.
type NotificationHandler struct {
	feed notificationFeed
}

// NewNotificationHandler constructs a NotificationHandler.
func NewNotificationHandler(feed notificationFeed) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

// List godoc
// @Summary Active notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.feed.Active(), nil)
}

// Dismiss godoc
// @Summary Dismiss a notification
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204 {object} response.Envelope
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Dismiss(c *gin.Context) {
	if !h.feed.Dismiss(c.Param("id")) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "notificación no encontrada"))
		return
	}
	response.NoContent(c)
}
