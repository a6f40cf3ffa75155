package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/bookings/internal/models"
)

func ListNotifications(n NotificationReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		notifications, err := n.FindByUserID(c.Request.Context(), user.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(notifications, ""))
	}
}

func MarkNotificationRead(n NotificationReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		notification, err := n.MarkRead(c.Request.Context(), pathID(c, "id"), user.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(notification, ""))
	}
}
