package controllers

import (
	"net/http"

	"Gin_postgres_redis_lendshare/app"

	"github.com/gin-gonic/gin"
)

type NotificationController struct{ *Srv }

func NewNotificationController(s *Srv) *NotificationController {
	return &NotificationController{Srv: s}
}

// GET /notifications?filter=all|read|unread&page=&size=
func (nc *NotificationController) List(c *gin.Context) {
	page, size := pageParams(c)
	res, err := nc.Core.Notifications.List(c.Request.Context(), currentUserID(c), c.Query("filter"), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (nc *NotificationController) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := nc.Core.Notifications.MarkRead(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	n, err := nc.Core.Notifications.MarkAllRead(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"updated_count": n})
}
