package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"Gin_postgres_redis_lendshare/app"
	"Gin_postgres_redis_lendshare/service"

	"github.com/gin-gonic/gin"
)

// respondError 把 service 的错误分类映射成 HTTP 状态码
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrAuthenticationRequired):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "err", err)
		c.JSON(status, app.H{"error": "internal error"})
		return
	}
	c.JSON(status, app.H{"error": service.Message(err)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
}
