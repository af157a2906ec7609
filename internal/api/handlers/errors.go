package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/nif-lookup/internal/models"
)

func abortWithError(c *gin.Context, status int, title, message, code string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error:     title,
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}
