package api

import (
	"net/http"

	"repairkb/internal/entity"

	"github.com/gin-gonic/gin"
)

// respondSuccess 以统一信封返回成功响应。
func respondSuccess(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, entity.Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// respondError 以统一信封返回失败响应，data 恒为 null。
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, entity.Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// abortError 与 respondError 相同，但终止后续处理链。
func abortError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, entity.Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}
