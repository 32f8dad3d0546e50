package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/uno-server/internal/errors"
	"github.com/wfunc/uno-server/internal/logger"
)

// RequestLogger 记录每个HTTP请求
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.LogRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}

// Recovery 捕获panic并返回统一的错误格式
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.LogPanic(r, debug.Stack())
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					apperrors.NewErrorResponse(apperrors.New(apperrors.ErrUnknown), c.GetHeader("X-Request-ID")))
			}
		}()
		c.Next()
	}
}
