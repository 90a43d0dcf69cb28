// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"time"

	"github.com/DmitriyKrasnyh/BizIdeasProject/pkg/log"
	"github.com/gin-gonic/gin"
)

// RequestLogger 是一个 Gin 中间件，记录补全服务的请求日志。
// 提示词和生成文本可能很大，这里只记录元信息，不记录请求/响应体。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		log.Infow("HTTP Request Log",
			"statusCode", c.Writer.Status(),
			"latency", latency.String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"responseSize", c.Writer.Size(),
		)
	}
}
