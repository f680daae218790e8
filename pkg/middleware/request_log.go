package middleware

import (
	"time"

	constants "voiary/pkg/constant"
	"voiary/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mssola/user_agent"
	"go.uber.org/zap"
)

// RequestLog 记录每个请求的访问日志，并补全请求链路 ID
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(constants.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(constants.RequestIDHeader, requestID)

		c.Next()

		ua := user_agent.New(c.GetHeader("User-Agent"))
		browser, version := ua.Browser()

		logger.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("os", ua.OS()),
			zap.String("browser", browser+" "+version),
		)
	}
}
