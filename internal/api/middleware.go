package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"aurorachat/internal/logging"
	"aurorachat/internal/models"
)

const headerRequestID = "X-Request-ID"

// requestID reuses the caller's X-Request-ID or generates one, echoes it back
// and stores it on the request context for logging.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		log := logging.WithCtx(c.Request.Context())
		if c.Request.URL.Path == "/health" {
			log.Debug("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

// recovery keeps the JSON reply contract when a handler panics.
func recovery(reply string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logging.WithCtx(c.Request.Context()).Error("handler panic",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, models.ChatResponse{Reply: reply})
			}
		}()
		c.Next()
	}
}
