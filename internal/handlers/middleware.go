package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xpanvictor/ava/internal/domains/pipeline"
	"github.com/xpanvictor/ava/pkg/Logger"
)

const (
	DeviceCookieName = "ava_device_id"
	deviceContextKey = "deviceID"
	// roughly ten years
	deviceCookieMaxAge = 10 * 365 * 24 * 60 * 60
)

// DeviceCookieMiddleware makes sure every request carries a device id. A
// fresh id is visible to the handler of the same request that minted it.
func DeviceCookieMiddleware(logger *Logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID, err := c.Cookie(DeviceCookieName)
		if err != nil || strings.TrimSpace(deviceID) == "" {
			deviceID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(DeviceCookieName, deviceID, deviceCookieMaxAge, "/", "", false, true)
			logger.Debugf("issued device id %s", deviceID)
		}
		c.Set(deviceContextKey, deviceID)
		c.Next()
	}
}

// CORSMiddleware handles CORS headers. Cross-origin callers get their own
// origin echoed back with credentials allowed.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		} else {
			c.Header("Access-Control-Allow-Origin", "*")
		}
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestLoggerMiddleware logs incoming requests
func RequestLoggerMiddleware(logger *Logger.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		logger.Infow("request",
			"method", param.Method,
			"path", param.Path,
			"status", param.StatusCode,
			"latency", param.Latency,
			"client", param.ClientIP,
		)
		return ""
	})
}

// ErrorHandlerMiddleware handles panics and errors
func ErrorHandlerMiddleware(logger *Logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Errorf("Panic recovered: %v", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Internal server error",
			Code:  pipeline.CodeInternal,
		})
	})
}
