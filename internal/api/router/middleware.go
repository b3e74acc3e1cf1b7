package router

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/BurahnFakhri/audioTranscribe/internal/config"
	"github.com/gin-gonic/gin"
)

// LoggerMiddleware logs HTTP requests with slog
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info("HTTP Request",
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", latency),
			slog.Int("body_size", c.Writer.Size()),
		)

		if len(c.Errors) > 0 {
			for _, e := range c.Errors {
				logger.Error("Request error",
					slog.String("error", e.Error()),
				)
			}
		}
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// rateWindow tracks request counts for one client within the current
// fixed window.
type rateWindow struct {
	count   int
	resetAt time.Time
}

// RateLimitMiddleware applies a per-client-IP fixed-window limit. A zero
// Max disables limiting.
func RateLimitMiddleware(cfg config.RateLimitConfig) gin.HandlerFunc {
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*rateWindow)
	)

	return func(c *gin.Context) {
		if cfg.Max <= 0 {
			c.Next()
			return
		}

		now := time.Now()
		ip := c.ClientIP()

		mu.Lock()
		w, ok := clients[ip]
		if !ok || now.After(w.resetAt) {
			w = &rateWindow{resetAt: now.Add(window)}
			clients[ip] = w
		}
		w.count++
		exceeded := w.count > cfg.Max
		mu.Unlock()

		if exceeded {
			retryAfter := int(window.Seconds())
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"type":       "RATE_LIMIT_EXCEEDED",
					"message":    "Too many requests - please try again later.",
					"retryAfter": strconv.Itoa(retryAfter) + " Seconds",
					"limit":      cfg.Max,
				},
			})
			return
		}

		c.Next()
	}
}
