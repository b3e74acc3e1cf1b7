package router

import (
	"net/http"

	"github.com/BurahnFakhri/audioTranscribe/internal/api/handler"
	"github.com/BurahnFakhri/audioTranscribe/internal/config"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, rateLimit config.RateLimitConfig) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())
	r.Use(RateLimitMiddleware(rateLimit))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "transcription-api-service",
		})
	})

	transcriptionHandler := handler.NewTranscriptionHandler(deps)

	v1 := r.Group("/api/v1")
	{
		transcriptions := v1.Group("/transcriptions")
		{
			// POST /api/v1/transcriptions - Submit a URL for transcription
			transcriptions.POST("", transcriptionHandler.CreateTranscription)

			// GET /api/v1/transcriptions - List with filtering and pagination
			transcriptions.GET("", transcriptionHandler.ListTranscriptions)

			// GET /api/v1/transcriptions/:id - Get a single transcription
			transcriptions.GET("/:id", transcriptionHandler.GetTranscription)
		}
	}

	return r
}
