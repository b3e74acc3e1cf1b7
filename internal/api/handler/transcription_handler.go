package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BurahnFakhri/audioTranscribe/internal/api/dto"
	"github.com/BurahnFakhri/audioTranscribe/internal/domain"
	"github.com/BurahnFakhri/audioTranscribe/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateTranscription handles POST /api/v1/transcriptions
// Accepts an audio URL and schedules it for asynchronous transcription.
func (h *TranscriptionHandler) CreateTranscription(c *gin.Context) {
	var req dto.CreateTranscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "audioUrl is required",
		})
		return
	}

	rec, err := h.service.Submit(c.Request.Context(), req.AudioURL)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}

		h.logger.Error("Failed to submit transcription", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to submit transcription",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"id":        rec.ID,
			"status":    rec.Status,
			"audioUrl":  rec.AudioURL,
			"createdAt": rec.CreatedAt.Format(time.RFC3339),
		},
	})
}

// GetTranscription handles GET /api/v1/transcriptions/:id
func (h *TranscriptionHandler) GetTranscription(c *gin.Context) {
	id := c.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "id must be a valid UUID",
		})
		return
	}

	rec, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "transcription not found",
			})
			return
		}

		h.logger.Error("Failed to get transcription",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to get transcription",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toDTO(rec),
	})
}

// ListTranscriptions handles GET /api/v1/transcriptions
// Supports page/limit paging plus status, sort, search, and created-at
// range filters.
func (h *TranscriptionHandler) ListTranscriptions(c *gin.Context) {
	var req dto.ListTranscriptionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid query parameters",
		})
		return
	}

	if req.Status != "" && !domain.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "status must be one of pending, processing, completed, failed",
		})
		return
	}

	opts := storage.ListOptions{
		Page:   req.Page,
		Limit:  req.Limit,
		Status: req.Status,
		Sort:   req.Sort,
		Search: req.Search,
	}

	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "from must be an RFC 3339 timestamp",
			})
			return
		}
		opts.From = &from
	}

	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "to must be an RFC 3339 timestamp",
			})
			return
		}
		opts.To = &to
	}

	result, err := h.service.List(c.Request.Context(), opts)
	if err != nil {
		h.logger.Error("Failed to list transcriptions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to list transcriptions",
		})
		return
	}

	items := make([]dto.TranscriptionDTO, len(result.Items))
	for i := range result.Items {
		items[i] = toDTO(&result.Items[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": dto.ListTranscriptionsResponse{
			Items: items,
			Total: result.Total,
			Page:  result.Page,
			Limit: result.Limit,
		},
	})
}

func toDTO(rec *domain.TranscriptionRecord) dto.TranscriptionDTO {
	filePath := ""
	if rec.FilePath.Valid {
		filePath = rec.FilePath.String
	}

	return dto.TranscriptionDTO{
		ID:            rec.ID,
		AudioURL:      rec.AudioURL,
		Status:        rec.Status,
		Transcription: rec.Transcription,
		FilePath:      filePath,
		Attempts:      rec.Attempts,
		Error:         rec.Error,
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     rec.UpdatedAt.Format(time.RFC3339),
	}
}
