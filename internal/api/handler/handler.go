package handler

import (
	"context"
	"log/slog"

	"github.com/BurahnFakhri/audioTranscribe/internal/domain"
	"github.com/BurahnFakhri/audioTranscribe/internal/service"
	"github.com/BurahnFakhri/audioTranscribe/internal/storage"
)

// TranscriptionService is the application surface the handlers call.
// Satisfied by *service.TranscriptionService.
type TranscriptionService interface {
	Submit(ctx context.Context, audioURL string) (*domain.TranscriptionRecord, error)
	Get(ctx context.Context, id string) (*domain.TranscriptionRecord, error)
	List(ctx context.Context, opts storage.ListOptions) (*service.ListResult, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger  *slog.Logger
	Service TranscriptionService
}

// TranscriptionHandler handles transcription HTTP requests
type TranscriptionHandler struct {
	logger  *slog.Logger
	service TranscriptionService
}

// NewTranscriptionHandler creates a new TranscriptionHandler instance
func NewTranscriptionHandler(deps *Dependencies) *TranscriptionHandler {
	return &TranscriptionHandler{
		logger:  deps.Logger,
		service: deps.Service,
	}
}
