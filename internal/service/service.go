// Package service exposes the write and read paths of the transcription
// API: submission (create record + enqueue job) and listing.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/BurahnFakhri/audioTranscribe/internal/domain"
	"github.com/BurahnFakhri/audioTranscribe/internal/queue"
	"github.com/BurahnFakhri/audioTranscribe/internal/storage"
	"github.com/google/uuid"
)

// RecordStore is the slice of the record store the service needs.
type RecordStore interface {
	CreateRecord(ctx context.Context, rec *domain.TranscriptionRecord) error
	GetRecord(ctx context.Context, id string) (*domain.TranscriptionRecord, error)
	ListRecords(ctx context.Context, opts storage.ListOptions) ([]domain.TranscriptionRecord, int, error)
}

// ListResult is one page of records plus the paging echo.
type ListResult struct {
	Items []domain.TranscriptionRecord
	Total int
	Page  int
	Limit int
}

// TranscriptionService is the only write path into the pipeline from
// outside: it creates the record and schedules the job, never blocking on
// job execution.
type TranscriptionService struct {
	store    RecordStore
	enqueuer queue.Enqueuer
	policy   queue.RetryPolicy
	logger   *slog.Logger
}

// NewTranscriptionService wires the service. A zero policy falls back to
// the default 3-attempt, 30s-base schedule.
func NewTranscriptionService(store RecordStore, enqueuer queue.Enqueuer, policy queue.RetryPolicy, logger *slog.Logger) *TranscriptionService {
	if policy.MaxAttempts <= 0 || policy.BaseDelay <= 0 {
		policy = queue.DefaultRetryPolicy()
	}

	return &TranscriptionService{
		store:    store,
		enqueuer: enqueuer,
		policy:   policy,
		logger:   logger,
	}
}

// Submit validates audioURL, inserts a pending record, and enqueues its
// job. If the enqueue fails the record stays pending with no scheduled
// job; such records are findable through ListRecords for an external
// sweep to resubmit.
func (s *TranscriptionService) Submit(ctx context.Context, audioURL string) (*domain.TranscriptionRecord, error) {
	if err := validateAudioURL(audioURL); err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &domain.TranscriptionRecord{
		ID:        uuid.New().String(),
		AudioURL:  audioURL,
		Status:    domain.StatusPending,
		Attempts:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create transcription record: %w", err)
	}

	payload := queue.JobPayload{
		RecordID: rec.ID,
		AudioURL: audioURL,
	}

	job, err := s.enqueuer.Enqueue(ctx, payload, s.policy)
	if err != nil {
		// The record is left pending with no scheduled job.
		s.logger.Error("Failed to enqueue transcription job",
			slog.String("record_id", rec.ID),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to enqueue transcription job: %w", err)
	}

	s.logger.Info("Transcription submitted",
		slog.String("record_id", rec.ID),
		slog.String("job_id", job.ID),
	)

	return rec, nil
}

// Get returns a single record by id.
func (s *TranscriptionService) Get(ctx context.Context, id string) (*domain.TranscriptionRecord, error) {
	return s.store.GetRecord(ctx, id)
}

// List returns one page of records. Paging values are clamped: page >= 1,
// limit in [1, 100] defaulting to 20, newest first unless asked otherwise.
func (s *TranscriptionService) List(ctx context.Context, opts storage.ListOptions) (*ListResult, error) {
	opts = opts.Normalize()

	items, total, err := s.store.ListRecords(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Items: items,
		Total: total,
		Page:  opts.Page,
		Limit: opts.Limit,
	}, nil
}

// validateAudioURL rejects anything that is not an absolute http(s) URL.
func validateAudioURL(audioURL string) error {
	if audioURL == "" {
		return fmt.Errorf("%w: audio url is required", domain.ErrInvalidInput)
	}

	parsed, err := url.Parse(audioURL)
	if err != nil {
		return fmt.Errorf("%w: malformed audio url: %v", domain.ErrInvalidInput, err)
	}

	if !parsed.IsAbs() || parsed.Host == "" {
		return fmt.Errorf("%w: audio url must be absolute", domain.ErrInvalidInput)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: unsupported url scheme %q", domain.ErrInvalidInput, parsed.Scheme)
	}

	return nil
}
