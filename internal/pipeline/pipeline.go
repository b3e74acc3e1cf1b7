// Package pipeline orchestrates one transcription attempt: record state
// transitions, download, transcription, and terminal persistence.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/BurahnFakhri/audioTranscribe/internal/domain"
	"github.com/BurahnFakhri/audioTranscribe/internal/download"
	"github.com/BurahnFakhri/audioTranscribe/internal/transcribe"
)

// RecordStore is the slice of the record store the pipeline needs.
type RecordStore interface {
	GetRecord(ctx context.Context, id string) (*domain.TranscriptionRecord, error)
	UpdateRecord(ctx context.Context, rec *domain.TranscriptionRecord) error
}

// Downloader fetches and validates remote audio.
type Downloader interface {
	Download(ctx context.Context, url string) (*download.Result, error)
}

// ProcessOptions tweak a single pipeline run.
type ProcessOptions struct {
	// ForceRedownload reprocesses a record even when it is already
	// completed.
	ForceRedownload bool
}

// Processor runs the transcription pipeline for one record at a time. It
// holds no state between runs; safe for concurrent use.
type Processor struct {
	store       RecordStore
	downloader  Downloader
	transcriber transcribe.Transcriber
	logger      *slog.Logger
}

// NewProcessor wires a Processor from its collaborators.
func NewProcessor(store RecordStore, downloader Downloader, transcriber transcribe.Transcriber, logger *slog.Logger) *Processor {
	return &Processor{
		store:       store,
		downloader:  downloader,
		transcriber: transcriber,
		logger:      logger,
	}
}

// Process runs one transcription attempt for the record. Because the
// queue delivers at least once, a completed record is returned unchanged
// unless ForceRedownload is set; that check is the sole guard against
// duplicate transcription work when a lock expires under a live worker.
//
// On failure the record is marked failed with the first error
// encountered, attempts is incremented, and the error is returned so the
// queue can apply its own backoff.
func (p *Processor) Process(ctx context.Context, recordID, audioURL string, opts ProcessOptions) (*domain.TranscriptionRecord, error) {
	rec, err := p.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}

	effectiveURL := audioURL
	if effectiveURL == "" {
		effectiveURL = rec.AudioURL
	}
	if effectiveURL == "" {
		return nil, fmt.Errorf("%w: no audio url provided or stored on record %s", domain.ErrInvalidInput, recordID)
	}

	if rec.Status == domain.StatusCompleted && !opts.ForceRedownload {
		p.logger.Info("Skipping processing: already completed",
			slog.String("record_id", recordID),
		)
		return rec, nil
	}

	// Transitional write. The terminal write below is authoritative, so a
	// failure here is logged and swallowed.
	rec.Status = domain.StatusProcessing
	if err := p.store.UpdateRecord(ctx, rec); err != nil {
		p.logger.Warn("Could not set status to processing, continuing anyway",
			slog.String("record_id", recordID),
			slog.Any("error", err),
		)
	}

	result, err := p.downloader.Download(ctx, effectiveURL)
	if err != nil {
		return nil, p.fail(ctx, rec, err)
	}

	p.logger.Info("Audio downloaded, invoking transcriber",
		slog.String("record_id", recordID),
		slog.Int64("size", result.Size),
		slog.String("content_type", result.ContentType),
		slog.String("saved_path", result.SavedPath),
	)

	text, err := p.transcriber.Transcribe(ctx, result.Bytes, effectiveURL)
	if err != nil {
		return nil, p.fail(ctx, rec, err)
	}

	rec.FilePath = sql.NullString{String: result.SavedPath, Valid: true}
	rec.Transcription = text
	rec.Status = domain.StatusCompleted
	rec.Error = ""
	rec.Attempts++

	if err := p.store.UpdateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist completed transcription: %w", err)
	}

	p.logger.Info("Transcription completed successfully",
		slog.String("record_id", recordID),
		slog.Int("attempts", rec.Attempts),
	)

	return rec, nil
}

// fail records the terminal failed state and returns cause unchanged so
// the caller can propagate it to the queue.
func (p *Processor) fail(ctx context.Context, rec *domain.TranscriptionRecord, cause error) error {
	p.logger.Error("Transcription processing failed",
		slog.String("record_id", rec.ID),
		slog.Any("error", cause),
	)

	rec.Status = domain.StatusFailed
	rec.Error = cause.Error()
	rec.Attempts++

	if err := p.store.UpdateRecord(ctx, rec); err != nil {
		p.logger.Error("Failed to persist failed transcription state",
			slog.String("record_id", rec.ID),
			slog.Any("error", err),
		)
	}

	return cause
}
