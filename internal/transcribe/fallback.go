package transcribe

import (
	"context"
	"log/slog"
)

// Fallback tries a primary transcriber and, when it fails or produces an
// empty transcript, delegates to a secondary one. With a Stub secondary
// this makes Transcribe infallible: the pipeline's failure path stays
// reserved for download and infrastructure errors.
type Fallback struct {
	primary   Transcriber
	secondary Transcriber
	logger    *slog.Logger
}

// WithFallback wraps primary so that its failures are masked by secondary.
func WithFallback(primary, secondary Transcriber, logger *slog.Logger) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Transcribe runs the primary transcriber and falls back on any error or
// empty result.
func (f *Fallback) Transcribe(ctx context.Context, audio []byte, sourceURL string) (string, error) {
	text, err := f.primary.Transcribe(ctx, audio, sourceURL)
	if err == nil && text != "" {
		return text, nil
	}

	if err != nil {
		f.logger.Warn("Primary transcriber failed, using fallback",
			slog.String("source_url", sourceURL),
			slog.Any("error", err),
		)
	} else {
		f.logger.Warn("Primary transcriber returned empty transcript, using fallback",
			slog.String("source_url", sourceURL),
		)
	}

	return f.secondary.Transcribe(ctx, audio, sourceURL)
}
