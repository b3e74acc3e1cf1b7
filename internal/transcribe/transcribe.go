// Package transcribe turns raw audio bytes into text. Implementations are
// selected by configuration; the fallback wrapper keeps model flakiness
// out of the processing pipeline's failure path.
package transcribe

import (
	"context"
	"fmt"
)

// Transcriber is the capability shared by all backends.
type Transcriber interface {
	// Transcribe returns a text transcript of the audio bytes. sourceURL
	// is informational and may be empty.
	Transcribe(ctx context.Context, audio []byte, sourceURL string) (string, error)
}

// Stub is a deterministic transcriber used for testing and as the
// fallback of last resort. It never fails.
type Stub struct{}

// NewStub creates a Stub transcriber.
func NewStub() *Stub {
	return &Stub{}
}

// Transcribe returns a placeholder transcript describing the input.
func (s *Stub) Transcribe(_ context.Context, audio []byte, sourceURL string) (string, error) {
	source := sourceURL
	if source == "" {
		source = "audio"
	}

	kb := (len(audio) + 512) / 1024
	return fmt.Sprintf("Mocked transcription for %s - %d KB processed.", source, kb), nil
}
