package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for malformed or missing request input,
	// such as an empty or relative audio URL.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a transcription record does not exist.
	ErrNotFound = errors.New("transcription not found")

	// ErrNotAudio is returned when a remote resource does not carry an
	// audio content type.
	ErrNotAudio = errors.New("resource is not audio")

	// ErrTooLarge is returned when a remote resource exceeds the download
	// size ceiling.
	ErrTooLarge = errors.New("resource too large")
)

// DownloadError wraps transport-level failures of the download step
// (network errors, timeouts, non-2xx responses).
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed for %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// NewDownloadError wraps err as a download failure for url.
func NewDownloadError(url string, err error) error {
	return &DownloadError{URL: url, Err: err}
}
