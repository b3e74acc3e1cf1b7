// Package download fetches remote audio and persists it under the
// configured storage directory.
package download

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurahnFakhri/audioTranscribe/internal/domain"
)

const audioMIMEPrefix = "audio/"

// Config holds download limits and the storage location.
type Config struct {
	Dir            string
	MaxBytes       int64
	RequestTimeout time.Duration
	ProbeTimeout   time.Duration
}

// Result is the outcome of a successful download.
type Result struct {
	Bytes       []byte
	ContentType string
	Size        int64
	SavedPath   string
}

// Validator downloads remote audio files, enforcing content-type and size
// limits before persisting the bytes.
type Validator struct {
	cfg    Config
	client *http.Client
	probe  *http.Client
	logger *slog.Logger
}

// NewValidator creates a Validator. Zero config fields get defaults:
// uploads dir, 50 MiB ceiling, 20s fetch timeout, 5s probe timeout.
func NewValidator(cfg Config, logger *slog.Logger) *Validator {
	if cfg.Dir == "" {
		cfg.Dir = "uploads"
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 50 * 1024 * 1024
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 20 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}

	return &Validator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		probe:  &http.Client{Timeout: cfg.ProbeTimeout},
		logger: logger,
	}
}

// Download fetches url, validates that it is an audio resource within the
// size ceiling, and saves the bytes to disk. Partial downloads are never
// reported as success.
func (v *Validator) Download(ctx context.Context, url string) (*Result, error) {
	// Cheap HEAD probe first. Some servers refuse HEAD, so a probe
	// failure is not fatal; the GET response is validated regardless.
	if err := v.probeURL(ctx, url); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewDownloadError(url, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, domain.NewDownloadError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.NewDownloadError(url, fmt.Errorf("unexpected status %s", resp.Status))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, audioMIMEPrefix) {
		return nil, fmt.Errorf("%w: content-type %q", domain.ErrNotAudio, orUnknown(contentType))
	}

	// Read at most one byte past the ceiling so oversized bodies are
	// rejected without buffering them whole.
	body, err := io.ReadAll(io.LimitReader(resp.Body, v.cfg.MaxBytes+1))
	if err != nil {
		return nil, domain.NewDownloadError(url, err)
	}
	if int64(len(body)) > v.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrTooLarge, v.cfg.MaxBytes)
	}

	savedPath, err := v.save(url, contentType, body)
	if err != nil {
		return nil, err
	}

	v.logger.Info("Downloaded and saved audio",
		slog.String("url", url),
		slog.String("saved_path", savedPath),
		slog.Int("size", len(body)),
		slog.String("content_type", contentType),
	)

	return &Result{
		Bytes:       body,
		ContentType: contentType,
		Size:        int64(len(body)),
		SavedPath:   savedPath,
	}, nil
}

// probeURL issues a HEAD request to fail fast on obvious rejects. Returns
// nil when the probe is inconclusive.
func (v *Validator) probeURL(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return domain.NewDownloadError(url, err)
	}

	resp, err := v.probe.Do(req)
	if err != nil {
		v.logger.Warn("HEAD probe failed, continuing with GET",
			slog.String("url", url),
			slog.Any("error", err),
		)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		v.logger.Warn("HEAD probe refused, continuing with GET",
			slog.String("url", url),
			slog.Int("status", resp.StatusCode),
		)
		return nil
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, audioMIMEPrefix) {
		return fmt.Errorf("%w: content-type %q", domain.ErrNotAudio, contentType)
	}

	if lengthHeader := resp.Header.Get("Content-Length"); lengthHeader != "" {
		if length, err := strconv.ParseInt(lengthHeader, 10, 64); err == nil && length > v.cfg.MaxBytes {
			return fmt.Errorf("%w: %d bytes, max allowed %d", domain.ErrTooLarge, length, v.cfg.MaxBytes)
		}
	}

	return nil
}

// save writes body under the storage directory with a collision-resistant
// name derived from the url and the current time.
func (v *Validator) save(url, contentType string, body []byte) (string, error) {
	if err := os.MkdirAll(v.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage dir: %w", err)
	}

	sum := sha1.Sum([]byte(url + strconv.FormatInt(time.Now().UnixNano(), 10)))
	filename := hex.EncodeToString(sum[:]) + "." + extensionFor(contentType)
	savedPath := filepath.Join(v.cfg.Dir, filename)

	if err := os.WriteFile(savedPath, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to save audio file: %w", err)
	}

	return savedPath, nil
}

// extensionFor derives a file extension from the content subtype,
// defaulting to mp3.
func extensionFor(contentType string) string {
	parts := strings.SplitN(contentType, "/", 2)
	if len(parts) != 2 {
		return "mp3"
	}

	ext := strings.TrimSpace(strings.SplitN(parts[1], ";", 2)[0])
	if ext == "" {
		return "mp3"
	}
	if ext == "mpeg" {
		return "mp3"
	}
	return ext
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
