package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiConfig configures the hosted-model transcriber.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // overridable for tests
	Timeout time.Duration
}

// Gemini transcribes audio through the Gemini REST API: the bytes are
// uploaded to the files endpoint, then a transcript is requested from the
// configured model. Callers normally wrap it in WithFallback so API
// failures never surface as pipeline failures.
type Gemini struct {
	cfg    GeminiConfig
	client *http.Client
	logger *slog.Logger
}

// NewGemini creates a Gemini transcriber. The API key is required.
func NewGemini(cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	return &Gemini{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Transcribe uploads the audio and asks the model for a transcript. An
// empty or unparseable response is an error.
func (g *Gemini) Transcribe(ctx context.Context, audio []byte, sourceURL string) (string, error) {
	fileURI, mimeType, err := g.upload(ctx, audio)
	if err != nil {
		return "", fmt.Errorf("gemini upload failed: %w", err)
	}

	g.logger.Debug("Audio uploaded to Gemini",
		slog.String("file_uri", fileURI),
		slog.String("source_url", sourceURL),
	)

	text, err := g.generate(ctx, fileURI, mimeType)
	if err != nil {
		return "", fmt.Errorf("gemini transcription failed: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty transcript")
	}

	return text, nil
}

type geminiFile struct {
	File struct {
		URI      string `json:"uri"`
		MimeType string `json:"mimeType"`
	} `json:"file"`
}

func (g *Gemini) upload(ctx context.Context, audio []byte) (uri, mimeType string, err error) {
	url := fmt.Sprintf("%s/upload/v1beta/files?key=%s", g.cfg.BaseURL, g.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(audio))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "audio/mpeg")
	req.Header.Set("X-Goog-Upload-Protocol", "raw")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", fmt.Errorf("upload returned status %s", resp.Status)
	}

	var file geminiFile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&file); err != nil {
		return "", "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if file.File.URI == "" {
		return "", "", fmt.Errorf("upload response missing file uri")
	}

	mimeType = file.File.MimeType
	if mimeType == "" {
		mimeType = "audio/mpeg"
	}

	return file.File.URI, mimeType, nil
}

type generateRequest struct {
	Contents []struct {
		Parts []map[string]interface{} `json:"parts"`
	} `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) generate(ctx context.Context, fileURI, mimeType string) (string, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.cfg.BaseURL, g.cfg.Model, g.cfg.APIKey)

	var reqBody generateRequest
	reqBody.Contents = make([]struct {
		Parts []map[string]interface{} `json:"parts"`
	}, 1)
	reqBody.Contents[0].Parts = []map[string]interface{}{
		{"file_data": map[string]string{"mime_type": mimeType, "file_uri": fileURI}},
		{"text": "transcribe this audio"},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("generateContent returned status %s", resp.Status)
	}

	var genResp generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode generateContent response: %w", err)
	}

	var sb strings.Builder
	for _, candidate := range genResp.Candidates {
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}

	return sb.String(), nil
}
