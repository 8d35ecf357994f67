package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"vision-backend/internal/models"
)

// TranscriberConfig locates a whisper-style speech-to-text endpoint
// accepting WAV uploads.
type TranscriberConfig struct {
	URL      string
	Language string
	Timeout  time.Duration
}

// DefaultTranscriberConfig targets a local whisper server.
func DefaultTranscriberConfig() TranscriberConfig {
	return TranscriberConfig{
		URL:      "http://localhost:9000/transcribe",
		Language: "en",
		Timeout:  30 * time.Second,
	}
}

// HTTPTranscriber posts WAV audio to a transcription endpoint and
// implements audio.Transcriber.
type HTTPTranscriber struct {
	cfg  TranscriberConfig
	http *http.Client
}

// NewHTTPTranscriber builds a transcription client.
func NewHTTPTranscriber(cfg TranscriberConfig) *HTTPTranscriber {
	def := DefaultTranscriberConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &HTTPTranscriber{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type transcribeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Transcribe uploads WAV bytes and returns the recognized text. A
// transport or server failure maps to an unavailable result; the
// caller skips this cycle's transcription rather than crashing.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, wav []byte, sampleRate int) (models.TranscriptionResult, error) {
	url := fmt.Sprintf("%s?language=%s&sample_rate=%d", t.cfg.URL, t.cfg.Language, sampleRate)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(wav))
	if err != nil {
		return models.TranscriptionResult{}, fmt.Errorf("failed to build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := t.http.Do(req)
	if err != nil {
		return models.TranscriptionResult{}, fmt.Errorf("%w: %v", models.ErrTranscriptionUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.TranscriptionResult{}, fmt.Errorf("%w: status %d", models.ErrTranscriptionUnavailable, resp.StatusCode)
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.TranscriptionResult{}, fmt.Errorf("%w: bad response: %v", models.ErrTranscriptionUnavailable, err)
	}

	return models.TranscriptionResult{
		OK:         out.Text != "",
		Text:       out.Text,
		Confidence: out.Confidence,
	}, nil
}
