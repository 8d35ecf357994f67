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

// Inference is the chat capability consumed by the monitoring
// supervisor. Failures are transient from the supervisor's point of
// view: the gated analysis for that cycle is skipped, never fatal.
type Inference interface {
	Chat(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// OllamaConfig locates a local Ollama server.
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultOllamaConfig targets a default local install.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1:8b",
		Timeout: 60 * time.Second,
	}
}

// OllamaClient implements Inference against the Ollama chat API.
type OllamaClient struct {
	cfg  OllamaConfig
	http *http.Client
}

// NewOllamaClient builds a client; zero-valued config fields fall back
// to defaults.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	def := DefaultOllamaConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &OllamaClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Chat sends a single-turn prompt and returns the model's reply text.
func (c *OllamaClient) Chat(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	reqBody := ollamaChatRequest{
		Model:    c.cfg.Model,
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Options: ollamaOptions{
			Temperature: temperature,
			NumPredict:  maxTokens,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInferenceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", models.ErrInferenceUnavailable, resp.StatusCode)
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: bad response: %v", models.ErrInferenceUnavailable, err)
	}
	return chatResp.Message.Content, nil
}
