package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vision-backend/internal/models"
)

// TestOllamaChatRequestShape verifies the chat call carries the model,
// prompt and sampling options and returns the reply text.
func TestOllamaChatRequestShape(t *testing.T) {
	var got ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{Role: "assistant", Content: "all quiet"},
			Done:    true,
		})
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL, Model: "test-model"})
	text, err := client.Chat(context.Background(), "describe the movement", 0.3, 500)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if text != "all quiet" {
		t.Errorf("unexpected reply: %q", text)
	}

	if got.Model != "test-model" {
		t.Errorf("model not sent: %q", got.Model)
	}
	if got.Stream {
		t.Error("streaming requested for a one-shot call")
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "describe the movement" {
		t.Errorf("prompt not sent: %+v", got.Messages)
	}
	if got.Options.Temperature != 0.3 || got.Options.NumPredict != 500 {
		t.Errorf("options not sent: %+v", got.Options)
	}
}

// TestOllamaChatServerError verifies non-200 responses map to the
// unavailable sentinel.
func TestOllamaChatServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL})
	if _, err := client.Chat(context.Background(), "prompt", 0.3, 100); !errors.Is(err, models.ErrInferenceUnavailable) {
		t.Errorf("expected ErrInferenceUnavailable, got %v", err)
	}
}

// TestOllamaChatUnreachable verifies transport failure maps to the
// unavailable sentinel.
func TestOllamaChatUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Shut down before use.

	client := NewOllamaClient(OllamaConfig{BaseURL: server.URL})
	if _, err := client.Chat(context.Background(), "prompt", 0.3, 100); !errors.Is(err, models.ErrInferenceUnavailable) {
		t.Errorf("expected ErrInferenceUnavailable, got %v", err)
	}
}
