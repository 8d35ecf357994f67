package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"vision-backend/internal/audio"
	"vision-backend/internal/models"
)

// TestTranscribeUpload verifies the WAV body, content type and query
// parameters reach the endpoint and the response is parsed.
func TestTranscribeUpload(t *testing.T) {
	wav := audio.EncodeWAV(make([]byte, 3200), 16000, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "audio/wav" {
			t.Errorf("unexpected content type: %s", ct)
		}
		if lang := r.URL.Query().Get("language"); lang != "en" {
			t.Errorf("unexpected language: %s", lang)
		}
		if rate := r.URL.Query().Get("sample_rate"); rate != "16000" {
			t.Errorf("unexpected sample rate: %s", rate)
		}
		body, _ := io.ReadAll(r.Body)
		if len(body) != len(wav) || string(body[0:4]) != "RIFF" {
			t.Error("WAV body not received intact")
		}
		json.NewEncoder(w).Encode(transcribeResponse{Text: "hello world", Confidence: 0.92})
	}))
	defer server.Close()

	tr := NewHTTPTranscriber(TranscriberConfig{URL: server.URL})
	result, err := tr.Transcribe(context.Background(), wav, 16000)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if !result.OK || result.Text != "hello world" || result.Confidence != 0.92 {
		t.Errorf("unexpected result: %+v", result)
	}
}

// TestTranscribeEmptyText verifies speech-free audio reports OK=false
// without an error.
func TestTranscribeEmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(transcribeResponse{Text: ""})
	}))
	defer server.Close()

	tr := NewHTTPTranscriber(TranscriberConfig{URL: server.URL})
	result, err := tr.Transcribe(context.Background(), []byte("RIFF"), 16000)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if result.OK {
		t.Error("empty transcription reported OK")
	}
}

// TestTranscribeServerError verifies failures map to the unavailable
// sentinel.
func TestTranscribeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tr := NewHTTPTranscriber(TranscriberConfig{URL: server.URL})
	if _, err := tr.Transcribe(context.Background(), []byte("RIFF"), 16000); !errors.Is(err, models.ErrTranscriptionUnavailable) {
		t.Errorf("expected ErrTranscriptionUnavailable, got %v", err)
	}
}
