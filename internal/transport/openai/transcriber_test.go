package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/skillswap/voicesearch/internal/domain"
)

func writeWav(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.wav")
	if err := os.WriteFile(path, []byte("RIFF fake wav"), 0o600); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func newTestTranscriber(baseURL string) *Transcriber {
	return NewTranscriber(&Config{
		APIKey:   "test-key",
		BaseURL:  baseURL,
		Model:    "whisper-1",
		Language: "en",
		Logger:   zap.NewNop(),
	})
}

func TestTranscribe_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":" react developer "}`))
	}))
	defer srv.Close()

	tr := newTestTranscriber(srv.URL)
	got, err := tr.Transcribe(context.Background(), writeWav(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "react developer" {
		t.Errorf("expected trimmed text, got %q", got)
	}
}

func TestTranscribe_EmptyTextIsNoSpeech(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"   "}`))
	}))
	defer srv.Close()

	tr := newTestTranscriber(srv.URL)
	_, err := tr.Transcribe(context.Background(), writeWav(t))
	if !errors.Is(err, domain.ErrNoSpeechDetected) {
		t.Fatalf("expected ErrNoSpeechDetected, got %v", err)
	}
}

func TestTranscribe_APIErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	tr := newTestTranscriber(srv.URL)
	_, err := tr.Transcribe(context.Background(), writeWav(t))
	if !errors.Is(err, domain.ErrTranscriptionUnavailable) {
		t.Fatalf("expected ErrTranscriptionUnavailable, got %v", err)
	}
}

func TestTranscribe_UnreachableProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	tr := newTestTranscriber(srv.URL)
	_, err := tr.Transcribe(context.Background(), writeWav(t))
	if !errors.Is(err, domain.ErrTranscriptionUnavailable) {
		t.Fatalf("expected ErrTranscriptionUnavailable, got %v", err)
	}
}

func TestParseAPIError_RequestErrorDetail(t *testing.T) {
	err := parseAPIError(&openai.RequestError{
		HTTPStatusCode: 503,
		Body:           []byte(`{"detail":"model loading"}`),
	})
	if !errors.Is(err, domain.ErrTranscriptionUnavailable) {
		t.Fatalf("expected ErrTranscriptionUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "model loading") {
		t.Errorf("expected detail surfaced, got %v", err)
	}
}

func TestParseAPIError_Generic(t *testing.T) {
	err := parseAPIError(errors.New("dial tcp: connection refused"))
	if !errors.Is(err, domain.ErrTranscriptionUnavailable) {
		t.Fatalf("expected ErrTranscriptionUnavailable, got %v", err)
	}
}
