// Package openai adapts the OpenAI-compatible audio API to the pipeline's
// Transcriber contract.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/skillswap/voicesearch/internal/domain"
	"github.com/skillswap/voicesearch/internal/metrics"
)

// Transcriber converts canonical-format audio samples to text via the
// OpenAI-compatible transcription API (Whisper).
type Transcriber struct {
	client   *openai.Client
	model    string
	language string
	logger   *zap.Logger
}

// Config holds the transcription provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	Logger   *zap.Logger
}

// NewTranscriber creates an OpenAI-compatible transcription provider.
func NewTranscriber(cfg *Config) *Transcriber {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Transcriber{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		language: cfg.Language,
		logger:   cfg.Logger,
	}
}

// Transcribe sends a canonical WAV sample to the API and returns the
// recognized text. A response with no usable text is ErrNoSpeechDetected;
// provider/transport failures are ErrTranscriptionUnavailable.
func (t *Transcriber) Transcribe(ctx context.Context, wavPath string) (string, error) {
	req := openai.AudioRequest{
		Model:    t.model,
		FilePath: wavPath,
		Language: t.language,
	}

	start := time.Now()

	resp, err := t.client.CreateTranscription(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.TranscriptionRequestsTotal.WithLabelValues(t.model, "error").Inc()
		return "", parseAPIError(err)
	}

	metrics.TranscriptionRequestsTotal.WithLabelValues(t.model, "success").Inc()
	metrics.TranscriptionRequestDuration.WithLabelValues(t.model).Observe(duration.Seconds())

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", domain.ErrNoSpeechDetected
	}
	return text, nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrTranscriptionUnavailable for correct 503 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrTranscriptionUnavailable

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("transcription API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("transcription API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("transcription API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("transcription request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
