// Package audio normalizes uploaded audio into the canonical sample format
// and hands it to the transcription provider.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/skillswap/voicesearch/internal/domain"
)

// Transcriber converts a canonical-format WAV file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// recognizedFormats are the container/codec identifiers accepted for upload.
var recognizedFormats = map[string]struct{}{
	"wav":  {},
	"mp3":  {},
	"m4a":  {},
	"ogg":  {},
	"flac": {},
	"webm": {},
}

// Config holds normalization settings.
type Config struct {
	MaxBytes   int64
	SampleRate int
	FFmpegPath string
}

// Normalizer converts uploaded audio to 16 kHz mono WAV (via ffmpeg, unless
// it already is WAV) and invokes the transcriber. Temporary artifacts live in
// a per-request scratch directory released on every exit path.
type Normalizer struct {
	transcriber Transcriber
	maxBytes    int64
	sampleRate  int
	ffmpegPath  string
	logger      *zap.Logger
}

// New creates an audio normalizer.
func New(t Transcriber, cfg Config, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		transcriber: t,
		maxBytes:    cfg.MaxBytes,
		sampleRate:  cfg.SampleRate,
		ffmpegPath:  cfg.FFmpegPath,
		logger:      logger,
	}
}

// Recognize validates, converts, and transcribes an audio upload. The size
// cap is enforced before any decoding work.
func (n *Normalizer) Recognize(ctx context.Context, audio []byte, format string) (string, error) {
	format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if _, ok := recognizedFormats[format]; !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
	if int64(len(audio)) > n.maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d",
			domain.ErrAudioTooLarge, len(audio), n.maxBytes)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio upload", domain.ErrInvalidInput)
	}

	return n.withScratch(func(dir string) (string, error) {
		src := filepath.Join(dir, "input."+format)
		if err := os.WriteFile(src, audio, 0o600); err != nil {
			return "", fmt.Errorf("write audio sample: %v: %w", err, domain.ErrTranscriptionFailed)
		}

		wav := src
		if format != "wav" {
			wav = filepath.Join(dir, "input.wav")
			if err := n.convertToWAV(ctx, src, wav); err != nil {
				return "", err
			}
		}

		return n.transcriber.Transcribe(ctx, wav)
	})
}

// withScratch runs fn with a per-request scratch directory and removes it on
// every exit path. All temporary artifact handling funnels through here.
func (n *Normalizer) withScratch(fn func(dir string) (string, error)) (string, error) {
	dir, err := os.MkdirTemp("", "voicesearch-audio-")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %v: %w", err, domain.ErrTranscriptionFailed)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			n.logger.Warn("Failed to remove audio scratch dir",
				zap.String("dir", dir), zap.Error(rmErr))
		}
	}()
	return fn(dir)
}

// convertToWAV re-encodes src to 16-bit mono WAV at the configured sample rate.
func (n *Normalizer) convertToWAV(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, n.ffmpegPath,
		"-y",
		"-i", src,
		"-ar", strconv.Itoa(n.sampleRate),
		"-ac", "1",
		"-sample_fmt", "s16",
		dst,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("ffmpeg not found: %w", domain.ErrTranscriptionFailed)
		}
		n.logger.Warn("Audio conversion failed",
			zap.String("src", filepath.Base(src)),
			zap.String("stderr", tail(stderr.String(), 512)),
			zap.Error(err))
		return fmt.Errorf("decode audio: %w", domain.ErrUnsupportedFormat)
	}
	return nil
}

func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
