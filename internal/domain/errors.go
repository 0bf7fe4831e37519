package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals a malformed request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidSearchType signals an unknown search kind.
	ErrInvalidSearchType = errors.New("invalid search type")
	// ErrAudioTooLarge signals an audio upload over the configured size cap.
	ErrAudioTooLarge = errors.New("audio too large")
	// ErrUnsupportedFormat signals an audio container that cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrNoSpeechDetected signals that transcription produced no usable text.
	ErrNoSpeechDetected = errors.New("no speech detected")
	// ErrTranscriptionUnavailable signals an unreachable transcription provider.
	ErrTranscriptionUnavailable = errors.New("transcription service unavailable")
	// ErrTranscriptionFailed signals any other transcription failure.
	ErrTranscriptionFailed = errors.New("transcription failed")
	// ErrBackendUnavailable signals a failed or unreachable downstream search service.
	ErrBackendUnavailable = errors.New("search backend unavailable")
	// ErrDispatchFailed signals an unexpected error while processing a backend response.
	ErrDispatchFailed = errors.New("search dispatch failed")
	// ErrUnauthorized signals a missing or invalid caller credential.
	ErrUnauthorized = errors.New("unauthorized")
)

// BackendStatusError wraps ErrBackendUnavailable with the HTTP status the
// downstream service returned, surfaced for diagnostics only.
type BackendStatusError struct {
	Status int
}

func (e *BackendStatusError) Error() string {
	return fmt.Sprintf("%s: backend returned status %d", ErrBackendUnavailable.Error(), e.Status)
}

func (e *BackendStatusError) Unwrap() error { return ErrBackendUnavailable }

// NewBackendStatus creates a backend status error.
func NewBackendStatus(status int) error {
	return &BackendStatusError{Status: status}
}
