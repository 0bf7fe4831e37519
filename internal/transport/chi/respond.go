package chi

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Stable machine-readable error codes surfaced to callers.
const (
	codeInvalidInput             = "invalid_input"
	codeInvalidSearchType        = "invalid_search_type"
	codeAudioTooLarge            = "audio_too_large"
	codeUnsupportedFormat        = "unsupported_audio_format"
	codeNoSpeechDetected         = "no_speech_detected"
	codeTranscriptionUnavailable = "transcription_unavailable"
	codeTranscriptionFailed      = "transcription_failed"
	codeBackendUnavailable       = "backend_unavailable"
	codeDispatchFailed           = "dispatch_failed"
	codeUnauthorized             = "unauthorized"
	codeInternalError            = "internal_error"
)

// envelope is the response wrapper every endpoint uses, matching the
// platform-wide {success, message, data} convention.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// errorEnvelope is the failure wrapper: a stable code plus a human-readable
// message, never internal detail.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Success: false, Message: message, Error: code})
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}
