// Package chi exposes the search pipeline over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/skillswap/voicesearch/internal/domain"
	domhist "github.com/skillswap/voicesearch/internal/domain/history"
	domsearch "github.com/skillswap/voicesearch/internal/domain/search"
	healthuc "github.com/skillswap/voicesearch/internal/usecase/health"
	historyuc "github.com/skillswap/voicesearch/internal/usecase/history"
	searchuc "github.com/skillswap/voicesearch/internal/usecase/search"
	"github.com/skillswap/voicesearch/internal/version"
)

// multipartMemoryLimit bounds the in-memory part of multipart parsing;
// larger parts spill to disk and are rejected by the audio size cap anyway.
const multipartMemoryLimit = 4 << 20

// Server handles the HTTP API.
type Server struct {
	search        *searchuc.Service
	history       *historyuc.Service
	health        *healthuc.Service
	maxAudioBytes int64
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	history *historyuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:        search,
		history:       history,
		health:        health,
		maxAudioBytes: 10 << 20,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		backendStatusHandler,
		sentinelHandler(domain.ErrInvalidSearchType, http.StatusBadRequest, codeInvalidSearchType),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeInvalidInput),
		sentinelHandler(domain.ErrUnsupportedFormat, http.StatusBadRequest, codeUnsupportedFormat),
		sentinelHandler(domain.ErrNoSpeechDetected, http.StatusBadRequest, codeNoSpeechDetected),
		sentinelHandler(domain.ErrAudioTooLarge, http.StatusRequestEntityTooLarge, codeAudioTooLarge),
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, codeUnauthorized),
		sentinelHandler(domain.ErrTranscriptionUnavailable,
			http.StatusServiceUnavailable, codeTranscriptionUnavailable),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, codeBackendUnavailable),
		sentinelHandler(domain.ErrTranscriptionFailed,
			http.StatusInternalServerError, codeTranscriptionFailed),
		sentinelHandler(domain.ErrDispatchFailed, http.StatusInternalServerError, codeDispatchFailed),
	}
	return s
}

// WithMaxAudioBytes overrides the audio upload size cap.
func (s *Server) WithMaxAudioBytes(n int64) *Server {
	s.maxAudioBytes = n
	return s
}

// Register mounts all routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Post("/voice-search", s.handleVoiceSearch)
		r.Post("/text-search", s.handleTextSearch)
		r.Get("/history", s.handleHistory)
		r.Get("/popular", s.handlePopular)
	})
}

// searchData is the payload of a completed search: the effective query text
// and the backend's document passed through unchanged.
type searchData struct {
	Query   string          `json:"query"`
	Results json.RawMessage `json:"results"`
}

// handleVoiceSearch handles POST /api/voice-search (multipart form).
func (s *Server) handleVoiceSearch(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing caller identity")
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "audio_file is required")
		return
	}
	defer func() { _ = file.Close() }()

	// Read one byte past the cap so the normalizer can reject oversized
	// uploads without the transport buffering the whole blob.
	audio, err := io.ReadAll(io.LimitReader(file, s.maxAudioBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "failed to read audio_file")
		return
	}

	format := strings.TrimPrefix(filepath.Ext(header.Filename), ".")

	req, err := requestFromForm(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	outcome, err := s.search.VoiceSearch(r.Context(), ident, audio, format, req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeSuccess(w, "Voice search successful", searchData{
		Query:   outcome.Query,
		Results: outcome.Results.Payload,
	})
}

// textSearchRequest is the POST /api/text-search body.
type textSearchRequest struct {
	Query      string   `json:"query"`
	SearchType string   `json:"search_type"`
	Category   *string  `json:"category,omitempty"`
	Skills     []string `json:"skills,omitempty"`
	BudgetMin  *float64 `json:"budget_min,omitempty"`
	BudgetMax  *float64 `json:"budget_max,omitempty"`
	Role       *string  `json:"role,omitempty"`
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
}

// handleTextSearch handles POST /api/text-search.
func (s *Server) handleTextSearch(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing caller identity")
		return
	}

	var body textSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid request body: "+err.Error())
		return
	}

	req := searchuc.Request{
		Kind: body.SearchType,
		Filters: domsearch.Filters{
			Category:  body.Category,
			Role:      body.Role,
			Skills:    body.Skills,
			BudgetMin: body.BudgetMin,
			BudgetMax: body.BudgetMax,
		},
		Page:  body.Page,
		Limit: body.Limit,
	}

	outcome, err := s.search.TextSearch(r.Context(), ident, body.Query, req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeSuccess(w, "Text search successful", searchData{
		Query:   outcome.Query,
		Results: outcome.Results.Payload,
	})
}

// handleHistory handles GET /api/history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing caller identity")
		return
	}

	limit, err := intQueryParam(r, "limit", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}
	skip, err := intQueryParam(r, "skip", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}

	records, err := s.history.ListForUser(
		r.Context(), ident.UserID, r.URL.Query().Get("search_type"), limit, skip)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if records == nil {
		records = []domhist.Record{}
	}

	writeSuccess(w, "Search history retrieved successfully", map[string]any{
		"history": records,
		"pagination": map[string]any{
			"limit": limit,
			"skip":  skip,
			// total is the length of this page, not the full backing
			// count; consumers have historically relied on this value.
			"total": len(records),
		},
	})
}

// handlePopular handles GET /api/popular.
func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	if _, ok := IdentityFromContext(r.Context()); !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing caller identity")
		return
	}

	limit, err := intQueryParam(r, "limit", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}
	days, err := intQueryParam(r, "days", 7)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
		return
	}

	stats, err := s.history.Popular(r.Context(), r.URL.Query().Get("search_type"), limit, days)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if stats == nil {
		stats = []domhist.PopularStat{}
	}

	writeSuccess(w, "Popular searches retrieved successfully", map[string]any{
		"popular": stats,
	})
}

// handleRoot handles GET /.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "voice-search-service",
		"version": version.Version,
		"status":  "running",
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// requestFromForm builds the search request from multipart form values.
func requestFromForm(r *http.Request) (searchuc.Request, error) {
	req := searchuc.Request{Kind: r.FormValue("search_type")}

	if v := r.FormValue("category"); v != "" {
		req.Filters.Category = &v
	}
	if v := r.FormValue("role"); v != "" {
		req.Filters.Role = &v
	}
	req.Filters.Skills = domsearch.ParseSkills(r.FormValue("skills"))

	var err error
	if req.Filters.BudgetMin, err = floatFormValue(r, "budget_min"); err != nil {
		return searchuc.Request{}, err
	}
	if req.Filters.BudgetMax, err = floatFormValue(r, "budget_max"); err != nil {
		return searchuc.Request{}, err
	}
	if req.Page, err = intFormValue(r, "page"); err != nil {
		return searchuc.Request{}, err
	}
	if req.Limit, err = intFormValue(r, "limit"); err != nil {
		return searchuc.Request{}, err
	}
	return req, nil
}

func floatFormValue(r *http.Request, name string) (*float64, error) {
	v := r.FormValue(name)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, name)
	}
	return &f, nil
}

func intFormValue(r *http.Request, name string) (int, error) {
	v := r.FormValue(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, name)
	}
	return n, nil
}

func intQueryParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidSearchType,
		domain.ErrInvalidInput,
		domain.ErrUnsupportedFormat,
		domain.ErrNoSpeechDetected,
		domain.ErrAudioTooLarge,
		domain.ErrUnauthorized,
		domain.ErrTranscriptionUnavailable,
		domain.ErrTranscriptionFailed,
		domain.ErrBackendUnavailable,
		domain.ErrDispatchFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// backendStatusHandler surfaces the downstream status code for diagnostics.
func backendStatusHandler(w http.ResponseWriter, err error, _ string) bool {
	var bse *domain.BackendStatusError
	if !errors.As(err, &bse) {
		return false
	}
	writeError(w, http.StatusServiceUnavailable, codeBackendUnavailable,
		fmt.Sprintf("search backend unavailable (status %d)", bse.Status))
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
