// Package search orchestrates the voice/text search pipeline: normalize the
// query, check the result cache, dispatch to the backend on a miss, cache the
// successful response, and record the search in history.
package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/skillswap/voicesearch/internal/domain"
	domhist "github.com/skillswap/voicesearch/internal/domain/history"
	domsearch "github.com/skillswap/voicesearch/internal/domain/search"
	"github.com/skillswap/voicesearch/internal/logger"
)

// Request carries the caller-supplied search parameters before validation.
// Page and Limit fall back to defaults when zero.
type Request struct {
	Kind    string
	Filters domsearch.Filters
	Page    int
	Limit   int
}

// Outcome is a completed search: the effective query text (recognized or
// supplied) and the backend's response document.
type Outcome struct {
	Query   string
	Results domsearch.ResultDocument
}

// Service runs the search pipeline.
type Service struct {
	recognizer      Recognizer
	dispatcher      Dispatcher
	cache           ResultCache
	history         HistoryWriter
	keyPrefix       string
	defaultPageSize int
	maxPageSize     int
}

// New creates a search service.
func New(recognizer Recognizer, dispatcher Dispatcher, cache ResultCache, history HistoryWriter) *Service {
	return &Service{
		recognizer:      recognizer,
		dispatcher:      dispatcher,
		cache:           cache,
		history:         history,
		keyPrefix:       "voicesearch:",
		defaultPageSize: 10,
		maxPageSize:     100,
	}
}

// WithCacheKeyPrefix overrides the cache key prefix.
func (s *Service) WithCacheKeyPrefix(prefix string) *Service {
	s.keyPrefix = prefix
	return s
}

// WithPagination overrides the pagination bounds.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	s.defaultPageSize = defaultPageSize
	s.maxPageSize = maxPageSize
	return s
}

// VoiceSearch transcribes the uploaded audio and runs the pipeline on the
// recognized text. Transcription failures abort before any backend call or
// history write.
func (s *Service) VoiceSearch(
	ctx context.Context, ident domain.Identity, audio []byte, format string, req Request,
) (Outcome, error) {
	text, err := s.recognizer.Recognize(ctx, audio, format)
	if err != nil {
		return Outcome{}, err
	}
	logger.FromContext(ctx).Info("Recognized voice query", zap.String("query", text))

	return s.run(ctx, ident, text, req, domsearch.SourceVoice)
}

// TextSearch runs the pipeline on literal query text.
func (s *Service) TextSearch(
	ctx context.Context, ident domain.Identity, text string, req Request,
) (Outcome, error) {
	return s.run(ctx, ident, text, req, domsearch.SourceText)
}

func (s *Service) run(
	ctx context.Context, ident domain.Identity, text string, req Request, source domsearch.Source,
) (Outcome, error) {
	kind, err := domsearch.ParseKind(req.Kind)
	if err != nil {
		return Outcome{}, err
	}

	page := req.Page
	if page == 0 {
		page = 1
	}
	limit := req.Limit
	if limit == 0 {
		limit = s.defaultPageSize
	}

	q, err := domsearch.New(text, kind, req.Filters, page, limit, s.maxPageSize)
	if err != nil {
		return Outcome{}, err
	}

	doc, err := s.fetch(ctx, q, ident.Token)
	if err != nil {
		// Backend failures abort before history so no partial records exist.
		return Outcome{}, err
	}

	s.recordHistory(ctx, ident, q, doc.Total, source)

	return Outcome{Query: q.Text(), Results: doc}, nil
}

// fetch serves the query cache-aside: a hit is returned as-is, a miss goes to
// the backend and only a successful response is written back. Two concurrent
// identical misses may both call the backend; they converge on the same value.
func (s *Service) fetch(
	ctx context.Context, q domsearch.Query, token string,
) (domsearch.ResultDocument, error) {
	key := q.CacheKey(s.keyPrefix)

	if payload, ok := s.cache.Get(ctx, key); ok {
		logger.FromContext(ctx).Info("Result cache hit",
			zap.String("kind", string(q.Kind())), zap.String("query", q.Text()))
		return domsearch.ResultDocument{
			Payload: payload,
			Total:   domsearch.ExtractTotal(payload),
		}, nil
	}

	doc, err := s.dispatcher.Search(ctx, q, token)
	if err != nil {
		return domsearch.ResultDocument{}, err
	}

	s.cache.Set(ctx, key, doc.Payload)
	return doc, nil
}

// recordHistory appends the completed search. The record is written only
// after the dispatch fully resolved; an insert failure is logged and dropped
// because the search itself already succeeded.
func (s *Service) recordHistory(
	ctx context.Context, ident domain.Identity, q domsearch.Query, total int, source domsearch.Source,
) {
	rec := domhist.Record{
		UserID:      ident.UserID,
		Query:       q.Text(),
		Kind:        q.Kind(),
		Filters:     filtersMap(q),
		ResultCount: total,
		Source:      source,
	}
	if err := s.history.Insert(ctx, &rec); err != nil {
		logger.FromContext(ctx).Warn("Failed to record search history",
			zap.String("user_id", ident.UserID), zap.Error(err))
	}
}

// filtersMap renders the normalized filters for history storage. Only
// supplied filters appear; page and limit are always kept.
func filtersMap(q domsearch.Query) map[string]any {
	f := q.Filters()
	m := map[string]any{
		"page":  q.Page(),
		"limit": q.PageSize(),
	}
	if f.Category != nil {
		m["category"] = *f.Category
	}
	if f.Role != nil {
		m["role"] = *f.Role
	}
	if len(f.Skills) > 0 {
		m["skills"] = f.Skills
	}
	if f.BudgetMin != nil {
		m["budget_min"] = *f.BudgetMin
	}
	if f.BudgetMax != nil {
		m["budget_max"] = *f.BudgetMax
	}
	return m
}
