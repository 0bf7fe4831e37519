package search

import (
	"context"

	domhist "github.com/skillswap/voicesearch/internal/domain/history"
	domsearch "github.com/skillswap/voicesearch/internal/domain/search"
)

// Recognizer turns an uploaded audio blob into query text.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte, format string) (string, error)
}

// Dispatcher routes a normalized query to the downstream backend for its kind.
type Dispatcher interface {
	Search(ctx context.Context, q domsearch.Query, token string) (domsearch.ResultDocument, error)
}

// ResultCache is the cache-aside store for successful backend responses.
// Get treats expired entries and store failures as misses; Set never fails
// the request.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte)
}

// HistoryWriter appends one record per completed search.
type HistoryWriter interface {
	Insert(ctx context.Context, rec *domhist.Record) error
}
