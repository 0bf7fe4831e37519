// Package history serves a user's search history and the popular-queries
// aggregation derived from it.
package history

import (
	"context"

	domhist "github.com/skillswap/voicesearch/internal/domain/history"
	domsearch "github.com/skillswap/voicesearch/internal/domain/search"
)

// Bounds mirror the route-level clamps of the history endpoints.
const (
	maxListLimit  = 100
	maxWindowDays = 30
	defaultLimit  = 10
	defaultWindow = 7
)

// Repository is the storage contract for history reads.
type Repository interface {
	ListByUser(ctx context.Context, userID string, kind domsearch.Kind, limit, skip int) ([]domhist.Record, error)
	TopQueries(ctx context.Context, windowDays int, kind domsearch.Kind, limit int) ([]domhist.PopularStat, error)
}

// Service handles history listing and popularity queries.
type Service struct {
	repo Repository
}

// New creates a history service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListForUser returns one page of a user's records, most recent first.
// kindStr narrows to one domain when non-empty. The page length is not the
// total number of matching records.
func (s *Service) ListForUser(
	ctx context.Context, userID, kindStr string, limit, skip int,
) ([]domhist.Record, error) {
	kind, err := optionalKind(kindStr)
	if err != nil {
		return nil, err
	}
	limit = clamp(limit, defaultLimit, maxListLimit)
	if skip < 0 {
		skip = 0
	}
	return s.repo.ListByUser(ctx, userID, kind, limit, skip)
}

// Popular returns the most frequent distinct queries over the trailing
// window, ranked by count then recency.
func (s *Service) Popular(
	ctx context.Context, kindStr string, limit, windowDays int,
) ([]domhist.PopularStat, error) {
	kind, err := optionalKind(kindStr)
	if err != nil {
		return nil, err
	}
	limit = clamp(limit, defaultLimit, maxListLimit)
	windowDays = clamp(windowDays, defaultWindow, maxWindowDays)
	return s.repo.TopQueries(ctx, windowDays, kind, limit)
}

func optionalKind(s string) (domsearch.Kind, error) {
	if s == "" {
		return "", nil
	}
	return domsearch.ParseKind(s)
}

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
