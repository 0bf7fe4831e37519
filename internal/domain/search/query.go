package search

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/skillswap/voicesearch/internal/domain"
)

// Query is a validated, normalized search: trimmed text, parsed kind,
// normalized filters scoped to that kind, and bounded pagination. It is the
// canonical form from which both the cache key and the backend request are
// derived.
type Query struct {
	text     string
	kind     Kind
	filters  Filters
	page     int
	pageSize int
}

// New builds a Query. Text is trimmed (casing is kept as supplied; cache keys
// and popularity grouping both see the same text, so the policy only has to
// be consistent, and the downstream services are case-aware). Page must be
// >= 1 and pageSize within [1, maxPageSize].
func New(text string, kind Kind, filters Filters, page, pageSize, maxPageSize int) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, fmt.Errorf("%w: query text is empty", domain.ErrInvalidInput)
	}
	if page < 1 {
		return Query{}, fmt.Errorf("%w: page must be >= 1, got %d", domain.ErrInvalidInput, page)
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return Query{}, fmt.Errorf("%w: limit must be between 1 and %d, got %d",
			domain.ErrInvalidInput, maxPageSize, pageSize)
	}
	return Query{
		text:     text,
		kind:     kind,
		filters:  filters.Normalize().ForKind(kind),
		page:     page,
		pageSize: pageSize,
	}, nil
}

// Text returns the normalized query text.
func (q Query) Text() string { return q.text }

// Kind returns the search domain.
func (q Query) Kind() Kind { return q.kind }

// Filters returns the normalized filter set.
func (q Query) Filters() Filters { return q.filters }

// Page returns the 1-based page number.
func (q Query) Page() int { return q.page }

// PageSize returns the page size.
func (q Query) PageSize() int { return q.pageSize }

// CacheKey renders a deterministic cache key. Filter fields are emitted in a
// fixed order and only when present, so identical effective queries always
// collide and absent filters add nothing. Values are query-escaped so user
// text cannot forge a separator.
func (q Query) CacheKey(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(string(q.kind))
	b.WriteByte(':')
	b.WriteString(url.QueryEscape(q.text))

	f := q.filters
	if f.Category != nil {
		writeField(&b, "category", url.QueryEscape(*f.Category))
	}
	if f.Role != nil {
		writeField(&b, "role", url.QueryEscape(*f.Role))
	}
	if len(f.Skills) > 0 {
		escaped := make([]string, len(f.Skills))
		for i, s := range f.Skills {
			escaped[i] = url.QueryEscape(s)
		}
		writeField(&b, "skills", strings.Join(escaped, ","))
	}
	if f.BudgetMin != nil {
		writeField(&b, "budget_min", formatBudget(*f.BudgetMin))
	}
	if f.BudgetMax != nil {
		writeField(&b, "budget_max", formatBudget(*f.BudgetMax))
	}

	writeField(&b, "page", strconv.Itoa(q.page))
	writeField(&b, "limit", strconv.Itoa(q.pageSize))
	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	b.WriteByte(':')
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)
}

func formatBudget(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
