package history

import (
	"time"

	"github.com/skillswap/voicesearch/internal/domain/search"
)

// Record is one completed search attempt. Records are append-only and never
// mutated after creation.
type Record struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Query       string         `json:"query"`
	Kind        search.Kind    `json:"searchType"`
	Filters     map[string]any `json:"filters"`
	ResultCount int            `json:"resultsCount"`
	Source      search.Source  `json:"source"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// PopularStat is a derived popularity entry for one distinct query within a
// trailing window. Query holds the exact stored text of its group; nothing is
// persisted, the stats are recomputed per request.
type PopularStat struct {
	Query    string    `json:"query"`
	Count    int       `json:"count"`
	LastUsed time.Time `json:"lastUsed"`
}
