// Package history persists search history in SQLite and derives popularity
// statistics from it. The table is append-only: records are inserted once per
// completed search and never updated or deleted.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	domhist "github.com/skillswap/voicesearch/internal/domain/history"
	"github.com/skillswap/voicesearch/internal/domain/search"
)

// DriverName is the SQLite driver to use.
const DriverName = "sqlite"

// Repo is a SQLite-backed history store.
type Repo struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the history database at path and applies migrations.
// Use ":memory:" for an in-process store in tests.
func New(path string) (*Repo, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// WAL for concurrent readers; SQLite wants a single writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Repo{db: db, now: time.Now}, nil
}

// WithClock overrides the time source, for tests.
func (r *Repo) WithClock(now func() time.Time) *Repo {
	r.now = now
	return r
}

// Close closes the database.
func (r *Repo) Close() error {
	return r.db.Close()
}

// Ping checks the store is reachable.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("history store ping: %w", err)
	}
	return nil
}

// Insert appends a record, assigning its ID and CreatedAt.
func (r *Repo) Insert(ctx context.Context, rec *domhist.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	filters := rec.Filters
	if filters == nil {
		filters = map[string]any{}
	}
	filtersJSON, err := json.Marshal(filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO search_history (id, user_id, query, kind, filters, result_count, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Query, string(rec.Kind), string(filtersJSON),
		rec.ResultCount, string(rec.Source), rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	return nil
}

// ListByUser returns a user's records, most recent first. kind narrows to one
// search domain when non-empty. The returned slice is one page, not the full
// backing count.
func (r *Repo) ListByUser(
	ctx context.Context, userID string, kind search.Kind, limit, skip int,
) ([]domhist.Record, error) {
	q := `
		SELECT id, user_id, query, kind, filters, result_count, source, created_at
		FROM search_history
		WHERE user_id = ?`
	args := []any{userID}
	if kind != "" {
		q += " AND kind = ?"
		args = append(args, string(kind))
	}
	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, skip)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []domhist.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return records, nil
}

// TopQueries groups records within the trailing window by exact query text
// and ranks groups by count, then by most recent use. The window's lower
// bound is midnight UTC of (now - windowDays).
func (r *Repo) TopQueries(
	ctx context.Context, windowDays int, kind search.Kind, limit int,
) ([]domhist.PopularStat, error) {
	since := windowStart(r.now().UTC(), windowDays)

	q := `
		SELECT query, COUNT(*) AS cnt, MAX(created_at) AS last_used
		FROM search_history
		WHERE created_at >= ?`
	args := []any{since.UnixMilli()}
	if kind != "" {
		q += " AND kind = ?"
		args = append(args, string(kind))
	}
	q += " GROUP BY query ORDER BY cnt DESC, last_used DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate popular queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []domhist.PopularStat
	for rows.Next() {
		var s domhist.PopularStat
		var lastUsed int64
		if err := rows.Scan(&s.Query, &s.Count, &lastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan popular query: %w", err)
		}
		s.LastUsed = time.UnixMilli(lastUsed).UTC()
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate popular rows: %w", err)
	}
	return stats, nil
}

// windowStart truncates (now - days) to midnight UTC, matching the
// day-granular lower bound of the aggregation contract.
func windowStart(now time.Time, days int) time.Time {
	t := now.AddDate(0, 0, -days)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func scanRecord(rows *sql.Rows) (domhist.Record, error) {
	var (
		rec       domhist.Record
		kind      string
		source    string
		filters   string
		createdAt int64
	)
	if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Query, &kind, &filters,
		&rec.ResultCount, &source, &createdAt); err != nil {
		return domhist.Record{}, fmt.Errorf("failed to scan history record: %w", err)
	}
	rec.Kind = search.Kind(kind)
	rec.Source = search.Source(source)
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	if err := json.Unmarshal([]byte(filters), &rec.Filters); err != nil {
		return domhist.Record{}, fmt.Errorf("failed to decode filters: %w", err)
	}
	return rec, nil
}
