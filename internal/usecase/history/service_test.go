package history

import (
	"context"
	"errors"
	"testing"

	"github.com/skillswap/voicesearch/internal/domain"
	domhist "github.com/skillswap/voicesearch/internal/domain/history"
	domsearch "github.com/skillswap/voicesearch/internal/domain/search"
)

// --- Mocks ---

type mockRepo struct {
	records []domhist.Record
	stats   []domhist.PopularStat
	err     error

	lastUserID string
	lastKind   domsearch.Kind
	lastLimit  int
	lastSkip   int
	lastWindow int
}

func (m *mockRepo) ListByUser(
	_ context.Context, userID string, kind domsearch.Kind, limit, skip int,
) ([]domhist.Record, error) {
	m.lastUserID = userID
	m.lastKind = kind
	m.lastLimit = limit
	m.lastSkip = skip
	return m.records, m.err
}

func (m *mockRepo) TopQueries(
	_ context.Context, windowDays int, kind domsearch.Kind, limit int,
) ([]domhist.PopularStat, error) {
	m.lastWindow = windowDays
	m.lastKind = kind
	m.lastLimit = limit
	return m.stats, m.err
}

// --- Tests ---

func TestListForUser_Defaults(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo)

	if _, err := svc.ListForUser(context.Background(), "u1", "", 0, -5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastLimit != 10 {
		t.Errorf("expected default limit 10, got %d", repo.lastLimit)
	}
	if repo.lastSkip != 0 {
		t.Errorf("negative skip must clamp to 0, got %d", repo.lastSkip)
	}
	if repo.lastKind != "" {
		t.Errorf("empty kind must pass through unscoped, got %q", repo.lastKind)
	}
}

func TestListForUser_ClampsLimit(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo)

	if _, err := svc.ListForUser(context.Background(), "u1", "", 500, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastLimit != 100 {
		t.Errorf("expected limit clamped to 100, got %d", repo.lastLimit)
	}
}

func TestListForUser_InvalidKind(t *testing.T) {
	svc := New(&mockRepo{})

	_, err := svc.ListForUser(context.Background(), "u1", "advice", 10, 0)
	if !errors.Is(err, domain.ErrInvalidSearchType) {
		t.Fatalf("expected ErrInvalidSearchType, got %v", err)
	}
}

func TestListForUser_KindPassthrough(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo)

	if _, err := svc.ListForUser(context.Background(), "u1", "users", 10, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastKind != domsearch.KindUsers {
		t.Errorf("expected users kind, got %q", repo.lastKind)
	}
	if repo.lastSkip != 3 {
		t.Errorf("expected skip passthrough, got %d", repo.lastSkip)
	}
}

func TestPopular_Defaults(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo)

	if _, err := svc.Popular(context.Background(), "", 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastLimit != 10 {
		t.Errorf("expected default limit 10, got %d", repo.lastLimit)
	}
	if repo.lastWindow != 7 {
		t.Errorf("expected default window 7, got %d", repo.lastWindow)
	}
}

func TestPopular_ClampsWindow(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo)

	if _, err := svc.Popular(context.Background(), "", 10, 365); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastWindow != 30 {
		t.Errorf("expected window clamped to 30, got %d", repo.lastWindow)
	}
}

func TestPopular_InvalidKind(t *testing.T) {
	svc := New(&mockRepo{})

	_, err := svc.Popular(context.Background(), "advice", 10, 7)
	if !errors.Is(err, domain.ErrInvalidSearchType) {
		t.Fatalf("expected ErrInvalidSearchType, got %v", err)
	}
}

func TestPopular_RepoError(t *testing.T) {
	repo := &mockRepo{err: errors.New("db locked")}
	svc := New(repo)

	if _, err := svc.Popular(context.Background(), "", 10, 7); err == nil {
		t.Fatal("expected repo error to surface")
	}
}
