package search

import (
	"errors"
	"strings"
	"testing"

	"github.com/skillswap/voicesearch/internal/domain"
)

func strPtr(s string) *string   { return &s }
func numPtr(v float64) *float64 { return &v }

func mustQuery(t *testing.T, text string, kind Kind, f Filters, page, limit int) Query {
	t.Helper()
	q, err := New(text, kind, f, page, limit, 100)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return q
}

func TestNew_TrimsText(t *testing.T) {
	q := mustQuery(t, "  react developer  ", KindProjects, Filters{}, 1, 10)
	if q.Text() != "react developer" {
		t.Errorf("expected trimmed text, got %q", q.Text())
	}
}

func TestNew_EmptyText(t *testing.T) {
	_, err := New("   ", KindProjects, Filters{}, 1, 10, 100)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNew_PageBounds(t *testing.T) {
	if _, err := New("q", KindProjects, Filters{}, 0, 10, 100); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("page=0: expected ErrInvalidInput, got %v", err)
	}
	if _, err := New("q", KindProjects, Filters{}, 1, 0, 100); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("limit=0: expected ErrInvalidInput, got %v", err)
	}
	if _, err := New("q", KindProjects, Filters{}, 1, 101, 100); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("limit>max: expected ErrInvalidInput, got %v", err)
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	f := Filters{Category: strPtr("web"), Skills: []string{"go", "redis"}}
	a := mustQuery(t, "api design", KindProjects, f, 2, 20).CacheKey("voicesearch:")
	b := mustQuery(t, "api design", KindProjects, f, 2, 20).CacheKey("voicesearch:")
	if a != b {
		t.Errorf("identical queries produced different keys:\n%s\n%s", a, b)
	}
	want := "voicesearch:projects:api+design:category=web:skills=go,redis:page=2:limit=20"
	if a != want {
		t.Errorf("unexpected key:\n got %s\nwant %s", a, want)
	}
}

func TestCacheKey_AbsentEqualsEmpty(t *testing.T) {
	absent := mustQuery(t, "logo", KindProjects, Filters{}, 1, 10)
	empty := mustQuery(t, "logo", KindProjects, Filters{
		Category: strPtr("  "),
		Skills:   []string{"", "  "},
	}, 1, 10)
	if absent.CacheKey("p:") != empty.CacheKey("p:") {
		t.Errorf("absent and empty filters must collide:\n%s\n%s",
			absent.CacheKey("p:"), empty.CacheKey("p:"))
	}
}

func TestCacheKey_KindSeparates(t *testing.T) {
	p := mustQuery(t, "design", KindProjects, Filters{}, 1, 10).CacheKey("p:")
	u := mustQuery(t, "design", KindUsers, Filters{}, 1, 10).CacheKey("p:")
	if p == u {
		t.Error("projects and users keys must differ")
	}
}

func TestCacheKey_PaginationSeparates(t *testing.T) {
	a := mustQuery(t, "design", KindProjects, Filters{}, 1, 10).CacheKey("p:")
	b := mustQuery(t, "design", KindProjects, Filters{}, 2, 10).CacheKey("p:")
	c := mustQuery(t, "design", KindProjects, Filters{}, 1, 20).CacheKey("p:")
	if a == b || a == c {
		t.Error("page and limit must be part of the key")
	}
}

func TestCacheKey_EscapesSeparators(t *testing.T) {
	// A crafted value must not collide with a genuinely filtered query.
	crafted := mustQuery(t, "design:category=web", KindProjects, Filters{}, 1, 10)
	filtered := mustQuery(t, "design", KindProjects, Filters{Category: strPtr("web")}, 1, 10)
	if crafted.CacheKey("p:") == filtered.CacheKey("p:") {
		t.Error("escaping failed: crafted text collided with a filtered key")
	}
	if strings.Contains(crafted.CacheKey("p:"), "design:category") {
		t.Error("separator characters leaked into the key unescaped")
	}
}

func TestCacheKey_KindScoping(t *testing.T) {
	// Role is meaningless for projects and must not split the cache.
	plain := mustQuery(t, "design", KindProjects, Filters{}, 1, 10)
	withRole := mustQuery(t, "design", KindProjects, Filters{Role: strPtr("freelancer")}, 1, 10)
	if plain.CacheKey("p:") != withRole.CacheKey("p:") {
		t.Error("role must be stripped for project searches")
	}

	budget := mustQuery(t, "design", KindUsers, Filters{BudgetMin: numPtr(100)}, 1, 10)
	plainUsers := mustQuery(t, "design", KindUsers, Filters{}, 1, 10)
	if budget.CacheKey("p:") != plainUsers.CacheKey("p:") {
		t.Error("budget must be stripped for user searches")
	}
}

func TestCacheKey_BudgetFormatting(t *testing.T) {
	q := mustQuery(t, "q", KindProjects, Filters{
		BudgetMin: numPtr(100),
		BudgetMax: numPtr(2500.5),
	}, 1, 10)
	key := q.CacheKey("p:")
	if !strings.Contains(key, ":budget_min=100:") {
		t.Errorf("integral budget should render without decimals: %s", key)
	}
	if !strings.Contains(key, ":budget_max=2500.5:") {
		t.Errorf("fractional budget should keep its fraction: %s", key)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("projects"); err != nil || k != KindProjects {
		t.Errorf("projects: got %v, %v", k, err)
	}
	if k, err := ParseKind("users"); err != nil || k != KindUsers {
		t.Errorf("users: got %v, %v", k, err)
	}
	if _, err := ParseKind("advice"); !errors.Is(err, domain.ErrInvalidSearchType) {
		t.Errorf("expected ErrInvalidSearchType, got %v", err)
	}
	if _, err := ParseKind(""); !errors.Is(err, domain.ErrInvalidSearchType) {
		t.Errorf("empty: expected ErrInvalidSearchType, got %v", err)
	}
}

func TestParseSkills(t *testing.T) {
	got := ParseSkills(" go , redis ,, sql ")
	want := []string{"go", "redis", "sql"}
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if ParseSkills("  ") != nil {
		t.Error("blank input should yield nil")
	}
	if ParseSkills(",,") != nil {
		t.Error("only-separator input should yield nil")
	}
}
