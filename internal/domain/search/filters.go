package search

import "strings"

// Filters narrows a search. Which fields are meaningful depends on the kind:
// Category/Skills/BudgetMin/BudgetMax for projects, Role/Skills for users.
// A nil pointer (or empty Skills) means the filter was not supplied; the
// backends treat an empty value the same as an absent one, so Normalize folds
// empty values into absent before cache keys or request params are built.
type Filters struct {
	Category  *string
	Role      *string
	Skills    []string
	BudgetMin *float64
	BudgetMax *float64
}

// Normalize returns a copy with empty string filters dropped and skills
// tokens trimmed. Empty and absent collapse to the same representation.
func (f Filters) Normalize() Filters {
	out := Filters{
		BudgetMin: f.BudgetMin,
		BudgetMax: f.BudgetMax,
	}
	if f.Category != nil {
		if v := strings.TrimSpace(*f.Category); v != "" {
			out.Category = &v
		}
	}
	if f.Role != nil {
		if v := strings.TrimSpace(*f.Role); v != "" {
			out.Role = &v
		}
	}
	for _, s := range f.Skills {
		if s = strings.TrimSpace(s); s != "" {
			out.Skills = append(out.Skills, s)
		}
	}
	return out
}

// ForKind strips filters the given kind does not understand, so that a stray
// role on a project search (or budget on a user search) cannot split the
// cache or leak into backend params.
func (f Filters) ForKind(kind Kind) Filters {
	switch kind {
	case KindProjects:
		f.Role = nil
	case KindUsers:
		f.Category = nil
		f.BudgetMin = nil
		f.BudgetMax = nil
	}
	return f
}

// ParseSkills splits a comma-delimited skills value into ordered, trimmed,
// non-empty tokens. Empty tokens are dropped.
func ParseSkills(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
