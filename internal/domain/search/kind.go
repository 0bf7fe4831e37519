package search

import (
	"fmt"

	"github.com/skillswap/voicesearch/internal/domain"
)

// Kind selects the downstream search domain.
type Kind string

const (
	// KindProjects searches the projects service.
	KindProjects Kind = "projects"
	// KindUsers searches the users directory of the auth service.
	KindUsers Kind = "users"
)

// ParseKind validates a search kind. Anything but "projects" or "users"
// is rejected before any I/O happens.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindProjects, KindUsers:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidSearchType, s)
	}
}

// Source records how the query text entered the system.
type Source string

const (
	// SourceVoice marks queries recognized from uploaded audio.
	SourceVoice Source = "voice"
	// SourceText marks queries supplied as literal text.
	SourceText Source = "text"
)
