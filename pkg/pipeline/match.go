package pipeline

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrBadPattern is returned for malformed select or ignore globs.
var ErrBadPattern = errors.New("bad file pattern")

// Matcher applies select and ignore globs to project-relative paths.
//
// Patterns use doublestar syntax, so "**" spans any number of directories.
// A pattern without a slash also matches the base name.
type Matcher struct {
	selects []string
	ignores []string
}

// NewMatcher validates the patterns. An empty select list selects everything.
func NewMatcher(selects, ignores []string) (*Matcher, error) {
	for _, p := range append(append([]string(nil), selects...), ignores...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, p)
		}
	}

	return &Matcher{selects: selects, ignores: ignores}, nil
}

// Match reports whether rel is selected and not ignored.
func (m *Matcher) Match(rel string) bool {
	if m == nil {
		return true
	}

	if len(m.selects) > 0 && !matchAny(m.selects, rel) {
		return false
	}

	return !matchAny(m.ignores, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if matchOne(p, rel) {
			return true
		}
	}

	return false
}

func matchOne(pattern, rel string) bool {
	if ok, _ := doublestar.Match(pattern, rel); ok {
		return true
	}

	if !strings.Contains(pattern, "/") {
		ok, _ := doublestar.Match(pattern, path.Base(rel))

		return ok
	}

	return false
}
