// Package gitignore implements path matching with gitignore-style patterns,
// used for ignored-path filtering and guardrail scope globs.
package gitignore

import (
	"sync"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/mergeguard/mergeguard"
)

// Compile-time interface verification.
var _ mergeguard.PathMatcher = (*Matcher)(nil)

// Matcher matches paths against a compiled set of gitignore-style patterns.
type Matcher struct {
	gi *ignore.GitIgnore
}

// NewMatcher compiles the given patterns.
func NewMatcher(patterns []string) *Matcher {
	return &Matcher{gi: ignore.CompileIgnoreLines(patterns...)}
}

// Matches reports whether path matches any pattern.
func (m *Matcher) Matches(path string) bool {
	return m.gi.MatchesPath(path)
}

// compiled caches single-pattern matchers; guardrail rules re-evaluate the
// same globs for every file.
var compiled sync.Map // pattern -> *ignore.GitIgnore

// Glob is a mergeguard.GlobFunc built on gitignore-style matching, which
// supports ** and directory patterns.
func Glob(pattern, path string) bool {
	if v, ok := compiled.Load(pattern); ok {
		return v.(*ignore.GitIgnore).MatchesPath(path)
	}
	gi := ignore.CompileIgnoreLines(pattern)
	compiled.Store(pattern, gi)
	return gi.MatchesPath(path)
}

var _ mergeguard.GlobFunc = Glob
