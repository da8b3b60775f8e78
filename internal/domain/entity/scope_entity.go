package entity

import (
	"sort"
	"strings"
)

// Well-known scope names seeded by cmd/seed.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin"
)

// Scope is a named permission unit granted to users.
// Many-to-many with User via user_scopes.
type Scope struct {
	Name        string
	Description string
}

// DefaultScopes are ensured by the seed command.
func DefaultScopes() []Scope {
	return []Scope{
		{Name: ScopeRead, Description: "Provides read access"},
		{Name: ScopeWrite, Description: "Provides write access"},
		{Name: ScopeAdmin, Description: "Provides administrative access"},
	}
}

// ScopeSet is an unordered set of scope names.
type ScopeSet map[string]struct{}

func NewScopeSet(names ...string) ScopeSet {
	s := make(ScopeSet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

func (s ScopeSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Missing returns the names of required that are not in s, sorted.
// An empty result means required is a subset of s.
func (s ScopeSet) Missing(required ScopeSet) []string {
	var out []string
	for name := range required {
		if !s.Has(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Contains reports whether every scope in required is present in s.
func (s ScopeSet) Contains(required ScopeSet) bool {
	return len(s.Missing(required)) == 0
}

// Names returns the set members sorted.
func (s ScopeSet) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
