// Package ids generates identifiers for entities that cross the
// relational/graph boundary and need a stable key on both sides.
package ids

import "github.com/google/uuid"

// New returns a new random identifier.
func New() string {
	return uuid.NewString()
}

// NewScoped returns a new identifier prefixed with a short type tag, e.g.
// "pat_3fa..." for a pattern id, so log lines and cache keys are
// self-describing without a schema lookup.
func NewScoped(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// Valid reports whether s parses as a UUID, ignoring any scoped prefix
// added by NewScoped (everything after the last underscore).
func Valid(s string) bool {
	if idx := lastUnderscore(s); idx >= 0 {
		s = s[idx+1:]
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func lastUnderscore(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '_' {
			return i
		}
	}
	return -1
}
