// Package retry implements bounded exponential backoff with jitter and
// textual + typed error classification for the relational, graph, and
// embedding backends.
package retry

import (
	"errors"
	"strings"

	"repoanalyzer.dev/graphstore"
	"repoanalyzer.dev/relational"
)

// retryablePatterns and nonRetryablePatterns mirror the original
// implementation's classification lists; non-retryable patterns take
// precedence when both match (e.g. "value error" in "connection refused: value error").
var retryablePatterns = []string{
	"connection refused", "timeout", "timed out", "temporarily unavailable",
	"deadlock", "connection reset", "broken pipe", "overloaded",
	"too many connections", "resource temporarily unavailable",
	"connection lost", "network error", "server unavailable",
	"service unavailable", "connection error", "socket error",
	"connection was reset",
}

var nonRetryablePatterns = []string{
	"syntax error", "constraint", "invalid", "not found", "already exists",
	"schema", "authentication", "authorization", "permission",
	"type error", "value error", "index error", "out of bounds",
	"null", "undefined",
}

// Retryable marks an error as explicitly retryable regardless of its
// message text, overriding pattern matching.
type Retryable struct{ Err error }

func (r *Retryable) Error() string { return r.Err.Error() }
func (r *Retryable) Unwrap() error { return r.Err }

// NonRetryable marks an error as explicitly non-retryable.
type NonRetryable struct{ Err error }

func (n *NonRetryable) Error() string { return n.Err.Error() }
func (n *NonRetryable) Unwrap() error { return n.Err }

// PartialCommit, defined in txcoord, has no case of its own here: it is
// classified by its message text and, through Unwrap, by its graph error,
// so a wrapped *graphstore.Neo4jError makes it retryable. The set of
// default-retryable types is fixed in IsRetryable; other packages cannot add
// to it.

// IsRetryable decides whether err should trigger another attempt. Explicit
// typed wrappers take precedence, then non-retryable text patterns, then
// retryable text patterns, then backend-error-family errors default to
// retryable, then a conservative default of false for everything else.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var nr *NonRetryable
	if asNonRetryable(err, &nr) {
		return false
	}
	var r *Retryable
	if asRetryable(err, &r) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range nonRetryablePatterns {
		if strings.Contains(msg, p) {
			return false
		}
	}
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	var pgErr *relational.PostgresError
	var neoErr *graphstore.Neo4jError
	if errors.As(err, &pgErr) || errors.As(err, &neoErr) {
		return true
	}
	return false
}

func asNonRetryable(err error, target **NonRetryable) bool {
	for err != nil {
		if nr, ok := err.(*NonRetryable); ok {
			*target = nr
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func asRetryable(err error, target **Retryable) bool {
	for err != nil {
		if r, ok := err.(*Retryable); ok {
			*target = r
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
