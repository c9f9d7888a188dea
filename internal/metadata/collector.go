package metadata

import (
	"context"
	"fmt"

	"platter/internal/disc"
)

// Collector is a source of candidate metadata for one disc. Implementations
// may perform network I/O or read local state, but must not mutate anything
// beyond their own returned record. Each collector is independently fallible;
// a failure never prevents the other collectors from running.
type Collector interface {
	Name() string
	Collect(ctx context.Context, toc disc.TOC) (*Record, error)
}

// Error is the typed failure raised by metadata operations. Hint carries the
// human context: which service failed and why (missing credential, transport
// failure, no match, malformed response).
type Error struct {
	Source string
	Hint   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Hint != "":
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Hint, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Source, e.Hint)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a collector-scoped metadata error.
func NewError(source, hint string, err error) *Error {
	return &Error{Source: source, Hint: hint, Err: err}
}
