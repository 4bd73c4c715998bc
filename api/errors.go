package api

import (
	"errors"
	"fmt"
)

// Rejection taxonomy. Every engine rejection wraps exactly one of these.
var (
	// ErrNodeNotFound indicates a referenced id does not exist in the snapshot.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvariantViolation indicates the request would break a structural
	// rule of the tree: removing or deleting the root, a cyclic destination,
	// a duplicate identifier, or a malformed request.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrAllocationExhausted indicates the identifier space of the session's
	// allocator is used up.
	ErrAllocationExhausted = errors.New("identifier space exhausted")
)

// Rejection is returned by the engine when a request is refused. The snapshot
// the request was applied to is left untouched.
type Rejection struct {
	// Op is the request kind that was refused.
	Op RequestKind
	// ID is the node id the rejection is about, which is not always the
	// request's target (e.g. a missing destination parent).
	ID string
	// Reason is a short human readable explanation.
	Reason string
	// Err is one of the taxonomy sentinels.
	Err error
}

func (e *Rejection) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %q: %v: %s", e.Op, e.ID, e.Err, e.Reason)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Reason)
}

func (e *Rejection) Unwrap() error {
	return e.Err
}

// Reject builds a Rejection.
func Reject(op RequestKind, err error, id, format string, args ...any) *Rejection {
	return &Rejection{Op: op, ID: id, Reason: fmt.Sprintf(format, args...), Err: err}
}

// IsRejection reports whether err is an engine rejection, as opposed to a
// host-side failure such as a journal write error.
func IsRejection(err error) bool {
	var rej *Rejection
	return errors.As(err, &rej)
}
