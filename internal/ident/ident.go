// Package ident allocates node identifiers for a canvas session.
package ident

import (
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/agentic-research/canvas/api"
	"github.com/google/uuid"
)

// Allocator hands out identifiers of the form "<prefix>-<n>". The counter only
// moves forward, so an id is never issued twice in a session, including ids of
// nodes that were deleted since.
type Allocator struct {
	prefix string
	next   atomic.Uint64
	limit  uint64
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithPrefix fixes the session prefix. Two allocators with the same prefix and
// start issue the same sequence, which is what deterministic replay relies on.
func WithPrefix(prefix string) Option {
	return func(a *Allocator) { a.prefix = prefix }
}

// WithStart sets the first counter value to issue.
func WithStart(n uint64) Option {
	return func(a *Allocator) { a.next.Store(n) }
}

// WithLimit caps the number space: counter values >= limit are never issued.
func WithLimit(limit uint64) Option {
	return func(a *Allocator) { a.limit = limit }
}

// New returns an Allocator. Without WithPrefix the prefix is the first block
// of a random UUID.
func New(opts ...Option) *Allocator {
	a := &Allocator{limit: math.MaxUint64}
	a.next.Store(1)
	for _, opt := range opts {
		opt(a)
	}
	if a.prefix == "" {
		a.prefix = NewPrefix()
	}
	return a
}

// NewPrefix returns a fresh random session prefix.
func NewPrefix() string {
	id := uuid.NewString()
	return id[:strings.IndexByte(id, '-')]
}

// Next returns a new identifier, or api.ErrAllocationExhausted once the limit
// is reached.
func (a *Allocator) Next() (string, error) {
	for {
		n := a.next.Load()
		if n >= a.limit {
			return "", api.ErrAllocationExhausted
		}
		if a.next.CompareAndSwap(n, n+1) {
			return a.prefix + "-" + strconv.FormatUint(n, 10), nil
		}
	}
}

// Prefix returns the session prefix.
func (a *Allocator) Prefix() string {
	return a.prefix
}

// Peek returns the counter value the next call to Next would use.
func (a *Allocator) Peek() uint64 {
	return a.next.Load()
}

// Owns reports whether id has the shape of an identifier this allocator
// issued (or will issue).
func (a *Allocator) Owns(id string) bool {
	rest, ok := strings.CutPrefix(id, a.prefix+"-")
	if !ok {
		return false
	}
	_, err := strconv.ParseUint(rest, 10, 64)
	return err == nil
}
