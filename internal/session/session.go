// Package session owns the current snapshot of a canvas and serializes edits
// against it. It is the host-side counterpart of the engine: the engine
// computes transitions, the session decides which snapshot is current, keeps
// undo/redo history, records accepted edits to a journal and tells observers.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/agentic-research/canvas/api"
	"github.com/agentic-research/canvas/internal/engine"
	"github.com/agentic-research/canvas/internal/journal"
	"github.com/agentic-research/canvas/internal/tree"
)

// DefaultHistoryLimit bounds the undo stack when no limit is configured.
const DefaultHistoryLimit = 100

// Recorder receives every step the session takes. journal.Journal satisfies
// it.
type Recorder interface {
	Append(ctx context.Context, e journal.Entry) (uint64, error)
}

// Change is delivered to subscribers after the current snapshot moved.
type Change struct {
	Op      journal.Op
	Request api.Request // nil for undo and redo
	Events  []api.Event // nil for undo and redo
	Before  *tree.Snapshot
	After   *tree.Snapshot
}

// Session is safe for concurrent use. Dispatch, Undo and Redo are serialized;
// readers see the snapshot current at the time of the call.
type Session struct {
	mu      sync.RWMutex
	current *tree.Snapshot
	undo    []*tree.Snapshot
	redo    []*tree.Snapshot

	alloc    engine.Allocator
	recorder Recorder
	limit    int
	validate bool
	logger   *slog.Logger

	subMu  sync.Mutex
	subs   []subscriber
	nextID int

	// Changes are numbered under mu and delivered strictly in that order.
	committed   uint64
	deliverMu   sync.Mutex
	deliverCond *sync.Cond
	delivered   uint64
}

type subscriber struct {
	id int
	fn func(Change)
}

// Option configures a Session.
type Option func(*Session)

// WithAllocator sets the allocator used for engine-minted ids.
func WithAllocator(a engine.Allocator) Option {
	return func(s *Session) { s.alloc = a }
}

// WithRecorder records every accepted step, normally to a journal.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithHistoryLimit bounds how many prior snapshots Undo can reach. Zero
// disables history.
func WithHistoryLimit(n int) Option {
	return func(s *Session) { s.limit = max(n, 0) }
}

// WithValidation re-checks every structural invariant after each accepted
// edit. It costs a full walk per edit.
func WithValidation(on bool) Option {
	return func(s *Session) { s.validate = on }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New returns a session whose current snapshot is initial.
func New(initial *tree.Snapshot, opts ...Option) *Session {
	s := &Session{
		current: initial,
		limit:   DefaultHistoryLimit,
	}
	s.deliverCond = sync.NewCond(&s.deliverMu)
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Current returns the current snapshot.
func (s *Session) Current() *tree.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ErrRecord wraps failures of the recorder. The edit was not applied.
var ErrRecord = errors.New("record edit")

// Dispatch applies req to the current snapshot. Rejections come back as
// *api.Rejection and leave the session untouched. An accepted request that
// changes nothing is not recorded and does not enter history. A session with
// a recorder applies req in its JSON form, so props read back as JSON decodes
// them (numbers as float64, arrays as []any).
func (s *Session) Dispatch(ctx context.Context, req api.Request) (engine.Result, error) {
	return s.dispatch(ctx, req, true)
}

func (s *Session) dispatch(ctx context.Context, req api.Request, record bool) (engine.Result, error) {
	record = record && s.recorder != nil
	var entry journal.Entry
	if record {
		// Apply the request as the journal will hand it back on replay, so that
		// live and replayed snapshots hold identical props.
		var err error
		if entry, err = journal.Dispatch(req); err == nil {
			req, err = entry.Decode()
		}
		if err != nil {
			return engine.Result{Snapshot: s.Current()}, fmt.Errorf("%w: %w", ErrRecord, err)
		}
	}

	s.mu.Lock()
	before := s.current
	res, err := engine.Apply(before, req, s.alloc)
	if err != nil {
		s.mu.Unlock()
		s.logger.Debug("request rejected", "error", err)
		return res, err
	}
	if !res.Changed(before) {
		s.mu.Unlock()
		return res, nil
	}
	if s.validate {
		if err := tree.Validate(res.Snapshot); err != nil {
			s.mu.Unlock()
			s.logger.Error("engine produced an invalid snapshot", "kind", req.Kind(), "error", err)
			return engine.Result{Snapshot: before}, fmt.Errorf("%s: %w", req.Kind(), err)
		}
	}
	if record {
		if _, err := s.recorder.Append(ctx, entry); err != nil {
			s.mu.Unlock()
			return engine.Result{Snapshot: before}, fmt.Errorf("%w: %w", ErrRecord, err)
		}
	}
	s.push(before)
	s.redo = nil
	s.current = res.Snapshot
	s.committed++
	seq := s.committed
	s.mu.Unlock()

	s.logger.Debug("request applied", "kind", req.Kind(), "target", req.Target(),
		"events", len(res.Events), "version", res.Snapshot.Version())
	s.deliver(seq, Change{Op: journal.OpDispatch, Request: req, Events: res.Events, Before: before, After: res.Snapshot})
	return res, nil
}

// Undo makes the previous snapshot current. It reports false when there is
// nothing to undo.
func (s *Session) Undo(ctx context.Context) (bool, error) {
	return s.step(ctx, journal.OpUndo, true)
}

// Redo re-applies the most recently undone snapshot.
func (s *Session) Redo(ctx context.Context) (bool, error) {
	return s.step(ctx, journal.OpRedo, true)
}

func (s *Session) step(ctx context.Context, op journal.Op, record bool) (bool, error) {
	s.mu.Lock()
	from, to := &s.undo, &s.redo
	if op == journal.OpRedo {
		from, to = to, from
	}
	if len(*from) == 0 {
		s.mu.Unlock()
		return false, nil
	}
	if record && s.recorder != nil {
		if _, err := s.recorder.Append(ctx, journal.Entry{Op: op}); err != nil {
			s.mu.Unlock()
			return false, fmt.Errorf("%w: %w", ErrRecord, err)
		}
	}
	before := s.current
	next := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	*to = append(*to, before)
	s.current = next
	s.committed++
	seq := s.committed
	s.mu.Unlock()

	s.logger.Debug("history step", "op", op, "version", next.Version())
	s.deliver(seq, Change{Op: op, Before: before, After: next})
	return true, nil
}

// CanUndo reports whether Undo would do anything.
func (s *Session) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.undo) > 0
}

// CanRedo reports whether Redo would do anything.
func (s *Session) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.redo) > 0
}

func (s *Session) push(snap *tree.Snapshot) {
	if s.limit == 0 {
		return
	}
	if len(s.undo) == s.limit {
		copy(s.undo, s.undo[1:])
		s.undo = s.undo[:len(s.undo)-1]
	}
	s.undo = append(s.undo, snap)
}

// Subscribe registers fn to be called after every change, on the goroutine
// that made it. Changes reach subscribers one at a time in the order they
// were committed, and Dispatch, Undo and Redo return only after their own
// change was delivered. fn may read the session but must not edit it. The
// returned func unsubscribes.
func (s *Session) Subscribe(fn func(Change)) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
	}
}

// deliver waits until every earlier change was delivered, then notifies.
func (s *Session) deliver(seq uint64, c Change) {
	s.deliverMu.Lock()
	for s.delivered != seq-1 {
		s.deliverCond.Wait()
	}
	s.deliverMu.Unlock()

	defer func() {
		s.deliverMu.Lock()
		s.delivered = seq
		s.deliverCond.Broadcast()
		s.deliverMu.Unlock()
	}()
	s.notify(c)
}

func (s *Session) notify(c Change) {
	s.subMu.Lock()
	subs := slices.Clone(s.subs)
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.fn(c)
	}
}
