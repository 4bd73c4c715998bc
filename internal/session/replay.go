package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentic-research/canvas/internal/ident"
	"github.com/agentic-research/canvas/internal/journal"
	"github.com/agentic-research/canvas/internal/tree"
)

// Source is a journal that can be read back.
type Source interface {
	Replay(ctx context.Context, from uint64, fn func(journal.Entry) error) error
}

// Replay applies the entries of src with Seq >= from to the session, without
// recording them again. Any entry the session rejects aborts the replay: a
// journal only ever holds accepted edits, so a rejection means the session
// did not start from the journal's header.
func (s *Session) Replay(ctx context.Context, src Source, from uint64) (int, error) {
	var n int
	err := src.Replay(ctx, from, func(e journal.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch e.Op {
		case journal.OpDispatch:
			req, err := e.Decode()
			if err != nil {
				return err
			}
			if _, err := s.dispatch(ctx, req, false); err != nil {
				return fmt.Errorf("entry %d: %w", e.Seq, err)
			}
		case journal.OpUndo, journal.OpRedo:
			if _, err := s.step(ctx, e.Op, false); err != nil {
				return fmt.Errorf("entry %d: %w", e.Seq, err)
			}
		default:
			return fmt.Errorf("entry %d: unknown op %q", e.Seq, e.Op)
		}
		n++
		return nil
	})
	s.logger.Info("journal replayed", "entries", n, "version", s.Current().Version())
	return n, err
}

// FromHeader builds the initial snapshot and allocator a journal header
// describes.
func FromHeader(h journal.Header) (*tree.Snapshot, *ident.Allocator) {
	snap := tree.New(h.RootID, h.RootKind, tree.WithLayout(tree.NewLayout(h.Positioned...)))
	return snap, ident.New(ident.WithPrefix(h.Prefix))
}

// Restore opens the session recorded in j. A journal without a header is
// initialized from fallback (with a random prefix if fallback has none).
// Every recorded entry is replayed, and from then on the session records to
// j. opts are applied before the journal's allocator and recorder.
func Restore(ctx context.Context, j journal.Journal, fallback journal.Header, opts ...Option) (*Session, journal.Header, error) {
	h, err := j.Header(ctx)
	switch {
	case errors.Is(err, journal.ErrNoHeader):
		h = fallback
		if h.Prefix == "" {
			h.Prefix = ident.NewPrefix()
		}
		if err := j.SetHeader(ctx, h); err != nil {
			return nil, h, err
		}
	case err != nil:
		return nil, h, err
	}

	snap, alloc := FromHeader(h)
	s := New(snap, append(opts, WithAllocator(alloc))...)
	if _, err := s.Replay(ctx, j, 0); err != nil {
		return nil, h, fmt.Errorf("restore: %w", err)
	}
	s.mu.Lock()
	s.recorder = j
	s.mu.Unlock()
	return s, h, nil
}
