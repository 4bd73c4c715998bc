// Package journal records the edit stream of a canvas session so that it can
// be replayed into an identical tree elsewhere or later.
//
// A journal stores requests, never snapshots. Replaying the entries against a
// session built from the journal's Header reproduces every snapshot, including
// allocated ids, because allocation is deterministic for a given prefix.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentic-research/canvas/api"
)

// Op is what a journal entry did to the session.
type Op string

const (
	OpDispatch Op = "dispatch"
	OpUndo     Op = "undo"
	OpRedo     Op = "redo"
)

// Entry is one recorded step. Request is set for OpDispatch only.
type Entry struct {
	Seq     uint64        `json:"seq"`
	Op      Op            `json:"op"`
	Request *api.Envelope `json:"request,omitempty"`
	Time    time.Time     `json:"time"`
}

// Dispatch builds the entry for an accepted request.
func Dispatch(req api.Request) (Entry, error) {
	env, err := api.Encode(req)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Op: OpDispatch, Request: &env}, nil
}

// Decode returns the request carried by a dispatch entry.
func (e Entry) Decode() (api.Request, error) {
	if e.Op != OpDispatch || e.Request == nil {
		return nil, fmt.Errorf("entry %d: %s carries no request", e.Seq, e.Op)
	}
	return e.Request.Decode()
}

// Header describes how the session a journal belongs to was created.
type Header struct {
	Prefix     string   `json:"prefix"`
	RootID     string   `json:"rootId"`
	RootKind   string   `json:"rootKind"`
	Positioned []string `json:"positioned,omitempty"`
}

// ErrNoHeader is returned by Header on a journal nobody has written to yet.
var ErrNoHeader = errors.New("journal has no header")

// Journal is an append-only log of session entries.
type Journal interface {
	// Append stores e and returns the sequence number assigned to it.
	Append(ctx context.Context, e Entry) (uint64, error)
	// Replay calls fn for every entry with Seq >= from, in order.
	Replay(ctx context.Context, from uint64, fn func(Entry) error) error
	Header(ctx context.Context) (Header, error)
	SetHeader(ctx context.Context, h Header) error
	Close() error
}

// Drivers understood by Open.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Open opens the journal at path with the named driver.
func Open(driver, path string, logger *slog.Logger) (Journal, error) {
	var (
		j   Journal
		err error
	)
	switch driver {
	case DriverSQLite:
		j, err = OpenSQLite(path, logger)
	case DriverBolt, "bbolt":
		j, err = OpenBolt(path, logger)
	default:
		return nil, fmt.Errorf("unknown journal driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

func stamp(e Entry) Entry {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	return e
}
