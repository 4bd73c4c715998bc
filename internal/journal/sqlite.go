package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentic-research/canvas/api"
	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	op TEXT NOT NULL,
	kind TEXT,
	target TEXT,
	payload JSON,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_target ON entries(target);

CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
) WITHOUT ROWID;
`

const headerKey = "header"

// SQLite is a Journal stored in a SQLite database.
type SQLite struct {
	db     *sql.DB
	stmt   *sql.Stmt
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the journal database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer; also keeps :memory: databases on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	stmt, err := db.Prepare("INSERT INTO entries (op, kind, target, payload, created_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	logger.Debug("journal opened", "driver", DriverSQLite, "path", path)
	return &SQLite{db: db, stmt: stmt, logger: logger}, nil
}

func (j *SQLite) Append(ctx context.Context, e Entry) (uint64, error) {
	e = stamp(e)
	var kind, target, payload any
	if e.Request != nil {
		req, err := e.Request.Decode()
		if err != nil {
			return 0, fmt.Errorf("append: %w", err)
		}
		kind, target, payload = string(req.Kind()), req.Target(), string(e.Request.Payload)
	}
	res, err := j.stmt.ExecContext(ctx, string(e.Op), kind, target, payload, e.Time.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("append: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append: %w", err)
	}
	return uint64(seq), nil
}

func (j *SQLite) Replay(ctx context.Context, from uint64, fn func(Entry) error) error {
	rows, err := j.db.QueryContext(ctx,
		"SELECT seq, op, kind, payload, created_at FROM entries WHERE seq >= ? ORDER BY seq", from)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			op      string
			kind    sql.NullString
			payload sql.NullString
			nanos   int64
		)
		if err := rows.Scan(&e.Seq, &op, &kind, &payload, &nanos); err != nil {
			_ = rows.Close()
			return fmt.Errorf("replay: %w", err)
		}
		e.Op, e.Time = Op(op), time.Unix(0, nanos).UTC()
		if kind.Valid {
			e.Request = &api.Envelope{Type: api.RequestKind(kind.String), Payload: json.RawMessage(payload.String)}
		}
		entries = append(entries, e)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	j.logger.Debug("journal replay", "driver", DriverSQLite, "from", from, "entries", len(entries))
	// Rows are drained first: fn may append to this journal.
	for _, e := range entries {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (j *SQLite) Header(ctx context.Context) (Header, error) {
	var raw string
	err := j.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", headerKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Header{}, ErrNoHeader
	}
	if err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return Header{}, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

func (j *SQLite) SetHeader(ctx context.Context, h Header) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	_, err = j.db.ExecContext(ctx,
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		headerKey, string(raw))
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// CountByKind returns how many dispatch entries were recorded per request
// kind.
func (j *SQLite) CountByKind(ctx context.Context) (map[api.RequestKind]int, error) {
	rows, err := j.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM entries WHERE kind IS NOT NULL GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := make(map[api.RequestKind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
		out[api.RequestKind(kind)] = n
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	_ = j.stmt.Close()
	return j.db.Close()
}
