package journal

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"
)

const (
	bucketEntries = "entries"
	bucketMeta    = "meta"
)

// Bolt is a Journal stored in a bbolt file. Entries are keyed by their
// big-endian sequence number so cursor order is append order.
type Bolt struct {
	db     *bolt.DB
	logger *slog.Logger
}

// OpenBolt opens (creating if needed) the journal file at path.
func OpenBolt(path string, logger *slog.Logger) (*Bolt, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{bucketEntries, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	logger.Debug("journal opened", "driver", DriverBolt, "path", path)
	return &Bolt{db: db, logger: logger}, nil
}

func (j *Bolt) Append(ctx context.Context, e Entry) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e = stamp(e)
	var seq uint64
	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketEntries))
		var err error
		if seq, err = b.NextSequence(); err != nil {
			return err
		}
		e.Seq = seq
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), data)
	})
	if err != nil {
		return 0, fmt.Errorf("append: %w", err)
	}
	return seq, nil
}

func (j *Bolt) Replay(ctx context.Context, from uint64, fn func(Entry) error) error {
	var entries []Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketEntries)).Cursor()
		for k, v := c.Seek(marshalSeq(from)); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("entry %d: %w", unmarshalSeq(k), err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	j.logger.Debug("journal replay", "driver", DriverBolt, "from", from, "entries", len(entries))
	for _, e := range entries {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (j *Bolt) Header(ctx context.Context) (Header, error) {
	var h Header
	err := j.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketMeta)).Get([]byte(headerKey))
		if v == nil {
			return ErrNoHeader
		}
		return json.Unmarshal(v, &h)
	})
	return h, err
}

func (j *Bolt) SetHeader(ctx context.Context, h Header) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketMeta)).Put([]byte(headerKey), data)
	})
}

func (j *Bolt) Close() error {
	return j.db.Close()
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
