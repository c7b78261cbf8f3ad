package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var (
	boltSnapshotBucket = []byte("snapshot")
	boltHistoryBucket  = []byte("history")
	boltCurrentKey     = []byte("current")
)

// BoltStore keeps snapshots in a bbolt file. bbolt holds an exclusive file
// lock while open, so a second tb process waits on Open instead of needing
// a lease.
type BoltStore struct {
	db   *bolt.DB
	opts Options
	log  *zap.Logger
}

type boltRevision struct {
	SavedAt time.Time `json:"saved_at"`
	Body    []byte    `json:"body"`
}

// OpenBolt initializes the bbolt file and ensures the buckets exist.
func OpenBolt(path string, opts Options) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(boltSnapshotBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(boltHistoryBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	opts = opts.normalized()
	return &BoltStore{db: db, opts: opts, log: opts.Logger.With(zap.String("backend", "bolt"))}, nil
}

// Load returns the current snapshot, or ErrNoSnapshot.
func (s *BoltStore) Load() ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	var body []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(boltSnapshotBucket).Get(boltCurrentKey); v != nil {
			body = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if body == nil {
		return nil, ErrNoSnapshot
	}
	return body, nil
}

// Save replaces the current snapshot and appends a history revision.
func (s *BoltStore) Save(body []byte) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	rev, err := json.Marshal(boltRevision{SavedAt: time.Now().UTC(), Body: body})
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(boltSnapshotBucket).Put(boltCurrentKey, body); err != nil {
			return err
		}
		if s.opts.History <= 0 {
			return nil
		}
		hist := tx.Bucket(boltHistoryBucket)
		seq, err := hist.NextSequence()
		if err != nil {
			return err
		}
		if err := hist.Put(seqKey(seq), rev); err != nil {
			return err
		}
		var keys [][]byte
		c := hist.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for i := 0; i < len(keys)-s.opts.History; i++ {
			if err := hist.Delete(keys[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	s.log.Debug("snapshot saved", zap.Int("bytes", len(body)))
	return nil
}

// History lists revisions newest first.
func (s *BoltStore) History(limit int) ([]Revision, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	var revs []Revision
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltHistoryBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(revs) >= limit {
				break
			}
			var r boltRevision
			if err := json.Unmarshal(v, &r); err != nil {
				continue
			}
			revs = append(revs, Revision{
				ID:      int64(binary.BigEndian.Uint64(k)),
				SavedAt: r.SavedAt,
				Size:    len(r.Body),
			})
		}
		return nil
	})
	return revs, err
}

// Revision returns the body of one history revision.
func (s *BoltStore) Revision(id int64) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	var body []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltHistoryBucket).Get(seqKey(uint64(id)))
		if v == nil {
			return fmt.Errorf("revision %d: %w", id, ErrNoSnapshot)
		}
		var r boltRevision
		if err := json.Unmarshal(v, &r); err != nil {
			return fmt.Errorf("decode revision %d: %w", id, err)
		}
		body = r.Body
		return nil
	})
	return body, err
}

// Close closes the bbolt database.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
