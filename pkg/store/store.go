// Package store persists timebank snapshots.
//
// The default backend is SQLite in WAL mode. The current snapshot lives in a
// single-row table; every save is also appended to a history table that is
// trimmed to the last few revisions. A small leases table lets a foreground
// timer process claim the database so that other tb invocations do not write
// a stale snapshot over its ticks.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// DefaultHistory is the number of past revisions kept when Options.History
// is zero.
const DefaultHistory = 20

// tsLayout is fixed width so stored timestamps compare correctly as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Options configures a store.
type Options struct {
	// History is the number of revisions kept in the history table.
	// Negative disables history.
	History int
	Logger  *zap.Logger
}

func (o Options) normalized() Options {
	if o.History == 0 {
		o.History = DefaultHistory
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Store manages all SQLite operations with WAL mode for concurrent access.
type Store struct {
	db   *sql.DB
	opts Options
	log  *zap.Logger
}

// New opens (or creates) the SQLite database and initializes the schema.
func New(path string, opts Options) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	opts = opts.normalized()
	s := &Store{db: db, opts: opts, log: opts.Logger.With(zap.String("backend", "sqlite"))}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// retryOnContention wraps retryOp from retry.go with the default config.
// All store write operations should use this to handle transient SQLite
// errors (BUSY, LOCKED, IOERR_SHORT_READ) when several tb processes share
// one database.
func retryOnContention(fn func() error) error {
	return retryOp(defaultRetryConfig, fn)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id         INTEGER PRIMARY KEY CHECK (id = 1),
		body       BLOB NOT NULL,
		saved_at   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshot_history (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		body       BLOB NOT NULL,
		saved_at   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS leases (
		name       TEXT PRIMARY KEY,
		holder     TEXT NOT NULL,
		acquired   TEXT NOT NULL,
		expires_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

// Load returns the current snapshot, or ErrNoSnapshot if nothing was saved.
func (s *Store) Load() ([]byte, error) {
	var body []byte
	err := s.db.QueryRow(`SELECT body FROM snapshots WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return body, nil
}

// Save replaces the current snapshot and appends it to the history, in one
// transaction.
func (s *Store) Save(body []byte) error {
	now := time.Now().UTC().Format(tsLayout)
	err := retryOnContention(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		if _, err := tx.Exec(
			`INSERT INTO snapshots (id, body, saved_at) VALUES (1, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET body = excluded.body, saved_at = excluded.saved_at`,
			body, now,
		); err != nil {
			return err
		}
		if s.opts.History > 0 {
			if _, err := tx.Exec(
				`INSERT INTO snapshot_history (body, saved_at) VALUES (?, ?)`, body, now,
			); err != nil {
				return err
			}
			if _, err := tx.Exec(
				`DELETE FROM snapshot_history WHERE id NOT IN
				   (SELECT id FROM snapshot_history ORDER BY id DESC LIMIT ?)`,
				s.opts.History,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	s.log.Debug("snapshot saved", zap.Int("bytes", len(body)))
	return nil
}

// History lists saved revisions, newest first. limit <= 0 means all.
func (s *Store) History(limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, saved_at, length(body) FROM snapshot_history ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var r Revision
		var savedStr string
		if err := rows.Scan(&r.ID, &savedStr, &r.Size); err != nil {
			return nil, err
		}
		var parseErr error
		r.SavedAt, parseErr = time.Parse(tsLayout, savedStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse saved_at for revision %d: %w", r.ID, parseErr)
		}
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

// Revision returns the body of one history revision.
func (s *Store) Revision(id int64) ([]byte, error) {
	var body []byte
	err := s.db.QueryRow(`SELECT body FROM snapshot_history WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revision %d: %w", id, ErrNoSnapshot)
	}
	if err != nil {
		return nil, fmt.Errorf("load revision %d: %w", id, err)
	}
	return body, nil
}

// ---------------------------------------------------------------------------
// Leases
// ---------------------------------------------------------------------------

// AcquireLease claims the named lease for holder until now+ttl. Calling it
// again as the same holder renews the lease. Returns (granted, nil, nil) on
// success, or (nil, current, nil) if another holder has an unexpired lease.
//
// The check-and-grant runs inside a transaction so two processes cannot both
// win the same lease.
func (s *Store) AcquireLease(name, holder string, ttl time.Duration) (*Lease, *Lease, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	s.expireStaleLeases()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var cur Lease
	var acqStr, expStr string
	err = tx.QueryRow(
		`SELECT name, holder, acquired, expires_at FROM leases WHERE name = ?`, name,
	).Scan(&cur.Name, &cur.Holder, &acqStr, &expStr)
	switch {
	case err == nil:
		if cur.Holder != holder {
			if cur.Acquired, err = time.Parse(tsLayout, acqStr); err != nil {
				return nil, nil, fmt.Errorf("parse lease acquired for %s: %w", name, err)
			}
			if cur.ExpiresAt, err = time.Parse(tsLayout, expStr); err != nil {
				return nil, nil, fmt.Errorf("parse lease expires_at for %s: %w", name, err)
			}
			return nil, &cur, nil
		}
		if cur.Acquired, err = time.Parse(tsLayout, acqStr); err != nil {
			cur.Acquired = now
		}
	case errors.Is(err, sql.ErrNoRows):
		cur.Acquired = now
	default:
		return nil, nil, fmt.Errorf("read lease %s: %w", name, err)
	}

	lease := Lease{Name: name, Holder: holder, Acquired: cur.Acquired, ExpiresAt: expiresAt}
	_, err = tx.Exec(
		`INSERT INTO leases (name, holder, acquired, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   holder = excluded.holder,
		   acquired = excluded.acquired,
		   expires_at = excluded.expires_at`,
		name, holder, lease.Acquired.Format(tsLayout), expiresAt.Format(tsLayout),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit lease: %w", err)
	}
	return &lease, nil, nil
}

// ReleaseLease drops the named lease if holder owns it.
func (s *Store) ReleaseLease(name, holder string) error {
	return retryOnContention(func() error {
		_, err := s.db.Exec(`DELETE FROM leases WHERE name = ? AND holder = ?`, name, holder)
		return err
	})
}

// ActiveLease returns the unexpired lease with the given name, or nil.
func (s *Store) ActiveLease(name string) (*Lease, error) {
	s.expireStaleLeases()
	var l Lease
	var acqStr, expStr string
	err := s.db.QueryRow(
		`SELECT name, holder, acquired, expires_at FROM leases WHERE name = ?`, name,
	).Scan(&l.Name, &l.Holder, &acqStr, &expStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read lease %s: %w", name, err)
	}
	var parseErr error
	if l.Acquired, parseErr = time.Parse(tsLayout, acqStr); parseErr != nil {
		return nil, fmt.Errorf("parse lease acquired for %s: %w", name, parseErr)
	}
	if l.ExpiresAt, parseErr = time.Parse(tsLayout, expStr); parseErr != nil {
		return nil, fmt.Errorf("parse lease expires_at for %s: %w", name, parseErr)
	}
	return &l, nil
}

func (s *Store) expireStaleLeases() {
	now := time.Now().UTC().Format(tsLayout)
	_, _ = s.db.Exec(`DELETE FROM leases WHERE expires_at < ?`, now)
}
