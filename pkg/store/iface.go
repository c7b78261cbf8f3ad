// iface.go defines the interfaces the engine and the cmd layer depend on.
//
// Both backends satisfy SnapshotStore. Only the SQLite backend can arbitrate
// between processes, so leases are a separate interface that callers check
// for with a type assertion.
package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotStore persists one opaque snapshot document.
type SnapshotStore interface {
	// Load returns the last saved snapshot, or ErrNoSnapshot.
	Load() ([]byte, error)

	// Save replaces the current snapshot.
	Save(body []byte) error

	// Close releases the underlying database.
	Close() error
}

// HistoryStore is implemented by stores that keep past revisions.
type HistoryStore interface {
	// History lists revisions, newest first. limit <= 0 means all.
	History(limit int) ([]Revision, error)

	// Revision returns the body of one revision.
	Revision(id int64) ([]byte, error)
}

// Leaser arbitrates a named lease between processes sharing a database.
type Leaser interface {
	// AcquireLease claims or renews a lease. A non-nil second result is the
	// conflicting lease held by someone else.
	AcquireLease(name, holder string, ttl time.Duration) (*Lease, *Lease, error)

	// ReleaseLease drops a lease owned by holder.
	ReleaseLease(name, holder string) error

	// ActiveLease returns the unexpired lease with the given name, or nil.
	ActiveLease(name string) (*Lease, error)
}

// Lease is a time-limited claim on the database by one process.
type Lease struct {
	Name      string    `json:"name"`
	Holder    string    `json:"holder"`
	Acquired  time.Time `json:"acquired"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Revision describes one saved snapshot in the history.
type Revision struct {
	ID      int64     `json:"id"`
	SavedAt time.Time `json:"saved_at"`
	Size    int       `json:"size"`
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Open opens the named backend at path.
func Open(backend, path string, opts Options) (SnapshotStore, error) {
	switch strings.ToLower(backend) {
	case "", BackendSQLite:
		return New(path, opts)
	case BackendBolt:
		return OpenBolt(path, opts)
	}
	return nil, fmt.Errorf("unknown store backend %q", backend)
}

// Compile-time checks.
var (
	_ SnapshotStore = (*Store)(nil)
	_ HistoryStore  = (*Store)(nil)
	_ Leaser        = (*Store)(nil)
	_ SnapshotStore = (*BoltStore)(nil)
	_ HistoryStore  = (*BoltStore)(nil)
)
