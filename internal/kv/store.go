package kv

import (
	"fmt"
	"runtime"
	"syscall"

	badger "github.com/dgraph-io/badger/v4"
)

// fdMargin is the file-descriptor headroom spec §4.3 reserves for sockets,
// log files and the process's own stdio, leaving the remainder for
// badger's SSTable and value-log file handles.
const fdMargin = 48

// Store wraps *badger.DB, generalizing storage.BadgerStorage to the
// eight-column-family layout (kv.CF) instead of the teacher's single flat
// keyspace-by-convention.
type Store struct {
	db *badger.DB
}

// Option configures Open.
type Option func(*badger.Options)

// WithInMemory opens the store without touching disk, for tests and the
// library's NewInMemory constructor.
func WithInMemory() Option {
	return func(o *badger.Options) {
		o.InMemory = true
		o.Dir = ""
		o.ValueDir = ""
	}
}

// WithReadOnly opens the store in read-only mode.
func WithReadOnly() Option {
	return func(o *badger.Options) { o.ReadOnly = true }
}

// Open opens (creating if necessary) a badger-backed store at dir. The
// logger is disabled exactly as storage.NewBadgerStorage does ("Disable
// default logger"); structured logging of store-level events, when
// wanted, goes through the store.Logger seam (SPEC_FULL.md B.2) instead of
// badger's own logger.
func Open(dir string, opts ...Option) (*Store, error) {
	bopts := badger.DefaultOptions(dir)
	bopts.Logger = nil
	applyFDBudget(&bopts)
	for _, opt := range opts {
		opt(&bopts)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("kv: open badger db: %w", err)
	}
	return &Store{db: db}, nil
}

// applyFDBudget reads the process's open-file-descriptor limit and scales
// badger's open-file-handle-driven knobs to leave fdMargin descriptors for
// everything else in the process, per spec §4.3's literal "reserve
// NOFILE minus 48" example. On platforms or soft limits badger can't be
// budgeted against (rlimit unavailable, or already below the margin),
// Open proceeds with badger's defaults rather than fail store construction
// over an advisory cap.
func applyFDBudget(o *badger.Options) {
	var rlim syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rlim); err != nil {
		return
	}
	budget := int64(rlim.Cur) - fdMargin
	if budget <= 0 {
		return
	}
	// NumCompactors and NumLevelZeroTables indirectly bound how many
	// SSTable file handles badger keeps open concurrently; scale both
	// down under a tight budget instead of leaving badger free to exceed
	// the reserved margin. NumCompactors also never exceeds the machine's
	// CPU count, matching badger's own default reasoning.
	maxCompactors := runtime.GOMAXPROCS(0)
	if maxCompactors < 1 {
		maxCompactors = 1
	}
	if budget < 256 {
		if maxCompactors > 2 {
			maxCompactors = 2
		}
		o.NumLevelZeroTables = 3
		o.NumLevelZeroTablesStall = 6
	}
	o.NumCompactors = maxCompactors
}

// Begin starts a transaction. Writable transactions give read-your-writes
// visibility over their own uncommitted mutations (badger's native
// transaction semantics); read-only transactions pin a stable MVCC
// snapshot for their lifetime.
func (s *Store) Begin(writable bool) *Txn {
	return &Txn{txn: s.db.NewTransaction(writable), writable: writable}
}

// NewSnapshot returns a long-lived read-only view, stable for its
// lifetime, for use by concurrent readers during a bulk load or export.
func (s *Store) NewSnapshot() *Txn {
	return &Txn{txn: s.db.NewTransaction(false), writable: false}
}

// Close releases the underlying badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Flush syncs pending writes to durable storage.
func (s *Store) Flush() error {
	return s.db.Sync()
}

// Compact requests a full compaction, discarding superseded versions
// beyond badger's own GC horizon. cf is currently advisory: badger
// compacts the whole value log and LSM tree together, since column
// families here are a key-prefix convention rather than separate badger
// instances.
func (s *Store) Compact(_ CF) error {
	for {
		if err := s.db.Flatten(1); err != nil {
			return fmt.Errorf("kv: compact: %w", err)
		}
		if err := s.db.RunValueLogGC(0.5); err != nil {
			if err == badger.ErrNoRewrite {
				return nil
			}
			return fmt.Errorf("kv: value log gc: %w", err)
		}
	}
}

// Checkpoint writes a consistent backup of the store to w, following
// badger's own streaming backup primitive.
func (s *Store) Checkpoint(w interface{ Write([]byte) (int, error) }) error {
	_, err := s.db.Backup(w, 0)
	if err != nil {
		return fmt.Errorf("kv: checkpoint: %w", err)
	}
	return nil
}

// DB exposes the underlying badger handle. BulkIngest (ingest.go) does not
// go through it; it opens its WriteBatch on the Store's handle directly.
func (s *Store) DB() *badger.DB { return s.db }
