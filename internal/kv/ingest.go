package kv

import (
	"context"
	"fmt"
)

// Entry is one key/value pair destined for bulk ingestion.
type Entry struct {
	CF    CF
	Key   []byte
	Value []byte
}

// BulkIngest writes entries through badger's WriteBatch, the bulk-loading
// primitive badger documents for exactly this case: many writes committed
// together without per-entry transaction conflict detection, batched and
// flushed directly into the LSM tree rather than paying for one MVCC
// transaction per quad. It is the closest badger has to spec's "bulk
// sorted-table writer that ingests atomically without going through
// per-write transaction bookkeeping"; unlike a true SST-ingest API (which
// badger does not expose to library callers the way RocksDB does), a
// WriteBatch still goes through the value log, so it buys batching and
// conflict-check elision rather than WAL bypass. This substitution is
// recorded in DESIGN.md. entries need not be pre-sorted; WriteBatch
// accepts keys in any order.
func BulkIngest(ctx context.Context, s *Store, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, e := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := wb.Set(prefixKey(e.CF, e.Key), e.Value); err != nil {
			return fmt.Errorf("kv: bulk ingest: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("kv: bulk ingest flush: %w", err)
	}
	return nil
}
