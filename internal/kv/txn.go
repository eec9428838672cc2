package kv

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// Txn wraps *badger.Txn, generalizing storage.BadgerTransaction to the
// CF-prefixed keyspace.
type Txn struct {
	txn      *badger.Txn
	writable bool
}

// Get fetches the value stored at key in cf. It returns ErrNotFound,
// never badger.ErrKeyNotFound, so callers never import badger directly.
func (t *Txn) Get(cf CF, key []byte) ([]byte, error) {
	item, err := t.txn.Get(prefixKey(cf, key))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var value []byte
	err = item.Value(func(val []byte) error {
		value = append([]byte{}, val...)
		return nil
	})
	return value, err
}

// Contains reports whether key exists in cf, without copying its value.
func (t *Txn) Contains(cf CF, key []byte) (bool, error) {
	_, err := t.txn.Get(prefixKey(cf, key))
	if err == nil {
		return true, nil
	}
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	return false, err
}

// Set stores value at key in cf.
func (t *Txn) Set(cf CF, key, value []byte) error {
	if !t.writable {
		return ErrReadOnly
	}
	return t.txn.Set(prefixKey(cf, key), value)
}

// Delete removes key from cf.
func (t *Txn) Delete(cf CF, key []byte) error {
	if !t.writable {
		return ErrReadOnly
	}
	return t.txn.Delete(prefixKey(cf, key))
}

// DeleteRange deletes every key in cf within [start, end), used by
// clear_graph/clear_all (spec §4.4) to drop a whole index range rather
// than iterate-and-delete quad by quad where the range is contiguous.
func (t *Txn) DeleteRange(cf CF, start, end []byte) error {
	if !t.writable {
		return ErrReadOnly
	}
	it := t.Iter(cf)
	defer it.Close()
	lo := prefixKey(cf, start)
	hi := it.hi
	if end != nil {
		hi = prefixKey(cf, end)
	}
	for it.seek(lo); it.valid(hi); it.next() {
		if err := t.txn.Delete(it.it.Item().KeyCopy(nil)); err != nil {
			return err
		}
	}
	return nil
}

// Commit applies the transaction's writes.
func (t *Txn) Commit() error {
	return t.txn.Commit()
}

// Rollback discards the transaction without applying its writes.
func (t *Txn) Rollback() {
	t.txn.Discard()
}

// Reader returns the same transaction as a read-your-writes view. Badger
// transactions already see their own uncommitted writes, so this is a
// thin same-txn accessor (spec §4.3) rather than a distinct type.
func (t *Txn) Reader() *Txn { return t }

// Iterator walks keys within one column family in lexicographic order.
type Iterator struct {
	it      *badger.Iterator
	cf      CF
	hi      []byte
	started bool
}

// cfBound returns the exclusive upper bound of cf's entire keyspace
// (the next column family's prefix). Every CF constant is a single byte
// below 0xFF, so this is always defined. Iterators always honor this
// bound explicitly rather than relying on badger's own IteratorOptions.Prefix
// filtering to stop at the column-family boundary, matching the belt-
// and-suspenders endKey check storage.BadgerIterator.Next() performs.
func cfBound(cf CF) []byte {
	hi := incrementPrefix(cf.prefix())
	if hi == nil {
		// Unreachable while CF values stay below 0xFF; fall back to no
		// bound rather than panic if that ever changes.
		return nil
	}
	return hi
}

// Iter returns an iterator over the entirety of cf.
func (t *Txn) Iter(cf CF) *Iterator {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = cf.prefix()
	it := &Iterator{it: t.txn.NewIterator(opts), cf: cf, hi: cfBound(cf)}
	return it
}

// ScanPrefix returns an iterator bounded to keys in cf beginning with
// prefix, using the incrementPrefix upper bound of spec §4.3.
func (t *Txn) ScanPrefix(cf CF, prefix []byte) *Iterator {
	opts := badger.DefaultIteratorOptions
	scanPrefix := prefixKey(cf, prefix)
	opts.Prefix = scanPrefix
	it := &Iterator{it: t.txn.NewIterator(opts), cf: cf, hi: cfBound(cf)}
	if hi := incrementPrefix(prefix); hi != nil {
		it.hi = prefixKey(cf, hi)
	}
	it.seek(scanPrefix)
	it.started = true
	return it
}

func (it *Iterator) seek(key []byte) {
	it.it.Seek(key)
}

func (it *Iterator) valid(hi []byte) bool {
	if !it.it.Valid() {
		return false
	}
	if hi != nil && bytesCompare(it.it.Item().Key(), hi) >= 0 {
		return false
	}
	return true
}

func (it *Iterator) next() {
	it.it.Next()
}

// Next advances the iterator and reports whether it now points at a
// valid, in-range item.
func (it *Iterator) Next() bool {
	if !it.started {
		it.it.Rewind()
		it.started = true
	} else {
		it.it.Next()
	}
	return it.valid(it.hi)
}

// Key returns the current key with its column-family prefix stripped.
func (it *Iterator) Key() []byte {
	k := it.it.Item().Key()
	if len(k) > 1 {
		return k[1:]
	}
	return nil
}

// Value returns a copy of the current value.
func (it *Iterator) Value() ([]byte, error) {
	var value []byte
	err := it.it.Item().Value(func(val []byte) error {
		value = append([]byte{}, val...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kv: read value: %w", err)
	}
	return value, nil
}

// Close releases the iterator's resources.
func (it *Iterator) Close() {
	it.it.Close()
}

func bytesCompare(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
