// Package kv is the key/value substrate (spec C3): a thin, column-family
// flavored wrapper over badger that the quad store builds its six indexes
// on top of. It generalizes the teacher's internal/storage/badger.go and
// pkg/store/storage.go, collapsing the teacher's eleven tables (three
// default-graph-only permutations plus six named-graph permutations) down
// to the eight column families spec §3/§4.3 actually need once the
// default graph is indexed through the same six orderings as every named
// graph, via the DefaultGraph sentinel.
package kv

import "errors"

// CF identifies a logical column family. Badger has no native column
// families, so CF is folded into a one-byte key prefix, exactly as the
// teacher folds its eleven Tables into a one-byte prefix via
// store.TablePrefix/PrefixKey.
type CF byte

const (
	CFSPOG CF = iota
	CFPOSG
	CFOSPG
	CFGSPO
	CFGPOS
	CFGOSP
	CFGraphNames
	CFID2Str
	cfCount
)

func (cf CF) String() string {
	switch cf {
	case CFSPOG:
		return "spog"
	case CFPOSG:
		return "posg"
	case CFOSPG:
		return "ospg"
	case CFGSPO:
		return "gspo"
	case CFGPOS:
		return "gpos"
	case CFGOSP:
		return "gosp"
	case CFGraphNames:
		return "graphs"
	case CFID2Str:
		return "id2str"
	default:
		return "unknown"
	}
}

// prefix returns the one-byte column-family prefix, mirroring
// store.TablePrefix.
func (cf CF) prefix() []byte { return []byte{byte(cf)} }

// prefixKey namespaces key under cf, mirroring store.PrefixKey.
func prefixKey(cf CF, key []byte) []byte {
	out := make([]byte, 1+len(key))
	out[0] = byte(cf)
	copy(out[1:], key)
	return out
}

var (
	// ErrNotFound mirrors store.ErrNotFound; callers that need the
	// distinction between "absent key" and "corrupt store" use
	// internal/storeerr for the latter.
	ErrNotFound = errors.New("kv: key not found")
	// ErrReadOnly mirrors store.ErrTransactionRO.
	ErrReadOnly = errors.New("kv: transaction is read-only")
)

// incrementPrefix computes the exclusive upper bound for a prefix scan by
// incrementing the last byte of p that is not 0xFF and truncating
// everything after it (spec §4.3: "upper-bound by incrementing the last
// non-0xFF byte of the prefix"). A prefix of all 0xFF bytes (or an empty
// prefix) has no finite upper bound, signaled by a nil return — callers
// then scan to the end of the column family.
func incrementPrefix(p []byte) []byte {
	out := make([]byte, len(p))
	copy(out, p)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}
