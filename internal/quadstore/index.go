package quadstore

import (
	"github.com/rdfstore/rdfstore/internal/encoding"
	"github.com/rdfstore/rdfstore/internal/kv"
)

// indexOrder lists, for one column family, which of the four pattern
// positions (0=S, 1=P, 2=O, 3=G) the key bytes are laid out in, most
// significant first.
var indexOrder = map[kv.CF][4]int{
	kv.CFSPOG: {0, 1, 2, 3},
	kv.CFPOSG: {1, 2, 0, 3},
	kv.CFOSPG: {2, 0, 1, 3},
	kv.CFGSPO: {3, 0, 1, 2},
	kv.CFGPOS: {3, 1, 2, 0},
	kv.CFGOSP: {3, 2, 0, 1},
}

// candidateCFs lists every data CF in the tie-break preference order used
// by selectIndex: orderings that do not lead with the graph position are
// tried first, since most query patterns bind subject/predicate/object
// before graph (mirroring pkg/store/query.go's preference for the
// default-graph indexes when the graph position is unbound).
var candidateCFs = []kv.CF{kv.CFSPOG, kv.CFPOSG, kv.CFOSPG, kv.CFGSPO, kv.CFGPOS, kv.CFGOSP}

// selectIndex chooses the column family whose key layout gives the
// longest bound prefix for pattern, generalizing
// pkg/store/query.go's selectIndex from a graph-bound/graph-unbound
// branch over eleven tables to a uniform scan over the six CFs.
func selectIndex(bound [4]bool) kv.CF {
	best := candidateCFs[0]
	bestLen := -1
	for _, cf := range candidateCFs {
		order := indexOrder[cf]
		n := 0
		for _, pos := range order {
			if !bound[pos] {
				break
			}
			n++
		}
		if n > bestLen {
			bestLen = n
			best = cf
		}
	}
	return best
}

// buildScanPrefix encodes the bound leading positions of pattern (per
// cf's key order) into a scan prefix, stopping at the first unbound
// position.
func buildScanPrefix(cf kv.CF, positions [4]encoding.EncodedTerm, bound [4]bool) []byte {
	order := indexOrder[cf]
	var prefix []byte
	for _, pos := range order {
		if !bound[pos] {
			break
		}
		b := positions[pos].Bytes()
		prefix = append(prefix, b[:]...)
	}
	return prefix
}

// decodeKey splits a full index key (four concatenated EncodedTerm
// values, in cf's key order) back into S, P, O, G encoded terms.
func decodeKey(cf kv.CF, key []byte) (s, p, o, g encoding.EncodedTerm, err error) {
	order := indexOrder[cf]
	var terms [4]encoding.EncodedTerm
	for i := 0; i < 4; i++ {
		et, n, derr := encoding.FromBytes(key)
		if derr != nil {
			return s, p, o, g, derr
		}
		terms[order[i]] = et
		key = key[n:]
	}
	return terms[0], terms[1], terms[2], terms[3], nil
}
