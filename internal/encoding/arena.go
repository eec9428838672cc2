package encoding

import (
	"sync"

	"github.com/rdfstore/rdfstore/internal/dictionary"
	"github.com/rdfstore/rdfstore/pkg/rdf"
)

// Arena memoizes quoted triples by fingerprint (spec §4.2/§9: "share the
// inner structure by reference-counting"). The encoder records every
// quoted triple it encodes here, and the decoder resolves a TagTriple
// fingerprint back to that same *rdf.QuotedTriple. Under Go's garbage
// collector, a memoizing cache gives the same observable sharing contract
// a manual refcount would (repeated decode of the same fingerprint returns
// the same *rdf.QuotedTriple), without hand-rolling reference counting.
// Entries are never evicted; they live as long as the Arena itself.
// See SPEC_FULL.md OQ-4.
type Arena struct {
	mu      sync.RWMutex
	triples map[dictionary.Fingerprint]*rdf.QuotedTriple
}

func NewArena() *Arena {
	return &Arena{triples: make(map[dictionary.Fingerprint]*rdf.QuotedTriple)}
}

// Put records the quoted triple qt (whose components have already been
// encoded as s, p, o) under its fingerprint.
func (a *Arena) Put(fp dictionary.Fingerprint, qt *rdf.QuotedTriple, s, p, o EncodedTerm) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.triples[fp]; !ok {
		a.triples[fp] = qt
	}
}

// Get returns the cached quoted triple for fp, if any.
func (a *Arena) Get(fp dictionary.Fingerprint) (*rdf.QuotedTriple, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	qt, ok := a.triples[fp]
	return qt, ok
}
