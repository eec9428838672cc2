package quadstore

import (
	"github.com/rdfstore/rdfstore/internal/encoding"
	"github.com/rdfstore/rdfstore/internal/kv"
	"github.com/rdfstore/rdfstore/pkg/rdf"
)

// QuadIterator walks quads matching a Pattern, generalizing
// pkg/store/query.go's quadIterator to the unified six-CF layout.
type QuadIterator struct {
	txn     *Txn
	it      *kv.Iterator
	cf      kv.CF
	pattern *Pattern
	closed  bool
}

// Query returns an iterator over every quad matching pattern, selecting
// whichever column family gives the longest bound-position prefix.
func (t *Txn) Query(pattern *Pattern) (*QuadIterator, error) {
	positions, bound, err := t.encodePattern(pattern)
	if err != nil {
		return nil, err
	}
	cf := selectIndex(bound)
	prefix := buildScanPrefix(cf, positions, bound)
	it := t.kv.ScanPrefix(cf, prefix)
	return &QuadIterator{txn: t, it: it, cf: cf, pattern: pattern}, nil
}

func (t *Txn) encodePattern(p *Pattern) (positions [4]encoding.EncodedTerm, bound [4]bool, err error) {
	fields := [4]Term{p.Subject, p.Predicate, p.Object, p.graphTerm()}
	for i, f := range fields {
		if f == nil || isVariable(f) {
			continue
		}
		term, ok := f.(rdf.Term)
		if !ok {
			continue
		}
		et, eerr := t.encoder.Encode(term, t.dict())
		if eerr != nil {
			return positions, bound, eerr
		}
		positions[i] = et
		bound[i] = true
	}
	return positions, bound, nil
}

// Next advances the iterator.
func (qi *QuadIterator) Next() bool {
	if qi.closed {
		return false
	}
	return qi.it.Next()
}

// Quad decodes the current key into a full rdf.Quad.
func (qi *QuadIterator) Quad() (*rdf.Quad, error) {
	s, p, o, g, err := decodeKey(qi.cf, qi.it.Key())
	if err != nil {
		return nil, err
	}
	subject, err := qi.txn.decoder.Decode(s, qi.txn.dict())
	if err != nil {
		return nil, err
	}
	predicate, err := qi.txn.decoder.Decode(p, qi.txn.dict())
	if err != nil {
		return nil, err
	}
	object, err := qi.txn.decoder.Decode(o, qi.txn.dict())
	if err != nil {
		return nil, err
	}
	graph, err := qi.txn.decoder.Decode(g, qi.txn.dict())
	if err != nil {
		return nil, err
	}
	return &rdf.Quad{Subject: subject, Predicate: predicate, Object: object, Graph: graph}, nil
}

// Close releases the iterator.
func (qi *QuadIterator) Close() {
	if qi.closed {
		return
	}
	qi.closed = true
	qi.it.Close()
}
