package quadstore

import (
	"github.com/rdfstore/rdfstore/internal/dictionary"
	"github.com/rdfstore/rdfstore/internal/encoding"
	"github.com/rdfstore/rdfstore/internal/kv"
	"github.com/rdfstore/rdfstore/internal/storeerr"
	"github.com/rdfstore/rdfstore/pkg/rdf"
)

var dataCFs = [6]kv.CF{kv.CFSPOG, kv.CFPOSG, kv.CFOSPG, kv.CFGSPO, kv.CFGPOS, kv.CFGOSP}

// Store is the quad store proper: the kv substrate plus the shared
// term-encoding arena, generalizing pkg/store.TripleStore.
type Store struct {
	kv    *kv.Store
	arena *encoding.Arena
}

// Open wraps an already-open kv.Store, writing the dictionary bootstrap
// entries (spec §4.1: xsd:* and rdf:langString are always present) on
// first use.
func Open(store *kv.Store) (*Store, error) {
	s := &Store{kv: store, arena: encoding.NewArena()}
	txn := s.kv.Begin(true)
	defer txn.Rollback()
	if err := dictionary.WriteBootstrap(txnDict{txn}); err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the underlying kv store.
func (s *Store) Close() error { return s.kv.Close() }

// Begin starts a quad-store transaction.
func (s *Store) Begin(writable bool) *Txn {
	return &Txn{
		store:   s,
		kv:      s.kv.Begin(writable),
		encoder: &encoding.Encoder{Arena: s.arena},
		decoder: encoding.NewDecoder(s.arena),
	}
}

// Txn is a read/write transaction over the quad store (spec §4.4).
type Txn struct {
	store   *Store
	kv      *kv.Txn
	encoder *encoding.Encoder
	decoder *encoding.Decoder
}

func (t *Txn) dict() txnDict { return txnDict{t.kv} }

// Commit applies the transaction's writes.
func (t *Txn) Commit() error { return t.kv.Commit() }

// Rollback discards the transaction.
func (t *Txn) Rollback() { t.kv.Rollback() }

// Reader returns a read-your-writes view of this transaction (spec §4.3:
// "a reader() whose scans reflect in-batch writes").
func (t *Txn) Reader() *Txn { return t }

func (t *Txn) encodeQuad(q *rdf.Quad) (s, p, o, g encoding.EncodedTerm, err error) {
	graph := q.Graph
	if graph == nil {
		graph = rdf.NewDefaultGraph()
	}
	if s, err = t.encoder.Encode(q.Subject, t.dict()); err != nil {
		return
	}
	if p, err = t.encoder.Encode(q.Predicate, t.dict()); err != nil {
		return
	}
	if o, err = t.encoder.Encode(q.Object, t.dict()); err != nil {
		return
	}
	g, err = t.encoder.Encode(graph, t.dict())
	return
}

// InsertQuad adds q to every index plus, when its graph is a named node,
// the graph-names registry (spec §4.4's named-graph registry semantics).
func (t *Txn) InsertQuad(q *rdf.Quad) error {
	s, p, o, g, err := t.encodeQuad(q)
	if err != nil {
		return err
	}
	positions := [4]encoding.EncodedTerm{s, p, o, g}
	for _, cf := range dataCFs {
		key := buildScanPrefix(cf, positions, [4]bool{true, true, true, true})
		if err := t.kv.Set(cf, key, nil); err != nil {
			return err
		}
	}
	if _, ok := q.Graph.(*rdf.NamedNode); ok {
		if err := t.insertGraphName(g); err != nil {
			return err
		}
	}
	return nil
}

// RemoveQuad deletes q from every index. Per spec §4.4, this does not
// remove the graph from the registry even if it becomes empty.
func (t *Txn) RemoveQuad(q *rdf.Quad) error {
	s, p, o, g, err := t.encodeQuad(q)
	if err != nil {
		return err
	}
	positions := [4]encoding.EncodedTerm{s, p, o, g}
	for _, cf := range dataCFs {
		key := buildScanPrefix(cf, positions, [4]bool{true, true, true, true})
		if err := t.kv.Delete(cf, key); err != nil {
			return err
		}
	}
	return nil
}

func (t *Txn) insertGraphName(g encoding.EncodedTerm) error {
	b := g.Bytes()
	return t.kv.Set(kv.CFGraphNames, b[:], nil)
}

// InsertNamedGraph registers g in the graph-names registry without
// inserting any quad, so an empty named graph becomes observable (spec
// §6: contains_named_graph/named_graphs).
func (t *Txn) InsertNamedGraph(g *rdf.NamedNode) error {
	enc, err := t.encoder.Encode(g, t.dict())
	if err != nil {
		return err
	}
	return t.insertGraphName(enc)
}

// RemoveNamedGraph drops g from the registry. Callers that want the
// "drop and remove" semantics of SPARQL Update's DROP GRAPH call
// ClearGraph first.
func (t *Txn) RemoveNamedGraph(g *rdf.NamedNode) error {
	enc, err := t.encoder.Encode(g, t.dict())
	if err != nil {
		return err
	}
	b := enc.Bytes()
	return t.kv.Delete(kv.CFGraphNames, b[:])
}

// ContainsNamedGraph reports whether g is registered.
func (t *Txn) ContainsNamedGraph(g *rdf.NamedNode) (bool, error) {
	enc, err := t.encoder.Encode(g, t.dict())
	if err != nil {
		return false, err
	}
	b := enc.Bytes()
	return t.kv.Contains(kv.CFGraphNames, b[:])
}

// NamedGraphs returns every registered graph name.
func (t *Txn) NamedGraphs() ([]*rdf.NamedNode, error) {
	it := t.kv.Iter(kv.CFGraphNames)
	defer it.Close()
	var out []*rdf.NamedNode
	for it.Next() {
		et, _, err := encoding.FromBytes(it.Key())
		if err != nil {
			return nil, err
		}
		term, err := t.decoder.Decode(et, t.dict())
		if err != nil {
			return nil, err
		}
		nn, ok := term.(*rdf.NamedNode)
		if !ok {
			return nil, storeerr.Corruptf("graph-names registry entry is not a named node")
		}
		out = append(out, nn)
	}
	return out, nil
}

// ClearGraph removes every quad whose graph is g, leaving the registry
// entry (if any) intact.
func (t *Txn) ClearGraph(g rdf.Term) error {
	return t.clearByGraph(g)
}

// ClearAll removes every quad in every graph, the default graph included,
// and empties the graph-names registry.
func (t *Txn) ClearAll() error {
	for _, cf := range dataCFs {
		if err := t.kv.DeleteRange(cf, nil, nil); err != nil {
			return err
		}
	}
	return t.kv.DeleteRange(kv.CFGraphNames, nil, nil)
}

func (t *Txn) clearByGraph(g rdf.Term) error {
	enc, err := t.encoder.Encode(g, t.dict())
	if err != nil {
		return err
	}
	encBytes := enc.Bytes()
	it := t.kv.ScanPrefix(kv.CFGSPO, encBytes[:])
	defer it.Close()
	var victims [][4]encoding.EncodedTerm
	for it.Next() {
		s, p, o, gg, derr := decodeKey(kv.CFGSPO, it.Key())
		if derr != nil {
			return derr
		}
		victims = append(victims, [4]encoding.EncodedTerm{s, p, o, gg})
	}
	for _, v := range victims {
		for _, cf := range dataCFs {
			key := buildScanPrefix(cf, v, [4]bool{true, true, true, true})
			if err := t.kv.Delete(cf, key); err != nil {
				return err
			}
		}
	}
	return nil
}
