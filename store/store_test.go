package store

import (
	"bytes"
	"context"
	"testing"

	"github.com/rdfstore/rdfstore/internal/algebra"
	"github.com/rdfstore/rdfstore/internal/federation"
	"github.com/rdfstore/rdfstore/internal/update"
	"github.com/rdfstore/rdfstore/pkg/rdf"
)

func TestInsertContainsRemove(t *testing.T) {
	s, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	defer s.Close()

	q := &rdf.Quad{
		Subject: rdf.NewNamedNode("http://example/alice"), Predicate: rdf.NewNamedNode("http://example/knows"),
		Object: rdf.NewNamedNode("http://example/bob"), Graph: rdf.NewDefaultGraph(),
	}
	if err := s.Insert(q); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	ok, err := s.Contains(q)
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if !ok {
		t.Fatal("store should contain the inserted quad")
	}

	if err := s.Remove(q); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	ok, err = s.Contains(q)
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if ok {
		t.Fatal("store should not contain the removed quad")
	}
}

func TestLenAndIter(t *testing.T) {
	s, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	defer s.Close()

	for i := 0; i < 3; i++ {
		q := &rdf.Quad{
			Subject: rdf.NewNamedNode("http://example/s"), Predicate: rdf.NewNamedNode("http://example/p"),
			Object: rdf.NewIntegerLiteral(int64(i)), Graph: rdf.NewDefaultGraph(),
		}
		if err := s.Insert(q); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	n, err := s.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 3 {
		t.Fatalf("Len = %d, want 3", n)
	}

	seen := 0
	if err := s.Iter(func(*rdf.Quad) error { seen++; return nil }); err != nil {
		t.Fatalf("Iter: %v", err)
	}
	if seen != 3 {
		t.Fatalf("Iter visited %d quads, want 3", seen)
	}
}

func TestNamedGraphLifecycle(t *testing.T) {
	s, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	defer s.Close()

	g := rdf.NewNamedNode("http://example/g1")
	if err := s.InsertNamedGraph(g); err != nil {
		t.Fatalf("InsertNamedGraph: %v", err)
	}
	ok, err := s.ContainsNamedGraph(g)
	if err != nil || !ok {
		t.Fatalf("ContainsNamedGraph = %v, %v, want true, nil", ok, err)
	}
	if err := s.RemoveNamedGraph(g); err != nil {
		t.Fatalf("RemoveNamedGraph: %v", err)
	}
	ok, err = s.ContainsNamedGraph(g)
	if err != nil || ok {
		t.Fatalf("ContainsNamedGraph after remove = %v, %v, want false, nil", ok, err)
	}
}

func TestQuerySelect(t *testing.T) {
	s, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	defer s.Close()

	rdfType := rdf.NewNamedNode("http://www.w3.org/1999/02/22-rdf-syntax-ns#type")
	person := rdf.NewNamedNode("http://example/Person")
	alice := rdf.NewNamedNode("http://example/alice")
	if err := s.Insert(&rdf.Quad{Subject: alice, Predicate: rdfType, Object: person, Graph: rdf.NewDefaultGraph()}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	p := &algebra.BGP{Triples: []algebra.TriplePattern{{
		Subject: algebra.NewVariable("s"), Predicate: rdfType, Object: algebra.NewVariable("o"),
	}}}
	results, err := s.Query(context.Background(), FormSelect, p, []string{"s", "o"}, nil, DatasetSpec{}, nil, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer results.Close()

	if results.Kind != ResultSolutions {
		t.Fatalf("Kind = %v, want ResultSolutions", results.Kind)
	}
	n := 0
	for results.Solutions.Next() {
		row := results.Solutions.Binding()
		sVal, ok := row.Lookup("s")
		if !ok || sVal.String() != alice.String() {
			t.Errorf("unexpected s binding: %v, ok=%v", sVal, ok)
		}
		n++
	}
	if n != 1 {
		t.Fatalf("got %d solutions, want 1", n)
	}
}

func TestQueryAsk(t *testing.T) {
	s, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	defer s.Close()

	alice := rdf.NewNamedNode("http://example/alice")
	knows := rdf.NewNamedNode("http://example/knows")
	bob := rdf.NewNamedNode("http://example/bob")
	if err := s.Insert(&rdf.Quad{Subject: alice, Predicate: knows, Object: bob, Graph: rdf.NewDefaultGraph()}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	p := &algebra.BGP{Triples: []algebra.TriplePattern{{Subject: alice, Predicate: knows, Object: bob}}}
	results, err := s.Query(context.Background(), FormAsk, p, nil, nil, DatasetSpec{}, nil, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer results.Close()
	if results.Kind != ResultBoolean || !results.Boolean {
		t.Fatalf("ASK result = %+v, want Boolean(true)", results)
	}

	pFalse := &algebra.BGP{Triples: []algebra.TriplePattern{{Subject: bob, Predicate: knows, Object: alice}}}
	results2, err := s.Query(context.Background(), FormAsk, pFalse, nil, nil, DatasetSpec{}, nil, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer results2.Close()
	if results2.Boolean {
		t.Fatal("ASK over an absent triple should be false")
	}
}

func TestQueryConstruct(t *testing.T) {
	s, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	defer s.Close()

	alice := rdf.NewNamedNode("http://example/alice")
	knows := rdf.NewNamedNode("http://example/knows")
	bob := rdf.NewNamedNode("http://example/bob")
	if err := s.Insert(&rdf.Quad{Subject: alice, Predicate: knows, Object: bob, Graph: rdf.NewDefaultGraph()}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	p := &algebra.BGP{Triples: []algebra.TriplePattern{{
		Subject: algebra.NewVariable("s"), Predicate: knows, Object: algebra.NewVariable("o"),
	}}}
	knownOf := rdf.NewNamedNode("http://example/knownOf")
	template := []update.QuadTemplate{{Subject: algebra.NewVariable("o"), Predicate: knownOf, Object: algebra.NewVariable("s")}}

	results, err := s.Query(context.Background(), FormConstructOrDescribe, p, nil, template, DatasetSpec{}, nil, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer results.Close()
	if results.Kind != ResultTriples || len(results.Triples) != 1 {
		t.Fatalf("CONSTRUCT result = %+v, want one triple", results)
	}
	tr := results.Triples[0]
	if tr.Subject.String() != bob.String() || tr.Object.String() != alice.String() {
		t.Errorf("constructed triple = %+v, want bob knownOf alice", tr)
	}
}

func TestQueryWithSubstitutions(t *testing.T) {
	s, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	defer s.Close()

	alice := rdf.NewNamedNode("http://example/alice")
	knows := rdf.NewNamedNode("http://example/knows")
	bob := rdf.NewNamedNode("http://example/bob")
	if err := s.Insert(&rdf.Quad{Subject: alice, Predicate: knows, Object: bob, Graph: rdf.NewDefaultGraph()}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	p := &algebra.BGP{Triples: []algebra.TriplePattern{{
		Subject: algebra.NewVariable("s"), Predicate: knows, Object: algebra.NewVariable("o"),
	}}}
	subs := map[string]rdf.Term{"s": alice}
	results, err := s.Query(context.Background(), FormSelect, p, []string{"s", "o"}, nil, DatasetSpec{}, nil, subs)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer results.Close()
	n := 0
	for results.Solutions.Next() {
		n++
	}
	if n != 1 {
		t.Fatalf("pre-bound query returned %d solutions, want 1", n)
	}
}

func TestDatasetSpecRestrictsDefaultGraph(t *testing.T) {
	s, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	defer s.Close()

	g1 := rdf.NewNamedNode("http://example/g1")
	a := rdf.NewNamedNode("http://example/a")
	p := rdf.NewNamedNode("http://example/p")
	o := rdf.NewNamedNode("http://example/o")
	if err := s.Insert(&rdf.Quad{Subject: a, Predicate: p, Object: o, Graph: g1}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	pattern := &algebra.BGP{Triples: []algebra.TriplePattern{{
		Subject: algebra.NewVariable("s"), Predicate: p, Object: algebra.NewVariable("o"),
	}}}

	// Without FROM, the default graph (not g1) is queried: no matches.
	results, err := s.Query(context.Background(), FormSelect, pattern, []string{"s", "o"}, nil, DatasetSpec{}, nil, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	n := 0
	for results.Solutions.Next() {
		n++
	}
	results.Close()
	if n != 0 {
		t.Fatalf("without FROM, expected 0 matches against the true default graph, got %d", n)
	}

	// With FROM g1, g1's data is treated as part of the default graph.
	results, err = s.Query(context.Background(), FormSelect, pattern, []string{"s", "o"}, nil, DatasetSpec{Default: []*rdf.NamedNode{g1}}, nil, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer results.Close()
	n = 0
	for results.Solutions.Next() {
		n++
	}
	if n != 1 {
		t.Fatalf("with FROM g1, expected 1 match, got %d", n)
	}
}

func TestUpdateInsertData(t *testing.T) {
	s, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	defer s.Close()

	q := &rdf.Quad{
		Subject: rdf.NewNamedNode("http://example/s"), Predicate: rdf.NewNamedNode("http://example/p"),
		Object: rdf.NewNamedNode("http://example/o"), Graph: rdf.NewDefaultGraph(),
	}
	ops := []update.Operation{update.InsertData{Quads: []*rdf.Quad{q}}}
	if err := s.Update(context.Background(), ops, federation.NopResolver{}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	ok, err := s.Contains(q)
	if err != nil || !ok {
		t.Fatalf("Contains after update = %v, %v, want true, nil", ok, err)
	}
}

func TestDumpAndLoadRoundTrip(t *testing.T) {
	s, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	defer s.Close()

	q := &rdf.Quad{
		Subject: rdf.NewNamedNode("http://example/s"), Predicate: rdf.NewNamedNode("http://example/p"),
		Object: rdf.NewNamedNode("http://example/o"), Graph: rdf.NewDefaultGraph(),
	}
	if err := s.Insert(q); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	var buf bytes.Buffer
	if err := s.Dump(&buf); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	s2, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	defer s2.Close()
	if err := s2.Load(context.Background(), &buf); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ok, err := s2.Contains(q)
	if err != nil || !ok {
		t.Fatalf("round-tripped store Contains = %v, %v, want true, nil", ok, err)
	}
}

func TestFlushAndOptimize(t *testing.T) {
	s, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	defer s.Close()
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := s.Optimize(); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
}
