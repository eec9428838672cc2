package quadstore

import (
	"context"
	"testing"

	"github.com/rdfstore/rdfstore/internal/kv"
	"github.com/rdfstore/rdfstore/pkg/rdf"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	kvStore, err := kv.Open("", kv.WithInMemory())
	if err != nil {
		t.Fatalf("kv.Open: %v", err)
	}
	t.Cleanup(func() { kvStore.Close() })
	store, err := Open(kvStore)
	if err != nil {
		t.Fatalf("quadstore.Open: %v", err)
	}
	return store
}

func TestInsertAndQueryRoundTrip(t *testing.T) {
	store := openTestStore(t)

	q := &rdf.Quad{
		Subject:   rdf.NewNamedNode("http://example.org/alice"),
		Predicate: rdf.NewNamedNode("http://example.org/knows"),
		Object:    rdf.NewNamedNode("http://example.org/bob"),
		Graph:     rdf.NewNamedNode("http://example.org/g1"),
	}

	txn := store.Begin(true)
	if err := txn.InsertQuad(q); err != nil {
		t.Fatalf("InsertQuad: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	txn = store.Begin(false)
	defer txn.Rollback()

	it, err := txn.Query(&Pattern{
		Subject:   rdf.NewNamedNode("http://example.org/alice"),
		Predicate: NewVariable("p"),
		Object:    NewVariable("o"),
		Graph:     NewVariable("g"),
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer it.Close()

	count := 0
	for it.Next() {
		got, err := it.Quad()
		if err != nil {
			t.Fatalf("Quad: %v", err)
		}
		if got.Subject.String() != q.Subject.String() {
			t.Errorf("subject = %q, want %q", got.Subject.String(), q.Subject.String())
		}
		count++
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestGraphRegistrySurvivesQuadDeletion(t *testing.T) {
	store := openTestStore(t)

	g := rdf.NewNamedNode("http://example.org/g1")
	q := &rdf.Quad{
		Subject:   rdf.NewNamedNode("http://example.org/a"),
		Predicate: rdf.NewNamedNode("http://example.org/b"),
		Object:    rdf.NewNamedNode("http://example.org/c"),
		Graph:     g,
	}

	txn := store.Begin(true)
	if err := txn.InsertQuad(q); err != nil {
		t.Fatalf("InsertQuad: %v", err)
	}
	if err := txn.RemoveQuad(q); err != nil {
		t.Fatalf("RemoveQuad: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	txn = store.Begin(false)
	defer txn.Rollback()
	ok, err := txn.ContainsNamedGraph(g)
	if err != nil {
		t.Fatalf("ContainsNamedGraph: %v", err)
	}
	if !ok {
		t.Fatalf("graph registry entry should survive quad deletion")
	}
}

func TestClearAllEmptiesEverything(t *testing.T) {
	store := openTestStore(t)

	txn := store.Begin(true)
	for i := 0; i < 3; i++ {
		q := &rdf.Quad{
			Subject:   rdf.NewBlankNode("b1"),
			Predicate: rdf.NewNamedNode("http://example.org/p"),
			Object:    rdf.NewIntegerLiteral(int64(i)),
			Graph:     rdf.NewNamedNode("http://example.org/g"),
		}
		if err := txn.InsertQuad(q); err != nil {
			t.Fatalf("InsertQuad: %v", err)
		}
	}
	if err := txn.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	txn = store.Begin(false)
	defer txn.Rollback()
	it, err := txn.Query(&Pattern{Subject: NewVariable("s"), Predicate: NewVariable("p"), Object: NewVariable("o"), Graph: NewVariable("g")})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer it.Close()
	if it.Next() {
		t.Fatalf("expected no quads after ClearAll")
	}
}

func TestBulkLoaderRoundTrip(t *testing.T) {
	store := openTestStore(t)
	loader := NewBulkLoader(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		q := &rdf.Quad{
			Subject:   rdf.NewNamedNode("http://example.org/s"),
			Predicate: rdf.NewNamedNode("http://example.org/p"),
			Object:    rdf.NewIntegerLiteral(int64(i)),
		}
		if err := loader.Add(ctx, q); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := loader.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	txn := store.Begin(false)
	defer txn.Rollback()
	it, err := txn.Query(&Pattern{Subject: NewVariable("s"), Predicate: NewVariable("p"), Object: NewVariable("o")})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer it.Close()
	count := 0
	for it.Next() {
		count++
	}
	if count != 5 {
		t.Fatalf("count = %d, want 5", count)
	}
}
