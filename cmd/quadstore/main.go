// Command quadstore is a minimal demonstration of the store library:
// load an N-Quads file and run one SELECT-shaped query against it. The
// SPARQL textual syntax, a real CLI flag surface, and a results
// serializer are all out-of-scope external collaborators (spec.md §1);
// this only exercises the library's Go API directly.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/rdfstore/rdfstore/internal/algebra"
	"github.com/rdfstore/rdfstore/pkg/rdf"
	"github.com/rdfstore/rdfstore/store"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: quadstore <file.nq> [predicate-iri]")
		os.Exit(1)
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatalf("open %s: %v", os.Args[1], err)
	}
	defer f.Close()

	s, err := store.NewInMemory()
	if err != nil {
		log.Fatalf("new in-memory store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Load(ctx, f); err != nil {
		log.Fatalf("load: %v", err)
	}

	n, err := s.Len()
	if err != nil {
		log.Fatalf("len: %v", err)
	}
	fmt.Printf("loaded %d quads\n", n)

	pred := "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	if len(os.Args) >= 3 {
		pred = os.Args[2]
	}

	p := &algebra.BGP{Triples: []algebra.TriplePattern{{
		Subject:   algebra.NewVariable("s"),
		Predicate: rdf.NewNamedNode(pred),
		Object:    algebra.NewVariable("o"),
	}}}

	results, err := s.Query(ctx, store.FormSelect, p, []string{"s", "o"}, nil, store.DatasetSpec{}, nil, nil)
	if err != nil {
		log.Fatalf("query: %v", err)
	}
	defer results.Close()

	for results.Solutions.Next() {
		row := results.Solutions.Binding()
		sVal, _ := row.Lookup("s")
		oVal, _ := row.Lookup("o")
		fmt.Printf("%s\t%s\n", sVal, oVal)
	}
}
