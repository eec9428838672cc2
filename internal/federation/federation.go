// Package federation is the pluggable SERVICE-clause endpoint seam spec
// §6 calls for ("pluggable endpoint interface... delegates query
// execution to an external HTTP client"). internal/algebra calls back
// into a Resolver while evaluating a Service pattern; this package never
// imports internal/algebra in return, keeping the dependency one-way.
package federation

import (
	"context"
	"fmt"

	"github.com/rdfstore/rdfstore/pkg/rdf"
)

// Resolver executes a SPARQL query string against a remote endpoint
// named by iri and returns its solutions as plain variable-to-term
// bindings. One map per solution row; an unbound variable is simply
// absent from the map rather than present with a nil value.
type Resolver interface {
	Query(ctx context.Context, iri *rdf.NamedNode, sparqlText string) ([]map[string]rdf.Term, error)
}

// NopResolver rejects every SERVICE call, the default when a caller
// hasn't wired a real endpoint in. The HTTP transport itself is an
// external collaborator (spec §1); this package only defines the seam.
type NopResolver struct{}

func (NopResolver) Query(_ context.Context, iri *rdf.NamedNode, _ string) ([]map[string]rdf.Term, error) {
	return nil, fmt.Errorf("federation: no resolver configured for endpoint <%s>", iri.IRI)
}

// SilentResolver wraps another Resolver and implements SERVICE SILENT's
// "substitute an empty-mapping result" behavior (spec §4.7): any error
// from the underlying Resolver, including one raised by NopResolver,
// becomes a single empty solution instead of propagating.
type SilentResolver struct {
	Inner Resolver
}

func (s SilentResolver) Query(ctx context.Context, iri *rdf.NamedNode, sparqlText string) ([]map[string]rdf.Term, error) {
	inner := s.Inner
	if inner == nil {
		inner = NopResolver{}
	}
	rows, err := inner.Query(ctx, iri, sparqlText)
	if err != nil {
		return []map[string]rdf.Term{{}}, nil
	}
	return rows, nil
}

// Registry dispatches Query to a Resolver keyed by endpoint IRI,
// falling back to a default Resolver for any IRI it has no entry for.
// Lets a caller wire a handful of known federation partners without
// writing a custom Resolver per query.
type Registry struct {
	byIRI   map[string]Resolver
	Default Resolver
}

func NewRegistry() *Registry {
	return &Registry{byIRI: make(map[string]Resolver)}
}

// Register associates iri with resolver, overriding any prior entry.
func (r *Registry) Register(iri string, resolver Resolver) {
	r.byIRI[iri] = resolver
}

func (r *Registry) Query(ctx context.Context, iri *rdf.NamedNode, sparqlText string) ([]map[string]rdf.Term, error) {
	if resolver, ok := r.byIRI[iri.IRI]; ok {
		return resolver.Query(ctx, iri, sparqlText)
	}
	if r.Default != nil {
		return r.Default.Query(ctx, iri, sparqlText)
	}
	return NopResolver{}.Query(ctx, iri, sparqlText)
}
