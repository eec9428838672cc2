// Package quadstore is the quad store (spec C4): six-index maintenance,
// the graph-name registry, and the dictionary write-through, generalizing
// pkg/store/query.go's single default-graph/named-graph split into one
// unified six-index scheme where the default graph is indexed through the
// same six orderings as any named graph, using rdf.NewDefaultGraph() as
// an ordinary graph term.
package quadstore

import "github.com/rdfstore/rdfstore/pkg/rdf"

// Variable names an unbound position in a Pattern, mirroring
// store.Variable.
type Variable struct {
	Name string
}

func NewVariable(name string) *Variable { return &Variable{Name: name} }

func (v *Variable) String() string { return "?" + v.Name }

// Term is either an rdf.Term (bound) or a *Variable (unbound).
type Term = any

// Pattern is a quad pattern: each field is either a bound rdf.Term or a
// *Variable. A nil Graph matches the default graph only, mirroring the
// convention pkg/store/query.go uses for "pattern.Graph == nil".
type Pattern struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

func isVariable(v Term) bool {
	_, ok := v.(*Variable)
	return ok
}

// graphTerm resolves p.Graph to a concrete term for prefix-building
// purposes: an explicit bound graph, an explicit variable, or the default
// graph sentinel when the pattern leaves Graph unset.
func (p *Pattern) graphTerm() Term {
	if p.Graph == nil {
		return rdf.NewDefaultGraph()
	}
	return p.Graph
}
