package algebra

import "github.com/rdfstore/rdfstore/pkg/rdf"

// Binding is one solution mapping: variable name to bound term. Mirrors
// pkg/store.Binding.Vars; the teacher's internal "values" cache of
// pre-encoded terms has no equivalent here since this evaluator reads
// decoded rdf.Term values straight from quadstore.QuadIterator.
type Binding struct {
	Vars map[string]rdf.Term
	// Outer is the enclosing row for EXISTS/Lateral's outer-reference
	// protocol (spec §4.7): a read-only parent binding whose variables
	// are visible but never mutated by the inner evaluation.
	Outer *Binding
}

// NewBinding returns an empty binding with no outer scope.
func NewBinding() *Binding {
	return &Binding{Vars: make(map[string]rdf.Term)}
}

// Clone returns a shallow copy safe to extend independently.
func (b *Binding) Clone() *Binding {
	nb := &Binding{Vars: make(map[string]rdf.Term, len(b.Vars)), Outer: b.Outer}
	for k, v := range b.Vars {
		nb.Vars[k] = v
	}
	return nb
}

// Lookup resolves name in b, then in each enclosing Outer scope in turn.
func (b *Binding) Lookup(name string) (rdf.Term, bool) {
	for cur := b; cur != nil; cur = cur.Outer {
		if t, ok := cur.Vars[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// compatible reports whether a and b agree on every variable they share
// (SPARQL's compatible-mapping semantics, spec §4.7 "Join"): unbound
// positions never conflict ("NULL-matches-anything").
func compatible(a, b *Binding) bool {
	for k, v := range a.Vars {
		if ov, ok := b.Vars[k]; ok && !termEqual(v, ov) {
			return false
		}
	}
	return true
}

// merge returns a new binding carrying every variable from a and b,
// assuming compatible(a, b) already holds.
func merge(a, b *Binding) *Binding {
	m := a.Clone()
	for k, v := range b.Vars {
		m.Vars[k] = v
	}
	return m
}

// sharedVars reports whether a and b have at least one variable name in
// common, used by Minus's "if the two sides share no variable that is
// bound on any row" special case (spec §4.7).
func sharedVars(a, b *Binding) bool {
	for k := range a.Vars {
		if _, ok := b.Vars[k]; ok {
			return true
		}
	}
	return false
}

// termEqual is RDF-term identity (spec's "sameTerm"), used for join
// compatibility and DISTINCT/dedup signatures, which SPARQL defines
// structurally rather than via the value-space RDFterm-equal relation
// (that distinction only matters for "=" inside FILTER expressions).
func termEqual(a, b rdf.Term) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equals(b)
}
