package algebra

import "github.com/rdfstore/rdfstore/pkg/rdf"

// Path is a SPARQL 1.1 property path expression (spec §4.7 "Property
// paths... translated into a fixed-point graph pattern").
type Path interface {
	isPath()
}

// PathLink is a single predicate IRI traversed forward.
type PathLink struct{ IRI *rdf.NamedNode }

// PathInverse reverses its inner path's direction (^path).
type PathInverse struct{ Path Path }

// PathSequence is path1 / path2.
type PathSequence struct{ Left, Right Path }

// PathAlternative is path1 | path2.
type PathAlternative struct{ Left, Right Path }

// PathZeroOrMore is path* — reflexive-transitive closure.
type PathZeroOrMore struct{ Path Path }

// PathOneOrMore is path+ — transitive closure.
type PathOneOrMore struct{ Path Path }

// PathZeroOrOne is path? — optional single hop.
type PathZeroOrOne struct{ Path Path }

// PathNegatedPropertySet is !(iri1|...|^irik|...): matches any predicate
// edge, forward or (for ^-prefixed members) reverse, whose predicate is
// not in the named set (Open Question OQ-3: realized as a single
// fixed-point step with a predicate-membership filter).
type PathNegatedPropertySet struct {
	Forward []*rdf.NamedNode
	Inverse []*rdf.NamedNode
}

func (PathLink) isPath()                 {}
func (PathInverse) isPath()              {}
func (PathSequence) isPath()             {}
func (PathAlternative) isPath()          {}
func (PathZeroOrMore) isPath()           {}
func (PathOneOrMore) isPath()            {}
func (PathZeroOrOne) isPath()            {}
func (PathNegatedPropertySet) isPath()   {}
