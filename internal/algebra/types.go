// Package algebra implements the SPARQL algebra tree and its pull-based
// evaluator (spec C7). Pattern is the evaluator's actual external input
// boundary: spec.md §1 carves the SPARQL textual parser out as an
// external collaborator ("the evaluator consumes an already-parsed
// algebra tree"), so unlike the teacher — whose pkg/sparql/parser/ast.go
// doubles as both syntax tree and executor input — this package never
// imports a parser. Callers build a Pattern tree directly.
package algebra

import "github.com/rdfstore/rdfstore/pkg/rdf"

// Pattern is the sum type of every algebra operator spec §4.7 lists.
// Each concrete type below implements it with a no-op marker method.
type Pattern interface {
	isPattern()
}

// BGP is a basic graph pattern: a conjunction of triple patterns
// evaluated against the default graph (or the enclosing Graph's named
// graph, if nested under one).
type BGP struct {
	Triples []TriplePattern
}

// TriplePattern is one (possibly variable-bearing) triple inside a BGP,
// or one arm of a property-path expansion.
type TriplePattern struct {
	Subject   Term
	Predicate Term // nil when Path is set
	Object    Term
	Path      Path // non-nil for a property-path triple
}

// Term is either a constant rdf.Term or a *Variable. Mirrors the
// teacher's pkg/store.Pattern convention of typing positions `any`.
type Term = any

// Variable is a SPARQL query variable.
type Variable struct {
	Name string
}

func NewVariable(name string) *Variable { return &Variable{Name: name} }
func (v *Variable) String() string      { return "?" + v.Name }

// IsVariable reports whether t is a *Variable rather than a bound term.
func IsVariable(t Term) bool {
	_, ok := t.(*Variable)
	return ok
}

type Join struct{ Left, Right Pattern }

type LeftJoin struct {
	Left, Right Pattern
	Filter      Expr // optional OPTIONAL-clause join condition, nil if absent
}

type Minus struct{ Left, Right Pattern }

// Lateral evaluates Right once per solution of Left, with Right seeing
// Left's bindings as outer references (spec §4.7's outer-reference
// protocol, shared with EXISTS).
type Lateral struct{ Left, Right Pattern }

type Union struct{ Left, Right Pattern }

type Filter struct {
	Input Pattern
	Expr  Expr
}

// Extend adds a computed column (BIND).
type Extend struct {
	Input Pattern
	Var   string
	Expr  Expr
}

type Values struct {
	Vars []string
	Rows [][]rdf.Term // a nil entry at a row/column means UNDEF
}

type SortKey struct {
	Expr Expr
	Desc bool
}

type OrderBy struct {
	Input Pattern
	Keys  []SortKey
}

type Project struct {
	Input Pattern
	Vars  []string
}

type Distinct struct{ Input Pattern }
type Reduced struct{ Input Pattern }

type Slice struct {
	Input  Pattern
	Offset int64 // 0 means no offset
	Limit  int64 // -1 means no limit
}

// Group computes per-group aggregate columns (spec §4.7 "Group"). An
// empty Vars list with a non-empty Aggregates list still materializes
// exactly one group over an empty input, for COUNT(*) = 0 semantics.
type Group struct {
	Input      Pattern
	Vars       []string
	Aggregates []AggregateExpr
}

type AggregateExpr struct {
	Var      string // output variable
	Func     string // "SUM", "AVG", "MIN", "MAX", "COUNT", "GROUP_CONCAT", "SAMPLE"
	Expr     Expr   // nil for COUNT(*)
	Distinct bool
	Sep      string // GROUP_CONCAT SEPARATOR, "" means the default
}

// Graph restricts Input to one named graph (or, if Name is a *Variable,
// joins on the #graph# column across every named graph).
type Graph struct {
	Input Pattern
	Name  Term
}

// Service delegates to the external SPARQL-endpoint interface (spec §6,
// internal/federation.Resolver). SPARQL text is opaque to this package;
// the caller's Resolver implementation is responsible for it.
type Service struct {
	Endpoint Term // *rdf.NamedNode, or a *Variable for SERVICE ?var
	Query    string
	Silent   bool
}

func (BGP) isPattern()      {}
func (Join) isPattern()     {}
func (LeftJoin) isPattern() {}
func (Minus) isPattern()    {}
func (Lateral) isPattern()  {}
func (Union) isPattern()    {}
func (Filter) isPattern()   {}
func (Extend) isPattern()   {}
func (Values) isPattern()   {}
func (OrderBy) isPattern()  {}
func (Project) isPattern()  {}
func (Distinct) isPattern() {}
func (Reduced) isPattern()  {}
func (Slice) isPattern()    {}
func (Group) isPattern()    {}
func (Graph) isPattern()    {}
func (Service) isPattern()  {}
