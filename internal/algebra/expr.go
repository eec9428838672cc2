package algebra

import "github.com/rdfstore/rdfstore/pkg/rdf"

// Expr is a scalar expression tree, evaluated per-binding by Evaluator
// against internal/expr's function Registry.
type Expr interface {
	isExpr()
}

// VarExpr looks up a variable in the current binding; unbound yields
// "undefined" per spec §4.5/§4.6.
type VarExpr struct{ Name string }

// TermExpr is a constant term literal.
type TermExpr struct{ Term rdf.Term }

// CallExpr invokes a registered function (an IRI, or one of the
// operator-syntax names internal/expr.registerOperators binds:
// "+ - * / = != < <= > >= !").
type CallExpr struct {
	Name string
	Args []Expr
}

// AndExpr / OrExpr short-circuit per SPARQL's three-valued-logic table
// (spec §4.7's Filter uses EBV; these nodes implement the short-circuit
// the plain "&&"/"||" builtins in internal/expr cannot, since those see
// both operands already evaluated).
type AndExpr struct{ Left, Right Expr }
type OrExpr struct{ Left, Right Expr }

// ExistsExpr evaluates Pattern against the current outer binding and
// yields true iff it has at least one solution; with Not set (NOT
// EXISTS) it yields true iff it has none.
type ExistsExpr struct {
	Pattern Pattern
	Not     bool
}

// InExpr implements "x IN (e1, ..., en)" / "x NOT IN (...)" as
// disjunction/conjunction of equality tests (spec §4.5 term equality).
type InExpr struct {
	Expr   Expr
	Values []Expr
	Not    bool
}

func (VarExpr) isExpr()    {}
func (TermExpr) isExpr()   {}
func (CallExpr) isExpr()   {}
func (AndExpr) isExpr()    {}
func (OrExpr) isExpr()     {}
func (ExistsExpr) isExpr() {}
func (InExpr) isExpr()     {}
